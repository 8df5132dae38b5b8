package loader

import "time"

// Phases reported through Progress.Phase during FlashImage.
const (
	// PhaseProbing means the loader is pinging the bootloader.
	PhaseProbing = "probing"

	// PhaseWriting means flash pages are being written.
	PhaseWriting = "writing"

	// PhaseVerifying means written ranges are being CRC-checked.
	PhaseVerifying = "verifying"

	// PhaseComplete means the operation finished successfully.
	PhaseComplete = "complete"
)

// Progress contains information about a flashing operation in progress.
// Passed to ProgressCallback during FlashImage.
type Progress struct {
	// Phase is one of the Phase* constants above
	Phase string

	// CurrentPage is the number of pages written so far
	CurrentPage int

	// TotalPages is the total number of pages to write
	TotalPages int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesWritten is the total number of payload bytes written so far
	BytesWritten int

	// ElapsedTime is the time elapsed since the operation started
	ElapsedTime time.Duration
}

// ProgressCallback is called periodically during flashing to report progress.
// Implementations should return quickly to avoid blocking the write loop.
//
// Example:
//
//	ldr := loader.New(device,
//	    loader.WithProgressCallback(func(p loader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Page %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentPage, p.TotalPages)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the loader.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	ldr := loader.New(device, loader.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
