package loader

import "time"

// Config holds the loader configuration.
type Config struct {
	// ProgressCallback is called during flashing to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// ReadTimeout is the timeout for collecting a complete response
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for write operations
	WriteTimeout time.Duration

	// Retries is the number of retry attempts for failed commands
	Retries int

	// VerifyAfterWrite enables a CRC check of the flashed region after
	// all pages have been written
	VerifyAfterWrite bool

	// CommandDelay is an optional pause inserted after each command write,
	// for bootloaders that need settling time between frames
	CommandDelay time.Duration
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		Retries:          3,
		VerifyAfterWrite: true,
	}
}

// Option is a functional option for configuring the Loader.
type Option func(*Config)

// WithProgressCallback sets a callback function to track flashing progress.
//
// Example:
//
//	ldr := loader.New(device,
//	    loader.WithProgressCallback(func(p loader.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the loader operations.
//
// Example:
//
//	ldr := loader.New(device, loader.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTimeout sets both read and write timeouts.
//
// Example:
//
//	ldr := loader.New(device, loader.WithTimeout(10*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = timeout
		c.WriteTimeout = timeout
	}
}

// WithReadTimeout sets the timeout for collecting a complete response.
//
// Example:
//
//	ldr := loader.New(device, loader.WithReadTimeout(5*time.Second))
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = timeout
	}
}

// WithWriteTimeout sets the write timeout.
//
// Example:
//
//	ldr := loader.New(device, loader.WithWriteTimeout(5*time.Second))
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.WriteTimeout = timeout
	}
}

// WithRetries sets the number of retry attempts for failed commands.
//
// Example:
//
//	ldr := loader.New(device, loader.WithRetries(5))
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.Retries = retries
		}
	}
}

// WithVerifyAfterWrite enables or disables the CRC check after flashing.
// Default is true.
//
// Example:
//
//	ldr := loader.New(device, loader.WithVerifyAfterWrite(false))
func WithVerifyAfterWrite(verify bool) Option {
	return func(c *Config) {
		c.VerifyAfterWrite = verify
	}
}

// WithCommandDelay sets a pause inserted after each command write.
// Default is no delay.
//
// Example:
//
//	ldr := loader.New(device, loader.WithCommandDelay(2*time.Millisecond))
func WithCommandDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.CommandDelay = delay
		}
	}
}
