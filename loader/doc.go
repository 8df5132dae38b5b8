// Package loader provides a high-level API for driving a Tock-style serial
// bootloader.
//
// # Overview
//
// This package sequences the bootloader conversation on top of the protocol
// codec:
//   - One method per bootloader operation (Ping, WritePage, ReadRange, ...)
//   - Response decoder arming for the read commands that require it
//   - Retries, timeouts, and inter-command delays
//   - Whole-image flashing with CRC32 verification and progress tracking
//
// # Basic Usage
//
// The simplest way to flash a device:
//
//	// User provides hardware communication (io.ReadWriter)
//	port, err := serial.Open("/dev/ttyUSB0", &serial.Mode{BaudRate: 115200})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load a raw application binary as 512-byte pages
//	img, err := firmware.Load("app.bin", 0x10000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ldr := loader.New(port)
//	if err := ldr.FlashImage(context.Background(), img); err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
// Track flashing progress with a callback:
//
//	ldr := loader.New(port,
//	    loader.WithProgressCallback(func(p loader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Page %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentPage, p.TotalPages)
//	    }),
//	)
//
// # Configuration Options
//
// Customize behavior with functional options:
//
//	ldr := loader.New(port,
//	    loader.WithLogger(myLogger),
//	    loader.WithTimeout(10*time.Second),
//	    loader.WithRetries(5),
//	    loader.WithCommandDelay(2*time.Millisecond),
//	    loader.WithVerifyAfterWrite(true),
//	)
//
// # Reading Back Flash
//
// ReadRange and ExReadRange return raw flash contents. Their responses carry
// no length field, so the loader arms the response decoder with the requested
// length before the reply arrives:
//
//	data, err := ldr.ReadRange(ctx, 0x10000, 512)
//
// # Error Handling
//
// Failure statuses from the bootloader are returned as *StatusError.
// Well-formed responses of the wrong kind become *UnexpectedResponseError,
// and CRC verification failures are reported as *CrcMismatchError. A response
// that never arrives yields ErrTimeout.
package loader
