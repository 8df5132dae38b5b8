package loader

import (
	"bytes"
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/tock-tools/go-tockbl/firmware"
	"github.com/tock-tools/go-tockbl/protocol"
)

// Loader drives a Tock-style serial bootloader over a byte stream.
// It sequences command frames, arms the response decoder where the protocol
// requires it, and exposes one method per bootloader operation.
//
// Loader is safe for sequential use; callers must not interleave operations
// from multiple goroutines on the same device.
type Loader struct {
	device io.ReadWriter
	config Config
}

// Attribute is a decoded key/value entry from the bootloader attribute table.
type Attribute struct {
	// Key is the attribute name with trailing NUL padding removed
	Key string

	// Value is the attribute payload, up to 55 bytes
	Value []byte
}

// New creates a new Loader with the given device and options.
// The device must implement io.ReadWriter for communication with the
// bootloader.
//
// Example:
//
//	port, _ := serial.Open("/dev/ttyUSB0", &serial.Mode{BaudRate: 115200})
//	ldr := loader.New(port,
//	    loader.WithProgressCallback(progressFunc),
//	    loader.WithTimeout(10*time.Second),
//	)
func New(device io.ReadWriter, opts ...Option) *Loader {
	if device == nil {
		panic("device cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Loader{
		device: device,
		config: cfg,
	}
}

// Ping checks that the bootloader is present and responsive.
func (l *Loader) Ping(ctx context.Context) error {
	resp, err := l.transact(ctx, protocol.PingCommand{}, noArm)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if _, ok := resp.(protocol.PongResponse); !ok {
		return statusOrUnexpected("ping", resp)
	}
	return nil
}

// Info requests the bootloader's information block.
func (l *Loader) Info(ctx context.Context) ([]byte, error) {
	resp, err := l.transact(ctx, protocol.InfoCommand{}, noArm)
	if err != nil {
		return nil, fmt.Errorf("info: %w", err)
	}
	info, ok := resp.(protocol.InfoResponse)
	if !ok {
		return nil, statusOrUnexpected("info", resp)
	}
	return append([]byte(nil), info.Info...), nil
}

// ErasePage erases the internal flash page at the given address.
func (l *Loader) ErasePage(ctx context.Context, address uint32) error {
	return l.expectOK(ctx, "erase page", protocol.ErasePageCommand{Address: address})
}

// WritePage writes one 512-byte internal flash page at the given address.
func (l *Loader) WritePage(ctx context.Context, address uint32, data []byte) error {
	return l.expectOK(ctx, "write page", protocol.WritePageCommand{Address: address, Data: data})
}

// EraseExPage erases the external flash page at the given address.
func (l *Loader) EraseExPage(ctx context.Context, address uint32) error {
	return l.expectOK(ctx, "erase external page", protocol.EraseExPageCommand{Address: address})
}

// EraseExBlock erases the external flash block at the given address.
func (l *Loader) EraseExBlock(ctx context.Context, address uint32) error {
	return l.expectOK(ctx, "erase external block", protocol.EraseExBlockCommand{Address: address})
}

// WriteExPage writes one 256-byte external flash page at the given address.
func (l *Loader) WriteExPage(ctx context.Context, address uint32, data []byte) error {
	return l.expectOK(ctx, "write external page", protocol.WriteExPageCommand{Address: address, Data: data})
}

// ExtFlashInit asks the bootloader to initialize the external flash chip.
func (l *Loader) ExtFlashInit(ctx context.Context) error {
	return l.expectOK(ctx, "external flash init", protocol.ExtFlashInitCommand{})
}

// WriteUserPages writes the two flash user pages.
func (l *Loader) WriteUserPages(ctx context.Context, page1, page2 uint32) error {
	return l.expectOK(ctx, "write user pages", protocol.WriteUserPagesCommand{Page1: page1, Page2: page2})
}

// ReadRange reads length bytes of internal flash starting at address.
// The response carries no length of its own, so the requested length arms
// the response decoder before any bytes arrive.
func (l *Loader) ReadRange(ctx context.Context, address uint32, length uint16) ([]byte, error) {
	resp, err := l.transact(ctx, protocol.ReadRangeCommand{Address: address, Length: length}, int(length))
	if err != nil {
		return nil, fmt.Errorf("read range: %w", err)
	}
	data, ok := resp.(protocol.ReadRangeResponse)
	if !ok {
		return nil, statusOrUnexpected("read range", resp)
	}
	return append([]byte(nil), data.Data...), nil
}

// ExReadRange reads length bytes of external flash starting at address.
// Like ReadRange, the requested length arms the response decoder.
func (l *Loader) ExReadRange(ctx context.Context, address uint32, length uint16) ([]byte, error) {
	resp, err := l.transact(ctx, protocol.ExReadRangeCommand{Address: address, Length: length}, int(length))
	if err != nil {
		return nil, fmt.Errorf("external read range: %w", err)
	}
	data, ok := resp.(protocol.ExReadRangeResponse)
	if !ok {
		return nil, statusOrUnexpected("external read range", resp)
	}
	return append([]byte(nil), data.Data...), nil
}

// CrcInternalFlash asks the bootloader for the CRC32 of an internal flash range.
func (l *Loader) CrcInternalFlash(ctx context.Context, address, length uint32) (uint32, error) {
	resp, err := l.transact(ctx, protocol.CrcIntFlashCommand{Address: address, Length: length}, noArm)
	if err != nil {
		return 0, fmt.Errorf("crc internal flash: %w", err)
	}
	crc, ok := resp.(protocol.CrcIntFlashResponse)
	if !ok {
		return 0, statusOrUnexpected("crc internal flash", resp)
	}
	return crc.Crc, nil
}

// CrcExternalFlash asks the bootloader for the CRC32 of an external flash range.
func (l *Loader) CrcExternalFlash(ctx context.Context, address, length uint32) (uint32, error) {
	resp, err := l.transact(ctx, protocol.CrcExtFlashCommand{Address: address, Length: length}, noArm)
	if err != nil {
		return 0, fmt.Errorf("crc external flash: %w", err)
	}
	crc, ok := resp.(protocol.CrcExtFlashResponse)
	if !ok {
		return 0, statusOrUnexpected("crc external flash", resp)
	}
	return crc.Crc, nil
}

// CrcRxBuffer asks the bootloader for the length and CRC32 of its receive
// buffer.
func (l *Loader) CrcRxBuffer(ctx context.Context) (uint16, uint32, error) {
	resp, err := l.transact(ctx, protocol.CrcRxBufferCommand{}, noArm)
	if err != nil {
		return 0, 0, fmt.Errorf("crc rx buffer: %w", err)
	}
	crc, ok := resp.(protocol.CrcRxBufferResponse)
	if !ok {
		return 0, 0, statusOrUnexpected("crc rx buffer", resp)
	}
	return crc.Length, crc.Crc, nil
}

// SetAttribute stores a key/value pair in the bootloader attribute table.
// The key may be at most 8 characters and is NUL-padded on the wire.
func (l *Loader) SetAttribute(ctx context.Context, index byte, key string, value []byte) error {
	if len(key) > protocol.KeyLength {
		return fmt.Errorf("set attribute: key %q is longer than %d bytes", key, protocol.KeyLength)
	}
	padded := make([]byte, protocol.KeyLength)
	copy(padded, key)

	return l.expectOK(ctx, "set attribute", protocol.SetAttrCommand{
		Index: index,
		Key:   padded,
		Value: value,
	})
}

// GetAttribute reads the attribute table entry at the given index.
func (l *Loader) GetAttribute(ctx context.Context, index byte) (Attribute, error) {
	resp, err := l.transact(ctx, protocol.GetAttrCommand{Index: index}, noArm)
	if err != nil {
		return Attribute{}, fmt.Errorf("get attribute: %w", err)
	}
	attr, ok := resp.(protocol.GetAttrResponse)
	if !ok {
		return Attribute{}, statusOrUnexpected("get attribute", resp)
	}
	return Attribute{
		Key:   string(bytes.TrimRight(attr.Key, "\x00")),
		Value: append([]byte(nil), attr.Value...),
	}, nil
}

// ChangeBaud drives the two-phase baud rate handshake. Mode Set asks the
// bootloader to switch; the caller must then reconfigure the port and call
// again with mode Verify at the new rate.
func (l *Loader) ChangeBaud(ctx context.Context, mode protocol.BaudMode, baud uint32) error {
	return l.expectOK(ctx, "change baud", protocol.ChangeBaudCommand{Mode: mode, Baud: baud})
}

// Reset asks the bootloader to reset its receive state. The bootloader sends
// no response, so this is fire-and-forget.
func (l *Loader) Reset(ctx context.Context) error {
	frame, err := protocol.EncodeCommand(protocol.ResetCommand{})
	if err != nil {
		return err
	}
	return l.send(ctx, frame)
}

// FlashImage writes a firmware image to internal flash:
//  1. Ping the bootloader to confirm it is responsive
//  2. Write every page with progress tracking
//  3. Verify each written page by CRC32, if enabled
//
// The operation can be cancelled via context.
//
// Example:
//
//	img, _ := firmware.Load("app.bin", 0x10000)
//	err := ldr.FlashImage(context.Background(), img)
func (l *Loader) FlashImage(ctx context.Context, img *firmware.Image) error {
	if img == nil || len(img.Pages) == 0 {
		return fmt.Errorf("image has no pages")
	}

	startTime := time.Now()
	total := len(img.Pages)

	l.reportProgress(Progress{
		Phase:      PhaseProbing,
		TotalPages: total,
	})

	if err := l.Ping(ctx); err != nil {
		return fmt.Errorf("probe bootloader: %w", err)
	}

	bytesWritten := 0
	for i, page := range img.Pages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		if err := l.WritePage(ctx, page.Address, page.Data); err != nil {
			return fmt.Errorf("write page %d at 0x%08X: %w", i, page.Address, err)
		}

		bytesWritten += len(page.Data)

		// Report progress (0% to 90%; verification takes the rest)
		percentage := (float64(i+1) / float64(total)) * 90
		l.reportProgress(Progress{
			Phase:        PhaseWriting,
			CurrentPage:  i + 1,
			TotalPages:   total,
			Percentage:   percentage,
			BytesWritten: bytesWritten,
			ElapsedTime:  time.Since(startTime),
		})
	}

	if l.config.VerifyAfterWrite {
		l.reportProgress(Progress{
			Phase:        PhaseVerifying,
			CurrentPage:  total,
			TotalPages:   total,
			Percentage:   92,
			BytesWritten: bytesWritten,
			ElapsedTime:  time.Since(startTime),
		})

		for i, page := range img.Pages {
			if err := l.verifyPage(ctx, page); err != nil {
				return fmt.Errorf("verify page %d: %w", i, err)
			}
		}
	}

	l.reportProgress(Progress{
		Phase:        PhaseComplete,
		CurrentPage:  total,
		TotalPages:   total,
		Percentage:   100,
		BytesWritten: bytesWritten,
		ElapsedTime:  time.Since(startTime),
	})

	l.logInfo("flashing complete",
		"pages", total,
		"bytes", bytesWritten,
		"elapsed", time.Since(startTime).String(),
	)

	return nil
}

// verifyPage compares the bootloader's CRC of a written page against the CRC
// of the data that was sent.
func (l *Loader) verifyPage(ctx context.Context, page *firmware.Page) error {
	crc, err := l.CrcInternalFlash(ctx, page.Address, uint32(len(page.Data)))
	if err != nil {
		return err
	}

	expected := crc32.ChecksumIEEE(page.Data)
	if crc != expected {
		return &CrcMismatchError{
			Address:  page.Address,
			Length:   uint32(len(page.Data)),
			Expected: expected,
			Actual:   crc,
		}
	}
	return nil
}

// noArm tells transact not to arm the response decoder.
const noArm = -1

// expectOK runs a command whose only success response is OK.
func (l *Loader) expectOK(ctx context.Context, operation string, cmd protocol.Command) error {
	resp, err := l.transact(ctx, cmd, noArm)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if _, ok := resp.(protocol.OKResponse); !ok {
		return statusOrUnexpected(operation, resp)
	}
	return nil
}

// transact encodes a command and runs write/decode cycles until one succeeds
// or the retry budget is exhausted.
func (l *Loader) transact(ctx context.Context, cmd protocol.Command, armLen int) (protocol.Response, error) {
	frame, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= l.config.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := l.exchange(ctx, frame, armLen)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		l.logDebug("command attempt failed",
			"attempt", attempt+1,
			"retries", l.config.Retries,
			"error", err.Error(),
		)
	}

	return nil, lastErr
}

// exchange writes one command frame and collects one complete response,
// feeding received bytes to a fresh decoder.
func (l *Loader) exchange(ctx context.Context, frame []byte, armLen int) (protocol.Response, error) {
	if err := l.send(ctx, frame); err != nil {
		return nil, err
	}

	dec := protocol.NewResponseDecoder()
	if armLen >= 0 {
		if err := dec.SetPayloadLen(armLen); err != nil {
			return nil, err
		}
	}

	deadline := time.Now().Add(l.config.ReadTimeout)
	buf := make([]byte, protocol.DecoderBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}

		n, err := l.device.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		for i := 0; i < n; i++ {
			resp, err := dec.Receive(buf[i])
			if err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			if resp != nil {
				return resp, nil
			}
		}
	}
}

// send writes one command frame and applies the inter-command delay.
func (l *Loader) send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := l.device.Write(frame); err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	if l.config.CommandDelay > 0 {
		time.Sleep(l.config.CommandDelay)
	}
	return nil
}

// statusOrUnexpected classifies a wrong-kind response: protocol-level failure
// statuses become StatusError, anything else UnexpectedResponseError.
func statusOrUnexpected(operation string, resp protocol.Response) error {
	switch resp.(type) {
	case protocol.OverflowResponse,
		protocol.BadAddressResponse,
		protocol.InternalErrorResponse,
		protocol.BadArgumentsResponse,
		protocol.UnknownResponse,
		protocol.ExtFlashTimeoutResponse,
		protocol.ExtFlashPageErrorResponse,
		protocol.ChangeBaudFailResponse:
		return &StatusError{Operation: operation, Response: resp}
	}
	return &UnexpectedResponseError{Operation: operation, Got: resp}
}

// reportProgress calls the progress callback if configured.
func (l *Loader) reportProgress(progress Progress) {
	if l.config.ProgressCallback != nil {
		l.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (l *Loader) logDebug(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (l *Loader) logInfo(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Info(msg, keysAndValues...)
	}
}
