package firmware

import (
	"fmt"
	"io"
	"os"
)

// Load reads a raw application binary from the given file path and splits it
// into pages starting at base.
//
// Example:
//
//	img, err := firmware.Load("app.bin", 0x10000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d pages\n", len(img.Pages))
func Load(path string, base uint32) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return FromReader(f, base)
}

// FromReader reads a raw application binary from any io.Reader.
// This is useful for testing and reading from non-file sources.
//
// Example:
//
//	img, err := firmware.FromReader(bytes.NewReader(appBytes), 0x10000)
func FromReader(r io.Reader, base uint32) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read binary: %w", err)
	}

	return FromBinary(base, data)
}
