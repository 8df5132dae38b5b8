package firmware

import (
	"fmt"

	"github.com/tock-tools/go-tockbl/protocol"
)

// PadByte fills the tail of the last page; erased flash reads as 0xFF.
const PadByte = 0xFF

// Image represents an application binary split into internal flash pages.
type Image struct {
	// BaseAddress is the flash address of the first page
	BaseAddress uint32

	// Pages contains the page-sized chunks to be written, in address order
	Pages []*Page
}

// Page represents a single internal flash page of an image.
type Page struct {
	// Address is the flash address this page is written to
	Address uint32

	// Data is exactly one page (512 bytes) of application data
	Data []byte
}

// Size returns the total number of bytes the image occupies in flash,
// including tail padding.
func (img *Image) Size() int {
	return len(img.Pages) * protocol.IntPageSize
}

// FromBinary splits a raw application binary into internal flash pages
// starting at base. The base address must be page-aligned; the final page is
// padded with 0xFF to a full page.
//
// Example:
//
//	img, err := firmware.FromBinary(0x10000, appBytes)
func FromBinary(base uint32, data []byte) (*Image, error) {
	if base%protocol.IntPageSize != 0 {
		return nil, fmt.Errorf("base address 0x%08X is not aligned to %d-byte pages",
			base, protocol.IntPageSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("binary is empty")
	}

	pageCount := (len(data) + protocol.IntPageSize - 1) / protocol.IntPageSize
	img := &Image{
		BaseAddress: base,
		Pages:       make([]*Page, 0, pageCount),
	}

	for i := 0; i < pageCount; i++ {
		start := i * protocol.IntPageSize
		end := start + protocol.IntPageSize

		page := make([]byte, protocol.IntPageSize)
		if end <= len(data) {
			copy(page, data[start:end])
		} else {
			n := copy(page, data[start:])
			for j := n; j < len(page); j++ {
				page[j] = PadByte
			}
		}

		img.Pages = append(img.Pages, &Page{
			Address: base + uint32(start),
			Data:    page,
		})
	}

	return img, nil
}
