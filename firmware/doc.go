// Package firmware represents application binaries as internal flash pages.
//
// The bootloader writes internal flash in fixed 512-byte pages, so a raw
// application binary is split into page-sized chunks before flashing. The
// final page is padded with 0xFF, matching the erased state of flash.
//
// Example:
//
//	img, err := firmware.Load("app.bin", 0x10000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, page := range img.Pages {
//	    fmt.Printf("page at 0x%08X (%d bytes)\n", page.Address, len(page.Data))
//	}
package firmware
