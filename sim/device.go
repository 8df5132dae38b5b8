// Package sim implements an in-memory bootloader device. It speaks the
// device side of the serial protocol: commands in, responses out, backed by
// simulated internal and external flash and an attribute table.
//
// The simulator is used by loader tests and examples in place of real
// hardware:
//
//	host, dev := net.Pipe()
//	go sim.NewDevice().Serve(context.Background(), dev)
//	ldr := loader.New(host)
package sim

import (
	"context"
	"errors"
	"hash/crc32"
	"io"

	"github.com/tock-tools/go-tockbl/protocol"
)

// extBlockSize is the external flash erase-block size (8 pages).
const extBlockSize = 8 * protocol.ExtPageSize

// attribute is one slot of the device attribute table.
type attribute struct {
	key   [protocol.KeyLength]byte
	value []byte
	set   bool
}

// Device is an in-memory bootloader. The zero value is not usable; create
// instances with NewDevice. Device is not safe for concurrent use.
type Device struct {
	dec      *protocol.CommandDecoder
	intFlash map[uint32][]byte
	extFlash map[uint32][]byte
	attrs    [protocol.MaxAttrIndex + 1]attribute
	info     []byte

	// pendingBaud holds a rate proposed via the set phase of the baud
	// handshake, awaiting verification
	pendingBaud uint32
}

// NewDevice creates a simulated bootloader with empty flash and the default
// info block.
func NewDevice() *Device {
	return &Device{
		dec:      protocol.NewCommandDecoder(),
		intFlash: make(map[uint32][]byte),
		extFlash: make(map[uint32][]byte),
		info:     []byte("tockbl10"),
	}
}

// SetInfo replaces the device info block. The info must fit the protocol's
// info length limit.
func (d *Device) SetInfo(info []byte) error {
	if len(info) > protocol.MaxInfoLength {
		return protocol.ErrBadArguments
	}
	d.info = append([]byte(nil), info...)
	return nil
}

// Receive feeds one received byte to the device. When a complete command has
// arrived and produced a reply, the response is returned with ok=true.
// Commands that send no reply (reset, clock out) return ok=false.
func (d *Device) Receive(b byte) (protocol.Response, bool) {
	cmd, err := d.dec.Receive(b)
	if err != nil {
		return protocol.BadArgumentsResponse{}, true
	}
	if cmd == nil {
		return nil, false
	}
	return d.execute(cmd)
}

// Serve reads bytes from the stream, executes the commands they carry, and
// writes the encoded responses back. It returns when the stream closes or the
// context is cancelled.
func (d *Device) Serve(ctx context.Context, rw io.ReadWriter) error {
	buf := make([]byte, protocol.DecoderBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := rw.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}

		for i := 0; i < n; i++ {
			resp, ok := d.Receive(buf[i])
			if !ok {
				continue
			}

			frame, err := protocol.EncodeResponse(resp)
			if err != nil {
				return err
			}
			if _, err := rw.Write(frame); err != nil {
				return err
			}
		}
	}
}

// execute runs one decoded command against the device state.
func (d *Device) execute(cmd protocol.Command) (protocol.Response, bool) {
	switch c := cmd.(type) {
	case protocol.PingCommand:
		return protocol.PongResponse{}, true

	case protocol.InfoCommand:
		return protocol.InfoResponse{Info: d.info}, true

	case protocol.IDCommand:
		// Not implemented by the bootloader
		return protocol.UnknownResponse{}, true

	case protocol.ResetCommand:
		d.dec.Reset()
		d.pendingBaud = 0
		return nil, false

	case protocol.ClockOutCommand:
		return nil, false

	case protocol.ErasePageCommand:
		if c.Address%protocol.IntPageSize != 0 {
			return protocol.BadAddressResponse{}, true
		}
		delete(d.intFlash, c.Address)
		return protocol.OKResponse{}, true

	case protocol.WritePageCommand:
		if c.Address%protocol.IntPageSize != 0 {
			return protocol.BadAddressResponse{}, true
		}
		d.intFlash[c.Address] = append([]byte(nil), c.Data...)
		return protocol.OKResponse{}, true

	case protocol.EraseExBlockCommand:
		if c.Address%extBlockSize != 0 {
			return protocol.BadAddressResponse{}, true
		}
		for offset := uint32(0); offset < extBlockSize; offset += protocol.ExtPageSize {
			delete(d.extFlash, c.Address+offset)
		}
		return protocol.OKResponse{}, true

	case protocol.EraseExPageCommand:
		if c.Address%protocol.ExtPageSize != 0 {
			return protocol.BadAddressResponse{}, true
		}
		delete(d.extFlash, c.Address)
		return protocol.OKResponse{}, true

	case protocol.WriteExPageCommand:
		if c.Address%protocol.ExtPageSize != 0 {
			return protocol.BadAddressResponse{}, true
		}
		d.extFlash[c.Address] = append([]byte(nil), c.Data...)
		return protocol.OKResponse{}, true

	case protocol.ExtFlashInitCommand:
		return protocol.OKResponse{}, true

	case protocol.WriteUserPagesCommand:
		return protocol.OKResponse{}, true

	case protocol.CrcRxBufferCommand:
		// The staging buffer is not modeled
		return protocol.InternalErrorResponse{}, true

	case protocol.ReadRangeCommand:
		data := readFlash(d.intFlash, protocol.IntPageSize, c.Address, int(c.Length))
		return protocol.ReadRangeResponse{Data: data}, true

	case protocol.ExReadRangeCommand:
		data := readFlash(d.extFlash, protocol.ExtPageSize, c.Address, int(c.Length))
		return protocol.ExReadRangeResponse{Data: data}, true

	case protocol.CrcIntFlashCommand:
		data := readFlash(d.intFlash, protocol.IntPageSize, c.Address, int(c.Length))
		return protocol.CrcIntFlashResponse{Crc: crc32.ChecksumIEEE(data)}, true

	case protocol.CrcExtFlashCommand:
		data := readFlash(d.extFlash, protocol.ExtPageSize, c.Address, int(c.Length))
		return protocol.CrcExtFlashResponse{Crc: crc32.ChecksumIEEE(data)}, true

	case protocol.SetAttrCommand:
		attr := &d.attrs[c.Index]
		copy(attr.key[:], c.Key)
		attr.value = append([]byte(nil), c.Value...)
		attr.set = true
		return protocol.OKResponse{}, true

	case protocol.GetAttrCommand:
		if c.Index > protocol.MaxAttrIndex {
			return protocol.BadArgumentsResponse{}, true
		}
		attr := d.attrs[c.Index]
		return protocol.GetAttrResponse{
			Key:   attr.key[:],
			Value: attr.value,
		}, true

	case protocol.ChangeBaudCommand:
		switch c.Mode {
		case protocol.BaudModeSet:
			d.pendingBaud = c.Baud
			return protocol.OKResponse{}, true
		case protocol.BaudModeVerify:
			if d.pendingBaud == c.Baud && c.Baud != 0 {
				d.pendingBaud = 0
				return protocol.OKResponse{}, true
			}
			return protocol.ChangeBaudFailResponse{}, true
		}
		return protocol.BadArgumentsResponse{}, true

	default:
		return protocol.UnknownResponse{}, true
	}
}

// readFlash assembles a byte range from a page map. Unwritten flash reads as
// 0xFF.
func readFlash(pages map[uint32][]byte, pageSize int, address uint32, length int) []byte {
	out := make([]byte, length)
	for i := range out {
		addr := address + uint32(i)
		base := addr - addr%uint32(pageSize)
		page, ok := pages[base]
		offset := int(addr - base)
		if ok && offset < len(page) {
			out[i] = page[offset]
		} else {
			out[i] = 0xFF
		}
	}
	return out
}
