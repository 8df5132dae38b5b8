package protocol

// CommandEncoder turns a Command into wire bytes, one at a time. This is
// the flash tool side of the protocol.
//
// The payload is rendered in field order, followed by the escape/opcode
// trailer. The caller's payload slices are borrowed, not copied, and must
// stay valid until the encoder is exhausted.
type CommandEncoder struct {
	command Command
	count   int
	renderer
}

// NewCommandEncoder creates an encoder for cmd. Structural constraints are
// checked here, before any byte is produced: an invalid command is rejected
// with ErrBadArguments and never emits a partial frame.
func NewCommandEncoder(cmd Command) (*CommandEncoder, error) {
	switch c := cmd.(type) {
	case nil:
		return nil, ErrBadArguments
	case WritePageCommand:
		if len(c.Data) != IntPageSize {
			return nil, ErrBadArguments
		}
	case WriteExPageCommand:
		if len(c.Data) != ExtPageSize {
			return nil, ErrBadArguments
		}
	case SetAttrCommand:
		if c.Index > MaxAttrIndex || len(c.Key) != KeyLength || len(c.Value) > MaxAttrValueLength {
			return nil, ErrBadArguments
		}
	case ChangeBaudCommand:
		if c.Mode != BaudModeSet && c.Mode != BaudModeVerify {
			return nil, ErrBadArguments
		}
	}
	return &CommandEncoder{command: cmd}, nil
}

// Next supplies the next encoded byte. Once the frame has been emitted it
// returns (0, false) forevermore.
func (e *CommandEncoder) Next() (byte, bool) {
	var (
		adv int
		b   byte
		ok  bool
	)
	switch c := e.command.(type) {
	case PingCommand:
		adv, b, ok = renderMarker(e.count, CmdPing)
	case InfoCommand:
		adv, b, ok = renderMarker(e.count, CmdInfo)
	case IDCommand:
		adv, b, ok = renderMarker(e.count, CmdID)
	case ResetCommand:
		adv, b, ok = renderMarker(e.count, CmdReset)
	case CrcRxBufferCommand:
		adv, b, ok = renderMarker(e.count, CmdCrcRxBuffer)
	case ExtFlashInitCommand:
		adv, b, ok = renderMarker(e.count, CmdExtFlashInit)
	case ClockOutCommand:
		adv, b, ok = renderMarker(e.count, CmdClockOut)
	case ErasePageCommand:
		adv, b, ok = e.renderAddress(c.Address, CmdErasePage)
	case EraseExBlockCommand:
		adv, b, ok = e.renderAddress(c.Address, CmdEraseExBlock)
	case EraseExPageCommand:
		adv, b, ok = e.renderAddress(c.Address, CmdEraseExPage)
	case WritePageCommand:
		adv, b, ok = e.renderWrite(c.Address, c.Data, IntPageSize, CmdWritePage)
	case WriteExPageCommand:
		adv, b, ok = e.renderWrite(c.Address, c.Data, ExtPageSize, CmdWriteExPage)
	case ReadRangeCommand:
		adv, b, ok = e.renderReadRange(c.Address, c.Length, CmdReadRange)
	case ExReadRangeCommand:
		adv, b, ok = e.renderReadRange(c.Address, c.Length, CmdExReadRange)
	case SetAttrCommand:
		adv, b, ok = e.renderSetAttr(c.Index, c.Key, c.Value)
	case GetAttrCommand:
		adv, b, ok = e.renderGetAttr(c.Index)
	case CrcIntFlashCommand:
		adv, b, ok = e.renderAddressLength(c.Address, c.Length, CmdCrcIntFlash)
	case CrcExtFlashCommand:
		adv, b, ok = e.renderAddressLength(c.Address, c.Length, CmdCrcExtFlash)
	case WriteUserPagesCommand:
		adv, b, ok = e.renderAddressLength(c.Page1, c.Page2, CmdWriteUserPages)
	case ChangeBaudCommand:
		adv, b, ok = e.renderChangeBaud(c.Mode, c.Baud)
	default:
		return 0, false
	}
	e.count += adv
	return b, ok
}

// renderAddress renders a 4-byte address followed by the trailer.
func (e *CommandEncoder) renderAddress(address uint32, opcode byte) (int, byte, bool) {
	if e.count < 4 {
		return e.renderU32(e.count, address)
	}
	return renderMarker(e.count-4, opcode)
}

// renderAddressLength renders two 4-byte fields followed by the trailer.
func (e *CommandEncoder) renderAddressLength(address, length uint32, opcode byte) (int, byte, bool) {
	switch {
	case e.count < 4:
		return e.renderU32(e.count, address)
	case e.count < 8:
		return e.renderU32(e.count-4, length)
	default:
		return renderMarker(e.count-8, opcode)
	}
}

func (e *CommandEncoder) renderWrite(address uint32, data []byte, pageSize int, opcode byte) (int, byte, bool) {
	switch {
	case e.count < 4:
		return e.renderU32(e.count, address)
	case e.count < 4+pageSize:
		return e.renderRegion(e.count-4, pageSize, data)
	default:
		return renderMarker(e.count-(4+pageSize), opcode)
	}
}

func (e *CommandEncoder) renderReadRange(address uint32, length uint16, opcode byte) (int, byte, bool) {
	switch {
	case e.count < 4:
		return e.renderU32(e.count, address)
	case e.count < 6:
		return e.renderU16(e.count-4, length)
	default:
		return renderMarker(e.count-6, opcode)
	}
}

func (e *CommandEncoder) renderSetAttr(index byte, key, value []byte) (int, byte, bool) {
	valueLen := len(value)
	if valueLen > MaxAttrValueLength {
		valueLen = MaxAttrValueLength
	}
	switch {
	case e.count == 0:
		return e.renderByte(index)
	case e.count < 9:
		return e.renderRegion(e.count-1, KeyLength, key)
	case e.count == 9:
		return e.renderByte(byte(valueLen))
	case e.count < 11+valueLen:
		// The value region is one byte longer than the declared
		// length; the bootloader's reassembly requires the buffered
		// count to strictly exceed 10+length, so a 0xFF pad byte
		// follows the value.
		return e.renderRegion(e.count-10, valueLen+1, value)
	default:
		return renderMarker(e.count-(11+valueLen), CmdSetAttr)
	}
}

func (e *CommandEncoder) renderGetAttr(index byte) (int, byte, bool) {
	if e.count == 0 {
		return e.renderByte(index)
	}
	return renderMarker(e.count-1, CmdGetAttr)
}

func (e *CommandEncoder) renderChangeBaud(mode BaudMode, baud uint32) (int, byte, bool) {
	switch {
	case e.count == 0:
		return e.renderByte(byte(mode))
	case e.count < 5:
		return e.renderU32(e.count-1, baud)
	default:
		return renderMarker(e.count-5, CmdChangeBaud)
	}
}

// EncodeCommand validates cmd and returns its complete wire frame.
func EncodeCommand(cmd Command) ([]byte, error) {
	enc, err := NewCommandEncoder(cmd)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, 16)
	for {
		b, ok := enc.Next()
		if !ok {
			return frame, nil
		}
		frame = append(frame, b)
	}
}
