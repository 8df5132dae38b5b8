package protocol

import "encoding/binary"

// decoderState tracks the escape-byte framing shared by both decoders.
type decoderState int

const (
	// stateLoading accumulates raw payload bytes
	stateLoading decoderState = iota

	// stateEscape means the previous byte was EscapeChar
	stateEscape
)

// CommandDecoder turns command-direction wire bytes into Commands. This is
// the bootloader side of the protocol.
//
// A decoder instance is not safe for concurrent use.
type CommandDecoder struct {
	state  decoderState
	buffer [DecoderBufferSize]byte
	count  int
}

// NewCommandDecoder creates a CommandDecoder. Feed it bytes with Receive.
func NewCommandDecoder() *CommandDecoder {
	return &CommandDecoder{}
}

// Reset empties the payload buffer. Call it before reuse after abandoning a
// partially-fed message, or stale bytes would be reinterpreted as part of
// the next frame.
func (d *CommandDecoder) Reset() {
	d.count = 0
}

// Receive processes one incoming byte. It returns (nil, nil) until a
// complete frame has been seen, then the decoded Command. ErrBadArguments
// means the frame's payload did not match its opcode; the decoder is ready
// for the next frame either way.
//
// Payload slices in the returned Command alias the decoder's buffer and are
// valid only until the next Receive or Reset call.
func (d *CommandDecoder) Receive(b byte) (Command, error) {
	if d.state == stateEscape {
		return d.handleEscape(b)
	}
	return d.handleLoading(b)
}

func (d *CommandDecoder) loadByte(b byte) {
	if d.count < len(d.buffer) {
		d.buffer[d.count] = b
		d.count++
	}
}

func (d *CommandDecoder) handleLoading(b byte) (Command, error) {
	if b == EscapeChar {
		d.state = stateEscape
	} else {
		d.loadByte(b)
	}
	return nil, nil
}

func (d *CommandDecoder) handleEscape(b byte) (Command, error) {
	d.state = stateLoading
	if b == EscapeChar {
		// Double escape means just load an escape
		d.loadByte(b)
		return nil, nil
	}
	cmd, err := d.reassemble(b)
	// A command or an error ends the buffered payload. An unknown opcode
	// does not: the buffer is kept, matching "no command yet".
	if cmd != nil || err != nil {
		d.count = 0
	}
	return cmd, err
}

// reassemble interprets the buffered payload according to the opcode that
// terminated the frame. Unknown opcodes are silently ignored: the command
// direction treats them exactly like "not enough bytes yet".
func (d *CommandDecoder) reassemble(opcode byte) (Command, error) {
	switch opcode {
	case CmdPing:
		return PingCommand{}, nil
	case CmdInfo:
		return InfoCommand{}, nil
	case CmdID:
		return IDCommand{}, nil
	case CmdReset:
		return ResetCommand{}, nil
	case CmdCrcRxBuffer:
		return CrcRxBufferCommand{}, nil
	case CmdExtFlashInit:
		return ExtFlashInitCommand{}, nil
	case CmdClockOut:
		return ClockOutCommand{}, nil

	case CmdErasePage:
		if d.count != 4 {
			return nil, ErrBadArguments
		}
		return ErasePageCommand{Address: binary.LittleEndian.Uint32(d.buffer[0:4])}, nil

	case CmdWritePage:
		if d.count != 4+IntPageSize {
			return nil, ErrBadArguments
		}
		return WritePageCommand{
			Address: binary.LittleEndian.Uint32(d.buffer[0:4]),
			Data:    d.buffer[4 : 4+IntPageSize],
		}, nil

	case CmdEraseExBlock:
		if d.count != 4 {
			return nil, ErrBadArguments
		}
		return EraseExBlockCommand{Address: binary.LittleEndian.Uint32(d.buffer[0:4])}, nil

	case CmdWriteExPage:
		if d.count != 4+ExtPageSize {
			return nil, ErrBadArguments
		}
		return WriteExPageCommand{
			Address: binary.LittleEndian.Uint32(d.buffer[0:4]),
			Data:    d.buffer[4 : 4+ExtPageSize],
		}, nil

	case CmdReadRange:
		if d.count != 6 {
			return nil, ErrBadArguments
		}
		return ReadRangeCommand{
			Address: binary.LittleEndian.Uint32(d.buffer[0:4]),
			Length:  binary.LittleEndian.Uint16(d.buffer[4:6]),
		}, nil

	case CmdExReadRange:
		if d.count != 6 {
			return nil, ErrBadArguments
		}
		return ExReadRangeCommand{
			Address: binary.LittleEndian.Uint32(d.buffer[0:4]),
			Length:  binary.LittleEndian.Uint16(d.buffer[4:6]),
		}, nil

	case CmdSetAttr:
		// Index byte, 8 key bytes, then a self-declared value length.
		// The value region on the wire is one byte longer than the
		// declared length, hence the strict inequality.
		if d.count < 10 {
			return nil, ErrBadArguments
		}
		index := d.buffer[0]
		length := int(d.buffer[9])
		if index > MaxAttrIndex || length > MaxAttrValueLength {
			return nil, ErrBadArguments
		}
		if d.count <= 10+length {
			return nil, ErrBadArguments
		}
		return SetAttrCommand{
			Index: index,
			Key:   d.buffer[1:9],
			Value: d.buffer[10 : 10+length],
		}, nil

	case CmdGetAttr:
		if d.count != 1 {
			return nil, ErrBadArguments
		}
		return GetAttrCommand{Index: d.buffer[0]}, nil

	case CmdCrcIntFlash:
		if d.count != 8 {
			return nil, ErrBadArguments
		}
		return CrcIntFlashCommand{
			Address: binary.LittleEndian.Uint32(d.buffer[0:4]),
			Length:  binary.LittleEndian.Uint32(d.buffer[4:8]),
		}, nil

	case CmdCrcExtFlash:
		if d.count != 8 {
			return nil, ErrBadArguments
		}
		return CrcExtFlashCommand{
			Address: binary.LittleEndian.Uint32(d.buffer[0:4]),
			Length:  binary.LittleEndian.Uint32(d.buffer[4:8]),
		}, nil

	case CmdEraseExPage:
		if d.count != 4 {
			return nil, ErrBadArguments
		}
		return EraseExPageCommand{Address: binary.LittleEndian.Uint32(d.buffer[0:4])}, nil

	case CmdWriteUserPages:
		if d.count != 8 {
			return nil, ErrBadArguments
		}
		return WriteUserPagesCommand{
			Page1: binary.LittleEndian.Uint32(d.buffer[0:4]),
			Page2: binary.LittleEndian.Uint32(d.buffer[4:8]),
		}, nil

	case CmdChangeBaud:
		if d.count != 5 {
			return nil, ErrBadArguments
		}
		var mode BaudMode
		switch d.buffer[0] {
		case byte(BaudModeSet):
			mode = BaudModeSet
		case byte(BaudModeVerify):
			mode = BaudModeVerify
		default:
			return nil, ErrBadArguments
		}
		return ChangeBaudCommand{
			Mode: mode,
			Baud: binary.LittleEndian.Uint32(d.buffer[1:5]),
		}, nil

	default:
		return nil, nil
	}
}
