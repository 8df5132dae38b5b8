package protocol

import "encoding/binary"

// ResponseDecoder turns response-direction wire bytes into Responses. This
// is the flash tool side of the protocol.
//
// Most responses are self-describing: fixed kinds complete on their opcode
// marker, and the length-bearing kinds arm their own trailing size. The two
// read-range responses carry no length on the wire, so the caller must call
// SetPayloadLen with the length from the originating read command before the
// response marker arrives.
//
// A decoder instance is not safe for concurrent use.
type ResponseDecoder struct {
	state  decoderState
	buffer [DecoderBufferSize]byte
	count  int

	// needed is the total buffered byte count (opcode slot included) at
	// which the frame is complete; 0 means no length is armed.
	needed int
}

// NewResponseDecoder creates a ResponseDecoder. Feed it bytes with Receive.
func NewResponseDecoder() *ResponseDecoder {
	return &ResponseDecoder{}
}

// Reset empties the payload buffer. Call it before reuse after abandoning a
// partially-fed message.
func (d *ResponseDecoder) Reset() {
	d.count = 0
}

// SetPayloadLen arms the number of trailing payload bytes the next response
// carries. It is required before a ReadRangeResponse or ExReadRangeResponse
// marker arrives, and must match the length field of the read command that
// was sent. Exactly one arming may be outstanding at a time: a second call
// without an intervening decode fails with ErrSetLength.
func (d *ResponseDecoder) SetPayloadLen(length int) error {
	if d.needed != 0 {
		return ErrSetLength
	}
	// +1 for the opcode byte occupying buffer slot 0
	d.needed = length + 1
	return nil
}

// Receive processes one incoming byte. It returns (nil, nil) until a
// complete frame has been seen, then the decoded Response. On any error the
// decoder is reset and ready for the next frame.
//
// Payload slices in the returned Response alias the decoder's buffer and are
// valid only until the next Receive or Reset call.
func (d *ResponseDecoder) Receive(b byte) (Response, error) {
	if d.state == stateEscape {
		return d.handleEscape(b)
	}
	return d.handleLoading(b)
}

func (d *ResponseDecoder) handleLoading(b byte) (Response, error) {
	if b == EscapeChar {
		d.state = stateEscape
		return nil, nil
	}
	return d.loadByte(b)
}

func (d *ResponseDecoder) handleEscape(b byte) (Response, error) {
	d.state = stateLoading
	switch b {
	case EscapeChar:
		// Double escape means just load an escape
		return d.loadByte(b)

	// Self-terminating responses: complete on the marker itself.
	case ResOverflow:
		return d.terminal(OverflowResponse{})
	case ResPong:
		return d.terminal(PongResponse{})
	case ResBadAddress:
		return d.terminal(BadAddressResponse{})
	case ResInternalError:
		return d.terminal(InternalErrorResponse{})
	case ResBadArguments:
		return d.terminal(BadArgumentsResponse{})
	case ResOK:
		return d.terminal(OKResponse{})
	case ResUnknown:
		return d.terminal(UnknownResponse{})
	case ResExtFlashTimeout:
		return d.terminal(ExtFlashTimeoutResponse{})
	case ResExtFlashPageError:
		return d.terminal(ExtFlashPageErrorResponse{})
	case ResChangeBaudFail:
		return d.terminal(ChangeBaudFailResponse{})

	// Length-bearing responses: the marker byte is buffered in slot 0
	// and the known trailing size is armed before returning "need more".
	case ResCrcRxBuffer:
		return d.arm(b, CrcRxBufferPayloadSize)
	case ResGetAttr:
		return d.arm(b, GetAttrPayloadSize)
	case ResCrcIntFlash, ResCrcExtFlash:
		return d.arm(b, CrcPayloadSize)
	case ResInfo:
		// The bootloader sends a fixed 8-byte info block. An explicit
		// SetPayloadLen call before the marker wins, for callers that
		// expect a longer block.
		if d.needed != 0 {
			return d.loadByte(b)
		}
		return d.arm(b, InfoPayloadSize)

	// Read-range responses carry no length field at all; the caller must
	// have armed the expected length already.
	case ResReadRange, ResExReadRange:
		if d.needed == 0 {
			d.count = 0
			return nil, ErrUnsetLength
		}
		return d.loadByte(b)

	default:
		d.count = 0
		d.needed = 0
		return nil, ErrUnknownCommand
	}
}

func (d *ResponseDecoder) terminal(r Response) (Response, error) {
	d.count = 0
	d.needed = 0
	return r, nil
}

func (d *ResponseDecoder) arm(opcode byte, payloadLen int) (Response, error) {
	if err := d.SetPayloadLen(payloadLen); err != nil {
		d.count = 0
		d.needed = 0
		return nil, err
	}
	return d.loadByte(opcode)
}

func (d *ResponseDecoder) loadByte(b byte) (Response, error) {
	if d.count < len(d.buffer) {
		d.buffer[d.count] = b
		d.count++
	}
	if d.needed == 0 || d.count != d.needed {
		return nil, nil
	}
	resp, err := d.reassemble()
	d.count = 0
	d.needed = 0
	return resp, err
}

// reassemble interprets the buffered frame once the armed byte count has
// been reached. Slot 0 holds the opcode, the rest the trailing payload.
func (d *ResponseDecoder) reassemble() (Response, error) {
	switch d.buffer[0] {
	case ResCrcRxBuffer:
		return CrcRxBufferResponse{
			Length: binary.LittleEndian.Uint16(d.buffer[1:3]),
			Crc:    binary.LittleEndian.Uint32(d.buffer[3:7]),
		}, nil

	case ResReadRange:
		return ReadRangeResponse{Data: d.buffer[1:d.count]}, nil

	case ResExReadRange:
		return ExReadRangeResponse{Data: d.buffer[1:d.count]}, nil

	case ResGetAttr:
		length := int(d.buffer[9])
		if length > MaxAttrValueLength || 9+length > d.count {
			return nil, ErrBadArguments
		}
		return GetAttrResponse{
			Key:   d.buffer[1:9],
			Value: d.buffer[10 : 10+length],
		}, nil

	case ResCrcIntFlash:
		return CrcIntFlashResponse{Crc: binary.LittleEndian.Uint32(d.buffer[1:5])}, nil

	case ResCrcExtFlash:
		return CrcExtFlashResponse{Crc: binary.LittleEndian.Uint32(d.buffer[1:5])}, nil

	case ResInfo:
		return InfoResponse{Info: d.buffer[1:d.count]}, nil

	default:
		return nil, ErrUnknownCommand
	}
}
