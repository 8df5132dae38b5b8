package protocol

// ResponseEncoder turns a Response into wire bytes, one at a time. This is
// the bootloader side of the protocol.
//
// Unlike commands, responses are header-first: the escape/opcode pair is
// emitted before the payload fields. The caller's payload slices are
// borrowed, not copied, and must stay valid until the encoder is exhausted.
type ResponseEncoder struct {
	response Response
	count    int
	renderer
}

// NewResponseEncoder creates an encoder for resp. Structural constraints
// are checked here, before any byte is produced.
func NewResponseEncoder(resp Response) (*ResponseEncoder, error) {
	switch r := resp.(type) {
	case nil:
		return nil, ErrBadArguments
	case GetAttrResponse:
		if len(r.Key) != KeyLength || len(r.Value) > MaxAttrValueLength {
			return nil, ErrBadArguments
		}
	case InfoResponse:
		if len(r.Info) > MaxInfoLength {
			return nil, ErrBadArguments
		}
	}
	return &ResponseEncoder{response: resp}, nil
}

// Next supplies the next encoded byte. Once the frame has been emitted it
// returns (0, false) forevermore.
func (e *ResponseEncoder) Next() (byte, bool) {
	var (
		adv int
		b   byte
		ok  bool
	)
	switch r := e.response.(type) {
	case OverflowResponse:
		adv, b, ok = renderMarker(e.count, ResOverflow)
	case PongResponse:
		adv, b, ok = renderMarker(e.count, ResPong)
	case BadAddressResponse:
		adv, b, ok = renderMarker(e.count, ResBadAddress)
	case InternalErrorResponse:
		adv, b, ok = renderMarker(e.count, ResInternalError)
	case BadArgumentsResponse:
		adv, b, ok = renderMarker(e.count, ResBadArguments)
	case OKResponse:
		adv, b, ok = renderMarker(e.count, ResOK)
	case UnknownResponse:
		adv, b, ok = renderMarker(e.count, ResUnknown)
	case ExtFlashTimeoutResponse:
		adv, b, ok = renderMarker(e.count, ResExtFlashTimeout)
	case ExtFlashPageErrorResponse:
		adv, b, ok = renderMarker(e.count, ResExtFlashPageError)
	case ChangeBaudFailResponse:
		adv, b, ok = renderMarker(e.count, ResChangeBaudFail)
	case CrcRxBufferResponse:
		adv, b, ok = e.renderCrcRxBuffer(r.Length, r.Crc)
	case ReadRangeResponse:
		adv, b, ok = e.renderReadRange(r.Data, ResReadRange)
	case ExReadRangeResponse:
		adv, b, ok = e.renderReadRange(r.Data, ResExReadRange)
	case GetAttrResponse:
		adv, b, ok = e.renderGetAttr(r.Key, r.Value)
	case CrcIntFlashResponse:
		adv, b, ok = e.renderCrc(r.Crc, ResCrcIntFlash)
	case CrcExtFlashResponse:
		adv, b, ok = e.renderCrc(r.Crc, ResCrcExtFlash)
	case InfoResponse:
		adv, b, ok = e.renderInfo(r.Info)
	default:
		return 0, false
	}
	e.count += adv
	return b, ok
}

func (e *ResponseEncoder) renderCrcRxBuffer(length uint16, crc uint32) (int, byte, bool) {
	switch {
	case e.count < 2:
		return renderMarker(e.count, ResCrcRxBuffer)
	case e.count < 4:
		return e.renderU16(e.count-2, length)
	case e.count < 8:
		return e.renderU32(e.count-4, crc)
	default:
		return 0, 0, false
	}
}

func (e *ResponseEncoder) renderReadRange(data []byte, opcode byte) (int, byte, bool) {
	switch {
	case e.count < 2:
		return renderMarker(e.count, opcode)
	case e.count-2 < len(data):
		return e.renderByte(data[e.count-2])
	default:
		return 0, 0, false
	}
}

func (e *ResponseEncoder) renderGetAttr(key, value []byte) (int, byte, bool) {
	switch {
	case e.count < 2:
		return renderMarker(e.count, ResGetAttr)
	case e.count < 10:
		return e.renderRegion(e.count-2, KeyLength, key)
	case e.count == 10:
		return e.renderByte(byte(len(value)))
	default:
		// The full 55-byte value region is always sent, 0xFF padded
		// beyond the declared length.
		return e.renderRegion(e.count-11, MaxAttrValueLength, value)
	}
}

func (e *ResponseEncoder) renderCrc(crc uint32, opcode byte) (int, byte, bool) {
	if e.count < 2 {
		return renderMarker(e.count, opcode)
	}
	return e.renderU32(e.count-2, crc)
}

func (e *ResponseEncoder) renderInfo(info []byte) (int, byte, bool) {
	if e.count < 2 {
		return renderMarker(e.count, ResInfo)
	}
	return e.renderRegion(e.count-2, len(info), info)
}

// EncodeResponse validates resp and returns its complete wire frame.
func EncodeResponse(resp Response) ([]byte, error) {
	enc, err := NewResponseEncoder(resp)
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
