package protocol

import (
	"bytes"
	"testing"
)

// feedResponse drives a decoder with frame and returns the terminal outcome.
// Every byte before the last must yield (nil, nil).
func feedResponse(t *testing.T, d *ResponseDecoder, frame []byte) (Response, error) {
	t.Helper()
	for i, b := range frame[:len(frame)-1] {
		resp, err := d.Receive(b)
		if err != nil {
			t.Fatalf("byte %d (0x%02X): unexpected error: %v", i, b, err)
		}
		if resp != nil {
			t.Fatalf("byte %d (0x%02X): unexpected response %#v", i, b, resp)
		}
	}
	return d.Receive(frame[len(frame)-1])
}

func TestResponseDecoderSelfTerminating(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		want   Response
	}{
		{name: "overflow", opcode: ResOverflow, want: OverflowResponse{}},
		{name: "pong", opcode: ResPong, want: PongResponse{}},
		{name: "bad address", opcode: ResBadAddress, want: BadAddressResponse{}},
		{name: "internal error", opcode: ResInternalError, want: InternalErrorResponse{}},
		{name: "bad arguments", opcode: ResBadArguments, want: BadArgumentsResponse{}},
		{name: "ok", opcode: ResOK, want: OKResponse{}},
		{name: "unknown", opcode: ResUnknown, want: UnknownResponse{}},
		{name: "ext flash timeout", opcode: ResExtFlashTimeout, want: ExtFlashTimeoutResponse{}},
		{name: "ext flash page error", opcode: ResExtFlashPageError, want: ExtFlashPageErrorResponse{}},
		{name: "change baud fail", opcode: ResChangeBaudFail, want: ChangeBaudFailResponse{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewResponseDecoder()
			resp, err := feedResponse(t, d, []byte{EscapeChar, tt.opcode})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp != tt.want {
				t.Errorf("response = %#v, want %#v", resp, tt.want)
			}
		})
	}
}

func TestResponseDecoderCrcRxBuffer(t *testing.T) {
	d := NewResponseDecoder()

	// Auto-armed: no SetPayloadLen call needed
	frame := []byte{EscapeChar, ResCrcRxBuffer, 0x34, 0x12, 0xEF, 0xBE, 0xAD, 0xDE}
	resp, err := feedResponse(t, d, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	crc, ok := resp.(CrcRxBufferResponse)
	if !ok {
		t.Fatalf("response = %#v, want CrcRxBufferResponse", resp)
	}
	if crc.Length != 0x1234 {
		t.Errorf("length = 0x%04X, want 0x1234", crc.Length)
	}
	if crc.Crc != 0xDEADBEEF {
		t.Errorf("crc = 0x%08X, want 0xDEADBEEF", crc.Crc)
	}
}

func TestResponseDecoderCrcIntFlash(t *testing.T) {
	d := NewResponseDecoder()
	frame := []byte{EscapeChar, ResCrcIntFlash, 0xEF, 0xBE, 0xAD, 0xDE}
	resp, err := feedResponse(t, d, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crc, ok := resp.(CrcIntFlashResponse); !ok || crc.Crc != 0xDEADBEEF {
		t.Errorf("response = %#v, want CrcIntFlashResponse{0xDEADBEEF}", resp)
	}
}

func TestResponseDecoderReadRangeRequiresArming(t *testing.T) {
	d := NewResponseDecoder()

	if _, err := d.Receive(EscapeChar); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Receive(ResReadRange); err != ErrUnsetLength {
		t.Fatalf("error = %v, want %v", err, ErrUnsetLength)
	}
}

func TestResponseDecoderReadRangeArmed(t *testing.T) {
	d := NewResponseDecoder()
	if err := d.SetPayloadLen(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frame := []byte{EscapeChar, ResReadRange, 0x00, 0x11, 0x22, 0x33}
	resp, err := feedResponse(t, d, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	read, ok := resp.(ReadRangeResponse)
	if !ok {
		t.Fatalf("response = %#v, want ReadRangeResponse", resp)
	}
	if !bytes.Equal(read.Data, []byte{0x00, 0x11, 0x22, 0x33}) {
		t.Errorf("data = % X, want 00 11 22 33", read.Data)
	}
}

func TestResponseDecoderReadRangeEscapedData(t *testing.T) {
	d := NewResponseDecoder()
	if err := d.SetPayloadLen(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A literal 0xFC travels doubled and decodes to a single byte
	frame := []byte{EscapeChar, ResExReadRange, EscapeChar, EscapeChar, 0x55}
	resp, err := feedResponse(t, d, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	read, ok := resp.(ExReadRangeResponse)
	if !ok {
		t.Fatalf("response = %#v, want ExReadRangeResponse", resp)
	}
	if !bytes.Equal(read.Data, []byte{EscapeChar, 0x55}) {
		t.Errorf("data = % X, want FC 55", read.Data)
	}
}

func TestResponseDecoderSetPayloadLenTwice(t *testing.T) {
	d := NewResponseDecoder()
	if err := d.SetPayloadLen(4); err != nil {
		t.Fatalf("first arming failed: %v", err)
	}
	if err := d.SetPayloadLen(2); err != ErrSetLength {
		t.Errorf("second arming error = %v, want %v", err, ErrSetLength)
	}
}

func TestResponseDecoderGetAttr(t *testing.T) {
	key := []byte("bootaddr")
	value := []byte{0x00, 0x00, 0x03, 0x00}

	frame, err := EncodeResponse(GetAttrResponse{Key: key, Value: value})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := NewResponseDecoder()
	resp, err := feedResponse(t, d, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attr, ok := resp.(GetAttrResponse)
	if !ok {
		t.Fatalf("response = %#v, want GetAttrResponse", resp)
	}
	if !bytes.Equal(attr.Key, key) {
		t.Errorf("key = %q, want %q", attr.Key, key)
	}
	if !bytes.Equal(attr.Value, value) {
		t.Errorf("value = % X, want % X", attr.Value, value)
	}
}

func TestResponseDecoderGetAttrBadDeclaredLength(t *testing.T) {
	// Hand-built frame declaring a 56-byte value in the 55-byte region
	frame := []byte{EscapeChar, ResGetAttr}
	frame = append(frame, []byte("bootaddr")...)
	frame = append(frame, MaxAttrValueLength+1)
	frame = append(frame, make([]byte, MaxAttrValueLength)...)

	d := NewResponseDecoder()
	if _, err := feedResponse(t, d, frame); err != ErrBadArguments {
		t.Errorf("error = %v, want %v", err, ErrBadArguments)
	}
}

func TestResponseDecoderInfoDefaultLength(t *testing.T) {
	info := []byte("tockbl10")

	d := NewResponseDecoder()
	frame := append([]byte{EscapeChar, ResInfo}, info...)
	resp, err := feedResponse(t, d, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := resp.(InfoResponse)
	if !ok {
		t.Fatalf("response = %#v, want InfoResponse", resp)
	}
	if !bytes.Equal(got.Info, info) {
		t.Errorf("info = %q, want %q", got.Info, info)
	}
}

func TestResponseDecoderInfoExplicitArming(t *testing.T) {
	info := []byte("tock-bootloader")

	d := NewResponseDecoder()
	if err := d.SetPayloadLen(len(info)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frame := append([]byte{EscapeChar, ResInfo}, info...)
	resp, err := feedResponse(t, d, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := resp.(InfoResponse)
	if !ok {
		t.Fatalf("response = %#v, want InfoResponse", resp)
	}
	if !bytes.Equal(got.Info, info) {
		t.Errorf("info = %q, want %q", got.Info, info)
	}
}

func TestResponseDecoderUnknownOpcode(t *testing.T) {
	d := NewResponseDecoder()

	if _, err := d.Receive(EscapeChar); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Receive(0x42); err != ErrUnknownCommand {
		t.Fatalf("error = %v, want %v", err, ErrUnknownCommand)
	}

	// The decoder is reset and usable afterwards
	resp, err := feedResponse(t, d, []byte{EscapeChar, ResPong})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := resp.(PongResponse); !ok {
		t.Errorf("response = %#v, want PongResponse", resp)
	}
}

func TestResponseDecoderArmedStateClearedByDecode(t *testing.T) {
	d := NewResponseDecoder()
	if err := d.SetPayloadLen(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := feedResponse(t, d, []byte{EscapeChar, ResReadRange, 0x01, 0x02}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A new arming succeeds after the decode consumed the previous one
	if err := d.SetPayloadLen(8); err != nil {
		t.Errorf("re-arming failed: %v", err)
	}
}

func TestResponseDecoderSelfTerminatingClearsArming(t *testing.T) {
	d := NewResponseDecoder()
	if err := d.SetPayloadLen(16); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A fixed response discards the outstanding arming
	if _, err := feedResponse(t, d, []byte{EscapeChar, ResOK}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.SetPayloadLen(4); err != nil {
		t.Errorf("re-arming failed: %v", err)
	}
}
