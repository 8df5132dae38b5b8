package protocol

import (
	"reflect"
	"testing"
)

// decodeCommandFrame feeds a full frame to a fresh decoder and returns the
// decoded command from the final byte.
func decodeCommandFrame(t *testing.T, frame []byte) Command {
	t.Helper()

	var dec CommandDecoder
	for i, b := range frame[:len(frame)-1] {
		cmd, err := dec.Receive(b)
		if err != nil {
			t.Fatalf("byte %d: unexpected error: %v", i, err)
		}
		if cmd != nil {
			t.Fatalf("byte %d: decoded early: %#v", i, cmd)
		}
	}
	cmd, err := dec.Receive(frame[len(frame)-1])
	if err != nil {
		t.Fatalf("final byte: unexpected error: %v", err)
	}
	if cmd == nil {
		t.Fatal("final byte did not complete the frame")
	}
	return cmd
}

func TestCommandRoundTrip(t *testing.T) {
	page := make([]byte, IntPageSize)
	for i := range page {
		page[i] = byte(i)
	}
	page[0] = EscapeChar
	page[len(page)-1] = EscapeChar

	exPage := make([]byte, ExtPageSize)
	for i := range exPage {
		exPage[i] = byte(0xF0 + i)
	}

	tests := []struct {
		name string
		cmd  Command
	}{
		{name: "ping", cmd: PingCommand{}},
		{name: "info", cmd: InfoCommand{}},
		{name: "id", cmd: IDCommand{}},
		{name: "reset", cmd: ResetCommand{}},
		{name: "erase page", cmd: ErasePageCommand{Address: 0xDEADBEEF}},
		{name: "write page", cmd: WritePageCommand{Address: 0x1000, Data: page}},
		{name: "erase ex block", cmd: EraseExBlockCommand{Address: 0x20000}},
		{name: "write ex page", cmd: WriteExPageCommand{Address: 0x2100, Data: exPage}},
		{name: "crc rx buffer", cmd: CrcRxBufferCommand{}},
		{name: "read range", cmd: ReadRangeCommand{Address: 0x8000, Length: 0x0200}},
		{name: "ex read range", cmd: ExReadRangeCommand{Address: 0x9000, Length: 0x0040}},
		{
			name: "set attr",
			cmd: SetAttrCommand{
				Index: 3,
				Key:   []byte("bootaddr"),
				Value: []byte{0x00, 0x80, 0x00, 0x00},
			},
		},
		{
			name: "set attr empty value",
			cmd: SetAttrCommand{
				Index: MaxAttrIndex,
				Key:   []byte("flags\x00\x00\x00"),
				Value: []byte{},
			},
		},
		{name: "get attr", cmd: GetAttrCommand{Index: 7}},
		{name: "crc int flash", cmd: CrcIntFlashCommand{Address: 0x1000, Length: 0x4000}},
		{name: "crc ext flash", cmd: CrcExtFlashCommand{Address: 0x0, Length: 0x100}},
		{name: "erase ex page", cmd: EraseExPageCommand{Address: 0x2200}},
		{name: "ext flash init", cmd: ExtFlashInitCommand{}},
		{name: "clock out", cmd: ClockOutCommand{}},
		{name: "write user pages", cmd: WriteUserPagesCommand{Page1: 0x3000, Page2: 0x3200}},
		{name: "change baud set", cmd: ChangeBaudCommand{Mode: BaudModeSet, Baud: 115200}},
		{name: "change baud verify", cmd: ChangeBaudCommand{Mode: BaudModeVerify, Baud: 1500000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeCommand(tt.cmd)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got := decodeCommandFrame(t, frame)
			if !reflect.DeepEqual(got, tt.cmd) {
				t.Errorf("decoded %#v, want %#v", got, tt.cmd)
			}
		})
	}
}

// decodeResponseFrame feeds a full frame to a decoder, optionally armed with
// an explicit payload length, and returns the decoded response.
func decodeResponseFrame(t *testing.T, frame []byte, armLen int) Response {
	t.Helper()

	var dec ResponseDecoder
	if armLen >= 0 {
		if err := dec.SetPayloadLen(armLen); err != nil {
			t.Fatalf("SetPayloadLen(%d): %v", armLen, err)
		}
	}
	for i, b := range frame[:len(frame)-1] {
		resp, err := dec.Receive(b)
		if err != nil {
			t.Fatalf("byte %d: unexpected error: %v", i, err)
		}
		if resp != nil {
			t.Fatalf("byte %d: decoded early: %#v", i, resp)
		}
	}
	resp, err := dec.Receive(frame[len(frame)-1])
	if err != nil {
		t.Fatalf("final byte: unexpected error: %v", err)
	}
	if resp == nil {
		t.Fatal("final byte did not complete the frame")
	}
	return resp
}

func TestResponseRoundTrip(t *testing.T) {
	data := []byte{0x01, EscapeChar, 0x03, EscapeChar, EscapeChar, 0x06}

	tests := []struct {
		name   string
		resp   Response
		armLen int // -1 means do not arm
	}{
		{name: "overflow", resp: OverflowResponse{}, armLen: -1},
		{name: "pong", resp: PongResponse{}, armLen: -1},
		{name: "bad address", resp: BadAddressResponse{}, armLen: -1},
		{name: "internal error", resp: InternalErrorResponse{}, armLen: -1},
		{name: "bad arguments", resp: BadArgumentsResponse{}, armLen: -1},
		{name: "ok", resp: OKResponse{}, armLen: -1},
		{name: "unknown", resp: UnknownResponse{}, armLen: -1},
		{name: "ext flash timeout", resp: ExtFlashTimeoutResponse{}, armLen: -1},
		{name: "ext flash page error", resp: ExtFlashPageErrorResponse{}, armLen: -1},
		{name: "change baud fail", resp: ChangeBaudFailResponse{}, armLen: -1},
		{
			name:   "crc rx buffer",
			resp:   CrcRxBufferResponse{Length: 0x0206, Crc: 0xCAFEF00D},
			armLen: -1,
		},
		{
			name:   "read range",
			resp:   ReadRangeResponse{Data: data},
			armLen: len(data),
		},
		{
			name:   "ex read range",
			resp:   ExReadRangeResponse{Data: data},
			armLen: len(data),
		},
		{
			name: "get attr",
			resp: GetAttrResponse{
				Key:   []byte("sensorid"),
				Value: []byte{0xAA, 0xBB, 0xCC},
			},
			armLen: -1,
		},
		{name: "crc int flash", resp: CrcIntFlashResponse{Crc: 0x12345678}, armLen: -1},
		{name: "crc ext flash", resp: CrcExtFlashResponse{Crc: 0x87654321}, armLen: -1},
		{name: "info", resp: InfoResponse{Info: []byte("tockbl10")}, armLen: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeResponse(tt.resp)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got := decodeResponseFrame(t, frame, tt.armLen)
			if !reflect.DeepEqual(got, tt.resp) {
				t.Errorf("decoded %#v, want %#v", got, tt.resp)
			}
		})
	}
}
