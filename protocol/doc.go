// Package protocol implements the Tock bootloader serial communication protocol.
//
// This package provides the four codec halves needed to speak to (or to
// implement) a Tock bootloader: an incremental decoder and a lazy encoder for
// each message direction. A flash tool encodes Commands and decodes
// Responses; a bootloader decodes Commands and encodes Responses. Both
// directions share the same escape-byte framing.
//
// # Protocol Overview
//
// Messages are byte-stuffed streams terminated (commands) or introduced
// (responses) by an escape/opcode pair:
//
//	Command:            [DATA...][ESC][CMD]
//	Response (fixed):   [ESC][RES]
//	Response (payload): [ESC][RES][DATA...]
//
// Where:
//   - ESC = escape byte (0xFC)
//   - CMD/RES = a command or response opcode (never 0xFC)
//   - a literal 0xFC inside DATA is sent as 0xFC 0xFC
//   - multi-byte fields are little-endian
//
// Note that commands carry their opcode after the payload, while responses
// carry it first.
//
// # Decoding
//
// Decoders are fed one byte at a time and return the decoded message once a
// complete frame has been seen:
//
//	decoder := protocol.NewCommandDecoder()
//	for _, b := range wireBytes {
//	    cmd, err := decoder.Receive(b)
//	    if err != nil {
//	        // Malformed frame; the decoder has already reset itself.
//	    }
//	    if cmd != nil {
//	        // Complete Command decoded.
//	    }
//	}
//
// Most responses are self-describing, but ReadRangeResponse and
// ExReadRangeResponse carry no length field on the wire. The caller must tell
// the ResponseDecoder how many payload bytes to expect, using the length from
// the read command it previously sent:
//
//	decoder.SetPayloadLen(int(requestedLength))
//
// # Encoding
//
// Encoders validate the message at construction and then hand out wire bytes
// one at a time, so a caller can drive a byte-oriented transport without any
// intermediate buffer:
//
//	enc, err := protocol.NewCommandEncoder(cmd)
//	for {
//	    b, ok := enc.Next()
//	    if !ok {
//	        break
//	    }
//	    uart.WriteByte(b)
//	}
//
// EncodeCommand and EncodeResponse drive an encoder to completion and return
// the whole frame when a byte slice is more convenient.
//
// # Memory
//
// Receive and Next do constant, bounded work and never allocate. Payload
// slices in decoded messages alias the decoder's internal buffer and are only
// valid until the next Receive or Reset call; copy them if they must outlive
// the next message.
package protocol
