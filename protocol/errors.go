package protocol

import "errors"

// Decode and encode errors. All decoder errors are local to one message:
// the decoder resets its buffer and framing state, so the next byte fed in
// begins a fresh frame. Encoder construction errors mean no bytes are ever
// produced for the rejected message.
var (
	// ErrUnknownCommand is returned by the response decoder when an
	// opcode marker is not in the known response set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrBadArguments is returned when a payload violates a message's
	// structural constraints, on decode reassembly or encoder
	// construction.
	ErrBadArguments = errors.New("bad arguments")

	// ErrUnsetLength is returned when a read-range response marker
	// arrives before SetPayloadLen has armed its expected length.
	ErrUnsetLength = errors.New("payload length not set")

	// ErrSetLength is returned when SetPayloadLen is called while an
	// expected length is already armed.
	ErrSetLength = errors.New("payload length already set")
)
