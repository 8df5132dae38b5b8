package loader

import (
	"errors"
	"fmt"

	"github.com/tock-tools/go-tockbl/protocol"
)

// ErrTimeout indicates that a complete response did not arrive within the
// configured read timeout.
var ErrTimeout = errors.New("timed out waiting for response")

// StatusError indicates that the bootloader answered with a failure status
// instead of the expected success response.
type StatusError struct {
	Operation string
	Response  protocol.Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: bootloader answered %s", e.Operation, responseName(e.Response))
}

// UnexpectedResponseError indicates that the bootloader answered with a
// well-formed response of the wrong kind.
type UnexpectedResponseError struct {
	Operation string
	Got       protocol.Response
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("%s: unexpected response %s", e.Operation, responseName(e.Got))
}

// CrcMismatchError indicates that a flashed region's CRC does not match the
// CRC of the data that was written.
type CrcMismatchError struct {
	Address  uint32
	Length   uint32
	Expected uint32
	Actual   uint32
}

func (e *CrcMismatchError) Error() string {
	return fmt.Sprintf("crc mismatch for %d bytes at 0x%08X: expected 0x%08X, got 0x%08X",
		e.Length, e.Address, e.Expected, e.Actual)
}

// responseName returns a human-readable name for a response kind.
func responseName(r protocol.Response) string {
	switch r.(type) {
	case protocol.OverflowResponse:
		return "overflow"
	case protocol.PongResponse:
		return "pong"
	case protocol.BadAddressResponse:
		return "bad address"
	case protocol.InternalErrorResponse:
		return "internal error"
	case protocol.BadArgumentsResponse:
		return "bad arguments"
	case protocol.OKResponse:
		return "ok"
	case protocol.UnknownResponse:
		return "unknown command"
	case protocol.ExtFlashTimeoutResponse:
		return "external flash timeout"
	case protocol.ExtFlashPageErrorResponse:
		return "external flash page error"
	case protocol.ChangeBaudFailResponse:
		return "change baud failed"
	case protocol.CrcRxBufferResponse:
		return "rx buffer crc"
	case protocol.ReadRangeResponse:
		return "read range data"
	case protocol.ExReadRangeResponse:
		return "external read range data"
	case protocol.GetAttrResponse:
		return "attribute"
	case protocol.CrcIntFlashResponse:
		return "internal flash crc"
	case protocol.CrcExtFlashResponse:
		return "external flash crc"
	case protocol.InfoResponse:
		return "info"
	default:
		return fmt.Sprintf("%T", r)
	}
}
