package protocol

// Command is a request sent by a flash tool and executed by the bootloader.
// It is a sealed interface: the concrete types in this package are the only
// implementations, one per opcode.
type Command interface {
	isCommand()
}

// Response is a reply sent by the bootloader back to the flash tool.
// Like Command it is a sealed interface with one concrete type per opcode.
type Response interface {
	isResponse()
}

// BaudMode selects the phase of the two-step baud rate handshake.
type BaudMode byte

const (
	// BaudModeSet requests the new baud rate
	BaudModeSet BaudMode = 0x01

	// BaudModeVerify confirms the new baud rate works; the bootloader
	// reverts if the rates do not match
	BaudModeVerify BaudMode = 0x02
)

// PingCommand asks the bootloader to drop its RX buffer and reply with a
// PongResponse.
type PingCommand struct{}

// InfoCommand requests the bootloader's info block.
type InfoCommand struct{}

// IDCommand requests the 8-byte unique device ID.
type IDCommand struct{}

// ResetCommand resets the bootloader's TX and RX buffers.
type ResetCommand struct{}

// ErasePageCommand erases the 512-byte internal flash page starting at
// Address. Non-page-aligned addresses earn a BadAddressResponse.
type ErasePageCommand struct {
	Address uint32
}

// WritePageCommand writes one internal flash page.
type WritePageCommand struct {
	Address uint32

	// Data must be exactly IntPageSize bytes
	Data []byte
}

// EraseExBlockCommand erases the 2048-byte external flash block (8 pages)
// starting at Address.
type EraseExBlockCommand struct {
	Address uint32
}

// WriteExPageCommand writes one external flash page.
type WriteExPageCommand struct {
	Address uint32

	// Data must be exactly ExtPageSize bytes
	Data []byte
}

// CrcRxBufferCommand requests the length and CRC32 of the bootloader's RX
// buffer.
type CrcRxBufferCommand struct{}

// ReadRangeCommand reads Length bytes of internal flash starting at Address.
// The response carries no length field, so the caller must arm the response
// decoder with the same Length before feeding the reply.
type ReadRangeCommand struct {
	Address uint32
	Length  uint16
}

// ExReadRangeCommand reads Length bytes of external flash starting at
// Address. The same arming requirement as ReadRangeCommand applies.
type ExReadRangeCommand struct {
	Address uint32
	Length  uint16
}

// SetAttrCommand writes one attribute slot.
type SetAttrCommand struct {
	// Index must be at most MaxAttrIndex
	Index byte

	// Key must be exactly KeyLength bytes, null padded
	Key []byte

	// Value may be up to MaxAttrValueLength bytes and may contain nulls
	Value []byte
}

// GetAttrCommand reads one attribute slot.
type GetAttrCommand struct {
	Index byte
}

// CrcIntFlashCommand requests the CRC32 of a range of internal flash.
type CrcIntFlashCommand struct {
	Address uint32
	Length  uint32
}

// CrcExtFlashCommand requests the CRC32 of a range of external flash.
type CrcExtFlashCommand struct {
	Address uint32
	Length  uint32
}

// EraseExPageCommand erases the 256-byte external flash page starting at
// Address.
type EraseExPageCommand struct {
	Address uint32
}

// ExtFlashInitCommand initialises the external flash chip and sets its page
// size to 256 bytes.
type ExtFlashInitCommand struct{}

// ClockOutCommand puts the bootloader in an infinite loop with the 32kHz
// clock present on a pin, for clock calibration.
type ClockOutCommand struct{}

// WriteUserPagesCommand writes the two flash user pages.
type WriteUserPagesCommand struct {
	Page1 uint32
	Page2 uint32
}

// ChangeBaudCommand sets or verifies a new baud rate. The host sends Mode
// BaudModeSet first, switches its own port speed, then sends BaudModeVerify
// with the same rate; the bootloader reverts if the verify never arrives or
// does not match.
type ChangeBaudCommand struct {
	Mode BaudMode
	Baud uint32
}

func (PingCommand) isCommand()           {}
func (InfoCommand) isCommand()           {}
func (IDCommand) isCommand()             {}
func (ResetCommand) isCommand()          {}
func (ErasePageCommand) isCommand()      {}
func (WritePageCommand) isCommand()      {}
func (EraseExBlockCommand) isCommand()   {}
func (WriteExPageCommand) isCommand()    {}
func (CrcRxBufferCommand) isCommand()    {}
func (ReadRangeCommand) isCommand()      {}
func (ExReadRangeCommand) isCommand()    {}
func (SetAttrCommand) isCommand()        {}
func (GetAttrCommand) isCommand()        {}
func (CrcIntFlashCommand) isCommand()    {}
func (CrcExtFlashCommand) isCommand()    {}
func (EraseExPageCommand) isCommand()    {}
func (ExtFlashInitCommand) isCommand()   {}
func (ClockOutCommand) isCommand()       {}
func (WriteUserPagesCommand) isCommand() {}
func (ChangeBaudCommand) isCommand()     {}

// OverflowResponse indicates the bootloader's RX buffer overflowed.
type OverflowResponse struct{}

// PongResponse is the reply to PingCommand.
type PongResponse struct{}

// BadAddressResponse indicates an unaligned or out-of-range address.
type BadAddressResponse struct{}

// InternalErrorResponse indicates the bootloader hit an internal fault.
type InternalErrorResponse struct{}

// BadArgumentsResponse indicates a structurally invalid command payload.
type BadArgumentsResponse struct{}

// OKResponse indicates the command completed successfully.
type OKResponse struct{}

// UnknownResponse indicates the bootloader did not recognise the command.
type UnknownResponse struct{}

// ExtFlashTimeoutResponse indicates the external flash chip timed out.
type ExtFlashTimeoutResponse struct{}

// ExtFlashPageErrorResponse indicates an external flash page error.
type ExtFlashPageErrorResponse struct{}

// ChangeBaudFailResponse indicates a failed baud rate handshake.
type ChangeBaudFailResponse struct{}

// CrcRxBufferResponse carries the RX buffer length and CRC32.
type CrcRxBufferResponse struct {
	Length uint16
	Crc    uint32
}

// ReadRangeResponse carries data read from internal flash. Its wire form has
// no length field; see ResponseDecoder.SetPayloadLen.
type ReadRangeResponse struct {
	Data []byte
}

// ExReadRangeResponse carries data read from external flash. Its wire form
// has no length field; see ResponseDecoder.SetPayloadLen.
type ExReadRangeResponse struct {
	Data []byte
}

// GetAttrResponse carries one attribute slot. On the wire the value region
// is always the full 55 bytes; Value holds only the declared length.
type GetAttrResponse struct {
	// Key is exactly KeyLength bytes
	Key []byte

	// Value is up to MaxAttrValueLength bytes
	Value []byte
}

// CrcIntFlashResponse carries the CRC32 of an internal flash range.
type CrcIntFlashResponse struct {
	Crc uint32
}

// CrcExtFlashResponse carries the CRC32 of an external flash range.
type CrcExtFlashResponse struct {
	Crc uint32
}

// InfoResponse carries the bootloader's info block, up to MaxInfoLength
// bytes.
type InfoResponse struct {
	Info []byte
}

func (OverflowResponse) isResponse()          {}
func (PongResponse) isResponse()              {}
func (BadAddressResponse) isResponse()        {}
func (InternalErrorResponse) isResponse()     {}
func (BadArgumentsResponse) isResponse()      {}
func (OKResponse) isResponse()                {}
func (UnknownResponse) isResponse()           {}
func (ExtFlashTimeoutResponse) isResponse()   {}
func (ExtFlashPageErrorResponse) isResponse() {}
func (ChangeBaudFailResponse) isResponse()    {}
func (CrcRxBufferResponse) isResponse()       {}
func (ReadRangeResponse) isResponse()         {}
func (ExReadRangeResponse) isResponse()       {}
func (GetAttrResponse) isResponse()           {}
func (CrcIntFlashResponse) isResponse()       {}
func (CrcExtFlashResponse) isResponse()       {}
func (InfoResponse) isResponse()              {}
