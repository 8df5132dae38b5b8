package protocol

// EscapeChar is the frame sentinel byte. It escapes literal occurrences of
// itself (0xFC 0xFC decodes to one 0xFC) and introduces the opcode marker
// that terminates a command frame or starts a response frame.
const EscapeChar = 0xFC

// Command opcodes. A command frame carries its payload first, then
// EscapeChar followed by one of these.
const (
	// CmdPing asks the bootloader to drop its RX buffer and send a pong
	CmdPing = 0x01

	// CmdInfo requests the bootloader's info block
	CmdInfo = 0x03

	// CmdID requests the 8-byte unique device ID
	CmdID = 0x04

	// CmdReset resets the bootloader's TX and RX buffers
	CmdReset = 0x05

	// CmdErasePage erases one 512-byte page of internal flash
	CmdErasePage = 0x06

	// CmdWritePage writes one 512-byte page of internal flash
	CmdWritePage = 0x07

	// CmdEraseExBlock erases a 2048-byte block (8 pages) of external flash
	CmdEraseExBlock = 0x08

	// CmdWriteExPage writes one 256-byte page of external flash
	CmdWriteExPage = 0x09

	// CmdCrcRxBuffer requests the length and CRC32 of the RX buffer
	CmdCrcRxBuffer = 0x10

	// CmdReadRange reads a range of internal flash
	CmdReadRange = 0x11

	// CmdExReadRange reads a range of external flash
	CmdExReadRange = 0x12

	// CmdSetAttr writes a key/value attribute slot
	CmdSetAttr = 0x13

	// CmdGetAttr reads a key/value attribute slot
	CmdGetAttr = 0x14

	// CmdCrcIntFlash requests the CRC32 of a range of internal flash
	CmdCrcIntFlash = 0x15

	// CmdCrcExtFlash requests the CRC32 of a range of external flash
	CmdCrcExtFlash = 0x16

	// CmdEraseExPage erases one 256-byte page of external flash
	CmdEraseExPage = 0x17

	// CmdExtFlashInit initialises the external flash chip
	CmdExtFlashInit = 0x18

	// CmdClockOut loops forever with the 32kHz clock on a pin, for
	// clock calibration
	CmdClockOut = 0x19

	// CmdWriteUserPages writes the two flash user pages
	CmdWriteUserPages = 0x20

	// CmdChangeBaud sets or verifies a new baud rate
	CmdChangeBaud = 0x21
)

// Response opcodes. A response frame starts with EscapeChar followed by one
// of these, then any payload.
const (
	// ResOverflow indicates the bootloader's RX buffer overflowed
	ResOverflow = 0x10

	// ResPong is the reply to CmdPing
	ResPong = 0x11

	// ResBadAddress indicates an unaligned or out-of-range address
	ResBadAddress = 0x12

	// ResInternalError indicates the bootloader hit an internal fault
	ResInternalError = 0x13

	// ResBadArguments indicates a structurally invalid command payload
	ResBadArguments = 0x14

	// ResOK indicates the command completed successfully
	ResOK = 0x15

	// ResUnknown indicates the bootloader did not recognise the command
	ResUnknown = 0x16

	// ResExtFlashTimeout indicates the external flash chip timed out
	ResExtFlashTimeout = 0x17

	// ResExtFlashPageError indicates an external flash page error
	ResExtFlashPageError = 0x18

	// ResCrcRxBuffer carries the RX buffer length and CRC32
	ResCrcRxBuffer = 0x19

	// ResReadRange carries internal flash read data
	ResReadRange = 0x20

	// ResExReadRange carries external flash read data
	ResExReadRange = 0x21

	// ResGetAttr carries an attribute's key and value
	ResGetAttr = 0x22

	// ResCrcIntFlash carries the CRC32 of an internal flash range
	ResCrcIntFlash = 0x23

	// ResCrcExtFlash carries the CRC32 of an external flash range
	ResCrcExtFlash = 0x24

	// ResInfo carries the bootloader's info block
	ResInfo = 0x25

	// ResChangeBaudFail indicates a failed baud rate handshake
	ResChangeBaudFail = 0x26
)

// Structural limits. These are part of the wire contract and must match the
// bootloader exactly.
const (
	// IntPageSize is the internal flash page size in bytes
	IntPageSize = 512

	// ExtPageSize is the external flash page size in bytes
	ExtPageSize = 256

	// MaxAttrIndex is the highest valid attribute slot index
	MaxAttrIndex = 16

	// KeyLength is the exact attribute key length in bytes (null padded)
	KeyLength = 8

	// MaxAttrValueLength is the maximum attribute value length in bytes
	MaxAttrValueLength = 55

	// MaxInfoLength is the maximum info block length in bytes
	MaxInfoLength = 192

	// DecoderBufferSize is the capacity of a decoder's internal payload
	// buffer. It must hold the largest framed payload: a 512-byte
	// internal page write plus its 4-byte address.
	DecoderBufferSize = 520
)

// Trailing payload sizes for the self-describing length-bearing responses.
// The response decoder arms these automatically when the matching opcode
// marker arrives.
const (
	// CrcRxBufferPayloadSize is 2 bytes of length plus 4 bytes of CRC32
	CrcRxBufferPayloadSize = 6

	// GetAttrPayloadSize is 8 key bytes, 1 length byte and the full
	// 55-byte value region, which is always sent regardless of the
	// actual value length
	GetAttrPayloadSize = 1 + KeyLength + MaxAttrValueLength

	// CrcPayloadSize is 4 bytes of CRC32
	CrcPayloadSize = 4

	// InfoPayloadSize is the fixed info block size sent by the
	// bootloader. Longer info payloads require the caller to arm the
	// decoder explicitly before the marker arrives.
	InfoPayloadSize = 8
)
