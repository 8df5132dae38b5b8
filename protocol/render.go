package protocol

// renderer produces wire bytes one at a time, applying the escape rule.
// Each render method returns how far the cursor advances, the byte to emit
// and whether a byte was produced at all. A literal EscapeChar advances the
// cursor by 0 on the first copy and 1 on the second, so byte-stuffing costs
// one extra call without disturbing logical field order.
type renderer struct {
	sentEscape bool
}

func (r *renderer) renderByte(b byte) (int, byte, bool) {
	if b == EscapeChar {
		if r.sentEscape {
			r.sentEscape = false
			return 1, EscapeChar, true
		}
		r.sentEscape = true
		return 0, EscapeChar, true
	}
	r.sentEscape = false
	return 1, b, true
}

func (r *renderer) renderU16(idx int, v uint16) (int, byte, bool) {
	switch idx {
	case 0:
		return r.renderByte(byte(v))
	case 1:
		return r.renderByte(byte(v >> 8))
	default:
		return 0, 0, false
	}
}

func (r *renderer) renderU32(idx int, v uint32) (int, byte, bool) {
	switch idx {
	case 0:
		return r.renderByte(byte(v))
	case 1:
		return r.renderByte(byte(v >> 8))
	case 2:
		return r.renderByte(byte(v >> 16))
	case 3:
		return r.renderByte(byte(v >> 24))
	default:
		return 0, 0, false
	}
}

// renderRegion renders a fixed-size region from data, padding missing
// trailing bytes with 0xFF up to size. Validated messages already match
// their declared sizes, so the padding is only observable when construction
// checks were bypassed.
func (r *renderer) renderRegion(idx, size int, data []byte) (int, byte, bool) {
	switch {
	case idx < len(data) && idx < size:
		return r.renderByte(data[idx])
	case idx < size:
		return r.renderByte(0xFF)
	default:
		return 0, 0, false
	}
}

// renderMarker renders the escape/opcode pair that terminates a command
// frame or starts a response frame. Opcodes are never equal to EscapeChar,
// so no stuffing applies here.
func renderMarker(idx int, opcode byte) (int, byte, bool) {
	switch idx {
	case 0:
		return 1, EscapeChar, true
	case 1:
		return 1, opcode, true
	default:
		return 0, 0, false
	}
}
