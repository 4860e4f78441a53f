package dvbsi

import (
	"log"
	"strings"
)

// DecodeText decodes a DVB text field (ETSI EN 300 468 Annex A) to UTF-8.
//
// A first byte >= 0x20 selects plain ISO-8859-1, decoded to UTF-8.
// Control-character prefixes (0x01..0x1F)
// select an alternative character table; this decoder recognizes them only
// well enough to skip past the selector bytes, then falls back to
// ISO-8859-1 for the remainder ("unsupported" tables are stubbed, not
// mistranslated). Nil input fails with ErrInvalidArgument, surfaced here as
// a logged warning with an empty result so callers can treat it as empty.
func DecodeText(b []byte) string {
	if b == nil {
		log.Printf("dvbsi: DecodeText: %v", ErrInvalidArgument)
		return ""
	}
	if len(b) == 0 {
		return ""
	}
	first := b[0]
	switch {
	case first >= 0x20:
		return iso8859ToUTF8(b)
	case first == 0x10:
		// Two-byte code page selector follows; table selection beyond
		// ISO-8859-1 is not implemented, so skip the selector and decode
		// the remainder as-is.
		if len(b) >= 3 {
			return iso8859ToUTF8(b[3:])
		}
		return ""
	case first >= 0x01 && first <= 0x0F, first >= 0x11 && first <= 0x1F:
		return iso8859ToUTF8(b[1:])
	default:
		return iso8859ToUTF8(b)
	}
}

// iso8859ToUTF8 decodes a Latin-1 byte string to a Go (UTF-8) string. Every
// ISO-8859-1 code point maps 1:1 onto a Unicode code point, so a plain rune
// conversion is exact.
func iso8859ToUTF8(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
