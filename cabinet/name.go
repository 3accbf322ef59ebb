package cabinet

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrSupplementaryPlane is returned by Encode for runes above U+FFFF. The
// source implementation this engine is modelled on only ever produced
// one-, two- and three-byte UTF-8 sequences when re-emitting UTF-16 code
// units (see [MS-MCI]); surrogate pairs were never assembled back into a
// four-byte sequence. Rather than silently emit a mis-encoded name, Encode
// rejects such input (Open Question (a) in SPEC_FULL.md).
var ErrSupplementaryPlane = errors.New("cabinet: name codec does not support characters outside the Basic Multilingual Plane")

// EncodedName is the result of encoding a UTF-8 entry name into the
// cabinet's on-disk representation.
type EncodedName struct {
	// Bytes is the NUL-terminated on-disk name.
	Bytes []byte
	// NeedsUTFAttr is true iff the name requires the NAME_IS_UTF
	// attribute bit (attribExec's sibling bit, see attribNameIsUTF).
	NeedsUTFAttr bool
}

// EncodeName translates a UTF-8 entry name into the cabinet on-disk name:
// the UTF-16 code units of s, each re-emitted as UTF-8 bytes under the
// rules of §4.1, NUL-terminated. It reports whether any code unit needed
// more than one byte, which callers OR into the CFFILE attribute word.
func EncodeName(s string) (EncodedName, error) {
	if !utf8.ValidString(s) {
		return EncodedName{}, fmt.Errorf("cabinet: invalid UTF-8 entry name %q", s)
	}
	units := utf16.Encode([]rune(s))
	var out []byte
	needsUTF := false
	for _, u := range units {
		switch {
		case u <= 0x007f:
			out = append(out, byte(u))
		case u <= 0x07ff:
			out = append(out,
				byte(0xc0+(u>>6)),
				byte(0x80+(u&0x3f)),
			)
			needsUTF = true
		case u >= 0xd800 && u <= 0xdfff:
			// A lone or paired surrogate: the source alphabet is BMP-only.
			return EncodedName{}, ErrSupplementaryPlane
		default:
			out = append(out,
				byte(0xe0+(u>>12)),
				byte(0x80+((u>>6)&0x3f)),
				byte(0x80+(u&0x3f)),
			)
			needsUTF = true
		}
	}
	out = append(out, 0)
	return EncodedName{Bytes: out, NeedsUTFAttr: needsUTF}, nil
}

// DecodeName is the inverse of EncodeName: it decodes a NUL-terminated
// on-disk name (as the engine's own CFFILE name field, or a name handed
// back by get_open_info's entry lookup) into UTF-8. Lead bytes are
// interpreted per §4.1: 1110xxxx begins a three-byte sequence, 110xxxxx a
// two-byte sequence, ASCII is copied verbatim.
func DecodeName(b []byte) (string, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	var units []uint16
	i := 0
	for i < len(b) {
		c := b[i]
		switch {
		case c&0x80 == 0x00:
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0:
			if i+1 >= len(b) || b[i+1]&0xc0 != 0x80 {
				return "", fmt.Errorf("cabinet: ill-formed two-byte sequence at offset %d", i)
			}
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0:
			if i+2 >= len(b) || b[i+1]&0xc0 != 0x80 || b[i+2]&0xc0 != 0x80 {
				return "", fmt.Errorf("cabinet: ill-formed three-byte sequence at offset %d", i)
			}
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			return "", fmt.Errorf("cabinet: ill-formed lead byte 0x%02x at offset %d", c, i)
		}
	}
	return string(utf16.Decode(units)), nil
}

