package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oc-soft/cabx/cabinet"
)

// ErrUnknownCompression is returned by parseCompression for a specifier
// not present in the table below.
type ErrUnknownCompression string

func (e ErrUnknownCompression) Error() string {
	return fmt.Sprintf("manifest: unknown compression specifier %q", string(e))
}

// parseCompression decodes a manifest compression column per §3's value
// set: "NONE", "MSZIP", "LZX:<window>" and "QUANTUM:<level>:<memory>".
// Plain "LZX" and "QUANTUM" fall back to the conservative defaults a real
// cabinet.dll ships (window 21, level 2/memory 21), matching the teacher's
// own pattern of giving every optional knob a safe default.
func parseCompression(spec string) (cabinet.Compression, error) {
	parts := strings.Split(spec, ":")
	switch strings.ToUpper(parts[0]) {
	case "NONE":
		return cabinet.None, nil
	case "MSZIP":
		return cabinet.MSZIP, nil
	case "LZX":
		window := 21
		if len(parts) > 1 {
			w, err := strconv.Atoi(parts[1])
			if err != nil {
				return cabinet.Compression{}, ErrUnknownCompression(spec)
			}
			window = w
		}
		if window < 15 || window > 21 {
			return cabinet.Compression{}, ErrUnknownCompression(spec)
		}
		return cabinet.Compression{Kind: cabinet.KindLZX, Window: window}, nil
	case "QUANTUM":
		level, memory := 2, 21
		if len(parts) > 1 {
			l, err := strconv.Atoi(parts[1])
			if err != nil {
				return cabinet.Compression{}, ErrUnknownCompression(spec)
			}
			level = l
		}
		if len(parts) > 2 {
			m, err := strconv.Atoi(parts[2])
			if err != nil {
				return cabinet.Compression{}, ErrUnknownCompression(spec)
			}
			memory = m
		}
		return cabinet.Compression{Kind: cabinet.KindQuantum, Level: level, Memory: memory}, nil
	default:
		return cabinet.Compression{}, ErrUnknownCompression(spec)
	}
}
