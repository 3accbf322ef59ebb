package main

import (
	"fmt"
	"math"
	"strconv"
)

// parseSize implements §6.1's SIZE[k|m] argument grammar: a decimal
// number optionally followed by a k/K (×1024) or m/M (×1048576) suffix.
func parseSize(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("cabx: empty size argument")
	}
	mult := uint64(1)
	numPart := s
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1024
		numPart = s[:len(s)-1]
	case 'm', 'M':
		mult = 1024 * 1024
		numPart = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cabx: invalid size %q: %w", s, err)
	}
	v := n * mult
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("cabx: size %q overflows a 32-bit cabinet size field", s)
	}
	return uint32(v), nil
}
