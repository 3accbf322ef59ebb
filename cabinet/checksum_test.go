package cabinet

import "testing"

func TestChecksumEmptyIsSeed(t *testing.T) {
	if got := checksum(nil, 0xdeadbeef); got != 0xdeadbeef {
		t.Errorf("checksum(nil, seed) = %#x, want seed unchanged", got)
	}
}

func TestChecksumFoldsTrailingBytes(t *testing.T) {
	full := checksum([]byte{1, 2, 3, 4}, 0)
	partial := checksum([]byte{1, 2, 3}, 0)
	if full == partial {
		t.Error("checksum of 4-byte and 3-byte inputs collided unexpectedly")
	}
}

func TestDataChecksumDeterministic(t *testing.T) {
	stored := []byte("compressed-ish bytes")
	a := dataChecksum(uint16(len(stored)), 40, stored)
	b := dataChecksum(uint16(len(stored)), 40, stored)
	if a != b {
		t.Errorf("dataChecksum not deterministic: %#x vs %#x", a, b)
	}
	c := dataChecksum(uint16(len(stored)), 41, stored)
	if a == c {
		t.Error("dataChecksum ignored CBUncomp change")
	}
}
