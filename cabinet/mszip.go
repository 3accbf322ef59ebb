package cabinet

import (
	"bytes"

	"github.com/klauspost/compress/flate"
)

// maxBlockSize is the largest amount of uncompressed data a single CFDATA
// block may carry, per [MS-CAB] §2.1 ("the maximum size of uncompressed
// data in a data block is 32768 bytes").
const maxBlockSize = 32768

// mszipSignature is the two-byte marker [MS-MCI] prefixes every MS-ZIP
// data block with, ahead of the raw DEFLATE stream.
var mszipSignature = [2]byte{'C', 'K'}

// compressMSZIP deflates data, priming the dictionary from the previous
// block's uncompressed bytes as [MS-MCI] requires, and returns the stored
// CFDATA payload (the "CK" signature followed by the DEFLATE stream).
func compressMSZIP(data, dict []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(mszipSignature[:])
	fw, err := flate.NewWriterDict(&buf, flate.DefaultCompression, dict)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
