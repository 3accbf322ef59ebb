package cabinet

import "errors"

// ErrUnsupportedCompression is returned when a folder is flushed with a
// compression kind the engine recognises but does not implement (KindLZX,
// KindQuantum). See DESIGN.md: no Go implementation of either bitstream
// exists in the retrieval pack this module was grounded on.
var ErrUnsupportedCompression = errors.New("cabinet: unsupported compression algorithm")
