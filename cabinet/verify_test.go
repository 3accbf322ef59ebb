package cabinet

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"testing"

	"github.com/klauspost/compress/flate"
)

// verifiedFolder is one folder's files plus its fully decompressed data,
// reassembled from the raw CFHEADER/CFFOLDER/CFFILE/CFDATA records this
// package writes — not a general-purpose cabinet reader, just enough of
// [MS-CAB] §2.1-2.6 to check a written cabinet against what AddFile was
// asked to place in it.
type verifiedFolder struct {
	compress uint16
	data     []byte
}

type verifiedEntry struct {
	name         string
	attrs        uint16
	date, timeOf uint16
	folder       int
	offset       uint32
	size         uint32
}

type verifiedCabinet struct {
	folders []verifiedFolder
	entries []verifiedEntry
}

// readCabinetForTest parses path's on-disk bytes directly: header, then
// every CFFOLDER row, then every CFFILE row (name included), then each
// folder's CFDATA blocks decompressed and concatenated in block order.
func readCabinetForTest(t *testing.T, path string) *verifiedCabinet {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	buf := bytes.NewReader(raw)

	var hdr cfHeader
	if err := binary.Read(buf, binary.LittleEndian, &hdr); err != nil {
		t.Fatalf("%s: read CFHEADER: %v", path, err)
	}
	if string(hdr.Signature[:]) != cabinetSignature {
		t.Fatalf("%s: signature = %q, want %q", path, hdr.Signature, cabinetSignature)
	}

	folderHdrs := make([]cfFolder, hdr.CFolders)
	for i := range folderHdrs {
		if err := binary.Read(buf, binary.LittleEndian, &folderHdrs[i]); err != nil {
			t.Fatalf("%s: read CFFOLDER %d: %v", path, i, err)
		}
	}

	if _, err := buf.Seek(int64(hdr.COFFFiles), 0); err != nil {
		t.Fatalf("%s: seek to file table: %v", path, err)
	}
	entries := make([]verifiedEntry, hdr.CFiles)
	for i := range entries {
		var cff cfFileFixed
		if err := binary.Read(buf, binary.LittleEndian, &cff); err != nil {
			t.Fatalf("%s: read CFFILE %d: %v", path, i, err)
		}
		var nameBytes []byte
		for {
			b, err := buf.ReadByte()
			if err != nil {
				t.Fatalf("%s: read CFFILE %d name: %v", path, i, err)
			}
			if b == 0 {
				break
			}
			nameBytes = append(nameBytes, b)
		}
		name, err := DecodeName(nameBytes)
		if err != nil {
			t.Fatalf("%s: decode CFFILE %d name %q: %v", path, i, nameBytes, err)
		}
		entries[i] = verifiedEntry{
			name:   name,
			attrs:  cff.Attribs,
			date:   cff.Date,
			timeOf: cff.Time,
			folder: int(cff.IFolder),
			offset: cff.UOffFolderStart,
			size:   cff.CBFile,
		}
	}

	folders := make([]verifiedFolder, len(folderHdrs))
	for i, fh := range folderHdrs {
		if _, err := buf.Seek(int64(fh.COFFCabStart), 0); err != nil {
			t.Fatalf("%s: seek to folder %d data: %v", path, i, err)
		}
		folders[i] = verifiedFolder{
			compress: fh.TypeCompress,
			data:     decodeFolderBlocks(t, path, i, buf, &fh),
		}
	}

	return &verifiedCabinet{folders: folders, entries: entries}
}

// decodeFolderBlocks reads fh.CCFData CFDATA blocks in order, verifies
// each one's checksum, and decompresses it per fh's compression word,
// priming the MS-ZIP dictionary from the previous block's plaintext as
// compressMSZIP does on the write side.
func decodeFolderBlocks(t *testing.T, path string, folderIdx int, buf *bytes.Reader, fh *cfFolder) []byte {
	t.Helper()
	var out []byte
	var dict []byte
	for b := uint16(0); b < fh.CCFData; b++ {
		var cd cfDataFixed
		if err := binary.Read(buf, binary.LittleEndian, &cd); err != nil {
			t.Fatalf("%s: folder %d block %d: read CFDATA: %v", path, folderIdx, b, err)
		}
		stored := make([]byte, cd.CBData)
		if _, err := io.ReadFull(buf, stored); err != nil {
			t.Fatalf("%s: folder %d block %d: read stored bytes: %v", path, folderIdx, b, err)
		}
		if got := dataChecksum(cd.CBData, cd.CBUncomp, stored); got != cd.Checksum {
			t.Fatalf("%s: folder %d block %d: checksum = %#x, want %#x", path, folderIdx, b, got, cd.Checksum)
		}

		var plain []byte
		switch fh.TypeCompress & typeCompressMaskType {
		case typeCompressNone:
			plain = stored
		case typeCompressMSZIP:
			if len(stored) < 2 || string(stored[:2]) != "CK" {
				t.Fatalf("%s: folder %d block %d: missing MS-ZIP \"CK\" signature", path, folderIdx, b)
			}
			var fr io.ReadCloser
			if len(dict) == 0 {
				fr = flate.NewReader(bytes.NewReader(stored[2:]))
			} else {
				fr = flate.NewReaderDict(bytes.NewReader(stored[2:]), dict)
			}
			decoded := make([]byte, cd.CBUncomp)
			if _, err := io.ReadFull(fr, decoded); err != nil {
				t.Fatalf("%s: folder %d block %d: inflate: %v", path, folderIdx, b, err)
			}
			fr.Close()
			plain = decoded
			dict = append([]byte(nil), plain...)
		default:
			t.Fatalf("%s: folder %d block %d: unsupported compression word %#x", path, folderIdx, b, fh.TypeCompress)
		}
		if uint16(len(plain)) != cd.CBUncomp {
			t.Fatalf("%s: folder %d block %d: decoded %d bytes, want %d", path, folderIdx, b, len(plain), cd.CBUncomp)
		}
		out = append(out, plain...)
	}
	return out
}

// names returns every file name in this cabinet, in CFFILE table order.
func (c *verifiedCabinet) names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.name
	}
	return names
}

// content returns name's raw bytes, sliced out of its folder's
// reassembled data at [offset, offset+size).
func (c *verifiedCabinet) content(name string) ([]byte, bool) {
	for _, e := range c.entries {
		if e.name != name {
			continue
		}
		if e.folder >= len(c.folders) {
			return nil, false
		}
		fd := c.folders[e.folder].data
		if int(e.offset)+int(e.size) > len(fd) {
			return nil, false
		}
		return fd[e.offset : e.offset+e.size], true
	}
	return nil, false
}

func (c *verifiedCabinet) attrs(name string) (uint16, bool) {
	for _, e := range c.entries {
		if e.name == name {
			return e.attrs, true
		}
	}
	return 0, false
}
