package cabinet

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oc-soft/cabx/outdir"
	"github.com/oc-soft/cabx/placement"
)

const cabinetSignature = "MSCF"

// cfHeader is the on-disk CFHEADER structure, [MS-CAB] §2.3.
type cfHeader struct {
	Signature    [4]byte
	Reserved1    uint32
	CBCabinet    uint32
	Reserved2    uint32
	COFFFiles    uint32
	Reserved3    uint32
	VersionMinor uint8
	VersionMajor uint8
	CFolders     uint16
	CFiles       uint16
	Flags        uint16
	SetID        uint16
	ICabinet     uint16
}

// cfFolder is the on-disk CFFOLDER structure, [MS-CAB] §2.4.
type cfFolder struct {
	COFFCabStart uint32
	CCFData      uint16
	TypeCompress uint16
}

// cfFileFixed is the fixed-size prefix of a CFFILE entry, [MS-CAB] §2.5;
// the NUL-terminated name follows it on disk.
type cfFileFixed struct {
	CBFile          uint32
	UOffFolderStart uint32
	IFolder         uint16
	Date            uint16
	Time            uint16
	Attribs         uint16
}

// cfDataFixed is the fixed-size prefix of a CFDATA block, [MS-CAB] §2.6;
// the stored bytes follow it on disk.
type cfDataFixed struct {
	Checksum uint32
	CBData   uint16
	CBUncomp uint16
}

const (
	cfHeaderSize = 4 + 4 + 4 + 4 + 4 + 4 + 1 + 1 + 2 + 2 + 2 + 2 + 2
	cfFolderSize = 4 + 2 + 2
	cfFileSize   = 4 + 4 + 2 + 2 + 2 + 2
	cfDataSize   = 4 + 2 + 2
)

// placedFile is one CFFILE row under construction: everything is known up
// front except CBFile, which is filled in once the file's data (or, for a
// size-split file, the portion of it landing in this cabinet) has been
// copied.
type placedFile struct {
	entryName    string
	name         EncodedName
	attr         uint16
	date, timeOf uint16
	folderOffset uint32
	size         uint32
}

// dataBlock is one already-compressed CFDATA block queued for the current
// cabinet.
type dataBlock struct {
	stored   []byte
	cbUncomp uint16
}

// folderState accumulates one folder's files and data blocks. A folder
// that continues across a size-induced cabinet split keeps the same
// folderState (same compression and MS-ZIP history dictionary) but starts
// with empty files and blocks slices and its offset counter reset to 0 in
// the new cabinet, since the rows and blocks already on disk stay there.
type folderState struct {
	compression Compression
	files       []placedFile
	blocks      []dataBlock
	pending     []byte
	dict        []byte
	cursor      uint32
}

// Writer assembles cabinet files on disk from a stream of AddFile calls,
// implementing C6/C7's callback surface as methods instead of function
// pointers (see DESIGN.md on REDESIGN FLAGS).
type Writer struct {
	params       *Params
	tracker      *placement.Tracker
	sourceToName map[string]string
	status       io.Writer

	cabinetDirs map[string]string
	cabFolders  []*folderState
	folder      *folderState
}

// NewWriter constructs a Writer bound to params and tracker. status, if
// non-nil, receives one progress line per placed file when status display
// is enabled (§4.7's file_placed "emit a progress line").
func NewWriter(params *Params, tracker *placement.Tracker, sourceToName map[string]string, status io.Writer) *Writer {
	return &Writer{
		params:       params,
		tracker:      tracker,
		sourceToName: sourceToName,
		status:       status,
		cabinetDirs:  make(map[string]string),
	}
}

func (w *Writer) registerCabinetDir() {
	name := w.params.CabinetName
	if _, ok := w.cabinetDirs[name]; ok {
		return
	}
	w.cabinetDirs[name] = w.params.OutputDir
	w.tracker.RecordDir(name, w.params.OutputDir)
}

// nextCabinet is the get_next_cabinet callback of §4.7: advance the
// cabinet-parameters record and register the new cabinet's directory.
func (w *Writer) nextCabinet() error {
	if err := w.params.advance(); err != nil {
		return err
	}
	w.registerCabinetDir()
	return nil
}

// AddFile streams sourcePath's bytes into the current folder, the Go
// analogue of the writer's add-file operation in §4.6 step 3. It looks
// the entry name up via the source→entry-name map and re-encodes it
// through C1 to compute both the on-disk name and the UTF attribute bit,
// mirroring get_open_info's lookup in §4.7.
func (w *Writer) AddFile(sourcePath string, execute bool, attribute int, compress Compression) error {
	w.registerCabinetDir()

	if w.folder != nil && uint64(w.folder.cursor) >= uint64(w.params.FolderThreshold) {
		if err := w.FlushFolder(); err != nil {
			return err
		}
	}

	entryName, ok := w.sourceToName[sourcePath]
	if !ok {
		return fmt.Errorf("cabinet: no entry name registered for source %q", sourcePath)
	}
	encodedName, err := EncodeName(entryName)
	if err != nil {
		return err
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("cabinet: open %s: %w", sourcePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("cabinet: stat %s: %w", sourcePath, err)
	}

	if w.folder == nil {
		w.openFolder(compress)
	}

	date, timeOf := dosDateTime(info.ModTime())
	attr := uint16(attribute)
	if execute {
		attr |= attribExec
	}
	if encodedName.NeedsUTFAttr {
		attr |= attribNameIsUTF
	}

	startCabinet := w.params.CabinetName
	folderOffset := w.folder.cursor
	var written uint32
	split := false

	for {
		remaining := maxBlockSize - len(w.folder.pending)
		chunk := make([]byte, remaining)
		n, rerr := io.ReadFull(f, chunk)
		if n > 0 {
			w.folder.pending = append(w.folder.pending, chunk[:n]...)
			w.folder.cursor += uint32(n)
			written += uint32(n)
		}
		if len(w.folder.pending) >= maxBlockSize {
			block := w.folder.pending[:maxBlockSize]
			w.folder.pending = append([]byte(nil), w.folder.pending[maxBlockSize:]...)
			if err := w.commitBlock(block); err != nil {
				return err
			}
			if !split && w.cabinetOverBudget() {
				split = true
				w.placeFile(startCabinet, entryName, encodedName, attr, date, timeOf, folderOffset, written)
				w.tracker.NotePlaced(startCabinet, entryName, true)
				if err := w.finalizeCabinet(); err != nil {
					return err
				}
				if err := w.nextCabinet(); err != nil {
					return err
				}
				// The old folder's files/blocks are already durably
				// written into the cabinet just finalized; carrying them
				// forward here would re-list them (with offsets into
				// data that no longer exists in this file) in the new
				// cabinet's table too. Only the dictionary carries over,
				// since MS-ZIP priming is a property of the compressed
				// stream, not of any one cabinet file.
				w.folder.blocks = nil
				w.folder.files = nil
				w.folder.cursor = 0
				w.cabFolders = []*folderState{w.folder}
				folderOffset = 0
				written = 0
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("cabinet: read %s: %w", sourcePath, rerr)
		}
	}

	w.placeFile(w.params.CabinetName, entryName, encodedName, attr, date, timeOf, folderOffset, written)

	if split {
		w.tracker.NotePlaced(w.params.CabinetName, entryName, false)
		if err := w.FlushFolder(); err != nil {
			return err
		}
	} else {
		w.tracker.NotePlaced(startCabinet, entryName, false)
	}

	if w.status != nil {
		fmt.Fprintf(w.status, "placed %s -> %s\n", entryName, w.cabinetOfEntry(entryName))
	}
	return nil
}

func (w *Writer) cabinetOfEntry(entryName string) string {
	if c, ok := w.tracker.Cabinet(entryName); ok {
		return c
	}
	return "?"
}

func (w *Writer) placeFile(cabName, entryName string, encodedName EncodedName, attr, date, timeOf uint16, folderOffset, size uint32) {
	w.folder.files = append(w.folder.files, placedFile{
		entryName:    entryName,
		name:         encodedName,
		attr:         attr,
		date:         date,
		timeOf:       timeOf,
		folderOffset: folderOffset,
		size:         size,
	})
}

func (w *Writer) openFolder(compress Compression) {
	w.folder = &folderState{compression: compress}
	w.cabFolders = append(w.cabFolders, w.folder)
}

// commitBlock compresses (or stores raw) one full-sized block and appends
// it to the current folder.
func (w *Writer) commitBlock(raw []byte) error {
	cbUncomp := len(raw)
	var stored []byte
	switch w.folder.compression.Kind {
	case KindNone:
		stored = append([]byte(nil), raw...)
	case KindMSZIP:
		var err error
		stored, err = compressMSZIP(raw, w.folder.dict)
		if err != nil {
			return err
		}
		w.folder.dict = append([]byte(nil), raw...)
	default:
		return ErrUnsupportedCompression
	}
	w.folder.blocks = append(w.folder.blocks, dataBlock{stored: stored, cbUncomp: uint16(cbUncomp)})
	return nil
}

// cabinetOverBudget reports whether the current cabinet, as buffered so
// far, exceeds MaxCabinetSize. It never reports true for a cabinet with no
// committed blocks yet, since a single oversized block cannot be split
// further.
func (w *Writer) cabinetOverBudget() bool {
	if w.params.MaxCabinetSize == DefaultMaxSize {
		return false
	}
	if !w.cabinetHasBlocks() {
		return false
	}
	return w.cabinetSize() > uint64(w.params.MaxCabinetSize)
}

func (w *Writer) cabinetHasBlocks() bool {
	for _, fs := range w.cabFolders {
		if len(fs.blocks) > 0 {
			return true
		}
	}
	return false
}

func (w *Writer) cabinetSize() uint64 {
	total := uint64(cfHeaderSize)
	total += uint64(cfFolderSize) * uint64(len(w.cabFolders))
	for _, fs := range w.cabFolders {
		for _, pf := range fs.files {
			total += uint64(cfFileSize) + uint64(len(pf.name.Bytes))
		}
		for _, b := range fs.blocks {
			total += uint64(cfDataSize) + uint64(len(b.stored))
		}
	}
	return total
}

// FlushFolder closes the currently open folder: any pending bytes shorter
// than a full block are formed into a final block now. The next AddFile
// call opens a fresh folder.
func (w *Writer) FlushFolder() error {
	if w.folder == nil {
		return nil
	}
	if len(w.folder.pending) > 0 {
		if err := w.commitBlock(w.folder.pending); err != nil {
			return err
		}
		w.folder.pending = nil
	}
	w.folder = nil
	return nil
}

// FlushCabinet closes the current folder (if any), serializes every
// buffered folder to disk as one cabinet file, and — when prepareNext is
// true — advances to the next cabinet. prepareNext is false exactly when
// the driver is issuing the terminal flush of the last entry, which
// suppresses the trailing ghost cabinet per §4.6.
func (w *Writer) FlushCabinet(prepareNext bool) error {
	if err := w.FlushFolder(); err != nil {
		return err
	}
	if !w.cabinetHasBlocks() && len(w.cabFolders) == 0 {
		return nil
	}
	if err := w.finalizeCabinet(); err != nil {
		return err
	}
	if prepareNext {
		return w.nextCabinet()
	}
	return nil
}

// finalizeCabinet writes every buffered folder to the current cabinet
// file and clears the buffer; it does not touch params or the tracker.
func (w *Writer) finalizeCabinet() error {
	if len(w.cabFolders) == 0 {
		return nil
	}
	dir, fileName, err := outdir.Route(w.cabinetDirs, w.params.cabinetPath())
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, fileName))
	if err != nil {
		return fmt.Errorf("cabinet: create %s: %w", w.params.CabinetName, err)
	}
	defer f.Close()

	if err := w.writeCabinet(f); err != nil {
		return fmt.Errorf("cabinet: write %s: %w", w.params.CabinetName, err)
	}
	w.cabFolders = nil
	return nil
}

func (w *Writer) writeCabinet(out io.Writer) error {
	folders := w.cabFolders
	fileTableSize := 0
	numFiles := 0
	for _, fs := range folders {
		for _, pf := range fs.files {
			fileTableSize += cfFileSize + len(pf.name.Bytes)
			numFiles++
		}
	}
	coffFiles := uint32(cfHeaderSize) + uint32(cfFolderSize)*uint32(len(folders))

	dataStart := coffFiles + uint32(fileTableSize)
	offsets := make([]uint32, len(folders))
	running := dataStart
	var cabTotal uint64
	for i, fs := range folders {
		offsets[i] = running
		for _, b := range fs.blocks {
			running += uint32(cfDataSize) + uint32(len(b.stored))
		}
	}
	cabTotal = uint64(running)
	if cabTotal > 0xffffffff {
		return fmt.Errorf("cabinet: cabinet exceeds the 32-bit size field (%d bytes)", cabTotal)
	}

	hdr := cfHeader{
		CBCabinet:    uint32(cabTotal),
		COFFFiles:    coffFiles,
		VersionMinor: 3,
		VersionMajor: 1,
		CFolders:     uint16(len(folders)),
		CFiles:       uint16(numFiles),
		SetID:        w.params.SetID,
		ICabinet:     uint16(w.params.CabinetIndex),
	}
	copy(hdr.Signature[:], cabinetSignature)
	if err := binary.Write(out, binary.LittleEndian, &hdr); err != nil {
		return err
	}

	for i, fs := range folders {
		cf := cfFolder{
			COFFCabStart: offsets[i],
			CCFData:      uint16(len(fs.blocks)),
			TypeCompress: fs.compression.typeCompressWord(),
		}
		if err := binary.Write(out, binary.LittleEndian, &cf); err != nil {
			return err
		}
	}

	for i, fs := range folders {
		for _, pf := range fs.files {
			cff := cfFileFixed{
				CBFile:          pf.size,
				UOffFolderStart: pf.folderOffset,
				IFolder:         uint16(i),
				Date:            pf.date,
				Time:            pf.timeOf,
				Attribs:         pf.attr,
			}
			if err := binary.Write(out, binary.LittleEndian, &cff); err != nil {
				return err
			}
			if _, err := out.Write(pf.name.Bytes); err != nil {
				return err
			}
		}
	}

	for _, fs := range folders {
		for _, b := range fs.blocks {
			cd := cfDataFixed{
				Checksum: dataChecksum(uint16(len(b.stored)), b.cbUncomp, b.stored),
				CBData:   uint16(len(b.stored)),
				CBUncomp: b.cbUncomp,
			}
			if err := binary.Write(out, binary.LittleEndian, &cd); err != nil {
				return err
			}
			if _, err := out.Write(b.stored); err != nil {
				return err
			}
		}
	}
	return nil
}
