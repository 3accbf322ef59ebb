package cabinet

import (
	"fmt"
	"math"
	"path/filepath"
)

// Params is the mutable cabinet-parameters record described in §3: it is
// owned by the Driver for the lifetime of a generation run and rewritten
// by the engine's next-cabinet step as each cabinet boundary is crossed.
type Params struct {
	// CabinetIndex is the current (0-based) cabinet index, substituted
	// into CabinetTemplate/DiskTemplate.
	CabinetIndex int
	// DiskIndex is the current disk index. cabx does not implement
	// multi-disk media grouping beyond carrying the field the real FCI
	// engine exposes; it tracks CabinetIndex.
	DiskIndex int
	// CabinetTemplate is a printf-style template with one %d verb, e.g.
	// "data%d.cab".
	CabinetTemplate string
	// DiskTemplate is the optional disk name template; empty means "no
	// disk name".
	DiskTemplate string
	// OutputDir is the directory new cabinets are written to.
	OutputDir string
	// MaxCabinetSize is the cabinet size in bytes past which the engine
	// forces a cabinet rollover mid-folder. The check runs only after
	// AddFile commits a full data block, and AddFile splits a file at
	// most once, so a written cabinet can be larger than this.
	MaxCabinetSize uint32
	// FolderThreshold is the amount of uncompressed folder data at which
	// the open folder is flushed automatically. AddFile checks it before
	// adding each file, so a single file can take a folder past it.
	// math.MaxUint32 by default, meaning "never auto-flush on size alone"
	// (Open Question (b)).
	FolderThreshold uint32
	// SetID is the cabinet set identifier, shared by every cabinet this
	// run produces.
	SetID uint16

	// CabinetName and DiskName are the current cabinet/disk names,
	// filled in by the engine each time it crosses a cabinet boundary.
	CabinetName string
	DiskName    string
}

// DefaultMaxSize mirrors the source's ULONG_MAX default for
// --max-cabinet/--folder-thresh: "effectively unbounded" on a 32-bit
// cabinet size field.
const DefaultMaxSize = math.MaxUint32

// NewParams builds the initial Params record for a run, per §4.6's
// fill-cab-param step.
func NewParams(cabinetTemplate, diskTemplate, outputDir string, maxCabinetSize, folderThreshold uint32, setID uint16) (*Params, error) {
	p := &Params{
		CabinetTemplate: cabinetTemplate,
		DiskTemplate:    diskTemplate,
		OutputDir:       outputDir,
		MaxCabinetSize:  maxCabinetSize,
		FolderThreshold: folderThreshold,
		SetID:           setID,
	}
	if err := p.rollNames(); err != nil {
		return nil, err
	}
	return p, nil
}

// rollNames formats CabinetName/DiskName from the templates for the
// current CabinetIndex, matching cabx_fci_get_next_cabinet's
// snprintf(cab_param->szCab, ..., template, cab_param->iCab).
func (p *Params) rollNames() error {
	p.CabinetName = fmt.Sprintf(p.CabinetTemplate, p.CabinetIndex)
	if p.DiskTemplate != "" {
		p.DiskName = fmt.Sprintf(p.DiskTemplate, p.DiskIndex)
	}
	return nil
}

// advance moves to the next cabinet index and re-derives the names. It is
// the Go analogue of the get_next_cabinet callback rewriting *cab_param.
func (p *Params) advance() error {
	p.CabinetIndex++
	p.DiskIndex++
	return p.rollNames()
}

// cabinetPath is the full output path for the current cabinet name.
func (p *Params) cabinetPath() string {
	return filepath.Join(p.OutputDir, p.CabinetName)
}
