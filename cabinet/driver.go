package cabinet

import (
	"fmt"

	"github.com/oc-soft/cabx/placement"
)

// FileDirective is one manifest row reduced to what the driver needs: a
// source path (looked up against the source→entry-name map to recover
// the entry name and compute the UTF attribute, per §4.7's
// get_open_info) plus the per-entry compression and flush directives of
// §3. Built by the caller from manifest.Entry values — kept a local type
// rather than a direct manifest.Entry parameter so this package does not
// import manifest (which already imports cabinet for Compression).
type FileDirective struct {
	SourceFile   string
	Compress     Compression
	Attribute    int
	Execute      bool
	FlushFolder  bool
	FlushCabinet bool
}

// Driver runs the C6 flush state machine: it feeds entries to a Writer in
// order, inserting folder/cabinet flushes per the per-entry directives
// and on compression changes, and suppresses the trailing ghost cabinet
// by requesting "prepare next = false" only on the last entry.
type Driver struct {
	writer  *Writer
	tracker *placement.Tracker
}

// NewDriver builds a Driver around writer and tracker. tracker is held
// directly (rather than only through writer) so Generate can close any
// still-open continuation at the end of a run.
func NewDriver(writer *Writer, tracker *placement.Tracker) *Driver {
	return &Driver{writer: writer, tracker: tracker}
}

// Generate runs directives through the writer in order, per §4.6.
func (d *Driver) Generate(directives []FileDirective) error {
	total := len(directives)
	var lastCompression *Compression
	processed := 0

	for _, fd := range directives {
		if lastCompression == nil {
			c := fd.Compress
			lastCompression = &c
		} else if *lastCompression != fd.Compress {
			if err := d.writer.FlushCabinet(true); err != nil {
				return fmt.Errorf("cabinet: compression-change flush: %w", err)
			}
		}

		if err := d.writer.AddFile(fd.SourceFile, fd.Execute, fd.Attribute, fd.Compress); err != nil {
			return fmt.Errorf("cabinet: add file %s: %w", fd.SourceFile, err)
		}
		*lastCompression = fd.Compress
		processed++

		if fd.FlushFolder {
			if err := d.writer.FlushFolder(); err != nil {
				return fmt.Errorf("cabinet: folder flush: %w", err)
			}
		}
		if fd.FlushCabinet {
			prepareNext := processed < total
			if err := d.writer.FlushCabinet(prepareNext); err != nil {
				return fmt.Errorf("cabinet: cabinet flush: %w", err)
			}
		}
	}

	// Always issue the terminal flush: FlushCabinet is a no-op when
	// nothing is buffered (the common case after a directive-driven flush
	// already wrote the last cabinet), but the tracker considers an entry
	// placed the moment AddFile binds it to a cabinet name, well before
	// that cabinet's bytes are durably written — relying on
	// tracker.IsComplete here would silently drop the final cabinet
	// whenever the last entry had no explicit flush directive.
	if err := d.writer.FlushCabinet(false); err != nil {
		return fmt.Errorf("cabinet: final flush: %w", err)
	}
	d.tracker.Close()
	return nil
}
