// Package report writes the placement tracker's entry→cabinet map to a
// file or standard output once generation succeeds.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/term"

	"github.com/oc-soft/cabx/manifest"
	"github.com/oc-soft/cabx/placement"
)

// Options controls where and how the report is written.
type Options struct {
	// Destination is a filesystem path, or "-" for standard output.
	Destination string
	// Compress additionally writes Destination+".zst" alongside the
	// plaintext report, for pipelines that want to archive the report
	// next to the cabinets it describes. Ignored when Destination is "-".
	Compress bool
	// StatusIsTerminal records whether progress lines were drawn to a
	// terminal during generation; combined with the report destination
	// also being a terminal, this triggers a line-erase before the first
	// report line (§4.8).
	StatusIsTerminal bool
}

// Write implements C8/§4.8: entries are emitted in manifest order as
// "entry_name,cabinet_name" lines; entries the tracker never placed are
// skipped.
func Write(entries []manifest.Entry, tracker *placement.Tracker, opts Options) error {
	w, destIsTerminal, closeFn, err := openDestination(opts.Destination)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer closeFn()

	if opts.StatusIsTerminal && destIsTerminal {
		io.WriteString(w, "\x1b[2K\r")
	}

	text := buildReport(entries, tracker)
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if opts.Compress && opts.Destination != "-" {
		if err := writeZstdSidecar(opts.Destination+".zst", text); err != nil {
			return fmt.Errorf("report: compressed sidecar: %w", err)
		}
	}
	return nil
}

func buildReport(entries []manifest.Entry, tracker *placement.Tracker) string {
	var b strings.Builder
	for _, e := range entries {
		cab, ok := tracker.Cabinet(e.EntryName)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s,%s\n", e.EntryName, cab)
	}
	return b.String()
}

func openDestination(dest string) (w io.Writer, isTerminal bool, closeFn func() error, err error) {
	if dest == "-" {
		return os.Stdout, term.IsTerminal(int(os.Stdout.Fd())), func() error { return nil }, nil
	}
	f, err := os.Create(dest)
	if err != nil {
		return nil, false, nil, err
	}
	return f, false, f.Close, nil
}

func writeZstdSidecar(path, text string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if _, err := zw.Write([]byte(text)); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
