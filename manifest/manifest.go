package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/oc-soft/cabx/cabinet"
)

// List is the ordered result of loading a manifest: the entries in
// manifest order, and the source-path→entry-name map C7's get_open_info
// callback consults to translate the engine's path-centric world back
// into entry-name space.
type List struct {
	Entries      []Entry
	SourceToName map[string]string
}

// Load reads the manifest at path (or standard input when path is "-")
// and parses it per §4.2.
func Load(path string) (*List, error) {
	r, closeFn, err := openInput(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	defer closeFn()

	cr := csv.NewReader(r)
	cr.Comma = ','
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = false

	list := &List{SourceToName: make(map[string]string)}
	rowNum := 0
	for {
		rowNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("manifest: row %d: %w", rowNum, err)
		}

		entry, ok, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("manifest: row %d: %w", rowNum, err)
		}
		if !ok {
			continue
		}
		list.Entries = append(list.Entries, entry)
		list.SourceToName[entry.SourceFile] = entry.EntryName
	}
	return list, nil
}

// Directives reduces the manifest to the driver-facing shape,
// cabinet.FileDirective, in manifest order.
func (l *List) Directives() []cabinet.FileDirective {
	directives := make([]cabinet.FileDirective, len(l.Entries))
	for i, e := range l.Entries {
		directives[i] = cabinet.FileDirective{
			SourceFile:   e.SourceFile,
			Compress:     e.Compress,
			Attribute:    e.Attribute,
			Execute:      e.Execute,
			FlushFolder:  e.FlushFolder,
			FlushCabinet: e.FlushCabinet,
		}
	}
	return directives
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// field returns record[i], or "" if the column is absent.
func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

// parseRow decodes one CSV record into an Entry. ok is false when the row
// is missing one of the first four columns and must be skipped silently
// per §4.2.
func parseRow(record []string) (entry Entry, ok bool, err error) {
	sourceFile := field(record, 0)
	entryName := field(record, 1)
	compressionStr := field(record, 2)
	attrStr := field(record, 3)

	if sourceFile == "" || entryName == "" || compressionStr == "" || attrStr == "" {
		return Entry{}, false, nil
	}

	attr, err := strconv.Atoi(attrStr)
	if err != nil {
		return Entry{}, false, fmt.Errorf("invalid attribute %q: %w", attrStr, err)
	}

	execute, err := parseOptionalFlag(field(record, 4))
	if err != nil {
		return Entry{}, false, fmt.Errorf("invalid execute flag: %w", err)
	}
	flushFolder, err := parseOptionalFlag(field(record, 5))
	if err != nil {
		return Entry{}, false, fmt.Errorf("invalid flush-folder flag: %w", err)
	}
	flushCabinet, err := parseOptionalFlag(field(record, 6))
	if err != nil {
		return Entry{}, false, fmt.Errorf("invalid flush-cabinet flag: %w", err)
	}

	compress, err := parseCompression(compressionStr)
	if err != nil {
		return Entry{}, false, err
	}

	return newEntry(sourceFile, entryName, compress, attr, execute != 0, flushFolder != 0, flushCabinet != 0), true, nil
}

// parseOptionalFlag parses a decimal integer field that defaults to 0
// when absent or empty.
func parseOptionalFlag(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
