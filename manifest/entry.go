// Package manifest parses the CSV entry manifest into an ordered list of
// immutable Entry values.
package manifest

import "github.com/oc-soft/cabx/cabinet"

// Entry is one row of the manifest: a source file together with the
// compression and flush directives that govern how it is written into the
// cabinet set. Entries are immutable once constructed.
type Entry struct {
	SourceFile   string
	EntryName    string
	Compress     cabinet.Compression
	Attribute    int
	Execute      bool
	FlushFolder  bool
	FlushCabinet bool
}

func newEntry(sourceFile, entryName string, compress cabinet.Compression, attribute int, execute, flushFolder, flushCabinet bool) Entry {
	return Entry{
		SourceFile:   sourceFile,
		EntryName:    entryName,
		Compress:     compress,
		Attribute:    attribute,
		Execute:      execute,
		FlushFolder:  flushFolder,
		FlushCabinet: flushCabinet,
	}
}
