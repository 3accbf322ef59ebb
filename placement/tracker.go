// Package placement tracks which cabinet each manifest entry physically
// landed in, reconciling the engine's file-placed notifications
// (including cross-cabinet continuations) back into entry-name space.
package placement

// Tracker implements C5: the entry→cabinet and cabinet→entries relations,
// plus the continuation state machine of §3/§4.5.
type Tracker struct {
	entryToCabinet   map[string]string
	cabinetToEntries map[string][]string
	cabinetToOutDir  map[string]string

	continuationOpen bool
	lastEntry        string
	startingCabinet  string
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{
		entryToCabinet:   make(map[string]string),
		cabinetToEntries: make(map[string][]string),
		cabinetToOutDir:  make(map[string]string),
	}
}

// NotePlaced records one file-placed notification from the engine.
//
// A continuation in flight is closed by the first subsequent
// notification that either names a different entry or carries
// continuation=false; a further continuation=true notification for the
// same entry leaves it open. The closed entry is always bound to the
// cabinet it began in, never to the cabinet that happened to close it. Only when the closing notification
// names a *different*, non-continuation entry does that entry get its
// own direct binding in the same call — a notification that closes its
// own continuation (continuation=false for the entry already in
// flight) is not re-bound to the later cabinet afterwards.
//
// This resolves the overlapping-writes ambiguity flagged in
// DESIGN.md: the source this engine is modelled on has a
// redundant bind that clobbers the continuation's binding with the
// wrong (later) cabinet; the canonical semantics implemented here never
// let that happen.
func (t *Tracker) NotePlaced(cabName, entryName string, continuation bool) {
	closedSameEntry := false
	if t.continuationOpen && (!continuation || entryName != t.lastEntry) {
		closed := t.lastEntry
		t.bind(closed, t.startingCabinet)
		t.continuationOpen = false
		closedSameEntry = entryName == closed
	}

	if continuation && !t.continuationOpen {
		t.continuationOpen = true
		t.lastEntry = entryName
		t.startingCabinet = cabName
		t.cabinetToEntries[cabName] = append(t.cabinetToEntries[cabName], entryName)
		return
	}

	if !continuation && !closedSameEntry {
		t.bind(entryName, cabName)
	}
	t.cabinetToEntries[cabName] = append(t.cabinetToEntries[cabName], entryName)
}

// Close commits any continuation still in flight, binding it to the
// cabinet it began in. Callers invoke this after the final file-placed
// notification of a run as a backstop; in normal operation every
// continuation is already closed by NotePlaced before generation ends.
func (t *Tracker) Close() {
	if t.continuationOpen {
		t.bind(t.lastEntry, t.startingCabinet)
		t.continuationOpen = false
	}
}

func (t *Tracker) bind(entryName, cabName string) {
	t.entryToCabinet[entryName] = cabName
}

// RecordDir populates the cabinet→output-dir map, called when the engine
// selects a new cabinet's output directory.
func (t *Tracker) RecordDir(cabName, dir string) {
	t.cabinetToOutDir[cabName] = dir
}

// OutputDir returns the recorded output directory for a cabinet name, and
// whether one was recorded.
func (t *Tracker) OutputDir(cabName string) (string, bool) {
	dir, ok := t.cabinetToOutDir[cabName]
	return dir, ok
}

// Cabinet returns the cabinet an entry was placed in, and whether it has
// been placed yet.
func (t *Tracker) Cabinet(entryName string) (string, bool) {
	c, ok := t.entryToCabinet[entryName]
	return c, ok
}

// IsComplete reports whether every one of total manifest entries has been
// bound to a cabinet.
func (t *Tracker) IsComplete(total int) bool {
	return len(t.entryToCabinet) >= total
}

// EntriesIn returns the entry names placed in cabName, in placement
// order.
func (t *Tracker) EntriesIn(cabName string) []string {
	return t.cabinetToEntries[cabName]
}

// PlacedCount returns the number of distinct entries currently bound to a
// cabinet.
func (t *Tracker) PlacedCount() int {
	return len(t.entryToCabinet)
}
