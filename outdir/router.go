// Package outdir maps a cabinet-writer file-open path back to the
// directory the engine intended for it, and ensures that directory
// exists before the file is created.
package outdir

import (
	"os"
	"path/filepath"
)

// Route derives (dir, fileName) from fullPath by splitting off the last
// path element. If cabinetDirs contains an entry for fileName whose
// stored directory, joined with fileName, reconstructs fullPath, the
// directory is created (if absent) via os.MkdirAll, per §4.4.
//
// cabinetDirs is keyed by cabinet leaf name, the same key the engine uses
// when it calls Tracker.RecordDir for a newly selected cabinet.
func Route(cabinetDirs map[string]string, fullPath string) (dir, fileName string, err error) {
	dir, fileName = filepath.Split(fullPath)
	dir = filepath.Clean(dir)

	if want, ok := cabinetDirs[fileName]; ok {
		if filepath.Join(want, fileName) == filepath.Clean(fullPath) {
			if err := os.MkdirAll(want, 0o755); err != nil {
				return "", "", err
			}
		}
	}
	return dir, fileName, nil
}
