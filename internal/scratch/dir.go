package scratch

import (
	"fmt"
	"os"
	"path/filepath"
)

// versionPrefix identifies this module's working directories, per spec.md
// §6 "created with a prefix identifying the version".
const versionPrefix = "xisort-v1-"

// Dir owns a scratch working directory: it is created on NewDir and removed
// (along with every file still inside it) on Close. Close never returns an
// error over a successful stream; I/O failures during cleanup are reported
// via the Warnf hook instead, matching the teacher's "never raise on
// cleanup" texture (wal/wal_writer.go swallows Sync errors the same way).
type Dir struct {
	Path  string
	Warnf func(format string, args ...any)
}

// NewDir creates a fresh scratch directory under parent (the system default
// temp dir if parent is empty).
func NewDir(parent string) (*Dir, error) {
	base, err := os.MkdirTemp(parent, versionPrefix)
	if err != nil {
		return nil, fmt.Errorf("scratch: create working directory: %w", err)
	}
	return &Dir{Path: base, Warnf: func(string, ...any) {}}, nil
}

// ChunkPath returns the path for chunk index idx: c_<12-digit zero-padded>.
func (d *Dir) ChunkPath(idx int) string {
	return filepath.Join(d.Path, fmt.Sprintf("c_%012d", idx))
}

// TailTmpPath is the append-only, not-yet-sealed tail file.
func (d *Dir) TailTmpPath() string {
	return filepath.Join(d.Path, "tail.tmp")
}

// TailFinalPath is the sealed tail file, reached by atomic rename from
// TailTmpPath.
func (d *Dir) TailFinalPath() string {
	return filepath.Join(d.Path, "tail.fin")
}

// Fsync syncs the directory entry itself so a newly-created or renamed file
// is durable. POSIX directory fsync is best-effort: errors are swallowed,
// matching spec.md §5 "directory fsync on POSIX is best-effort (errors
// suppressed)".
func (d *Dir) Fsync() {
	f, err := os.Open(d.Path)
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
}

// Close removes every remaining file in the directory and then the
// directory itself. Unexpected leftover files are reported via Warnf but
// never fail the close.
func (d *Dir) Close() {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return
	}
	if len(entries) > 0 {
		d.Warnf("scratch dir %s had %d unexpected file(s) remaining at close", d.Path, len(entries))
	}
	for _, e := range entries {
		if rmErr := os.Remove(filepath.Join(d.Path, e.Name())); rmErr != nil {
			d.Warnf("scratch dir %s: failed to remove %s: %v", d.Path, e.Name(), rmErr)
		}
	}
	if rmErr := os.Remove(d.Path); rmErr != nil {
		d.Warnf("scratch dir %s: failed to remove directory: %v", d.Path, rmErr)
	}
}
