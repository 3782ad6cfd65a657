// Package tailio implements the tail store (append-only file accumulating
// non-finite raw float64 patterns, spec.md §4.7) and the tail emitter
// (shuffle-on-load or Vitter-R reservoir sampling, spec.md §4.7).
package tailio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"lukechampine.com/blake3"

	"github.com/xisort/xisort/internal/scratch"
)

// TagSize is the length of the trailing integrity tag, in bytes.
const TagSize = 16

// Writer accumulates non-finite values into an append-only temp file,
// maintaining a running BLAKE3 hash across every append so the final tag
// covers the whole payload without re-reading it.
type Writer struct {
	dir    *scratch.Dir
	budget *scratch.Budget
	f      *os.File
	hasher *blake3.Hasher
	size   int64
	opened bool
}

// NewWriter prepares (but does not yet create) a tail writer rooted at dir.
func NewWriter(dir *scratch.Dir, budget *scratch.Budget) *Writer {
	return &Writer{dir: dir, budget: budget, hasher: blake3.New(32, nil)}
}

func (w *Writer) ensureOpen() error {
	if w.opened {
		return nil
	}
	f, err := os.OpenFile(w.dir.TailTmpPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("tailio: open tail temp file: %w", err)
	}
	w.f = f
	w.opened = true
	return nil
}

// Append writes vals (optionally pre-shuffled by the caller per nan_shuffle)
// as little-endian 8-byte patterns, updating the running hash and charging
// the scratch budget.
func (w *Writer) Append(vals []float64) error {
	if len(vals) == 0 {
		return nil
	}
	if err := w.ensureOpen(); err != nil {
		return err
	}

	raw := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}

	if _, err := w.f.Write(raw); err != nil {
		return fmt.Errorf("tailio: append: %w", err)
	}
	w.hasher.Write(raw)
	w.size += int64(len(raw))

	if err := w.budget.Charge(int64(len(raw))); err != nil {
		return err
	}
	return nil
}

// Opened reports whether any non-finite value has been seen yet.
func (w *Writer) Opened() bool {
	return w.opened
}

// Seal writes the final 16-byte tag, atomically renames tail.tmp to
// tail.fin, and fsyncs the directory. It is a no-op if no value was ever
// appended. Returns the final file path, or "" if nothing was sealed.
func (w *Writer) Seal() (string, error) {
	if !w.opened {
		return "", nil
	}

	tag := w.hasher.Sum(nil)[:TagSize]
	if _, err := w.f.Write(tag); err != nil {
		_ = w.f.Close()
		return "", fmt.Errorf("tailio: write tail tag: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return "", fmt.Errorf("tailio: close tail temp file: %w", err)
	}
	if err := w.budget.Charge(TagSize); err != nil {
		return "", err
	}

	finalPath := w.dir.TailFinalPath()
	if err := os.Rename(w.dir.TailTmpPath(), finalPath); err != nil {
		return "", fmt.Errorf("tailio: seal tail file: %w", err)
	}
	w.dir.Fsync()

	return finalPath, nil
}
