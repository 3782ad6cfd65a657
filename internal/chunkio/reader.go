package chunkio

import (
	"fmt"
	"io"
	"iter"
	"os"

	"lukechampine.com/blake3"

	"github.com/xisort/xisort/internal/mmapwin"
	"github.com/xisort/xisort/internal/record"
	"github.com/xisort/xisort/internal/tailio"
)

// ErrIntegrity is returned (or, under soft-verify, just warned about) when a
// chunk's trailing BLAKE3 tag does not match its payload.
var ErrIntegrity = fmt.Errorf("chunkio: integrity tag mismatch")

// ErrCorrupt is returned (or, under soft-verify, downgraded and truncated)
// when a chunk's payload length is not a non-negative multiple of the
// record size.
var ErrCorrupt = fmt.Errorf("chunkio: payload not a multiple of record size")

// ReadConfig controls how a sealed chunk is opened and verified.
type ReadConfig struct {
	Integrity  bool
	SoftVerify bool
	Warnf      func(format string, args ...any)
}

// Records opens path and returns its records as a lazy sequence in on-disk
// order (already sorted within the chunk), per spec.md §4.5. The sequence
// yields an error and stops at the first structural or integrity failure,
// unless SoftVerify downgrades the failure to a warning.
func Records(path string, cfg ReadConfig) iter.Seq2[record.Rec, error] {
	if cfg.Warnf == nil {
		cfg.Warnf = func(string, ...any) {}
	}

	return func(yield func(record.Rec, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(record.Rec{}, fmt.Errorf("chunkio: open %s: %w", path, err))
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			yield(record.Rec{}, fmt.Errorf("chunkio: stat %s: %w", path, err))
			return
		}

		size := info.Size()
		if size < tailio.TagSize {
			err := fmt.Errorf("%w: %s is smaller than the tag", ErrCorrupt, path)
			if cfg.SoftVerify {
				cfg.Warnf("%v", err)
				return
			}
			yield(record.Rec{}, err)
			return
		}

		payloadSize := size - tailio.TagSize
		if payloadSize%record.Size != 0 {
			msg := fmt.Errorf("%w: %s payload=%d bytes", ErrCorrupt, path, payloadSize)
			if !cfg.SoftVerify {
				yield(record.Rec{}, msg)
				return
			}
			cfg.Warnf("%v (truncating)", msg)
			payloadSize = (payloadSize / record.Size) * record.Size
		}

		hasher := blake3.New(32, nil)
		var recs []record.Rec

		err = mmapwin.Walk(f, payloadSize, record.Size, func(win []byte) error {
			if cfg.Integrity {
				hasher.Write(win)
			}
			for off := 0; off+record.Size <= len(win); off += record.Size {
				recs = append(recs, record.FromBytes(win[off:off+record.Size]))
			}
			return nil
		})
		if err != nil {
			yield(record.Rec{}, fmt.Errorf("chunkio: read %s: %w", path, err))
			return
		}

		if cfg.Integrity {
			tag := make([]byte, tailio.TagSize)
			if _, err := f.ReadAt(tag, payloadSize); err != nil && err != io.EOF {
				yield(record.Rec{}, fmt.Errorf("chunkio: read tag %s: %w", path, err))
				return
			}
			sum := hasher.Sum(nil)[:tailio.TagSize]
			if string(sum) != string(tag) {
				err := fmt.Errorf("%w: %s", ErrIntegrity, path)
				if !cfg.SoftVerify {
					yield(record.Rec{}, err)
					return
				}
				cfg.Warnf("%v", err)
			}
		}

		for _, r := range recs {
			if !yield(r, nil) {
				return
			}
		}
	}
}
