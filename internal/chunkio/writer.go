// Package chunkio implements the Chunk Writer and Chunk Reader of spec.md
// §4.4–§4.5: buffering, splitting, transforming, sorting, and
// integrity-tagging finite-value chunks, then later verifying and
// streaming them back in on-disk order.
package chunkio

import (
	"fmt"
	"iter"
	"os"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"lukechampine.com/blake3"

	"github.com/xisort/xisort/internal/keycodec"
	"github.com/xisort/xisort/internal/metric"
	"github.com/xisort/xisort/internal/prng"
	"github.com/xisort/xisort/internal/record"
	"github.com/xisort/xisort/internal/scratch"
	"github.com/xisort/xisort/internal/seq"
	"github.com/xisort/xisort/internal/tailio"
)

// DefaultCapacity is the default chunk capacity C of spec.md §4.4: 2^18
// buffered values per chunk.
const DefaultCapacity = 1 << 18

// WriterConfig parameterizes the chunk-writing loop.
type WriterConfig struct {
	Dir        *scratch.Dir
	Budget     *scratch.Budget
	Capacity   int
	Transform  metric.Transform
	TieMode    record.TieMode
	NaNShuffle bool
	RNG        *prng.Xoshiro256SS
	Seq        *seq.Counter
}

// Writer drains an input sequence into sealed, sorted, integrity-tagged
// chunk files plus a shared tail store for non-finite values.
type Writer struct {
	cfg  WriterConfig
	tail *tailio.Writer
}

// NewWriter builds a Writer. tail is shared with the orchestrator so the
// tail store accumulates non-finite values across every chunk.
func NewWriter(cfg WriterConfig, tail *tailio.Writer) *Writer {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &Writer{cfg: cfg, tail: tail}
}

// WriteAll runs the full streaming loop of spec.md §4.4 and returns the
// paths of every sealed chunk file, in creation order.
func (w *Writer) WriteAll(input iter.Seq[float64]) ([]string, error) {
	next, stop := iter.Pull(input)
	defer stop()

	buf := make([]float64, 0, w.cfg.Capacity)
	var paths []string
	idx := 0

	for {
		buf = buf[:0]
		for len(buf) < w.cfg.Capacity {
			v, ok := next()
			if !ok {
				break
			}
			buf = append(buf, v)
		}
		if len(buf) == 0 {
			break
		}

		mask := nonFiniteMask(buf)

		if err := w.routeNonFinite(buf, mask); err != nil {
			return paths, err
		}

		path, wrote, err := w.flushChunk(idx, buf, mask)
		if err != nil {
			return paths, err
		}
		if wrote {
			paths = append(paths, path)
			idx++
		}
	}

	return paths, nil
}

// nonFiniteMask partitions buf using a BitSet: bit i set means buf[i] is
// non-finite (±Inf or NaN), per spec.md §4.4 step 2.
func nonFiniteMask(buf []float64) *bitset.BitSet {
	mask := bitset.New(uint(len(buf)))
	for i, v := range buf {
		if !keycodec.IsFinite(v) {
			mask.Set(uint(i))
		}
	}
	return mask
}

// routeNonFinite copies buf's non-finite elements (per mask) to the tail
// store, optionally shuffling them first (--nan-shuffle).
func (w *Writer) routeNonFinite(buf []float64, mask *bitset.BitSet) error {
	if mask.Count() == 0 {
		return nil
	}

	nonFinite := make([]float64, 0, mask.Count())
	for i, e := mask.NextSet(0); e; i, e = mask.NextSet(i + 1) {
		nonFinite = append(nonFinite, buf[i])
	}
	if w.cfg.NaNShuffle {
		w.cfg.RNG.ShuffleFloat64s(nonFinite)
	}
	if err := w.tail.Append(nonFinite); err != nil {
		return err
	}
	return nil
}

// flushChunk builds, sorts, tags, and writes the finite records drawn from
// buf (mask-filtered), returning the chunk path and whether anything was
// written (an all-non-finite buffer writes nothing).
func (w *Writer) flushChunk(idx int, buf []float64, mask *bitset.BitSet) (string, bool, error) {
	finite := make([]float64, 0, len(buf)-int(mask.Count()))
	for i, v := range buf {
		if !mask.Test(uint(i)) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return "", false, nil
	}

	transformed := make([]float64, len(finite))
	w.cfg.Transform.Apply(transformed, finite)

	start, err := w.cfg.Seq.Reserve(len(finite))
	if err != nil {
		return "", false, err
	}

	recs := make([]record.Rec, len(finite))
	for i, v := range finite {
		key := keycodec.Encode(transformed[i])
		seqVal := start + uint64(i)

		var tie uint64
		switch w.cfg.TieMode {
		case record.TieValue:
			tie = key
		case record.TieIndex:
			tie = record.TieFromFloat(float64(seqVal))
		case record.TieRandom, record.TieShuffle:
			tie = record.TieFromFloat(w.cfg.RNG.Float64())
		}

		recs[i] = record.Rec{Val: v, Key: key, Tie: tie, Seq: seqVal}
	}

	sort.Slice(recs, func(i, j int) bool { return record.Less(recs[i], recs[j]) })

	payload := make([]byte, record.Size*len(recs))
	for i, r := range recs {
		record.PutBytes(payload[i*record.Size:], r)
	}

	tag := blake3.New(32, nil)
	tag.Write(payload)
	sum := tag.Sum(nil)[:tailio.TagSize]

	path := w.cfg.Dir.ChunkPath(idx)
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", false, fmt.Errorf("chunkio: create chunk %s: %w", path, err)
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return "", false, fmt.Errorf("chunkio: write chunk %s: %w", path, err)
	}
	if _, err := f.Write(sum); err != nil {
		_ = f.Close()
		return "", false, fmt.Errorf("chunkio: write chunk tag %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", false, fmt.Errorf("chunkio: close chunk %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", false, fmt.Errorf("chunkio: seal chunk %s: %w", path, err)
	}
	w.cfg.Dir.Fsync()

	if err := w.cfg.Budget.Charge(int64(len(payload) + len(sum))); err != nil {
		return "", false, err
	}

	return path, true, nil
}
