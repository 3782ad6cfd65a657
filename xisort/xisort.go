package xisort

import (
	"fmt"
	"iter"
	"os"

	"github.com/xisort/xisort/internal/chunkio"
	"github.com/xisort/xisort/internal/merge"
	"github.com/xisort/xisort/internal/metric"
	"github.com/xisort/xisort/internal/prng"
	"github.com/xisort/xisort/internal/record"
	"github.com/xisort/xisort/internal/scratch"
	"github.com/xisort/xisort/internal/seq"
	"github.com/xisort/xisort/internal/tailio"
)

// XiSort is the orchestrator of spec.md §4.8. Each call to StreamSort
// creates and owns its own scratch directory; a XiSort instance must not be
// reused across calls to StreamSort.
type XiSort struct {
	cfg Config
	rng *prng.Xoshiro256SS
}

// New validates cfg and prepares an orchestrator. It does not yet create
// the scratch directory; that happens lazily on StreamSort so that
// constructing a XiSort with a bad input sequence still fails cleanly
// without leaving a directory behind.
func New(cfg Config) (*XiSort, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var rng *prng.Xoshiro256SS
	if cfg.Seed != nil {
		rng = prng.NewSeeded(*cfg.Seed)
	} else {
		rng = prng.AutoSeed()
	}

	return &XiSort{cfg: cfg, rng: rng}, nil
}

func (x *XiSort) transform() metric.Transform {
	if x.cfg.Mode == ModeCurved {
		return metric.Curved{Epsilon: x.cfg.Epsilon}
	}
	return metric.Strict{}
}

// StreamSort runs the full pipeline of spec.md §4.8: it drains input into
// sealed chunks and a tail store, then lazily yields the merged finite
// stream followed by the tail. The returned sequence owns and releases the
// scratch directory on every exit path, including early abandonment by the
// caller (a `break` out of a `for range` loop over the sequence still runs
// the deferred cleanup below, per Go's range-over-func semantics).
func (x *XiSort) StreamSort(input iter.Seq[float64]) iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		dir, err := scratch.NewDir(x.cfg.TmpDir)
		if err != nil {
			yield(0, err)
			return
		}
		dir.Warnf = x.cfg.Warnf
		defer dir.Close()

		// Chunk and tail files this run created are removed before
		// dir.Close, so its leftover warning only reports files nothing
		// accounted for.
		var owned []string
		defer func() {
			for _, p := range owned {
				if rmErr := os.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) {
					x.cfg.Warnf("scratch file %s: failed to remove: %v", p, rmErr)
				}
			}
		}()

		budget := scratch.NewBudget(x.cfg.MaxBytes)
		counter := &seq.Counter{}

		tailWriter := tailio.NewWriter(dir, budget)
		chunkWriter := chunkio.NewWriter(chunkio.WriterConfig{
			Dir:        dir,
			Budget:     budget,
			Capacity:   x.cfg.ChunkCapacity,
			Transform:  x.transform(),
			TieMode:    x.cfg.TieBreak.toRecordTieMode(),
			NaNShuffle: x.cfg.NaNShuffle || x.cfg.TieBreak == TieBreakShuffle,
			RNG:        x.rng,
			Seq:        counter,
		}, tailWriter)

		chunkPaths, err := chunkWriter.WriteAll(input)
		owned = append(owned, chunkPaths...)
		if err != nil {
			yield(0, fmt.Errorf("xisort: chunk phase: %w", err))
			return
		}

		tailPath, err := tailWriter.Seal()
		if err != nil {
			yield(0, fmt.Errorf("xisort: tail seal: %w", err))
			return
		}
		if tailPath != "" {
			owned = append(owned, tailPath)
		}

		readCfg := chunkio.ReadConfig{
			Integrity:  x.cfg.Integrity,
			SoftVerify: x.cfg.SoftVerify,
			Warnf:      x.cfg.Warnf,
		}
		readers := make([]iter.Seq2[record.Rec, error], len(chunkPaths))
		for i, p := range chunkPaths {
			readers[i] = chunkio.Records(p, readCfg)
		}

		for v, mergeErr := range merge.Merge(readers) {
			if mergeErr != nil {
				yield(0, fmt.Errorf("xisort: merge phase: %w", mergeErr))
				return
			}
			if !yield(v, nil) {
				return
			}
		}

		if tailPath == "" {
			return
		}
		for v, tailErr := range tailio.Emit(tailPath, x.rng) {
			if tailErr != nil {
				yield(0, fmt.Errorf("xisort: tail phase: %w", tailErr))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}
