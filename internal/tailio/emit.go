package tailio

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"os"

	"github.com/xisort/xisort/internal/mmapwin"
	"github.com/xisort/xisort/internal/prng"
)

// SmallPayloadLimit is the threshold at or below which the tail emitter fully
// loads and shuffles the payload instead of reservoir-sampling it.
const SmallPayloadLimit = 512 * 1024 * 1024

// ReservoirCapacityBytes bounds the reservoir used for payloads above
// SmallPayloadLimit: 64 MiB worth of float64s.
const ReservoirCapacityBytes = 64 * 1024 * 1024

const elemSize = 8

// Emit streams the tail payload at path as spec.md §4.7 describes: nothing
// for an empty payload, a full shuffle-on-load for payloads at or below
// SmallPayloadLimit, and a Vitter-R reservoir sample followed by a shuffle
// for larger payloads. The tail's own integrity tag is not verified here;
// spec.md §4.7 and §9 note this as an intentional (if debatable) asymmetry
// with the chunk reader.
func Emit(path string, rng *prng.Xoshiro256SS) iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return
			}
			yield(0, fmt.Errorf("tailio: open tail %s: %w", path, err))
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			yield(0, fmt.Errorf("tailio: stat tail %s: %w", path, err))
			return
		}

		payloadSize := info.Size() - TagSize
		if payloadSize <= 0 {
			return
		}

		if payloadSize <= SmallPayloadLimit {
			emitSmall(f, payloadSize, rng, yield)
			return
		}
		emitReservoir(f, payloadSize, rng, yield)
	}
}

func emitSmall(f *os.File, payloadSize int64, rng *prng.Xoshiro256SS, yield func(float64, error) bool) {
	n := int(payloadSize / elemSize)
	vals := make([]float64, 0, n)

	err := mmapwin.Walk(f, payloadSize, elemSize, func(win []byte) error {
		for off := 0; off+elemSize <= len(win); off += elemSize {
			vals = append(vals, math.Float64frombits(binary.LittleEndian.Uint64(win[off:off+elemSize])))
		}
		return nil
	})
	if err != nil {
		yield(0, err)
		return
	}

	rng.ShuffleFloat64s(vals)
	for _, v := range vals {
		if !yield(v, nil) {
			return
		}
	}
}

// emitReservoir runs a size-bounded Vitter-R reservoir sample over the
// payload, then shuffles and yields the reservoir. The payload is read in
// fixed-size chunks (not one float at a time) to keep the pass cheap.
func emitReservoir(f *os.File, payloadSize int64, rng *prng.Xoshiro256SS, yield func(float64, error) bool) {
	capacity := ReservoirCapacityBytes / elemSize
	reservoir := make([]float64, 0, capacity)

	var seen uint64 // total tail elements observed so far, across windows

	err := mmapwin.Walk(f, payloadSize, elemSize, func(win []byte) error {
		for off := 0; off+elemSize <= len(win); off += elemSize {
			v := math.Float64frombits(binary.LittleEndian.Uint64(win[off : off+elemSize]))

			if len(reservoir) < capacity {
				reservoir = append(reservoir, v)
			} else {
				m := rng.BoundedUint64(seen + 1)
				if m < uint64(capacity) {
					reservoir[m] = v
				}
			}
			seen++
		}
		return nil
	})
	if err != nil {
		yield(0, err)
		return
	}

	rng.ShuffleFloat64s(reservoir)
	for _, v := range reservoir {
		if !yield(v, nil) {
			return
		}
	}
}
