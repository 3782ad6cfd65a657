// Package prng implements the deterministic xoshiro256** generator used
// throughout XiSort for tie-break randomization, non-finite shuffling, and
// tail reservoir sampling. Seeding is reproducible: the same seed always
// yields the same stream, which is required for the determinism contract
// in spec.md §4.4.
package prng

import (
	"crypto/rand"
	"encoding/binary"
	"math/bits"
	"os"
	"time"
)

// Xoshiro256SS is a xoshiro256** generator. The zero value is not usable;
// construct with NewSeeded or AutoSeed.
type Xoshiro256SS struct {
	s [4]uint64
}

// NewSeeded builds a generator whose state is the SplitMix64 expansion of
// seed, per spec.md §4.2: state[i] = SplitMix64(seed + i).
func NewSeeded(seed uint64) *Xoshiro256SS {
	var r Xoshiro256SS
	for i := range r.s {
		r.s[i] = splitMix64(seed + uint64(i))
	}
	return &r
}

// AutoSeed builds a generator from an OS-random word mixed with the process
// id and a nanosecond clock reading. Callers that require determinism must
// not use AutoSeed; the orchestrator enforces this at construction.
func AutoSeed() *Xoshiro256SS {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	word := binary.LittleEndian.Uint64(buf[:])
	word ^= uint64(os.Getpid()) << 16
	word ^= uint64(time.Now().UnixNano())
	return NewSeeded(word)
}

func rotl(x uint64, k uint) uint64 {
	return bits.RotateLeft64(x, int(k))
}

// next advances the generator and returns the next raw 64-bit output.
func (r *Xoshiro256SS) next() uint64 {
	s0, s1, s2, s3 := r.s[0], r.s[1], r.s[2], r.s[3]

	res := rotl(s1*5, 7) * 9

	t := s1 << 17

	s2 ^= s0
	s3 ^= s1
	s1 ^= s2
	s0 ^= s3
	s2 ^= t
	s3 = rotl(s3, 45)

	r.s[0], r.s[1], r.s[2], r.s[3] = s0, s1, s2, s3
	return res
}

// Uint64 returns the next raw 64-bit output.
func (r *Xoshiro256SS) Uint64() uint64 {
	return r.next()
}

// Float64 returns a uniform double in [0,1), taking the top 53 bits of a raw
// draw so every representable mantissa is equally likely.
func (r *Xoshiro256SS) Float64() float64 {
	return float64(r.next()>>11) * (1.0 / (1 << 53))
}

// BoundedUint64 returns a uniform value in [0, high) via rejection sampling
// against the largest multiple of high that fits in 64 bits, avoiding modulo
// bias. high must be > 0.
func (r *Xoshiro256SS) BoundedUint64(high uint64) uint64 {
	limit := (^uint64(0) / high) * high
	for {
		v := r.next()
		if v < limit {
			return v % high
		}
	}
}

// Shuffle performs an in-place Fisher-Yates shuffle using BoundedUint64.
func (r *Xoshiro256SS) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := int(r.BoundedUint64(uint64(i + 1)))
		swap(i, j)
	}
}

// ShuffleFloat64s shuffles a float64 slice in place.
func (r *Xoshiro256SS) ShuffleFloat64s(a []float64) {
	r.Shuffle(len(a), func(i, j int) { a[i], a[j] = a[j], a[i] })
}
