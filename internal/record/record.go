// Package record defines the 32-byte fixed-layout sort record and the two
// ABI-equivalent schemas spec.md §3 requires for it (integer-tie, used by
// VALUE tie-break, and float-tie, used by INDEX/RANDOM/SHUFFLE).
package record

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// TieMode selects how the Tie field of a record is populated.
type TieMode int

const (
	TieValue TieMode = iota
	TieIndex
	TieRandom
	TieShuffle
)

// Size is the on-disk and in-memory size of a record: val(8) || key(8) ||
// tie(8) || seq(8).
const Size = 32

// schemaIntTie is the VALUE tie-break schema: tie holds an unsigned integer
// (equal to Key).
type schemaIntTie struct {
	Val float64
	Key uint64
	Tie uint64
	Seq uint64
}

// schemaFloatTie is the INDEX/RANDOM/SHUFFLE tie-break schema: tie holds a
// float64 (a uniform double, or a positional index promoted to float64).
type schemaFloatTie struct {
	Val float64
	Key uint64
	Tie float64
	Seq uint64
}

// init asserts the two record schemas never drift apart in size or field
// offsets, per spec.md §9 "Binary ABI". Drift here is a load-time fatal
// error: every writer and reader in this module assumes a single 32-byte
// layout regardless of which schema's Tie type is logically in play.
func init() {
	var i schemaIntTie
	var f schemaFloatTie

	if unsafe.Sizeof(i) != Size || unsafe.Sizeof(f) != Size {
		panic("record: ABI drift, schema size != 32 bytes")
	}
	if unsafe.Offsetof(i.Val) != unsafe.Offsetof(f.Val) ||
		unsafe.Offsetof(i.Key) != unsafe.Offsetof(f.Key) ||
		unsafe.Offsetof(i.Tie) != unsafe.Offsetof(f.Tie) ||
		unsafe.Offsetof(i.Seq) != unsafe.Offsetof(f.Seq) {
		panic("record: ABI drift, field offsets differ between schemas")
	}
}

// Rec is the in-memory record used uniformly by both schemas. Tie is stored
// as the raw bit pattern that would occupy the Tie field on disk: for
// TieValue this is the integer Key itself; for TieIndex it is
// math.Float64bits of the sequence number promoted to float64; for
// TieRandom and TieShuffle it is math.Float64bits of a uniform double in
// [0,1). Because
// every float-tie value used in this module is non-negative, its bit
// pattern orders identically to its numeric value, so a single uint64
// comparison on Tie is correct for all four modes without a type switch.
type Rec struct {
	Val float64
	Key uint64
	Tie uint64
	Seq uint64
}

// Less implements the lexicographic (Key, Tie, Seq) order of spec.md §3.
func Less(a, b Rec) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	if a.Tie != b.Tie {
		return a.Tie < b.Tie
	}
	return a.Seq < b.Seq
}

// TieFromFloat converts a uniform double into its Tie bit pattern.
func TieFromFloat(f float64) uint64 {
	return math.Float64bits(f)
}

// PutBytes serializes r into b[:Size] in little-endian order.
func PutBytes(b []byte, r Rec) {
	binary.LittleEndian.PutUint64(b[0:8], math.Float64bits(r.Val))
	binary.LittleEndian.PutUint64(b[8:16], r.Key)
	binary.LittleEndian.PutUint64(b[16:24], r.Tie)
	binary.LittleEndian.PutUint64(b[24:32], r.Seq)
}

// FromBytes deserializes a record from b[:Size].
func FromBytes(b []byte) Rec {
	return Rec{
		Val: math.Float64frombits(binary.LittleEndian.Uint64(b[0:8])),
		Key: binary.LittleEndian.Uint64(b[8:16]),
		Tie: binary.LittleEndian.Uint64(b[16:24]),
		Seq: binary.LittleEndian.Uint64(b[24:32]),
	}
}
