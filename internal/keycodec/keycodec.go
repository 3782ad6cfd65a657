// Package keycodec maps float64 values onto a total-ordering uint64 key
// space. Finite values map to the interval below S; non-finite values and
// signed zeros map to one of five sentinels above it.
package keycodec

import "math"

// S is the first sentinel key; every finite value's key is strictly below it.
const S uint64 = 0xFFFF_FFFF_FFFF_FFF8

// Sentinel keys, in ascending order.
const (
	KNegInf = S + 0
	KPosInf = S + 1
	KNeg0   = S + 2
	KPos0   = S + 3
	KNaN    = S + 4
)

const signBit = uint64(0x8000_0000_0000_0000)

// Encode maps x onto its total-ordering sort key.
//
// For finite non-zero x, Encode is strictly monotone: a < b implies
// Encode(a) < Encode(b). Positive values OR in the sign bit so they sort
// above all negatives; negative values are bitwise inverted, which reverses
// their (reversed) IEEE bit order back into numeric order while keeping them
// below the positive block. Zero, infinities, and NaN are diverted to
// sentinels above the whole finite range.
func Encode(x float64) uint64 {
	if math.IsNaN(x) {
		return KNaN
	}
	if math.IsInf(x, 1) {
		return KPosInf
	}
	if math.IsInf(x, -1) {
		return KNegInf
	}
	bits := math.Float64bits(x)
	if x == 0 {
		if bits&signBit != 0 {
			return KNeg0
		}
		return KPos0
	}
	if bits&signBit != 0 {
		return ^bits
	}
	return bits | signBit
}

// IsFinite reports whether x should be routed through the chunk pipeline
// rather than the tail store.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
