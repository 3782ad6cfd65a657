// Package mmapwin walks a file's payload in aligned mmap windows, sized so
// that fixed-size elements never straddle a window boundary (spec.md §4.5,
// §9 "BLAKE3 over mmap windows"). It is shared by the chunk reader (element
// size 32, one record) and the tail emitter (element size 8, one float64).
package mmapwin

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Win0 is the base window size before alignment to the element size.
const Win0 = 256 * 1024 * 1024

// WindowSize returns lcm(Win0, elemSize): the smallest window size that is a
// multiple of both Win0 and elemSize.
func WindowSize(elemSize int64) int64 {
	return lcm(Win0, elemSize)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int64) int64 {
	return a / gcd(a, b) * b
}

// Walk maps payload[0:payloadSize] from f in aligned windows (or a single
// mapping if payloadSize fits in one window) and calls fn with each window's
// bytes in file order. fn must not retain the slice past its call.
func Walk(f *os.File, payloadSize int64, elemSize int64, fn func([]byte) error) error {
	if payloadSize == 0 {
		return nil
	}

	win := WindowSize(elemSize)
	if payloadSize <= win {
		m, err := mmap.MapRegion(f, int(payloadSize), mmap.RDONLY, 0, 0)
		if err != nil {
			return fmt.Errorf("mmapwin: map: %w", err)
		}
		defer m.Unmap()
		return fn([]byte(m))
	}

	for off := int64(0); off < payloadSize; off += win {
		n := win
		if off+n > payloadSize {
			n = payloadSize - off
		}
		m, err := mmap.MapRegion(f, int(n), mmap.RDONLY, 0, off)
		if err != nil {
			return fmt.Errorf("mmapwin: map window at %d: %w", off, err)
		}
		err = fn([]byte(m))
		unmapErr := m.Unmap()
		if err != nil {
			return err
		}
		if unmapErr != nil {
			return fmt.Errorf("mmapwin: unmap window at %d: %w", off, unmapErr)
		}
	}
	return nil
}
