// Package scratch owns the bounded on-disk scratch area XiSort spills chunk
// and tail files into: a byte-budget counter (§3 "Scratch Budget") and the
// working-directory lifecycle (§4.8 "create at construction, destroy on
// every exit path").
package scratch

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBudgetExceeded is returned when charging bytes would push the live
// scratch footprint above the configured quota.
var ErrBudgetExceeded = errors.New("scratch budget exceeded")

// Budget is a mutex-guarded counter bounding the total bytes any live
// scratch file may occupy at once, mirroring the teacher's mutex-guarded
// segment-rotation counter (segmentmanager.diskSegmentManager).
type Budget struct {
	mu    sync.Mutex
	used  int64
	quota int64
}

// NewBudget creates a Budget with the given quota in bytes.
func NewBudget(quotaBytes int64) *Budget {
	return &Budget{quota: quotaBytes}
}

// Charge adds delta (positive on write, negative on removal) to the live
// total. A positive delta that would exceed the quota is rejected and the
// counter left unchanged.
func (b *Budget) Charge(delta int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.used + delta
	if next < 0 {
		next = 0
	}
	if delta > 0 && next > b.quota {
		return fmt.Errorf("%w: %d bytes would exceed quota of %d", ErrBudgetExceeded, next, b.quota)
	}
	b.used = next
	return nil
}

// Used returns the current live byte total.
func (b *Budget) Used() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}
