// Package seq implements the monotonically increasing sequence counter
// assigned to every finite record in input order across all chunks
// (spec.md §3 "Sequence Counter").
package seq

import "errors"

// ErrOverflow is returned when advancing the counter would exhaust the
// uint64 range.
var ErrOverflow = errors.New("sequence counter overflow")

// Counter is a global, single-threaded sequence counter.
type Counter struct {
	next uint64
}

// Reserve allocates n consecutive sequence numbers starting at the
// counter's current value and returns that starting value, advancing the
// counter. It fails before assigning anything if the reservation would wrap
// past math.MaxUint64.
func (c *Counter) Reserve(n int) (uint64, error) {
	start := c.next
	end := start + uint64(n)
	if end < start { // wrapped
		return 0, ErrOverflow
	}
	c.next = end
	return start, nil
}

// Value returns the next sequence number that would be assigned.
func (c *Counter) Value() uint64 {
	return c.next
}
