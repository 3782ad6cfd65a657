// Package merge implements the k-way merge of spec.md §4.6: a lazy,
// pull-based union of every chunk's sorted record stream, ordered by
// (Key, Tie, Seq), yielding only the Val field.
package merge

import (
	"container/heap"
	"iter"

	"github.com/xisort/xisort/internal/record"
)

// source is one chunk's pulled sequence, with its most recently pulled
// (and not-yet-consumed) record cached for heap comparisons.
type source struct {
	next func() (record.Rec, error, bool) // from iter.Pull2
	stop func()
	cur  record.Rec
	err  error
}

type heapQueue []*source

func (h heapQueue) Len() int { return len(h) }
func (h heapQueue) Less(i, j int) bool {
	return record.Less(h[i].cur, h[j].cur)
}
func (h heapQueue) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *heapQueue) Push(x any)        { *h = append(*h, x.(*source)) }
func (h *heapQueue) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Merge unions every chunk reader in readers into one ascending sequence of
// values, by (Key, Tie, Seq). At most one record per reader is buffered at
// a time: this is a lazy pull, matching spec.md §4.6.
func Merge(readers []iter.Seq2[record.Rec, error]) iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		var hq heapQueue

		cleanup := func() {
			for _, s := range hq {
				s.stop()
			}
		}
		defer cleanup()

		for _, r := range readers {
			next, stop := iter.Pull2(r)
			s := &source{next: next, stop: stop}
			if !s.advance() {
				stop()
				continue
			}
			if s.err != nil {
				yield(0, s.err)
				return
			}
			hq = append(hq, s)
		}
		heap.Init(&hq)

		for hq.Len() > 0 {
			top := hq[0]
			if !yield(top.cur.Val, nil) {
				return
			}
			if top.advance() {
				if top.err != nil {
					yield(0, top.err)
					return
				}
				heap.Fix(&hq, 0)
			} else {
				heap.Pop(&hq)
			}
		}
	}
}

// advance pulls the next record into s.cur, returning false when the
// underlying sequence is exhausted.
func (s *source) advance() bool {
	r, err, ok := s.next()
	if !ok {
		return false
	}
	s.cur = r
	s.err = err
	return true
}
