package tailio

import (
	"math"
	"sort"
	"testing"

	"github.com/xisort/xisort/internal/prng"
	"github.com/xisort/xisort/internal/scratch"
)

func writeSealedTail(t *testing.T, vals []float64) string {
	t.Helper()
	dir, err := scratch.NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(dir.Close)

	w := NewWriter(dir, scratch.NewBudget(1<<30))
	if err := w.Append(vals); err != nil {
		t.Fatal(err)
	}
	path, err := w.Seal()
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEmitMissingFileYieldsNothing(t *testing.T) {
	rng := prng.NewSeeded(1)
	var got []float64
	for v, err := range Emit("/nonexistent/tail.fin", rng) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
	}
	if len(got) != 0 {
		t.Fatalf("expected no values, got %v", got)
	}
}

func TestEmitSmallPreservesMultiset(t *testing.T) {
	in := []float64{math.Inf(1), math.Inf(-1), math.NaN(), math.Inf(1), 0}
	path := writeSealedTail(t, in)

	var out []float64
	for v, err := range Emit(path, prng.NewSeeded(9)) {
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, v)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d values, want %d", len(out), len(in))
	}

	countNaN := func(vs []float64) int {
		n := 0
		for _, v := range vs {
			if math.IsNaN(v) {
				n++
			}
		}
		return n
	}
	if countNaN(out) != countNaN(in) {
		t.Fatal("NaN count changed across emission")
	}

	finiteSorted := func(vs []float64) []float64 {
		var fs []float64
		for _, v := range vs {
			if !math.IsNaN(v) {
				fs = append(fs, v)
			}
		}
		sort.Float64s(fs)
		return fs
	}
	wantFinite := finiteSorted(in)
	gotFinite := finiteSorted(out)
	if len(wantFinite) != len(gotFinite) {
		t.Fatal("non-NaN multiset size changed")
	}
	for i := range wantFinite {
		if wantFinite[i] != gotFinite[i] {
			t.Fatalf("non-NaN multiset differs at %d: %v vs %v", i, wantFinite[i], gotFinite[i])
		}
	}
}

func TestEmitDeterministicForSameSeed(t *testing.T) {
	in := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	path := writeSealedTail(t, in)

	run := func() []float64 {
		var out []float64
		for v, err := range Emit(path, prng.NewSeeded(123)) {
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, v)
		}
		return out
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("identically seeded emissions diverged at %d: %v vs %v", i, a[i], b[i])
		}
	}
}
