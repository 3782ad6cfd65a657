package xisort

import (
	"errors"
	"iter"
	"math"
	"os"
	"sort"
	"testing"

	"github.com/xisort/xisort/internal/keycodec"
)

func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func sliceSeq(a []float64) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for _, v := range a {
			if !yield(v) {
				return
			}
		}
	}
}

func runSort(t *testing.T, in []float64, opts ...Option) []float64 {
	t.Helper()
	opts = append(opts, WithTmpDir(t.TempDir()))
	xi, err := New(NewConfig(opts...))
	if err != nil {
		t.Fatal(err)
	}
	var out []float64
	for v, err := range xi.StreamSort(sliceSeq(in)) {
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, v)
	}
	return out
}

func TestStreamSortSignedZeroSeparation(t *testing.T) {
	in := []float64{0.0, math.Copysign(0, -1), 0.0, math.Copysign(0, -1)}
	out := runSort(t, in, WithSeed(1))

	want := []float64{
		math.Copysign(0, -1), math.Copysign(0, -1), 0.0, 0.0,
	}
	if len(out) != len(want) {
		t.Fatalf("got %d values, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Signbit(out[i]) != math.Signbit(want[i]) {
			t.Fatalf("index %d: got sign bit %v, want %v", i, math.Signbit(out[i]), math.Signbit(want[i]))
		}
	}
}

func TestStreamSortNonFiniteGoToTail(t *testing.T) {
	in := []float64{math.NaN(), 1.0, math.Inf(-1), 0.0, math.Inf(1)}
	out := runSort(t, in, WithSeed(1))

	if len(out) != len(in) {
		t.Fatalf("got %d values, want %d", len(out), len(in))
	}

	// The merged-finite prefix must be exactly the finite inputs in key
	// order, and must precede every non-finite value. Zeros carry sentinel
	// keys above every other finite key, so 0.0 follows 1.0.
	var finitePrefix []float64
	i := 0
	for ; i < len(out) && !math.IsNaN(out[i]) && !math.IsInf(out[i], 0); i++ {
		finitePrefix = append(finitePrefix, out[i])
	}
	for j := 1; j < len(finitePrefix); j++ {
		if keycodec.Encode(finitePrefix[j-1]) > keycodec.Encode(finitePrefix[j]) {
			t.Fatalf("finite prefix not in key order: %v", finitePrefix)
		}
	}
	if len(finitePrefix) != 2 || finitePrefix[0] != 1.0 || finitePrefix[1] != 0.0 {
		t.Fatalf("expected finite prefix [1.0, 0.0], got %v", finitePrefix)
	}

	tail := out[i:]
	if len(tail) != 3 {
		t.Fatalf("expected 3 tail values, got %d: %v", len(tail), tail)
	}
	sawNaN, sawPosInf, sawNegInf := false, false, false
	for _, v := range tail {
		switch {
		case math.IsNaN(v):
			sawNaN = true
		case math.IsInf(v, 1):
			sawPosInf = true
		case math.IsInf(v, -1):
			sawNegInf = true
		}
	}
	if !sawNaN || !sawPosInf || !sawNegInf {
		t.Fatalf("tail missing an expected non-finite value: %v", tail)
	}
}

func TestStreamSortRoundTripPreservesMultiset(t *testing.T) {
	in := []float64{5, 3, 1, 4, 1, 5, 9, 2, 6}
	out := runSort(t, in, WithSeed(1))

	if len(out) != len(in) {
		t.Fatalf("got %d values, want %d", len(out), len(in))
	}
	if !sort.Float64sAreSorted(out) {
		t.Fatalf("output not sorted: %v", out)
	}

	want := append([]float64(nil), in...)
	sort.Float64s(want)
	for i := range want {
		if want[i] != out[i] {
			t.Fatalf("multiset mismatch at %d: got %v, want %v", i, out[i], want[i])
		}
	}
}

func TestStreamSortIdempotentOnSortedInputUnderValueTieBreak(t *testing.T) {
	in := []float64{1, 2, 3, 4, 5, 6, 7}
	out := runSort(t, in, WithSeed(1), WithTieBreak(TieBreakValue))

	if len(out) != len(in) {
		t.Fatalf("got %d values, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("sorting an already-sorted stream changed element %d: %v -> %v", i, in[i], out[i])
		}
	}
}

func TestStreamSortDeterministicAcrossRuns(t *testing.T) {
	in := make([]float64, 2000)
	seedGen := uint64(7)
	for i := range in {
		seedGen = seedGen*6364136223846793005 + 1442695040888963407
		in[i] = float64(int64(seedGen>>11)) / float64(1<<52)
	}

	a := runSort(t, in, WithSeed(42))
	b := runSort(t, in, WithSeed(42))

	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("diverged at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestStreamSortMultiChunkSortsAcrossChunkBoundaries(t *testing.T) {
	n := 5000
	in := make([]float64, n)
	for i := range in {
		in[i] = float64(n - i)
	}

	out := runSort(t, in, WithSeed(1), WithChunkCapacity(100))
	if len(out) != n {
		t.Fatalf("got %d values, want %d", len(out), n)
	}
	if !sort.Float64sAreSorted(out) {
		t.Fatal("output spanning many chunks not fully sorted")
	}
}

func TestStreamSortCurvedPreservesOrderForSmallEpsilon(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3}
	out := runSort(t, in, WithSeed(1), WithMode(ModeCurved), WithEpsilon(0.01))

	want := []float64{0.1, 0.2, 0.3}
	if len(out) != len(want) {
		t.Fatalf("got %d values, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("CURVED reordered input: got %v, want %v", out, want)
		}
	}
}

func TestNewRejectsBadEpsilon(t *testing.T) {
	_, err := New(NewConfig(WithMode(ModeCurved), WithEpsilon(1.0)))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for pi*epsilon >= 1, got %v", err)
	}
}

func TestNewRejectsRequireDeterministicWithoutSeed(t *testing.T) {
	_, err := New(NewConfig(WithRequireDeterministic()))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for missing seed under RequireDeterministic, got %v", err)
	}
}

func TestStreamSortReleasesScratchDirOnCompletion(t *testing.T) {
	tmp := t.TempDir()
	xi, err := New(NewConfig(WithSeed(1), WithTmpDir(tmp)))
	if err != nil {
		t.Fatal(err)
	}
	for range xi.StreamSort(sliceSeq([]float64{3, 1, 2})) {
	}

	entries, err := readDirNames(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch parent to be empty after completion, found %v", entries)
	}
}

func TestStreamSortReleasesScratchDirOnEarlyAbandonment(t *testing.T) {
	tmp := t.TempDir()
	xi, err := New(NewConfig(WithSeed(1), WithTmpDir(tmp), WithChunkCapacity(2)))
	if err != nil {
		t.Fatal(err)
	}

	in := make([]float64, 200)
	for i := range in {
		in[i] = float64(i)
	}

	count := 0
	for range xi.StreamSort(sliceSeq(in)) {
		count++
		if count == 3 {
			break
		}
	}

	entries, err := readDirNames(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch parent to be empty after early break, found %v", entries)
	}
}
