package main

import (
	"fmt"
	"iter"
	"math"
	"os"

	"github.com/xisort/xisort/internal/keycodec"
	"github.com/xisort/xisort/xisort"
)

// runSelftest reproduces a handful of spec.md §8's testable properties
// in-process, mirroring the original Python implementation's --selftest
// path rather than shelling out to a separate test runner.
func runSelftest() int {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"sentinel ordering", checkSentinelOrdering},
		{"signed zero separation", checkSignedZero},
		{"round-trip permutation", checkRoundTrip},
		{"determinism", checkDeterminism},
	}

	ok := true
	for _, c := range checks {
		if err := c.fn(); err != nil {
			fmt.Fprintf(os.Stderr, "xisort: selftest %q FAILED: %v\n", c.name, err)
			ok = false
			continue
		}
		fmt.Printf("xisort: selftest %q ok\n", c.name)
	}
	if !ok {
		return 1
	}
	return 0
}

func checkSentinelOrdering() error {
	finite := keycodec.Encode(1234.5)
	if !(finite < keycodec.KNegInf) {
		return fmt.Errorf("finite key %d not below K_NEGINF", finite)
	}
	if !(keycodec.KNegInf < keycodec.KPosInf && keycodec.KPosInf < keycodec.KNeg0 &&
		keycodec.KNeg0 < keycodec.KPos0 && keycodec.KPos0 < keycodec.KNaN) {
		return fmt.Errorf("sentinel keys out of order")
	}
	return nil
}

func checkSignedZero() error {
	neg0 := keycodec.Encode(math.Copysign(0, -1))
	pos0 := keycodec.Encode(0.0)
	if neg0 != keycodec.KNeg0 || pos0 != keycodec.KPos0 || !(neg0 < pos0) {
		return fmt.Errorf("signed zero keys not separated: neg0=%d pos0=%d", neg0, pos0)
	}
	return nil
}

func checkRoundTrip() error {
	in := []float64{0.0, math.Copysign(0, -1), 0.0, math.Copysign(0, -1), 3.0, -1.0, math.NaN(), math.Inf(1)}
	seed := uint64(1)
	cfg := xisort.NewConfig(xisort.WithSeed(seed), xisort.WithRequireDeterministic())
	xi, err := xisort.New(cfg)
	if err != nil {
		return err
	}

	var out []float64
	for v, err := range xi.StreamSort(sliceSeq(in)) {
		if err != nil {
			return err
		}
		out = append(out, v)
	}
	if len(out) != len(in) {
		return fmt.Errorf("expected %d outputs, got %d", len(in), len(out))
	}
	counts := map[uint64]int{}
	for _, v := range in {
		counts[math.Float64bits(v)]++
	}
	for _, v := range out {
		counts[math.Float64bits(v)]--
	}
	for bits, c := range counts {
		if c != 0 {
			return fmt.Errorf("output is not a permutation of the input: %v count off by %d", math.Float64frombits(bits), c)
		}
	}
	return nil
}

func checkDeterminism() error {
	in := make([]float64, 0, 1000)
	r := uint64(42)
	for i := 0; i < 1000; i++ {
		r = r*6364136223846793005 + 1442695040888963407
		in = append(in, float64(int64(r>>11))/float64(1<<52))
	}

	run := func() []float64 {
		cfg := xisort.NewConfig(xisort.WithSeed(7), xisort.WithRequireDeterministic())
		xi, err := xisort.New(cfg)
		if err != nil {
			return nil
		}
		var out []float64
		for v, err := range xi.StreamSort(sliceSeq(in)) {
			if err != nil {
				return nil
			}
			out = append(out, v)
		}
		return out
	}

	a, b := run(), run()
	if len(a) != len(b) || len(a) == 0 {
		return fmt.Errorf("determinism check produced no comparable output")
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return fmt.Errorf("non-deterministic output at index %d: %v vs %v", i, a[i], b[i])
		}
	}
	return nil
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
