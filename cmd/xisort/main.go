// Command xisort is the thin CLI front end of spec.md §6. It is
// deliberately minimal: argument parsing, progress reporting, and the
// synthetic input generator are "external collaborators" per spec.md §1,
// not carriers of the sort's invariants — those live in the xisort package
// and its internal/ subpackages.
package main

import (
	"flag"
	"fmt"
	"iter"
	"math"
	"os"

	"github.com/xisort/xisort/internal/prng"
	"github.com/xisort/xisort/xisort"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("xisort", flag.ContinueOnError)

	mode := fs.String("mode", "strict", "ordering regime: strict|curved")
	epsilon := fs.Float64("epsilon", 0.01, "CURVED perturbation (pi*epsilon must be < 1)")
	tieBreak := fs.String("tie-break", "value", "tie-break mode: value|index|random|shuffle")
	seedStr := fs.String("seed", "", "deterministic seed (required with --require-deterministic)")
	requireDeterministic := fs.Bool("require-deterministic", false, "fail if no seed is given")
	nanShuffle := fs.Bool("nan-shuffle", false, "shuffle non-finite values per chunk before tail append")
	maxGB := fs.Float64("max-gb", 1.0, "scratch quota in GiB")
	tmpDir := fs.String("tmpdir", "", "parent of the scratch working directory")
	noIntegrity := fs.Bool("no-integrity", false, "disable chunk integrity checking on read (tags are still written)")
	softVerify := fs.Bool("soft-verify", false, "demote integrity mismatches to warnings")
	count := fs.Int("count", 1_000_000, "synthetic input size (driver only)")
	verifySorted := fs.Bool("verify-sorted", false, "abort on first inversion in the merged stream")
	progress := fs.Bool("progress", false, "print periodic percentage progress")
	selftest := fs.Bool("selftest", false, "run sanity checks and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *selftest {
		return runSelftest()
	}

	var opts []xisort.Option

	switch *mode {
	case "strict":
		opts = append(opts, xisort.WithMode(xisort.ModeStrict))
	case "curved":
		opts = append(opts, xisort.WithMode(xisort.ModeCurved), xisort.WithEpsilon(*epsilon))
	default:
		fmt.Fprintf(os.Stderr, "xisort: unknown --mode %q\n", *mode)
		return 1
	}

	switch *tieBreak {
	case "value":
		opts = append(opts, xisort.WithTieBreak(xisort.TieBreakValue))
	case "index":
		opts = append(opts, xisort.WithTieBreak(xisort.TieBreakIndex))
	case "random":
		opts = append(opts, xisort.WithTieBreak(xisort.TieBreakRandom))
	case "shuffle":
		opts = append(opts, xisort.WithTieBreak(xisort.TieBreakShuffle))
	default:
		fmt.Fprintf(os.Stderr, "xisort: unknown --tie-break %q\n", *tieBreak)
		return 1
	}

	var seed uint64
	haveSeed := *seedStr != ""
	if haveSeed {
		var err error
		seed, err = parseSeed(*seedStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "xisort: bad --seed: %v\n", err)
			return 1
		}
		opts = append(opts, xisort.WithSeed(seed))
	}
	if *requireDeterministic {
		opts = append(opts, xisort.WithRequireDeterministic())
	}
	if *nanShuffle {
		opts = append(opts, xisort.WithNaNShuffle())
	}
	opts = append(opts, xisort.WithMaxBytes(int64(*maxGB*1024*1024*1024)))
	if *tmpDir != "" {
		opts = append(opts, xisort.WithTmpDir(*tmpDir))
	}
	if *noIntegrity {
		opts = append(opts, xisort.WithNoIntegrity())
	}
	if *softVerify {
		opts = append(opts, xisort.WithSoftVerify())
	}
	opts = append(opts, xisort.WithWarnf(func(format string, a ...any) {
		fmt.Fprintf(os.Stderr, "xisort: warning: "+format+"\n", a...)
	}))

	cfg := xisort.NewConfig(opts...)

	xi, err := xisort.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xisort: %v\n", err)
		return 1
	}

	genSeed := seed
	if !haveSeed {
		genSeed = prng.AutoSeed().Uint64()
	}
	input := standardNormalSequence(*count, genSeed)

	return drive(xi, input, *count, *verifySorted, *progress)
}

func parseSeed(s string) (uint64, error) {
	var seed uint64
	_, err := fmt.Sscanf(s, "%d", &seed)
	return seed, err
}

func drive(xi *xisort.XiSort, input iter.Seq[float64], total int, verifySorted, progress bool) int {
	var emitted int
	var prevVal float64
	havePrevFinite := false

	for v, err := range xi.StreamSort(input) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "xisort: %v\n", err)
			return 1
		}

		if verifySorted && isFinite(v) {
			if havePrevFinite && v < prevVal {
				fmt.Fprintf(os.Stderr, "xisort: order violation: %v before %v\n", prevVal, v)
				return 1
			}
			prevVal = v
			havePrevFinite = true
		}

		emitted++
		if progress && total > 0 && emitted%max(1, total/100) == 0 {
			fmt.Fprintf(os.Stderr, "xisort: %d%%\n", emitted*100/total)
		}
	}

	fmt.Printf("xisort: emitted %d value(s)\n", emitted)
	return 0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// standardNormalSequence yields n standard-normal doubles via a Box-Muller
// transform over the deterministic PRNG, matching spec.md §8 scenario 3's
// "1,000,000 standard-normal draws" driver input.
func standardNormalSequence(n int, seed uint64) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		r := prng.NewSeeded(seed)
		for i := 0; i < n; i++ {
			u1 := r.Float64()
			if u1 <= 0 {
				u1 = 1e-300
			}
			u2 := r.Float64()
			z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
			if !yield(z) {
				return
			}
		}
	}
}
