// Package xisort is the orchestrator: it wires the key codec, PRNG, metric
// transform, chunk writer/reader, tail store/emitter, and k-way merge into
// the single streaming operation described in spec.md §4.8 ("XiSort").
package xisort

import (
	"errors"
	"fmt"

	"github.com/xisort/xisort/internal/chunkio"
	"github.com/xisort/xisort/internal/metric"
	"github.com/xisort/xisort/internal/record"
)

// Mode selects the ordering regime.
type Mode int

const (
	ModeStrict Mode = iota
	ModeCurved
)

// TieBreak selects the secondary comparator used when two records share a
// key.
type TieBreak int

const (
	TieBreakValue TieBreak = iota
	TieBreakIndex
	TieBreakRandom
	// TieBreakShuffle is, for finite values, equivalent to TieBreakRandom;
	// it additionally implies NaNShuffle for non-finite values. Spec.md §9
	// flags this conflation as an open question this module resolves by
	// preserving it rather than inventing a third finite-tie behavior.
	TieBreakShuffle
)

func (t TieBreak) toRecordTieMode() record.TieMode {
	switch t {
	case TieBreakValue:
		return record.TieValue
	case TieBreakIndex:
		return record.TieIndex
	case TieBreakRandom, TieBreakShuffle:
		return record.TieRandom
	default:
		return record.TieValue
	}
}

// ErrConfig is returned by New when the configuration is invalid:
// an out-of-range epsilon, or a missing seed under RequireDeterministic.
var ErrConfig = errors.New("xisort: invalid configuration")

const defaultMaxBytes = 1 << 30 // 1 GiB, spec.md §6 --max-gb default 1.0

// Config holds every XiSort construction parameter from spec.md §6.
type Config struct {
	Mode                 Mode
	Epsilon              float64
	TieBreak             TieBreak
	Seed                 *uint64
	RequireDeterministic bool
	NaNShuffle           bool
	MaxBytes             int64
	TmpDir               string
	Integrity            bool
	SoftVerify           bool
	ChunkCapacity        int

	// Warnf receives non-fatal warnings (soft-verify downgrades, cleanup
	// I/O errors, leftover scratch files). It defaults to a no-op.
	Warnf func(format string, args ...any)
}

// Option mutates a Config, following the teacher's functional-option shape
// (segmentmanager.DiskSegmentManagerOption).
type Option func(*Config)

// WithMode sets the ordering regime.
func WithMode(m Mode) Option { return func(c *Config) { c.Mode = m } }

// WithEpsilon sets the CURVED perturbation.
func WithEpsilon(eps float64) Option { return func(c *Config) { c.Epsilon = eps } }

// WithTieBreak sets the tie-break mode.
func WithTieBreak(t TieBreak) Option { return func(c *Config) { c.TieBreak = t } }

// WithSeed fixes the PRNG seed.
func WithSeed(seed uint64) Option { return func(c *Config) { c.Seed = &seed } }

// WithRequireDeterministic fails construction if no seed was supplied.
func WithRequireDeterministic() Option { return func(c *Config) { c.RequireDeterministic = true } }

// WithNaNShuffle enables per-chunk shuffling of non-finite values before
// they are appended to the tail store.
func WithNaNShuffle() Option { return func(c *Config) { c.NaNShuffle = true } }

// WithMaxBytes sets the scratch quota in bytes.
func WithMaxBytes(n int64) Option { return func(c *Config) { c.MaxBytes = n } }

// WithTmpDir sets the parent of the scratch working directory.
func WithTmpDir(dir string) Option { return func(c *Config) { c.TmpDir = dir } }

// WithNoIntegrity disables chunk tag verification on read. Chunk files are
// still written with their trailing tag; tag generation is not disabled.
func WithNoIntegrity() Option { return func(c *Config) { c.Integrity = false } }

// WithSoftVerify demotes integrity/structural failures to warnings.
func WithSoftVerify() Option { return func(c *Config) { c.SoftVerify = true } }

// WithChunkCapacity overrides the default chunk capacity (2^18).
func WithChunkCapacity(n int) Option { return func(c *Config) { c.ChunkCapacity = n } }

// WithWarnf sets the non-fatal warning sink.
func WithWarnf(f func(string, ...any)) Option { return func(c *Config) { c.Warnf = f } }

// NewConfig builds a Config with spec.md §6 defaults, then applies opts.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Mode:          ModeStrict,
		Epsilon:       0.01,
		TieBreak:      TieBreakValue,
		MaxBytes:      defaultMaxBytes,
		Integrity:     true,
		ChunkCapacity: chunkio.DefaultCapacity,
		Warnf:         func(string, ...any) {},
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Warnf == nil {
		cfg.Warnf = func(string, ...any) {}
	}
	return cfg
}

// validate enforces spec.md §7's configuration-error checks.
func (c Config) validate() error {
	if c.Mode == ModeCurved {
		if err := (metric.Curved{Epsilon: c.Epsilon}).Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrConfig, err)
		}
	}
	if c.RequireDeterministic && c.Seed == nil {
		return fmt.Errorf("%w: require_deterministic set without an explicit seed", ErrConfig)
	}
	return nil
}
