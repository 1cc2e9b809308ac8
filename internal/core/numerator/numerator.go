// Package numerator defines how sale numbers and transfer labels are
// generated. The Postgres-backed implementation lives in pkg/numerator.
package numerator

import (
	"context"
	"time"
)

// Generator returns the next number of a sequence.
type Generator interface {
	// GetNextNumber formats the next value of cfg's sequence for period.
	// A nil opts means DefaultOptions.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
}

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict uses UPSERT ... RETURNING for every number.
	// Guarantees sequential numbers without gaps.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Faster, but may produce gaps if the process restarts.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// ResetPeriod controls when a sequence restarts from 1.
type ResetPeriod string

const (
	ResetNever ResetPeriod = "never"
	ResetYear  ResetPeriod = "year"
	ResetMonth ResetPeriod = "month"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g. "S", "T", "MST")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	ResetPeriod ResetPeriod
}

// DefaultConfig returns PREFIX-YEAR-NNNNN numbering, reset yearly.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: ResetYear,
	}
}

// LabelConfig returns PREFIX-NNNNNN numbering that never resets.
// Used for inventory transfer labels (T-000042).
func LabelConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		PadWidth:    6,
		ResetPeriod: ResetNever,
	}
}
