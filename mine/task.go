package mine

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// Run configuration and the boundary types handed to external collaborators.

// Configuration errors; all are detected before any worker starts.
var (
	ErrBadPrefix = errors.New("mine: prefix outside alphabet")
	ErrWorkers   = errors.New("mine: negative worker count")
	ErrNoWorkers = errors.New("mine: no accelerator and no CPU workers")
	ErrExhausted = errors.New("mine: search space exhausted without a match")
)

// DefaultBatch is the default accelerator batch size; a throughput/latency trade-off, not a
// correctness parameter.
const DefaultBatch = 1_000_000

// Task is the immutable configuration of one search run.
type Task struct {
	// Prefix is the desired identifier prefix over Alphabet. Empty matches immediately; longer
	// than IdentifierLen can never match but is accepted.
	Prefix string
	// Workers is the CPU worker count. Zero is permitted only alongside an accelerator.
	Workers int
	// Algo selects the digest function (default SHA256).
	Algo Algo
	// Accel, when set, is brought up before workers start and driven by one dedicated worker over
	// the first half of the search space. Nil means CPU-only.
	Accel OpenAccelerator
	// Required makes an Accel bring-up failure fatal instead of degrading to CPU-only.
	Required bool
	// Batch is the accelerator batch size (default DefaultBatch).
	Batch uint64
	// Space caps the searched index space to [0, Space); zero means the full 2^64. Bounded
	// spaces exist for tests and for runs that should give up rather than run forever.
	Space uint64
	// Chunked switches CPU workers to the randomized ChunkSource strategy. It forfeits exact
	// partitioning and exhaustion detection and excludes accelerator participation.
	Chunked bool
	// Report, when set, receives progress snapshots roughly every Every (default one second).
	Report func(Progress)
	Every  time.Duration
	// Log receives worker lifecycle and degradation events (default: no logging).
	Log zerolog.Logger
}

// Result is the single winning candidate of a run.
type Result struct {
	Identifier string
	Candidate  Candidate
	Index      uint64
	Attempts   uint64
	Elapsed    time.Duration
}

// Sink consumes the winning Result; persistence and formatting live behind it, outside the core.
type Sink interface {
	Publish(*Result) error
}

// Progress is a point-in-time sample of a running search.
type Progress struct {
	Attempts uint64
	Elapsed  time.Duration
}

// Rate returns attempts per second.
func (p Progress) Rate() float64 {
	if p.Elapsed <= 0 {
		return 0
	}
	return float64(p.Attempts) / p.Elapsed.Seconds()
}

func (t *Task) validate() error {
	if err := ValidatePrefix(t.Prefix); err != nil {
		return err
	}
	if t.Workers < 0 {
		return ErrWorkers
	}
	if t.Workers == 0 && (t.Accel == nil || t.Chunked) {
		return ErrNoWorkers
	}
	return nil
}
