package mine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// The coordinator: partitions the index space, fans workers out across it, detects the first
// match, and halts everything exactly once.

/* run is the shared state of one search: the found-flag is the only word needing read-modify-write
atomicity, the result slot is guarded and written at most once (the flag flip is the ticket in),
and each attempt counter is written by exactly one worker. */
type run struct {
	task  *Task
	log   zerolog.Logger
	start time.Time

	found    atomic.Bool
	mu       sync.Mutex
	result   *Result
	attempts []atomic.Uint64
}

// Run executes the search to completion and hands the winning Result to sink (which may be nil).
// Configuration errors and a mandatory accelerator failing bring-up are returned before any worker
// starts; a bounded Space searched to exhaustion returns ErrExhausted. Run blocks until every
// worker has exited; there is no timeout, and an unreachable prefix over the full space will spin
// until the process is killed.
func (t *Task) Run(sink Sink) (*Result, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	r := &run{task: t, start: time.Now()}
	r.log = t.Log.With().Str("run", uuid.NewString()).Str("prefix", t.Prefix).Logger()

	var dev Accelerator
	if t.Accel != nil && t.Chunked {
		/* Chunked candidates are not index-derived, so no batch range can be delegated. */
		r.log.Warn().Msg("chunked strategy cannot drive an accelerator; device left idle")
	}
	if t.Accel != nil && !t.Chunked {
		var err error
		if dev, err = t.Accel(); err != nil {
			if t.Required || t.Workers == 0 {
				return nil, fmt.Errorf("mine: mandatory accelerator unavailable: %w", err)
			}
			r.log.Warn().Err(err).Msg("accelerator unavailable, continuing on CPU only")
		} else {
			r.log.Info().Str("device", dev.Device()).Msg("accelerator up")
		}
	}

	var accelSpan Span
	var cpuSpans []Span
	switch {
	case dev != nil && t.Workers > 0:
		accelSpan, cpuSpans = hybridSplit(t.Space, t.Workers)
	case dev != nil:
		accelSpan = Partition(t.Space, 1)[0]
	default:
		cpuSpans = Partition(t.Space, t.Workers)
	}

	workers := len(cpuSpans)
	if dev != nil {
		workers++
	}
	r.attempts = make([]atomic.Uint64, workers)

	done := make(chan struct{})
	var sampling sync.WaitGroup
	if t.Report != nil {
		sampling.Add(1)
		go r.sample(done, &sampling)
	}

	p := pool.New().WithErrors()
	for i, s := range cpuSpans {
		i, s := i, s
		p.Go(func() error { return r.cpuWorker(i, s) })
	}
	if dev != nil {
		id := len(cpuSpans)
		p.Go(func() error { return r.accelWorker(id, dev, accelSpan) })
	}
	err := p.Wait()

	close(done)
	sampling.Wait()

	res := r.result /* All workers have exited; no lock needed. */
	if res == nil {
		if err != nil {
			return nil, err
		}
		return nil, ErrExhausted
	}
	if err != nil {
		/* A worker died abnormally but another one still won; the error was already logged. */
		r.log.Warn().Err(err).Msg("run completed despite worker failure")
	}
	res.Attempts = r.total()
	res.Elapsed = time.Since(r.start)
	r.log.Info().Str("id", res.Identifier).Uint64("index", res.Index).
		Uint64("attempts", res.Attempts).Dur("elapsed", res.Elapsed).Msg("match")
	if sink != nil {
		if err := sink.Publish(res); err != nil {
			return res, fmt.Errorf("mine: sink: %w", err)
		}
	}
	return res, nil
}

/* cpuWorker owns its cursor exclusively and walks its span in ascending order, polling the
found-flag every iteration so it overruns a foreign match by O(1) attempts. The loop body runs
before the exit test so that the span {0, 0}, the full space, iterates 2^64 times rather than zero. */
func (r *run) cpuWorker(id int, s Span) error {
	var src *ChunkSource
	if r.task.Chunked {
		var err error
		if src, err = NewChunkSource(); err != nil {
			r.log.Error().Err(err).Int("worker", id).Msg("chunk source seeding failed")
			return err
		}
	}

	algo, prefix := r.task.Algo, r.task.Prefix
	for cursor := s.Start; ; {
		if r.found.Load() {
			return nil
		}
		var c Candidate
		if src != nil {
			c = src.Next()
		} else {
			c = Generate(cursor)
		}
		d := algo.Sum(&c)
		r.attempts[id].Add(1)
		if MatchesPrefix(d, prefix) {
			r.publish(cursor, c, d)
			return nil
		}
		if cursor++; cursor == s.End {
			return nil /* span exhausted */
		}
	}
}

/* accelWorker commits a full batch per call and so checks the found-flag only between batches:
coarser cancellation, bounded by one in-flight batch. A device error aborts this worker alone. */
func (r *run) accelWorker(id int, dev Accelerator, s Span) error {
	defer func() {
		if err := dev.Close(); err != nil {
			r.log.Warn().Err(err).Msg("accelerator close failed")
		}
	}()

	batch := r.task.Batch
	if batch == 0 {
		batch = DefaultBatch
	}
	for cursor := s.Start; ; {
		if r.found.Load() {
			return nil
		}
		n := batch
		if rem := s.End - cursor; rem != 0 && rem < n {
			n = rem /* clamp the final batch to the span's edge */
		}
		out, err := dev.SearchBatch(r.task.Prefix, cursor, n)
		if err != nil {
			r.log.Error().Err(err).Str("device", dev.Device()).Msg("accelerator worker aborted")
			return fmt.Errorf("mine: accelerator: %w", err)
		}
		r.attempts[id].Add(n)
		if out.Found {
			r.publish(out.Index, out.Candidate, r.task.Algo.Sum(&out.Candidate))
			return nil
		}
		if cursor += n; cursor == s.End {
			return nil
		}
	}
}

/* publish records the first match. The compare-and-swap on the found-flag is the single-writer
ticket: only the worker that flips it false→true ever takes the result lock with intent to write,
so the slot is written exactly once per run regardless of how many workers race here. */
func (r *run) publish(index uint64, c Candidate, d [DigestSize]byte) {
	if !r.found.CompareAndSwap(false, true) {
		return
	}
	r.mu.Lock()
	r.result = &Result{Identifier: ToIdentifier(d), Candidate: c, Index: index}
	r.mu.Unlock()
}

// total sums the per-worker attempt counters.
func (r *run) total() uint64 {
	var sum uint64
	for i := range r.attempts {
		sum += r.attempts[i].Load()
	}
	return sum
}

/* sample pushes progress snapshots to the excluded presentation layer at a bounded rate, reading
the counters without ever blocking a worker. */
func (r *run) sample(done <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	every := r.task.Every
	if every <= 0 {
		every = time.Second
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			r.task.Report(Progress{Attempts: r.total(), Elapsed: time.Since(r.start)})
		case <-done:
			return
		}
	}
}
