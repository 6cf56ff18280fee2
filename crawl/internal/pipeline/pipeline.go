// Package pipeline runs the fallback chain over source adapters: attempts
// are strictly sequential in the selector's order, every attempt is
// recorded in the selection stats and the fetch log, and the first success
// short-circuits the rest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tripsage/webcrawl/crawl/internal/adapter"
	"github.com/tripsage/webcrawl/crawl/internal/selector"
	"github.com/tripsage/webcrawl/crawl/internal/store"
	"github.com/tripsage/webcrawl/idgen"
)

// ErrExhausted is the terminal state after every candidate adapter failed.
// The service maps it to search guidance; it never reaches a transport.
var ErrExhausted = errors.New("pipeline: all adapters exhausted")

// DefaultAttemptTimeout bounds one adapter attempt when the task does not
// carry its own.
const DefaultAttemptTimeout = 30 * time.Second

// Attempt records one adapter try for exhaustion reporting.
type Attempt struct {
	Adapter    adapter.Kind
	Err        error
	DurationMs int64
}

// ExhaustedError carries the per-adapter failures behind ErrExhausted.
// errors.Is(err, ErrExhausted) matches it.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("pipeline: all %d adapters exhausted", len(e.Attempts))
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// Config tunes the runner.
type Config struct {
	AttemptTimeout time.Duration
	Logger         *slog.Logger
	NewID          idgen.Generator
}

func (c Config) defaults() Config {
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.NewID == nil {
		c.NewID = idgen.Default
	}
	return c
}

// Runner orchestrates adapter attempts for one service instance.
type Runner struct {
	cfg      Config
	adapters map[adapter.Kind]adapter.SourceAdapter
	stats    selector.StatsStore
	store    *store.Store // optional; nil disables the fetch log
}

// New creates a Runner over the given adapters. stats must not be nil;
// st may be nil when no database is attached.
func New(adapters []adapter.SourceAdapter, stats selector.StatsStore, st *store.Store, cfg Config) *Runner {
	byKind := make(map[adapter.Kind]adapter.SourceAdapter, len(adapters))
	for _, a := range adapters {
		byKind[a.Kind()] = a
	}
	return &Runner{cfg: cfg.defaults(), adapters: byKind, stats: stats, store: st}
}

// Has reports whether an adapter of the given kind is wired in.
func (r *Runner) Has(kind adapter.Kind) bool {
	_, ok := r.adapters[kind]
	return ok
}

// Kinds lists the wired adapter kinds.
func (r *Runner) Kinds() []adapter.Kind {
	out := make([]adapter.Kind, 0, len(r.adapters))
	for k := range r.adapters {
		out = append(out, k)
	}
	return out
}

// Run tries the candidates in order and returns the first non-empty result
// with the kind that produced it. A parent context expiry aborts the chain
// without trying further adapters: the caller gave up, the remaining
// backends would only burn budget.
func (r *Runner) Run(ctx context.Context, task *adapter.Task, order []adapter.Kind) (*adapter.Result, adapter.Kind, error) {
	log := r.cfg.Logger.With("operation", task.Operation, "target", task.Target())
	timeout := task.AttemptTimeout
	if timeout <= 0 {
		timeout = r.cfg.AttemptTimeout
	}

	var attempts []Attempt
	for _, kind := range order {
		if ctx.Err() != nil {
			log.Warn("pipeline: aborting, caller context done", "error", ctx.Err(), "attempts", len(attempts))
			break
		}
		a, ok := r.adapters[kind]
		if !ok {
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		res, err := a.Fetch(attemptCtx, task)
		cancel()
		durationMs := time.Since(start).Milliseconds()

		if err == nil && res.Empty() {
			err = &adapter.FetchError{Adapter: kind, Reason: "empty result"}
		}
		r.record(ctx, task, kind, err, durationMs)

		if err == nil {
			log.Info("pipeline: fetched",
				"adapter", string(kind),
				"pages", len(res.Pages), "hits", len(res.Hits),
				"duration_ms", durationMs)
			return res, kind, nil
		}

		fe := adapter.AsFetchError(err, kind)
		log.Warn("pipeline: adapter failed",
			"adapter", string(kind),
			"retryable", fe.Retryable,
			"duration_ms", durationMs,
			"error", err)
		attempts = append(attempts, Attempt{Adapter: kind, Err: err, DurationMs: durationMs})
	}

	return nil, "", &ExhaustedError{Attempts: attempts}
}

// record writes the attempt outcome to selection stats and the fetch log.
// Both are best-effort: a heuristic counter and an audit trail must never
// fail a request.
func (r *Runner) record(ctx context.Context, task *adapter.Task, kind adapter.Kind, attemptErr error, durationMs int64) {
	success := attemptErr == nil
	if err := r.stats.RecordOutcome(ctx, task.Domain, string(kind), task.Operation, success); err != nil {
		r.cfg.Logger.Debug("pipeline: record outcome failed", "error", err)
	}
	if r.store == nil {
		return
	}
	entry := &store.FetchLogEntry{
		ID:         r.cfg.NewID(),
		Operation:  task.Operation,
		Target:     task.Target(),
		Adapter:    string(kind),
		Status:     "ok",
		DurationMs: durationMs,
		FetchedAt:  time.Now().UnixMilli(),
	}
	if attemptErr != nil {
		entry.Status = "error"
		entry.ErrorMessage = attemptErr.Error()
	}
	if err := r.store.InsertFetchLog(ctx, entry); err != nil {
		r.cfg.Logger.Debug("pipeline: fetch log insert failed", "error", err)
	}
}
