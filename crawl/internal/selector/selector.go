// Package selector picks the order in which source adapters attempt a
// task: a static domain classification sets the default order, and recorded
// success rates re-rank it once enough samples exist. This is the only
// adaptive element in the service.
package selector

import (
	"context"
	"log/slog"
	"sort"

	"github.com/tripsage/webcrawl/crawl/internal/adapter"
)

// MinSamples is the default number of recorded attempts a (domain, adapter,
// operation) tuple needs before its success rate participates in ranking.
const MinSamples = 5

// neutralPrior is the score assumed for tuples without enough samples,
// matching the confidence assigned to unknown sources elsewhere. Adapters
// proven worse than a coin flip sink below untried ones.
const neutralPrior = 0.5

// StatsStore records and reports adapter outcomes per (domain, adapter,
// operation). SuccessRate returns (0, 0, nil) for unseen tuples.
type StatsStore interface {
	RecordOutcome(ctx context.Context, domain, adapterName, operation string, success bool) error
	SuccessRate(ctx context.Context, domain, adapterName, operation string) (rate float64, samples int, err error)
}

// Config tunes the selector.
type Config struct {
	MinSamples int
	Logger     *slog.Logger
}

func (c Config) defaults() Config {
	if c.MinSamples <= 0 {
		c.MinSamples = MinSamples
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Selector ranks the available adapters for a task.
type Selector struct {
	cfg       Config
	stats     StatsStore
	available map[adapter.Kind]bool
}

// New creates a Selector over the given adapter kinds. A nil stats store
// falls back to in-memory tracking.
func New(stats StatsStore, available []adapter.Kind, cfg Config) *Selector {
	if stats == nil {
		stats = NewMemoryStats(0)
	}
	avail := make(map[adapter.Kind]bool, len(available))
	for _, k := range available {
		avail[k] = true
	}
	return &Selector{cfg: cfg.defaults(), stats: stats, available: avail}
}

// Order returns the adapters to try for the task, best first. The list is
// never empty as long as any adapter is available: unavailable kinds are
// filtered out and unknown domains fall back to the operation default.
func (s *Selector) Order(ctx context.Context, task *adapter.Task) []adapter.Kind {
	base := s.defaultOrder(task)

	ranked := make([]adapter.Kind, 0, len(base))
	for _, k := range base {
		if s.available[k] {
			ranked = append(ranked, k)
		}
	}
	if len(ranked) == 0 {
		// Nothing available from the default set; hand back the full
		// default so the orchestrator can report a meaningful exhaustion.
		return base
	}
	if len(ranked) == 1 {
		return ranked
	}

	scores := make(map[adapter.Kind]float64, len(ranked))
	for _, k := range ranked {
		scores[k] = neutralPrior
		rate, n, err := s.stats.SuccessRate(ctx, task.Domain, string(k), task.Operation)
		if err != nil {
			s.cfg.Logger.Warn("selector: stats lookup failed",
				"domain", task.Domain, "adapter", string(k), "error", err)
			continue
		}
		if n >= s.cfg.MinSamples {
			scores[k] = rate
		}
	}

	// Stable sort keeps the static default order for ties.
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	return ranked
}

// Classify exposes the rule-set classification used for the default order.
func (s *Selector) Classify(domain string) Class {
	return Classify(domain)
}

var (
	staticOrder  = []adapter.Kind{adapter.KindBulk, adapter.KindBrowser, adapter.KindHosted}
	dynamicOrder = []adapter.Kind{adapter.KindBrowser, adapter.KindBulk, adapter.KindHosted}
	searchOrder  = []adapter.Kind{adapter.KindHosted, adapter.KindBulk}
)

// defaultOrder resolves the static ordering: rule-set classification for
// URL tasks, operation defaults otherwise.
func (s *Selector) defaultOrder(task *adapter.Task) []adapter.Kind {
	if task.SearchTask() {
		return searchOrder
	}
	switch Classify(task.Domain) {
	case ClassDynamic:
		return dynamicOrder
	case ClassStatic:
		return staticOrder
	}
	return operationDefault(task.Operation)
}

// operationDefault is the order for unknown domains. Price pages tend to be
// script-rendered, so monitoring leads with the browser; everything else
// starts cheap.
func operationDefault(operation string) []adapter.Kind {
	switch operation {
	case "monitor_price":
		return dynamicOrder
	case "search_destination", "get_events":
		return searchOrder
	default:
		return staticOrder
	}
}
