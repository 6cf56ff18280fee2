package selector

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxTrackedDomains bounds in-memory stats growth. The sqlite store
// applies the same cap via pruning.
const DefaultMaxTrackedDomains = 10000

// MemoryStats is an in-process StatsStore for tests and runs without a
// database. When the domain cap is reached, the least recently updated
// domain is evicted to make room.
type MemoryStats struct {
	mu      sync.RWMutex
	max     int
	domains map[string]*domainStats
}

type domainStats struct {
	updated int64 // unix millis of last write
	tuples  map[string]*tupleCounts
}

type tupleCounts struct {
	successes int
	attempts  int
}

// NewMemoryStats creates a MemoryStats tracking at most maxDomains domains
// (0 = DefaultMaxTrackedDomains).
func NewMemoryStats(maxDomains int) *MemoryStats {
	if maxDomains <= 0 {
		maxDomains = DefaultMaxTrackedDomains
	}
	return &MemoryStats{max: maxDomains, domains: make(map[string]*domainStats)}
}

func (m *MemoryStats) RecordOutcome(_ context.Context, domain, adapterName, operation string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ds, ok := m.domains[domain]
	if !ok {
		if len(m.domains) >= m.max {
			m.evictOldestLocked()
		}
		ds = &domainStats{tuples: make(map[string]*tupleCounts)}
		m.domains[domain] = ds
	}
	ds.updated = time.Now().UnixMilli()

	key := adapterName + "|" + operation
	tc, ok := ds.tuples[key]
	if !ok {
		tc = &tupleCounts{}
		ds.tuples[key] = tc
	}
	tc.attempts++
	if success {
		tc.successes++
	}
	return nil
}

func (m *MemoryStats) SuccessRate(_ context.Context, domain, adapterName, operation string) (float64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.domains[domain]
	if !ok {
		return 0, 0, nil
	}
	tc, ok := ds.tuples[adapterName+"|"+operation]
	if !ok || tc.attempts == 0 {
		return 0, 0, nil
	}
	return float64(tc.successes) / float64(tc.attempts), tc.attempts, nil
}

// TrackedDomains reports how many domains currently hold stats.
func (m *MemoryStats) TrackedDomains() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.domains)
}

func (m *MemoryStats) evictOldestLocked() {
	var oldest string
	var oldestAt int64
	first := true
	for d, ds := range m.domains {
		if first || ds.updated < oldestAt {
			oldest, oldestAt, first = d, ds.updated, false
		}
	}
	if !first {
		delete(m.domains, oldest)
	}
}
