package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats accumulates engine-level counters across all scrape calls.
// All counters are independent atomics; per-provider and per-strategy
// counts live in sync.Maps so concurrent calls never contend on one
// lock.
type Stats struct {
	scrapes   atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	fallbacks atomic.Int64
	attempts  atomic.Int64

	perProvider sync.Map // map[string]*atomic.Int64, successful scrapes
	perStrategy sync.Map // map[string]*atomic.Int64, scrape calls

	mu        sync.RWMutex
	startedAt time.Time
}

// NewStats creates a zeroed Stats.
func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) recordScrape(strategy string) {
	s.scrapes.Add(1)
	counter, _ := s.perStrategy.LoadOrStore(strategy, &atomic.Int64{})
	counter.(*atomic.Int64).Add(1)
}

func (s *Stats) recordSuccess(provider string) {
	s.successes.Add(1)
	counter, _ := s.perProvider.LoadOrStore(provider, &atomic.Int64{})
	counter.(*atomic.Int64).Add(1)
}

func (s *Stats) recordFailure() {
	s.failures.Add(1)
}

func (s *Stats) recordFallback() {
	s.fallbacks.Add(1)
}

func (s *Stats) recordAttempts(n int) {
	s.attempts.Add(int64(n))
}

// StatsSnapshot is a point-in-time copy of the engine counters.
type StatsSnapshot struct {
	// Scrapes is the total number of scrape calls.
	Scrapes int64 `json:"scrapes"`

	// Successes is the number of calls that returned a result.
	Successes int64 `json:"successes"`

	// Failures is the number of calls that failed terminally.
	Failures int64 `json:"failures"`

	// Fallbacks is the number of calls settled past the first-ranked
	// provider.
	Fallbacks int64 `json:"fallbacks"`

	// Attempts is the total number of fetch attempts across all calls.
	Attempts int64 `json:"attempts"`

	// PerProvider counts successful scrapes by winning provider.
	PerProvider map[string]int64 `json:"per_provider"`

	// PerStrategy counts scrape calls by ranking strategy.
	PerStrategy map[string]int64 `json:"per_strategy"`

	// Since is when counting started (engine start or last reset).
	Since time.Time `json:"since"`
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	since := s.startedAt
	s.mu.RUnlock()

	snap := StatsSnapshot{
		Scrapes:     s.scrapes.Load(),
		Successes:   s.successes.Load(),
		Failures:    s.failures.Load(),
		Fallbacks:   s.fallbacks.Load(),
		Attempts:    s.attempts.Load(),
		PerProvider: make(map[string]int64),
		PerStrategy: make(map[string]int64),
		Since:       since,
	}

	s.perProvider.Range(func(key, value any) bool {
		snap.PerProvider[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	s.perStrategy.Range(func(key, value any) bool {
		snap.PerStrategy[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return snap
}

// Reset zeroes all counters. Operator action only.
func (s *Stats) Reset() {
	s.scrapes.Store(0)
	s.successes.Store(0)
	s.failures.Store(0)
	s.fallbacks.Store(0)
	s.attempts.Store(0)
	s.perProvider.Range(func(key, _ any) bool {
		s.perProvider.Delete(key)
		return true
	})
	s.perStrategy.Range(func(key, _ any) bool {
		s.perStrategy.Delete(key)
		return true
	})

	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()
}
