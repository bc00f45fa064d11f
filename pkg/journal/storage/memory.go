package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"fetchgate/pkg/journal"
)

var errClosed = errors.New("storage is closed")

// MemoryStorage is an in-memory journal backend. Records live until
// the process exits or retention deletes them. Intended for tests and
// development; production deployments use SQLiteStorage.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*journal.Record
	closed  bool
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store implements journal.Storage.
func (s *MemoryStorage) Store(ctx context.Context, record *journal.Record) error {
	if err := ctx.Err(); err != nil {
		return journal.NewStorageError("memory", "store", err)
	}

	copied := *record

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return journal.NewStorageError("memory", "store", errClosed)
	}
	s.records = append(s.records, &copied)
	return nil
}

// Query implements journal.Storage. Results are ordered by StartedAt
// descending.
func (s *MemoryStorage) Query(ctx context.Context, query *journal.Query) ([]*journal.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, journal.NewStorageError("memory", "query", err)
	}
	if query == nil {
		query = &journal.Query{}
	}

	s.mu.RLock()
	matched := make([]*journal.Record, 0, len(s.records))
	for _, r := range s.records {
		if matches(r, query) {
			copied := *r
			matched = append(matched, &copied)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	if query.Offset > 0 {
		if query.Offset >= len(matched) {
			return []*journal.Record{}, nil
		}
		matched = matched[query.Offset:]
	}
	if query.Limit > 0 && len(matched) > query.Limit {
		matched = matched[:query.Limit]
	}
	return matched, nil
}

// Count implements journal.Storage.
func (s *MemoryStorage) Count(ctx context.Context, query *journal.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, journal.NewStorageError("memory", "count", err)
	}
	if query == nil {
		query = &journal.Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.records {
		if matches(r, query) {
			n++
		}
	}
	return n, nil
}

// DeleteBefore implements journal.Storage.
func (s *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, journal.NewStorageError("memory", "delete", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, r := range s.records {
		if r.StartedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return deleted, nil
}

// Close implements journal.Storage.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.records = nil
	s.mu.Unlock()
	return nil
}

func matches(r *journal.Record, q *journal.Query) bool {
	if q.Since != nil && r.StartedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && r.StartedAt.After(*q.Until) {
		return false
	}
	if q.Provider != "" && r.Provider != q.Provider {
		return false
	}
	if q.Strategy != "" && r.Strategy != q.Strategy {
		return false
	}
	if q.Success != nil && r.Success != *q.Success {
		return false
	}
	if q.MinCost != nil && r.Cost < *q.MinCost {
		return false
	}
	return true
}
