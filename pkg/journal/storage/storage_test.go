package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fetchgate/pkg/journal"
)

// backends returns one fresh instance of every Storage implementation,
// registered with t for cleanup.
func backends(t *testing.T) map[string]journal.Storage {
	t.Helper()

	sqlite, err := NewSQLiteStorage(&SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "journal.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}

	stores := map[string]journal.Storage{
		"memory": NewMemoryStorage(),
		"sqlite": sqlite,
	}
	for _, s := range stores {
		t.Cleanup(func() { s.Close() })
	}
	return stores
}

func sampleRecord(id string, startedAt time.Time, provider string, success bool, cost float64) *journal.Record {
	return &journal.Record{
		ID:            id,
		RequestID:     "req-" + id,
		URL:           "https://example.com/" + id,
		Provider:      provider,
		Strategy:      "cost-optimized",
		StatusCode:    200,
		Success:       success,
		Attempts:      1,
		FallbackDepth: 0,
		ResponseTime:  120 * time.Millisecond,
		Cost:          cost,
		ContentLength: 2048,
		StartedAt:     startedAt,
		RecordedAt:    startedAt.Add(time.Millisecond),
	}
}

func TestStorageStoreAndQuery(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			records := []*journal.Record{
				sampleRecord("a", base, "relay", true, 0),
				sampleRecord("b", base.Add(time.Minute), "browser", false, 0),
				sampleRecord("c", base.Add(2*time.Minute), "scrapeapi", true, 0.01),
			}
			for _, r := range records {
				if err := s.Store(ctx, r); err != nil {
					t.Fatalf("Store(%s) error = %v", r.ID, err)
				}
			}

			got, err := s.Query(ctx, &journal.Query{})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("Query() returned %d records, want 3", len(got))
			}
			// Newest first.
			if got[0].ID != "c" || got[2].ID != "a" {
				t.Errorf("Query() order = [%s %s %s], want [c b a]", got[0].ID, got[1].ID, got[2].ID)
			}
			if got[0].ResponseTime != 120*time.Millisecond {
				t.Errorf("ResponseTime = %v, want 120ms", got[0].ResponseTime)
			}
		})
	}
}

func TestStorageQueryFilters(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	success := true
	failure := false
	minCost := 0.005

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			seed := []*journal.Record{
				sampleRecord("a", base, "relay", true, 0),
				sampleRecord("b", base.Add(time.Minute), "relay", false, 0),
				sampleRecord("c", base.Add(2*time.Minute), "scrapeapi", true, 0.01),
			}
			for _, r := range seed {
				if err := s.Store(ctx, r); err != nil {
					t.Fatalf("Store() error = %v", err)
				}
			}

			since := base.Add(30 * time.Second)
			tests := []struct {
				name  string
				query *journal.Query
				want  []string
			}{
				{"by provider", &journal.Query{Provider: "relay"}, []string{"b", "a"}},
				{"by success", &journal.Query{Success: &success}, []string{"c", "a"}},
				{"by failure", &journal.Query{Success: &failure}, []string{"b"}},
				{"by since", &journal.Query{Since: &since}, []string{"c", "b"}},
				{"by min cost", &journal.Query{MinCost: &minCost}, []string{"c"}},
				{"limit", &journal.Query{Limit: 2}, []string{"c", "b"}},
				{"offset", &journal.Query{Offset: 1}, []string{"b", "a"}},
				{"limit+offset", &journal.Query{Limit: 1, Offset: 1}, []string{"b"}},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := s.Query(ctx, tt.query)
					if err != nil {
						t.Fatalf("Query() error = %v", err)
					}
					if len(got) != len(tt.want) {
						t.Fatalf("Query() returned %d records, want %d", len(got), len(tt.want))
					}
					for i, id := range tt.want {
						if got[i].ID != id {
							t.Errorf("Query()[%d].ID = %s, want %s", i, got[i].ID, id)
						}
					}
				})
			}
		})
	}
}

func TestStorageCount(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, provider := range []string{"relay", "relay", "browser"} {
				r := sampleRecord(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute), provider, true, 0)
				if err := s.Store(ctx, r); err != nil {
					t.Fatalf("Store() error = %v", err)
				}
			}

			all, err := s.Count(ctx, &journal.Query{})
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if all != 3 {
				t.Errorf("Count(all) = %d, want 3", all)
			}

			relay, err := s.Count(ctx, &journal.Query{Provider: "relay"})
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if relay != 2 {
				t.Errorf("Count(relay) = %d, want 2", relay)
			}
		})
	}
}

func TestStorageDeleteBefore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				r := sampleRecord(string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour), "relay", true, 0)
				if err := s.Store(ctx, r); err != nil {
					t.Fatalf("Store() error = %v", err)
				}
			}

			deleted, err := s.DeleteBefore(ctx, base.Add(2*time.Hour))
			if err != nil {
				t.Fatalf("DeleteBefore() error = %v", err)
			}
			if deleted != 2 {
				t.Errorf("DeleteBefore() = %d, want 2", deleted)
			}

			remaining, err := s.Count(ctx, &journal.Query{})
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if remaining != 3 {
				t.Errorf("Count() after delete = %d, want 3", remaining)
			}
		})
	}
}
