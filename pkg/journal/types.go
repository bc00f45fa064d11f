package journal

import (
	"context"
	"io"
	"time"
)

// Record is the audit entry for one scrape call. One record is written
// per call, success or failure, after the fallback loop finishes.
type Record struct {
	// ID is the record's UUID.
	ID string `json:"id"`

	// RequestID correlates the record with logs and result metadata.
	RequestID string `json:"request_id"`

	// URL is the requested target URL.
	URL string `json:"url"`

	// Provider is the provider that produced the result, or the last
	// provider attempted when the call failed.
	Provider string `json:"provider"`

	// Strategy is the ranking strategy used for the call.
	Strategy string `json:"strategy"`

	// StatusCode is the protocol status of the winning response. Zero
	// when the call failed.
	StatusCode int `json:"status_code"`

	// Success reports whether the call returned a result.
	Success bool `json:"success"`

	// Error is the terminal error message for failed calls.
	Error string `json:"error,omitempty"`

	// Attempts is the total number of fetch attempts across all
	// providers tried.
	Attempts int `json:"attempts"`

	// FallbackDepth is the number of providers tried before the
	// outcome: 0 means the first-ranked provider settled the call.
	FallbackDepth int `json:"fallback_depth"`

	// ResponseTime is the wall-clock duration of the winning attempt.
	ResponseTime time.Duration `json:"response_time"`

	// Cost is the amount billed for the call.
	Cost float64 `json:"cost"`

	// ContentLength is the byte length of the fetched document.
	ContentLength int `json:"content_length"`

	// OverBudget reports that the winning provider's per-request cost
	// exceeded the call's budget. The budget never blocks a result;
	// this flag is how operators see the overrides.
	OverBudget bool `json:"over_budget,omitempty"`

	// StartedAt is when the scrape call began.
	StartedAt time.Time `json:"started_at"`

	// RecordedAt is when the record was enqueued for storage.
	RecordedAt time.Time `json:"recorded_at"`
}

// Query filters journal records. Zero-valued fields match everything.
type Query struct {
	// Since and Until bound StartedAt, inclusive.
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`

	// Provider filters by the provider that settled the call.
	Provider string `json:"provider,omitempty"`

	// Strategy filters by ranking strategy.
	Strategy string `json:"strategy,omitempty"`

	// Success filters by outcome when set.
	Success *bool `json:"success,omitempty"`

	// MinCost keeps records at or above a cost threshold when set.
	MinCost *float64 `json:"min_cost,omitempty"`

	// Limit caps the number of returned records; zero means no cap.
	Limit int `json:"limit,omitempty"`

	// Offset skips the first N matching records.
	Offset int `json:"offset,omitempty"`
}

// Storage is the journal persistence contract. Implementations must be
// safe for concurrent use. Query results are ordered by StartedAt
// descending, newest first.
type Storage interface {
	// Store persists one record.
	Store(ctx context.Context, record *Record) error

	// Query returns the records matching query.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching query.
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteBefore removes records whose StartedAt is before cutoff
	// and returns how many were removed. Used by retention.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Exporter renders records to a writer in one output format.
type Exporter interface {
	// Export writes records to w.
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
