package retention

import (
	"context"
	"log/slog"
	"time"

	"fetchgate/pkg/journal"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// MaxAge is how long records are retained. Zero means keep
	// records forever (no age-based pruning).
	// Default: 90 days
	MaxAge time.Duration

	// MaxRecords is the maximum number of records to keep. When the
	// journal grows past it, the oldest records are deleted. Zero
	// means unlimited.
	// Default: 0
	MaxRecords int64

	// Schedule is a cron expression for automatic pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables the
	// scheduler; Prune can still be called directly.
	// Default: "0 3 * * *"
	Schedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAge:     90 * 24 * time.Hour,
		MaxRecords: 0,
		Schedule:   "0 3 * * *",
	}
}

// Pruner enforces the retention policy on journal storage.
type Pruner struct {
	storage journal.Storage
	config  *Config
	logger  *slog.Logger
}

// NewPruner creates a Pruner over storage.
func NewPruner(storage journal.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "journal.retention"),
	}
}

// Config returns the pruner's configuration.
func (p *Pruner) Config() *Config {
	return p.config
}

// Prune enforces the policy in two phases: first delete records older
// than MaxAge, then, when MaxRecords is set, delete the oldest records
// beyond the cap. Returns the total number of deleted records.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.MaxAge > 0 {
		cutoff := time.Now().Add(-p.config.MaxAge)
		deleted, err := p.storage.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, &journal.RetentionError{MaxAge: p.config.MaxAge.String(), Cause: err}
		}
		total += deleted

		if deleted > 0 {
			p.logger.Info("pruned journal records by age",
				"deleted", deleted,
				"cutoff", cutoff.Format(time.RFC3339),
			)
		}
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, err
		}
		total += deleted
	}

	return total, nil
}

// pruneByCount deletes the oldest records beyond the MaxRecords cap.
// The cutoff is the start time of the oldest record inside the cap;
// everything strictly older goes.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &journal.Query{})
	if err != nil {
		return 0, &journal.RetentionError{MaxAge: p.config.MaxAge.String(), Cause: err}
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	boundary, err := p.storage.Query(ctx, &journal.Query{
		Limit:  1,
		Offset: int(p.config.MaxRecords - 1),
	})
	if err != nil {
		return 0, &journal.RetentionError{MaxAge: p.config.MaxAge.String(), Cause: err}
	}
	if len(boundary) == 0 {
		return 0, nil
	}

	deleted, err := p.storage.DeleteBefore(ctx, boundary[0].StartedAt)
	if err != nil {
		return 0, &journal.RetentionError{MaxAge: p.config.MaxAge.String(), Cause: err}
	}

	if deleted > 0 {
		p.logger.Info("pruned journal records by count",
			"deleted", deleted,
			"max_records", p.config.MaxRecords,
		)
	}
	return deleted, nil
}
