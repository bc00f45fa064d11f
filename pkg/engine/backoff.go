package engine

import (
	"context"
	"time"
)

// Backoff default bounds.
const (
	DefaultBackoffBase = 500 * time.Millisecond
	DefaultBackoffMax  = 10 * time.Second
)

// SleepFunc waits for d or until ctx is cancelled. The engine's retry
// loop calls it between attempts; tests inject a recording
// implementation so the backoff schedule runs without wall-clock
// waits.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepWithContext is the production SleepFunc.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff produces the inter-attempt delay schedule: base doubled per
// failed attempt, capped at max.
type Backoff struct {
	// Base is the delay after the first failed attempt.
	Base time.Duration

	// Max caps the delay regardless of attempt count.
	Max time.Duration
}

// Delay returns the wait after the attempt-th failure (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = DefaultBackoffBase
	}
	max := b.Max
	if max <= 0 {
		max = DefaultBackoffMax
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
