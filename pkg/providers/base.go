package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// DefaultMinContentLength is the body-length floor applied when a
// provider is constructed without one. Relay backends in particular
// return technically-200 placeholder bodies on soft failure, and those
// are shorter than any real document.
const DefaultMinContentLength = 256

// Base supplies the bookkeeping shared by every concrete provider:
// identity, capability descriptor, rolling metrics, response validation,
// panic containment, and health-verdict composition. Concrete providers
// embed it and route each fetch attempt through Instrument.
type Base struct {
	name    string
	caps    Capabilities
	minLen  int
	metrics *MetricsRecorder
	logger  *slog.Logger
}

// NewBase creates the shared provider core. A non-positive
// minContentLength falls back to DefaultMinContentLength.
func NewBase(name string, caps Capabilities, minContentLength int) *Base {
	if minContentLength <= 0 {
		minContentLength = DefaultMinContentLength
	}
	return &Base{
		name:    name,
		caps:    caps,
		minLen:  minContentLength,
		metrics: NewMetricsRecorder(),
		logger:  slog.Default().With("component", "providers."+name),
	}
}

// Name returns the provider's registry name.
func (b *Base) Name() string {
	return b.name
}

// Capabilities returns the immutable capability descriptor.
func (b *Base) Capabilities() Capabilities {
	return b.caps
}

// Metrics returns a snapshot of the rolling metrics.
func (b *Base) Metrics() MetricsSnapshot {
	return b.metrics.Snapshot()
}

// ResetMetrics zeroes the rolling metrics.
func (b *Base) ResetMetrics() {
	b.metrics.Reset()
}

// Logger returns the provider-scoped logger.
func (b *Base) Logger() *slog.Logger {
	return b.logger
}

// Instrument runs one fetch attempt through the shared bookkeeping:
// timing, panic containment, response validation, and exactly one
// metrics update. Concrete providers implement the raw fetch in fn and
// leave ResponseTime, Provider, Cost, and the request ID to Instrument.
func (b *Base) Instrument(ctx context.Context, req *Request, fn func() (*Result, error)) (res *Result, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			b.metrics.RecordFailure()
			b.logger.ErrorContext(ctx, "panic during fetch",
				"url", req.URL,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = nil
			err = NewFetchError(b.name, 0, fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	res, err = fn()
	elapsed := time.Since(start)

	if err == nil && res == nil {
		err = NewFetchError(b.name, 0, "provider returned no result", nil)
	}
	if err == nil {
		err = validateResponse(b.name, req, res, b.minLen)
	}

	if err != nil {
		b.metrics.RecordFailure()
		err = b.classify(ctx, req, err)
		b.logger.DebugContext(ctx, "fetch attempt failed",
			"url", req.URL,
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	b.metrics.RecordSuccess(elapsed, b.caps.CostPerRequest)

	res.Provider = b.name
	res.ResponseTime = elapsed
	res.Cost = b.caps.CostPerRequest
	res.Metadata.RequestID = req.ID
	if res.Metadata.RequestID == "" {
		res.Metadata.RequestID = uuid.New().String()
	}
	if res.Metadata.FinalURL == "" {
		res.Metadata.FinalURL = req.URL
	}

	b.logger.DebugContext(ctx, "fetch attempt succeeded",
		"url", req.URL,
		"status", res.StatusCode,
		"elapsed_ms", elapsed.Milliseconds(),
		"content_length", len(res.Content),
	)
	return res, nil
}

// classify rewrites deadline failures as TimeoutError so the engine and
// callers can distinguish them. Other errors pass through unchanged.
func (b *Base) classify(ctx context.Context, req *Request, err error) error {
	var te *TimeoutError
	if errors.As(err, &te) {
		return err
	}
	if isDeadline(ctx, err) {
		return NewTimeoutError(b.name, req.Options.Timeout, err)
	}
	return err
}

func isDeadline(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ComposeHealth turns an availability probe into a soft-fail verdict:
// probe errors and panics become Healthy=false with a descriptive
// message, never a propagated failure.
func (b *Base) ComposeHealth(ctx context.Context, probe func(context.Context) error) HealthStatus {
	status := HealthStatus{LastCheck: time.Now()}

	if err := b.runProbe(ctx, probe); err != nil {
		status.Healthy = false
		status.Message = (&ProbeError{Provider: b.name, Cause: err}).Error()
		return status
	}

	status.Healthy = true
	status.Message = "available"
	return status
}

func (b *Base) runProbe(ctx context.Context, probe func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panic: %v", r)
		}
	}()
	return probe(ctx)
}
