package providers

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// ewmaAlpha is the weight of the newest sample in the rolling response
// time average and variance. Higher values react faster to latency
// shifts at the cost of more noise.
const ewmaAlpha = 0.3

// MetricsRecorder accumulates request outcomes for one provider. The
// three counters are independent atomics; the rolling average, variance,
// and cost cells share one small mutex because they are updated
// together. No invariant spans a single update boundary other than
// successes+failures == requests, which holds after each complete
// update.
type MetricsRecorder struct {
	requests  atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64

	mu        sync.Mutex
	seeded    bool
	avgSec    float64
	varSec    float64
	totalCost float64
}

// NewMetricsRecorder creates an empty recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordSuccess records one successful attempt: its response time feeds
// the rolling average and variance, and cost accrues to the total.
func (m *MetricsRecorder) RecordSuccess(elapsed time.Duration, cost float64) {
	m.requests.Add(1)
	m.successes.Add(1)

	sample := elapsed.Seconds()

	m.mu.Lock()
	if !m.seeded {
		m.avgSec = sample
		m.varSec = 0
		m.seeded = true
	} else {
		// Exponentially weighted mean and variance (West 1979).
		diff := sample - m.avgSec
		incr := ewmaAlpha * diff
		m.avgSec += incr
		m.varSec = (1 - ewmaAlpha) * (m.varSec + diff*incr)
	}
	m.totalCost += cost
	m.mu.Unlock()
}

// RecordFailure records one failed attempt. Failures do not feed the
// response time average: a fast error says nothing about how fast the
// provider serves real content.
func (m *MetricsRecorder) RecordFailure() {
	m.requests.Add(1)
	m.failures.Add(1)
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *MetricsRecorder) Snapshot() MetricsSnapshot {
	requests := m.requests.Load()
	successes := m.successes.Load()
	failures := m.failures.Load()

	var rate float64
	if requests > 0 {
		rate = float64(successes) / float64(requests)
	}

	m.mu.Lock()
	avg := m.avgSec
	variance := m.varSec
	cost := m.totalCost
	m.mu.Unlock()

	var jitter float64
	if variance > 0 {
		stddev := math.Sqrt(variance)
		if avg+stddev > 0 {
			jitter = stddev / (avg + stddev)
		}
	}

	return MetricsSnapshot{
		RequestCount:       requests,
		SuccessCount:       successes,
		FailureCount:       failures,
		SuccessRate:        rate,
		AvgResponseTime:    time.Duration(avg * float64(time.Second)),
		ResponseTimeJitter: jitter,
		TotalCost:          cost,
	}
}

// Reset zeroes all counters and rolling cells. Operator action only.
func (m *MetricsRecorder) Reset() {
	m.mu.Lock()
	m.requests.Store(0)
	m.successes.Store(0)
	m.failures.Store(0)
	m.seeded = false
	m.avgSec = 0
	m.varSec = 0
	m.totalCost = 0
	m.mu.Unlock()
}
