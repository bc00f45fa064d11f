package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RecorderConfig contains configuration for the async recorder.
type RecorderConfig struct {
	// Enabled enables journal recording.
	// Default: true
	Enabled bool

	// Buffer is the size of the async write channel. When the buffer
	// is full, new records are dropped and counted rather than
	// blocking the scrape path.
	// Default: 1000
	Buffer int

	// WriteTimeout bounds one storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		Enabled:      true,
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes journal records to storage asynchronously. Record
// returns immediately; a background worker drains the buffer. Close
// flushes whatever is buffered before shutting the worker down.
type Recorder struct {
	storage Storage
	config  *RecorderConfig
	records chan *Record
	dropped atomic.Int64
	wg      sync.WaitGroup
	once    sync.Once
	logger  *slog.Logger
}

// NewRecorder creates a Recorder over storage and starts its worker.
func NewRecorder(storage Storage, config *RecorderConfig) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if config.Buffer <= 0 {
		config.Buffer = DefaultRecorderConfig().Buffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultRecorderConfig().WriteTimeout
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		records: make(chan *Record, config.Buffer),
		logger:  slog.Default().With("component", "journal.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("journal recorder initialized",
		"enabled", config.Enabled,
		"buffer", config.Buffer,
		"write_timeout", config.WriteTimeout.String(),
	)
	return r
}

// Record enqueues one record for storage. It never blocks: when the
// buffer is full the record is dropped and the drop counted.
func (r *Recorder) Record(record *Record) {
	if !r.config.Enabled || record == nil {
		return
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}

	select {
	case r.records <- record:
	default:
		dropped := r.dropped.Add(1)
		r.logger.Warn("journal buffer full, record dropped",
			"request_id", record.RequestID,
			"dropped_total", dropped,
		)
	}
}

// Dropped returns how many records were dropped because the buffer was
// full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records, drains the buffer to storage, and
// waits for the worker to finish.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		close(r.records)
	})
	r.wg.Wait()
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for record := range r.records {
		ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
		err := r.storage.Store(ctx, record)
		cancel()

		if err != nil {
			r.logger.Error("journal write failed",
				"record_id", record.ID,
				"request_id", record.RequestID,
				"error", err,
			)
		}
	}
}
