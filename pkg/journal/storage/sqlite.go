package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fetchgate/pkg/journal"
)

// SQLiteConfig contains configuration for the SQLite journal backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long a statement waits on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/journal.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements journal.Storage on SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	config   *SQLiteConfig
	insert   *sql.Stmt
	deleteBy *sql.Stmt
	logger   *slog.Logger
}

// NewSQLiteStorage opens (creating if necessary) the database at the
// configured path and initializes the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, journal.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "journal.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("sqlite journal storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return journal.NewStorageError("sqlite", "enable WAL", err)
		}
	}
	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return journal.NewStorageError("sqlite", "set busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return journal.NewStorageError("sqlite", "create schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return journal.NewStorageError("sqlite", "record schema version", err)
	}

	insert, err := s.db.Prepare(`
		INSERT INTO journal (
			id, request_id, url, provider, strategy, status_code,
			success, error, attempts, fallback_depth, response_time_ns,
			cost, content_length, over_budget, started_at, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return journal.NewStorageError("sqlite", "prepare insert", err)
	}
	s.insert = insert

	deleteBy, err := s.db.Prepare(`DELETE FROM journal WHERE started_at < ?`)
	if err != nil {
		return journal.NewStorageError("sqlite", "prepare delete", err)
	}
	s.deleteBy = deleteBy

	return nil
}

// Store implements journal.Storage.
func (s *SQLiteStorage) Store(ctx context.Context, record *journal.Record) error {
	_, err := s.insert.ExecContext(ctx,
		record.ID,
		record.RequestID,
		record.URL,
		record.Provider,
		record.Strategy,
		record.StatusCode,
		record.Success,
		record.Error,
		record.Attempts,
		record.FallbackDepth,
		record.ResponseTime.Nanoseconds(),
		record.Cost,
		record.ContentLength,
		record.OverBudget,
		record.StartedAt.UTC(),
		record.RecordedAt.UTC(),
	)
	if err != nil {
		return journal.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query implements journal.Storage. Results are ordered by started_at
// descending.
func (s *SQLiteStorage) Query(ctx context.Context, query *journal.Query) ([]*journal.Record, error) {
	if query == nil {
		query = &journal.Query{}
	}

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT id, request_id, url, provider, strategy, status_code,
		       success, error, attempts, fallback_depth, response_time_ns,
		       cost, content_length, over_budget, started_at, recorded_at
		FROM journal`)
	where, args := buildWhere(query)
	sb.WriteString(where)
	sb.WriteString(" ORDER BY started_at DESC")

	if query.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, query.Limit)
	} else if query.Offset > 0 {
		// SQLite requires LIMIT before OFFSET.
		sb.WriteString(" LIMIT -1")
	}
	if query.Offset > 0 {
		sb.WriteString(" OFFSET ?")
		args = append(args, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, journal.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var records []*journal.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, journal.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, journal.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count implements journal.Storage.
func (s *SQLiteStorage) Count(ctx context.Context, query *journal.Query) (int64, error) {
	if query == nil {
		query = &journal.Query{}
	}

	where, args := buildWhere(query)
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM journal"+where, args...).Scan(&count)
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// DeleteBefore implements journal.Storage.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.deleteBy.ExecContext(ctx, cutoff.UTC())
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "delete", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "delete", err)
	}
	return deleted, nil
}

// Close implements journal.Storage.
func (s *SQLiteStorage) Close() error {
	if s.insert != nil {
		s.insert.Close()
	}
	if s.deleteBy != nil {
		s.deleteBy.Close()
	}
	return s.db.Close()
}

func buildWhere(q *journal.Query) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if q.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, q.Since.UTC())
	}
	if q.Until != nil {
		clauses = append(clauses, "started_at <= ?")
		args = append(args, q.Until.UTC())
	}
	if q.Provider != "" {
		clauses = append(clauses, "provider = ?")
		args = append(args, q.Provider)
	}
	if q.Strategy != "" {
		clauses = append(clauses, "strategy = ?")
		args = append(args, q.Strategy)
	}
	if q.Success != nil {
		clauses = append(clauses, "success = ?")
		args = append(args, *q.Success)
	}
	if q.MinCost != nil {
		clauses = append(clauses, "cost >= ?")
		args = append(args, *q.MinCost)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanRecord(rows *sql.Rows) (*journal.Record, error) {
	var r journal.Record
	var responseTimeNS int64
	var errMsg sql.NullString

	err := rows.Scan(
		&r.ID,
		&r.RequestID,
		&r.URL,
		&r.Provider,
		&r.Strategy,
		&r.StatusCode,
		&r.Success,
		&errMsg,
		&r.Attempts,
		&r.FallbackDepth,
		&responseTimeNS,
		&r.Cost,
		&r.ContentLength,
		&r.OverBudget,
		&r.StartedAt,
		&r.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ResponseTime = time.Duration(responseTimeNS)
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	return &r, nil
}
