package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements that create the journal schema.
const Schema = `
CREATE TABLE IF NOT EXISTS journal (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    url TEXT NOT NULL,
    provider TEXT NOT NULL,
    strategy TEXT NOT NULL,
    status_code INTEGER,
    success BOOLEAN NOT NULL,
    error TEXT,
    attempts INTEGER NOT NULL,
    fallback_depth INTEGER NOT NULL,
    response_time_ns INTEGER,
    cost REAL,
    content_length INTEGER,
    over_budget BOOLEAN NOT NULL DEFAULT 0,
    started_at TIMESTAMP NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_started_at ON journal(started_at);
CREATE INDEX IF NOT EXISTS idx_journal_provider ON journal(provider);
CREATE INDEX IF NOT EXISTS idx_journal_strategy ON journal(strategy);
CREATE INDEX IF NOT EXISTS idx_journal_success ON journal(success);
CREATE INDEX IF NOT EXISTS idx_journal_request_id ON journal(request_id);
`

// InsertSchemaVersion records the schema version after initialization.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`
