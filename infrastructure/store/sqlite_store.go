// Package store provides RecordStore implementations backing the request
// recorder: a SQLite store for persistence and an in-memory store for
// tests and ephemeral runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sentinelworks/splgen/internal/domain"
	"github.com/sentinelworks/splgen/internal/ports"
)

// SQLiteStore persists request records in a SQLite database. Writes are
// serialized with a mutex since the driver allows one writer at a time.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

var _ ports.RecordStore = (*SQLiteStore)(nil)

const schema = `CREATE TABLE IF NOT EXISTS request_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	identity TEXT NOT NULL,
	channel TEXT NOT NULL,
	request_text TEXT NOT NULL,
	query TEXT,
	success INTEGER NOT NULL,
	error_kind TEXT,
	latency_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_request_records_identity ON request_records (identity, created_at);`

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize store schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append inserts one record. Records are append-only: nothing in this
// store updates or deletes them.
func (s *SQLiteStore) Append(ctx context.Context, record domain.RequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO request_records
		(identity, channel, request_text, query, success, error_kind, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Identity,
		record.Channel,
		record.RequestText,
		nullable(record.Query),
		boolToInt(record.Success),
		nullable(record.ErrorKind),
		record.Latency.Milliseconds(),
		record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Stats aggregates counts for one identity. The since cutoff bounds
// RecentCount; callers typically pass now minus seven days.
func (s *SQLiteStore) Stats(ctx context.Context, identity string, since time.Time) (domain.RecordStats, error) {
	var stats domain.RecordStats

	row := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(success), 0),
		COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM request_records WHERE identity = ?`,
		since.UnixNano(), identity)

	if err := row.Scan(&stats.Total, &stats.Successful, &stats.RecentCount); err != nil {
		return domain.RecordStats{}, fmt.Errorf("query stats: %w", err)
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Total)
	}
	return stats, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
