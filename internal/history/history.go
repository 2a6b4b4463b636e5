// Package history provides SQLite-based storage of fired expansions.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"expandd/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS expansions (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    "trigger"       TEXT NOT NULL,
    insert_len      INTEGER NOT NULL,
    failures        INTEGER NOT NULL DEFAULT 0,
    duration_us     INTEGER NOT NULL,
    timestamp_ns    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_expansions_timestamp ON expansions(timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_expansions_trigger ON expansions("trigger");
`

// Store represents the SQLite expansion history.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Stats summarizes recorded expansions.
type Stats struct {
	TotalExpansions int64
	TotalFailures   int64
	FirstExpansion  time.Time
	LastExpansion   time.Time
}

// TriggerCount is a per-trigger usage aggregate.
type TriggerCount struct {
	Trigger string
	Count   int64
}

// Entry is a single recorded expansion.
type Entry struct {
	ID        int64
	Trigger   string
	InsertLen int
	Failures  int
	Duration  time.Duration
	Timestamp time.Time
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordExpansion persists one fired expansion. Errors are logged, not
// returned; history must never interfere with typing.
func (s *Store) RecordExpansion(trigger string, insertLen, failures int, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO expansions ("trigger", insert_len, failures, duration_us, timestamp_ns)
		VALUES (?, ?, ?, ?, ?)`,
		trigger, insertLen, failures, took.Microseconds(), time.Now().UnixNano(),
	)
	if err != nil {
		logging.Warn("failed to record expansion", "trigger", trigger, "error", err)
	}
}

// Stats returns aggregate counts over all recorded expansions.
func (s *Store) Stats() (*Stats, error) {
	var (
		stats   Stats
		firstNs sql.NullInt64
		lastNs  sql.NullInt64
	)

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(failures), 0),
		       MIN(timestamp_ns),
		       MAX(timestamp_ns)
		FROM expansions`).Scan(&stats.TotalExpansions, &stats.TotalFailures, &firstNs, &lastNs)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	if firstNs.Valid {
		stats.FirstExpansion = time.Unix(0, firstNs.Int64)
	}
	if lastNs.Valid {
		stats.LastExpansion = time.Unix(0, lastNs.Int64)
	}

	return &stats, nil
}

// TopTriggers returns the most frequently fired triggers, most used first.
func (s *Store) TopTriggers(limit int) ([]TriggerCount, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT "trigger", COUNT(*) AS n
		FROM expansions
		GROUP BY "trigger"
		ORDER BY n DESC, "trigger" ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top triggers: %w", err)
	}
	defer rows.Close()

	var out []TriggerCount
	for rows.Next() {
		var tc TriggerCount
		if err := rows.Scan(&tc.Trigger, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, tc)
	}

	return out, rows.Err()
}

// Recent returns the most recent expansions, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, "trigger", insert_len, failures, duration_us, timestamp_ns
		FROM expansions
		ORDER BY timestamp_ns DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			durationUs int64
			tsNs       int64
		)
		if err := rows.Scan(&e.ID, &e.Trigger, &e.InsertLen, &e.Failures, &durationUs, &tsNs); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Duration = time.Duration(durationUs) * time.Microsecond
		e.Timestamp = time.Unix(0, tsNs)
		out = append(out, e)
	}

	return out, rows.Err()
}

// Prune deletes entries older than the given age. Returns the number of
// rows removed.
func (s *Store) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixNano()

	result, err := s.db.Exec(`DELETE FROM expansions WHERE timestamp_ns < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return result.RowsAffected()
}
