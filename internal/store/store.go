// Package store provides the local durable record store for sitesync.
//
// The store is an embedded SQLite database (ncruces/go-sqlite3, no cgo)
// holding two disjoint collections: reports and modules. WAL mode keeps
// concurrent readers safe during writes; database/sql serializes the
// rest. This is the single source of truth for the application; the
// remote archive is strictly additive on top of it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned by Get operations when no record has the
// requested id.
var ErrNotFound = errors.New("record not found")

// Store wraps the SQLite connection for the two record collections.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a store at the given path. The parent directory is
// created if needed; a missing database file is created along with the
// schema. The caller must Close when done.
//
// Example:
//
//	st, err := store.Open(".sitesync/records.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	st := &Store{conn: conn, path: path}

	if _, err := st.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := st.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := st.InitSchema(); err != nil {
		_ = st.Close()
		return nil, err
	}

	return st, nil
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates the collection tables if they don't exist.
// Idempotent, safe to call multiple times.
func (s *Store) InitSchema() error {
	return s.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (s *Store) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		project_name TEXT NOT NULL,
		project_number TEXT,
		report_number TEXT,
		visit_date TEXT,
		visit_time TEXT,
		location TEXT,
		author TEXT,
		inspector TEXT,
		distribution TEXT,  -- JSON array of recipients
		deviations TEXT,    -- JSON array of deviations (photos inline)
		status TEXT NOT NULL DEFAULT 'Draft',
		updated_at INTEGER NOT NULL DEFAULT 0  -- epoch millis
	);

	CREATE TABLE IF NOT EXISTS modules (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		content TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT 0  -- epoch millis
	);

	CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
	CREATE INDEX IF NOT EXISTS idx_reports_updated ON reports(updated_at);
	CREATE INDEX IF NOT EXISTS idx_modules_category ON modules(category);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}
