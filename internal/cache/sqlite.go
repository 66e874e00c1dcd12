package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure-Go SQLite driver for database/sql.
	_ "github.com/glebarez/sqlite"

	"github.com/cryguy/renderworker/internal/core"
)

const schema = `CREATE TABLE IF NOT EXISTS resources (
	locator    TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	fetched_at INTEGER NOT NULL
)`

// SQLite persists resources across sessions and process restarts. I/O
// errors are logged and treated as misses.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the cache database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening resource cache %q: %w", path, err)
	}
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	return newSQLite(db)
}

// NewSQLiteMemory creates an in-memory SQLite cache for testing.
func NewSQLiteMemory() (*SQLite, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory resource cache: %w", err)
	}
	// Each new connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newSQLite(db)
}

func newSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating resource table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(locator string) ([]byte, bool) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM resources WHERE locator = ?", locator).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			core.Logger().Error("resource cache read failed", "locator", locator, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (s *SQLite) Set(locator string, data []byte) {
	_, err := s.db.Exec(
		`INSERT INTO resources (locator, data, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(locator) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`,
		locator, data, time.Now().Unix(),
	)
	if err != nil {
		core.Logger().Error("resource cache write failed", "locator", locator, "error", err)
	}
}

// Purge drops every entry.
func (s *SQLite) Purge() {
	if _, err := s.db.Exec("DELETE FROM resources"); err != nil {
		core.Logger().Error("resource cache purge failed", "error", err)
	}
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
