// Package db implements the SQLite store for the vault. It is the only
// package that touches the database; every other component goes through the
// methods on DB.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// Writes retry on a locked database with exponential backoff rather
	// than surfacing SQLITE_BUSY to the caller.
	lockRetries   = 5
	lockBaseDelay = 100 * time.Millisecond
)

// DB wraps the database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens an existing database and runs any pending migrations.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found at %s: run 'vault init' first", path)
	}
	return open(path)
}

// Initialize creates the database file if absent and runs all migrations.
// Calling it on an up-to-date database is a no-op.
func Initialize(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return open(path)
}

func open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Busy timeout as first-line protection; withRetry covers the rest
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")

	db := &DB{conn: conn, path: path}

	if err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Conn returns the underlying *sql.DB for read-only inspection in tests.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// SetMaxOpenConns limits the connection pool. Long-running processes set
// this to 1 to match SQLite's single-writer semantics.
func (db *DB) SetMaxOpenConns(n int) {
	db.conn.SetMaxOpenConns(n)
}

// isLocked reports whether err is SQLite's locked/busy condition.
func isLocked(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

// withRetry executes fn, retrying with exponential backoff while the
// database is locked by another writer. The last error is returned once the
// retry budget is exhausted.
func withRetry(fn func() error) error {
	var lastErr error
	delay := lockBaseDelay
	for i := 0; i < lockRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isLocked(err) {
			return err
		}
		lastErr = err
		time.Sleep(delay)
		delay *= 2
	}
	return lastErr
}

// now returns the canonical stored timestamp.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// parseTime parses a stored timestamp, tolerating second-precision rows
// written by older versions.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999", s); err == nil {
		return t
	}
	return time.Time{}
}
