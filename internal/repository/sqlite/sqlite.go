// Package sqlite implements the repository interfaces on SQLite via the
// pure-Go modernc driver (no CGo, single-file database, ":memory:" in tests).
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "modernc.org/sqlite"
	lib "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB pool and provides the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and sets up the schema.
// Pass ":memory:" for an in-memory database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
//
// COLLATE NOCASE on email and username makes both the UNIQUE constraints and
// plain equality lookups case-insensitive; the constraint, not the service
// pre-check, is the authoritative uniqueness guard.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
			username      TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL,
			is_active     INTEGER NOT NULL DEFAULT 1,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			id               TEXT PRIMARY KEY,
			sample_id        TEXT NOT NULL UNIQUE,
			sample_type      TEXT NOT NULL,
			subject_id       TEXT NOT NULL,
			collection_date  DATETIME NOT NULL,
			status           TEXT NOT NULL DEFAULT 'collected',
			storage_location TEXT NOT NULL DEFAULT '',
			user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_samples_user_id    ON samples(user_id);
		CREATE INDEX IF NOT EXISTS idx_samples_subject_id ON samples(subject_id);
		CREATE INDEX IF NOT EXISTS idx_samples_status     ON samples(status);
		CREATE INDEX IF NOT EXISTS idx_samples_type       ON samples(sample_type);
	`)
	if err != nil {
		return fmt.Errorf("creating samples table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure from the driver. Callers translate it to Conflict.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == lib.SQLITE_CONSTRAINT_UNIQUE ||
		se.Code() == lib.SQLITE_CONSTRAINT_PRIMARYKEY
}
