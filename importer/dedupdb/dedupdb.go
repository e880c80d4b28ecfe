// Package dedupdb persists the deduplication key set in a SQLite database,
// so repeated imports of overlapping date ranges across process runs never
// double-count. Each stored key remembers the run that first emitted it and
// when, which makes it possible to audit where an entry came from.
package dedupdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mekanics/beanport/importer"
)

const schema = `
CREATE TABLE IF NOT EXISTS dedup_keys (
	key        TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	first_seen TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL
);
`

// Store is a SQLite-backed dedup key store. It is scoped to a single caller;
// there is no concurrent import pipeline to coordinate.
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens (and if necessary creates) the store at path. Every Open starts
// a new run; keys saved through this store are attributed to it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{db: db, runID: uuid.NewString()}
	if _, err := db.Exec(`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`, s.runID, time.Now().UTC()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunID returns the identifier of the current run.
func (s *Store) RunID() string { return s.runID }

// Load reads all persisted keys into a KeySet.
func (s *Store) Load(ctx context.Context) (*importer.KeySet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM dedup_keys`)
	if err != nil {
		return nil, fmt.Errorf("failed to load dedup keys: %w", err)
	}
	defer rows.Close()

	set := importer.NewKeySet()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan dedup key: %w", err)
		}
		set.Add(key)
	}
	return set, rows.Err()
}

// Save persists the keys, attributing newly seen ones to the current run.
// Keys already present are left untouched, so Save is safe to call with the
// full key set after every import.
func (s *Store) Save(ctx context.Context, keys []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dedup_keys (key, run_id, first_seen) VALUES (?, ?, ?) ON CONFLICT (key) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key, s.runID, now); err != nil {
			return fmt.Errorf("failed to save dedup key: %w", err)
		}
	}
	return tx.Commit()
}
