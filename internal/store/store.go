// Package store persists parsed records in SQLite.
//
// Every ingest of a source (file or stream) becomes a batch. Valid lines are
// stored with their raw text and their decomposed fields; invalid lines are
// only counted on the batch.
//
// Usage Example:
//
//	st, _ := store.Open(".msfcomp/records.db")
//	defer st.Close()
//
//	results, _, _ := scanner.Collect(ctx, "data/a.msf")
//	batch, _ := st.ReplaceSource(ctx, "data/a.msf", results)
//
//	recs, _ := st.RecordsByID(ctx, "NAME")
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"msfcomp/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a SQLite-backed record store.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	logging.Store("Opening record store at path: %s", path)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Database schema initialized successfully")

	return s, nil
}

func (s *Store) initialize() error {
	batchTable := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		valid INTEGER NOT NULL DEFAULT 0,
		invalid INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_batches_source ON batches(source);
	`

	recordTable := `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		record_id TEXT NOT NULL,
		line INTEGER NOT NULL,
		raw TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_record_id ON records(record_id);
	CREATE INDEX IF NOT EXISTS idx_records_batch ON records(batch_id);
	`

	fieldTable := `
	CREATE TABLE IF NOT EXISTS fields (
		record_rowid INTEGER NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		kind TEXT NOT NULL,
		PRIMARY KEY (record_rowid, key)
	);
	CREATE INDEX IF NOT EXISTS idx_fields_key ON fields(key);
	`

	for _, ddl := range []string{batchTable, recordTable, fieldTable} {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
