package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"msfcomp/internal/logging"
	"msfcomp/internal/record"
	"msfcomp/internal/scan"

	"github.com/google/uuid"
)

// Batch describes one ingest of a source.
type Batch struct {
	ID        string    `json:"id" yaml:"id"`
	Source    string    `json:"source" yaml:"source"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Valid     int       `json:"valid" yaml:"valid"`
	Invalid   int       `json:"invalid" yaml:"invalid"`
}

// SaveBatch stores the valid results as a new batch for source.
func (s *Store) SaveBatch(ctx context.Context, source string, results []scan.Result) (Batch, error) {
	return s.withTx(ctx, func(tx *sql.Tx) (Batch, error) {
		return saveBatch(ctx, tx, source, results)
	})
}

// ReplaceSource drops earlier batches for source and stores results as its
// only batch, atomically.
func (s *Store) ReplaceSource(ctx context.Context, source string, results []scan.Result) (Batch, error) {
	return s.withTx(ctx, func(tx *sql.Tx) (Batch, error) {
		removed, err := deleteSource(ctx, tx, source)
		if err != nil {
			return Batch{}, err
		}
		if removed > 0 {
			logging.StoreDebug("Replacing %d earlier batches for %s", removed, source)
		}
		return saveBatch(ctx, tx, source, results)
	})
}

// DeleteSource removes every batch for source and returns how many were removed.
func (s *Store) DeleteSource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := deleteSource(ctx, tx, source)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return n, nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) (Batch, error)) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logging.StoreError("Failed to start batch transaction: %v", err)
		return Batch{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	b, err := fn(tx)
	if err != nil {
		return Batch{}, err
	}
	if err := tx.Commit(); err != nil {
		logging.StoreError("Failed to commit batch transaction: %v", err)
		return Batch{}, fmt.Errorf("failed to commit batch: %w", err)
	}
	return b, nil
}

func saveBatch(ctx context.Context, tx *sql.Tx, source string, results []scan.Result) (Batch, error) {
	b := Batch{
		ID:        uuid.NewString(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	log := logging.WithRequestID(logging.CategoryStore, b.ID).WithField("source", source)

	for _, r := range results {
		if !r.Valid() {
			b.Invalid++
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO records (batch_id, record_id, line, raw) VALUES (?, ?, ?, ?)`,
			b.ID, r.Record.ID(), r.Line, r.Text,
		)
		if err != nil {
			log.Error("Failed to insert record at line %d: %v", r.Line, err)
			return Batch{}, fmt.Errorf("failed to insert record %s:%d: %w", source, r.Line, err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return Batch{}, fmt.Errorf("failed to read record rowid: %w", err)
		}
		for _, key := range r.Record.Keys() {
			v, _ := r.Record.Value(key)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO fields (record_rowid, key, value, kind) VALUES (?, ?, ?, ?)`,
				rowid, key, string(v), v.Kind().String(),
			); err != nil {
				return Batch{}, fmt.Errorf("failed to insert field %s: %w", key, err)
			}
		}
		b.Valid++
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches (id, source, created_at, valid, invalid) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.Source, b.CreatedAt.UnixNano(), b.Valid, b.Invalid,
	); err != nil {
		return Batch{}, fmt.Errorf("failed to insert batch: %w", err)
	}

	log.Info("Stored batch: %d valid, %d invalid", b.Valid, b.Invalid)
	return b, nil
}

func deleteSource(ctx context.Context, tx *sql.Tx, source string) (int, error) {
	stmts := []string{
		`DELETE FROM fields WHERE record_rowid IN (
			SELECT r.id FROM records r JOIN batches b ON r.batch_id = b.id WHERE b.source = ?)`,
		`DELETE FROM records WHERE batch_id IN (SELECT id FROM batches WHERE source = ?)`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, source); err != nil {
			return 0, fmt.Errorf("failed to delete records for %s: %w", source, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE source = ?`, source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete batches for %s: %w", source, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// RecordsByID returns every stored record whose id matches, oldest first.
// Records are rebuilt from their raw line.
func (s *Store) RecordsByID(ctx context.Context, recordID string) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT raw FROM records WHERE record_id = ? ORDER BY id`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := record.Parse(raw)
		if err != nil {
			// Only valid lines are stored, so this means the row was edited by hand
			logging.StoreError("Stored record %q no longer parses: %v", recordID, err)
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Batches lists all batches, newest first.
func (s *Store) Batches(ctx context.Context) ([]Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, created_at, valid, invalid FROM batches ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		var created int64
		if err := rows.Scan(&b.ID, &b.Source, &created, &b.Valid, &b.Invalid); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// Counts returns the number of stored records and fields.
func (s *Store) Counts(ctx context.Context) (records, fields int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&records); err != nil {
		return 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fields`).Scan(&fields); err != nil {
		return 0, 0, fmt.Errorf("failed to count fields: %w", err)
	}
	return records, fields, nil
}
