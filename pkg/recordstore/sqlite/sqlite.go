// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package sqlite provides a record store persisted in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// Schema is the record table plus the two access paths: per-bucket time
// ranges and the global size ordering.
const Schema = `
CREATE TABLE IF NOT EXISTS size_records (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	bucket_name  TEXT    NOT NULL,
	timestamp    INTEGER NOT NULL,
	total_size   INTEGER NOT NULL,
	object_count INTEGER NOT NULL,
	record_type  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_size_records_bucket_ts
	ON size_records (bucket_name, timestamp, id);
CREATE INDEX IF NOT EXISTS idx_size_records_type_size
	ON size_records (record_type, total_size, timestamp, id);
`

// ErrDatabaseError wraps failures reported by the SQLite driver.
var ErrDatabaseError = errors.New("database error")

// Store is a record store backed by SQLite.
type Store struct {
	db *sql.DB

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the database at dbPath. Use ":memory:" for a
// throwaway store.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, common.ErrPathNotSet
	}

	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabaseError, err)
	}

	// A single connection serialises writers and keeps ":memory:" databases
	// shared across calls.
	database.SetMaxOpenConns(1)

	ctx := context.Background()
	if dbPath != ":memory:" {
		// Enable WAL mode for better concurrency
		if _, err := database.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrDatabaseError, err)
		}
	}

	if _, err := database.ExecContext(ctx, Schema); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %w", ErrDatabaseError, err)
	}

	return &Store{db: database}, nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return common.ErrStoreClosed
	}
	return nil
}

// Append inserts a record row.
func (s *Store) Append(ctx context.Context, record common.SizeRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	recordType := record.RecordType
	if recordType == "" {
		recordType = common.RecordTypeSize
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO size_records (bucket_name, timestamp, total_size, object_count, record_type) VALUES (?, ?, ?, ?, ?)`,
		record.BucketName, record.Timestamp, record.TotalSize, record.ObjectCount, recordType,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return nil
}

// QueryRange selects the records of bucket between from and to inclusive.
func (s *Store) QueryRange(ctx context.Context, bucket string, from, to int64) ([]common.SizeRecord, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `SELECT bucket_name, timestamp, total_size, object_count, record_type
		FROM size_records WHERE bucket_name = ? AND timestamp >= ?`
	args := []any{bucket, from}
	if to > 0 {
		query += ` AND timestamp <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY timestamp ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer rows.Close()

	records := make([]common.SizeRecord, 0)
	for rows.Next() {
		var rec common.SizeRecord
		if err := rows.Scan(&rec.BucketName, &rec.Timestamp, &rec.TotalSize, &rec.ObjectCount, &rec.RecordType); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return records, nil
}

// QueryGlobalMax reads the top row of the size index.
func (s *Store) QueryGlobalMax(ctx context.Context) (common.SizeRecord, error) {
	if err := s.checkOpen(); err != nil {
		return common.SizeRecord{}, err
	}

	var rec common.SizeRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT bucket_name, timestamp, total_size, object_count, record_type
		FROM size_records WHERE record_type = ?
		ORDER BY total_size DESC, timestamp DESC, id DESC LIMIT 1`,
		common.RecordTypeSize,
	).Scan(&rec.BucketName, &rec.Timestamp, &rec.TotalSize, &rec.ObjectCount, &rec.RecordType)

	if errors.Is(err, sql.ErrNoRows) {
		return common.SizeRecord{}, common.ErrNoRecords
	}
	if err != nil {
		return common.SizeRecord{}, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return rec, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
