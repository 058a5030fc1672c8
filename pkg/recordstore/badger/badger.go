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

// Package badger provides a record store persisted in BadgerDB.
//
// Key layout:
//
//	rec/<bucket>\x00<ts><seq>          primary series, one key per record
//	idx/SIZE_RECORD/<size><ts><seq>    secondary index for the global max
//
// Integers are 8-byte big-endian with the sign bit flipped so byte order
// matches numeric order. The sequence number preserves insertion order
// among records that share a timestamp.
package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

const (
	prefixRecord = "rec/"
	prefixIndex  = "idx/" + common.RecordTypeSize + "/"
	keySequence  = "meta/seq"

	sequenceBandwidth = 1000
)

// Store is a record store backed by BadgerDB.
type Store struct {
	db  *badgerdb.DB
	seq *badgerdb.Sequence

	mu     sync.RWMutex
	closed bool
}

// Config holds the store settings.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory runs BadgerDB without touching disk.
	InMemory bool
}

// Open opens or creates a BadgerDB record store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, common.ErrPathNotSet
	}

	opts := badgerdb.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	seq, err := db.GetSequence([]byte(keySequence), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to allocate sequence: %w", err)
	}

	return &Store{db: db, seq: seq}, nil
}

func encodeInt(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v)^(1<<63))
	return buf
}

func bucketPrefix(bucket string) []byte {
	return append([]byte(prefixRecord+bucket), 0)
}

func recordKey(bucket string, ts int64, seq uint64) []byte {
	key := bucketPrefix(bucket)
	key = append(key, encodeInt(ts)...)
	return binary.BigEndian.AppendUint64(key, seq)
}

func indexKey(size, ts int64, seq uint64) []byte {
	key := []byte(prefixIndex)
	key = append(key, encodeInt(size)...)
	key = append(key, encodeInt(ts)...)
	return binary.BigEndian.AppendUint64(key, seq)
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return common.ErrStoreClosed
	}
	return nil
}

// Append writes the record and its index entry in one transaction.
func (s *Store) Append(ctx context.Context, record common.SizeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	if strings.IndexByte(record.BucketName, 0) >= 0 {
		return &common.ValidationError{Field: "bucket", Message: "bucket cannot contain null bytes"}
	}

	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	value, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(recordKey(record.BucketName, record.Timestamp, n), value); err != nil {
			return err
		}
		return txn.Set(indexKey(record.TotalSize, record.Timestamp, n), value)
	})
}

// QueryRange seeks to the first key at or after from and scans until the
// timestamp passes to.
func (s *Store) QueryRange(ctx context.Context, bucket string, from, to int64) ([]common.SizeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	prefix := bucketPrefix(bucket)
	start := append(append([]byte{}, prefix...), encodeInt(from)...)
	var end []byte
	if to > 0 {
		end = append(append([]byte{}, prefix...), encodeInt(to)...)
	}

	records := make([]common.SizeRecord, 0)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			// compare only prefix+ts so every sequence at ts=to is included
			if end != nil && bytes.Compare(key[:len(end)], end) > 0 {
				break
			}
			var rec common.SizeRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// QueryGlobalMax reads the last entry of the size index.
func (s *Store) QueryGlobalMax(ctx context.Context) (common.SizeRecord, error) {
	if err := ctx.Err(); err != nil {
		return common.SizeRecord{}, err
	}
	if err := s.checkOpen(); err != nil {
		return common.SizeRecord{}, err
	}

	var rec common.SizeRecord
	found := false
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixIndex)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(prefixIndex), bytes.Repeat([]byte{0xFF}, 25)...)
		it.Seek(seek)
		if !it.ValidForPrefix(opts.Prefix) {
			return nil
		}
		found = true
		return it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return common.SizeRecord{}, err
	}
	if !found {
		return common.SizeRecord{}, common.ErrNoRecords
	}
	return rec, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	seqErr := s.seq.Release()
	if err := s.db.Close(); err != nil {
		return err
	}
	return seqErr
}
