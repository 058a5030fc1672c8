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

// Package memory provides an in-memory record store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// Store keeps size records in per-bucket slices in insertion order.
type Store struct {
	mu      sync.RWMutex
	buckets map[string][]common.SizeRecord
	max     *common.SizeRecord
	closed  bool
}

// New creates an empty in-memory record store.
func New() *Store {
	return &Store{buckets: make(map[string][]common.SizeRecord)}
}

// Append adds a record to its bucket's series.
func (s *Store) Append(ctx context.Context, record common.SizeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return common.ErrStoreClosed
	}

	s.buckets[record.BucketName] = append(s.buckets[record.BucketName], record)

	// >= keeps the later insertion on equal size and timestamp
	if s.max == nil || record.TotalSize > s.max.TotalSize ||
		(record.TotalSize == s.max.TotalSize && record.Timestamp >= s.max.Timestamp) {
		rec := record
		s.max = &rec
	}
	return nil
}

// QueryRange returns the records of bucket between from and to inclusive.
func (s *Store) QueryRange(ctx context.Context, bucket string, from, to int64) ([]common.SizeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, common.ErrStoreClosed
	}

	out := make([]common.SizeRecord, 0)
	for _, rec := range s.buckets[bucket] {
		if rec.Timestamp < from || (to > 0 && rec.Timestamp > to) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out, nil
}

// QueryGlobalMax returns the largest record seen across all buckets.
func (s *Store) QueryGlobalMax(ctx context.Context) (common.SizeRecord, error) {
	if err := ctx.Err(); err != nil {
		return common.SizeRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return common.SizeRecord{}, common.ErrStoreClosed
	}
	if s.max == nil {
		return common.SizeRecord{}, common.ErrNoRecords
	}
	return *s.max, nil
}

// Close marks the store closed. Records are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.buckets = nil
	s.max = nil
	return nil
}

// Len returns the total number of records held. This is useful for testing.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, records := range s.buckets {
		n += len(records)
	}
	return n
}
