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

package common

import (
	"context"
	"io"
)

// ObjectSource is the common interface for all object storage backends.
type ObjectSource interface {
	// Configure sets up the backend with the necessary credentials and settings.
	Configure(settings map[string]string) error

	// List returns every object in the bucket in listing order.
	List(ctx context.Context, bucket string) ([]ObjectRef, error)

	// Delete removes an object. A missing key returns an error matching
	// ErrObjectNotFound.
	Delete(ctx context.Context, bucket, key string) error

	// Put stores an object, replacing any existing object with the same key.
	Put(ctx context.Context, bucket, key string, data io.Reader) error
}

// RecordStore is the append-only time series of size records.
// Implementations must be safe for concurrent use.
type RecordStore interface {
	// Append adds a record to the end of its bucket's series. Timestamps are
	// not validated; insertion order is preserved.
	Append(ctx context.Context, record SizeRecord) error

	// QueryRange returns the records of bucket with from <= timestamp <= to,
	// ascending by timestamp and by insertion order among equal timestamps.
	// A non-positive to means no upper bound.
	QueryRange(ctx context.Context, bucket string, from, to int64) ([]SizeRecord, error)

	// QueryGlobalMax returns the record with the greatest total size across
	// all buckets, ties resolved by the most recent timestamp. It returns
	// ErrNoRecords when the store is empty.
	QueryGlobalMax(ctx context.Context) (SizeRecord, error)

	// Close releases the resources held by the store.
	Close() error
}
