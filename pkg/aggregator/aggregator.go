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

// Package aggregator turns batches of object notifications into size records.
//
// Every well-formed notification triggers a full recomputation of its bucket
// from the live listing. Running totals are never kept, so lost or repeated
// notifications cannot make the series drift from the bucket's real contents.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/sizing"
)

// Clock returns the current time.
type Clock func() time.Time

// Skipped describes a batch entry that was not processed.
type Skipped struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BatchResult is the outcome of a successfully processed batch.
type BatchResult struct {
	// Records holds one record per processed notification, in batch order.
	Records []common.SizeRecord `json:"records"`

	// Skipped lists the malformed entries that were ignored.
	Skipped []Skipped `json:"skipped,omitempty"`
}

// Latest returns the last record appended for each bucket in the batch.
func (r *BatchResult) Latest() []common.SizeRecord {
	seen := make(map[string]int)
	out := make([]common.SizeRecord, 0)
	for _, rec := range r.Records {
		if i, ok := seen[rec.BucketName]; ok {
			out[i] = rec
			continue
		}
		seen[rec.BucketName] = len(out)
		out = append(out, rec)
	}
	return out
}

// Aggregator recomputes bucket sizes and appends them to a record store.
type Aggregator struct {
	source common.ObjectSource
	store  common.RecordStore
	clock  Clock
	logger adapters.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the clock used to timestamp records.
func WithClock(clock Clock) Option {
	return func(a *Aggregator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger adapters.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an aggregator reading from source and appending to store.
func New(source common.ObjectSource, store common.RecordStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		source: source,
		store:  store,
		clock:  time.Now,
		logger: adapters.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ProcessBatch recomputes the bucket size once per well-formed notification.
//
// Records are staged until every recomputation has succeeded. A listing
// failure fails the whole batch and nothing is appended; the caller retries
// the batch. Malformed entries, including names the source rejects, are
// skipped and reported in the result.
func (a *Aggregator) ProcessBatch(ctx context.Context, batch []common.Notification) (*BatchResult, error) {
	result := &BatchResult{Records: make([]common.SizeRecord, 0, len(batch))}
	last := make(map[string]int64)

	for i, n := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := n.Validate(); err != nil {
			a.logger.Warn(ctx, "Skipping malformed notification",
				adapters.Field{Key: "index", Value: i},
				adapters.Field{Key: "reason", Value: err.Error()})
			result.Skipped = append(result.Skipped, Skipped{Index: i, Reason: err.Error()})
			continue
		}

		summary, _, err := sizing.ComputeBucket(ctx, a.source, n.Bucket)
		if errors.Is(err, common.ErrMalformedNotification) {
			a.logger.Warn(ctx, "Skipping notification rejected by source",
				adapters.Field{Key: "index", Value: i},
				adapters.Field{Key: "bucket", Value: n.Bucket},
				adapters.Field{Key: "reason", Value: err.Error()})
			result.Skipped = append(result.Skipped, Skipped{Index: i, Reason: err.Error()})
			continue
		}
		if err != nil {
			a.logger.Error(ctx, "Failed to recompute bucket size",
				adapters.Field{Key: "bucket", Value: n.Bucket},
				adapters.Field{Key: "key", Value: n.Key},
				adapters.Field{Key: "error", Value: err.Error()})
			return nil, fmt.Errorf("batch entry %d: %w", i, err)
		}

		// keep the per-bucket series non-decreasing if the clock steps back
		ts := a.clock().Unix()
		if prev, ok := last[n.Bucket]; ok && ts < prev {
			ts = prev
		}
		last[n.Bucket] = ts

		result.Records = append(result.Records,
			common.NewSizeRecord(n.Bucket, ts, summary.TotalSize, summary.ObjectCount))
	}

	for _, rec := range result.Records {
		if err := a.store.Append(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to append size record for %s: %w", rec.BucketName, err)
		}
		a.logger.Debug(ctx, "Appended size record",
			adapters.Field{Key: "bucket", Value: rec.BucketName},
			adapters.Field{Key: "timestamp", Value: rec.Timestamp},
			adapters.Field{Key: "total_size", Value: rec.TotalSize},
			adapters.Field{Key: "object_count", Value: rec.ObjectCount})
	}

	return result, nil
}
