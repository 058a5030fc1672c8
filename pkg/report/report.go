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

// Package report exports the recent size history of a bucket together with
// the all-time maximum observed across every bucket.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// DefaultWindow is the lookback window used when none is configured.
const DefaultWindow = 10 * time.Second

// Point is one observation in the series.
type Point struct {
	Timestamp int64 `json:"timestamp"`
	TotalSize int64 `json:"total_size"`
}

// Report is the structured series handed to a Renderer.
type Report struct {
	Bucket string  `json:"bucket"`
	From   int64   `json:"from"`
	To     int64   `json:"to"`
	Points []Point `json:"points"`

	// MaxSize is the greatest total size ever recorded, 0 for an empty store.
	MaxSize int64 `json:"max_size"`

	// Empty is set when no record falls inside the window.
	Empty bool `json:"empty"`
}

// Reporter builds reports from a record store.
type Reporter struct {
	store  common.RecordStore
	window time.Duration
	clock  func() time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithWindow sets the lookback window. Non-positive values are ignored.
func WithWindow(window time.Duration) Option {
	return func(r *Reporter) {
		if window > 0 {
			r.window = window
		}
	}
}

// WithClock sets the clock the window is measured from.
func WithClock(clock func() time.Time) Option {
	return func(r *Reporter) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// New creates a reporter over store.
func New(store common.RecordStore, opts ...Option) *Reporter {
	r := &Reporter{store: store, window: DefaultWindow, clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Window returns the configured lookback window.
func (r *Reporter) Window() time.Duration {
	return r.window
}

// Build returns the points of bucket recorded in the window ending now. An
// empty window is reported through Empty, never as an error.
func (r *Reporter) Build(ctx context.Context, bucket string) (*Report, error) {
	now := r.clock().Unix()
	from := now - int64(r.window/time.Second)

	records, err := r.store.QueryRange(ctx, bucket, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	var maxSize int64
	top, err := r.store.QueryGlobalMax(ctx)
	switch {
	case err == nil:
		maxSize = top.TotalSize
	case errors.Is(err, common.ErrNoRecords):
	default:
		return nil, fmt.Errorf("failed to query maximum: %w", err)
	}

	points := make([]Point, 0, len(records))
	for _, rec := range records {
		points = append(points, Point{Timestamp: rec.Timestamp, TotalSize: rec.TotalSize})
	}

	return &Report{
		Bucket:  bucket,
		From:    from,
		To:      now,
		Points:  points,
		MaxSize: maxSize,
		Empty:   len(points) == 0,
	}, nil
}
