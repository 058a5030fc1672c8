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

// Package monitor raises the size alarm and runs the cleanup policy when a
// bucket grows past its threshold.
package monitor

import (
	"context"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/cleanup"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// Evictor is the cleanup entry point the monitor triggers.
type Evictor interface {
	Run(ctx context.Context, bucket string, threshold int64, include cleanup.Predicate) (*cleanup.Outcome, error)
}

// Monitor compares new records against a fixed threshold.
type Monitor struct {
	evictor   Evictor
	threshold int64
	include   cleanup.Predicate
	logger    adapters.Logger
}

// New creates a monitor. A threshold of zero or less disables it.
func New(evictor Evictor, threshold int64, include cleanup.Predicate, logger adapters.Logger) *Monitor {
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Monitor{evictor: evictor, threshold: threshold, include: include, logger: logger}
}

// Enabled reports whether the monitor has a threshold.
func (m *Monitor) Enabled() bool {
	return m.threshold > 0
}

// Threshold returns the configured threshold in bytes.
func (m *Monitor) Threshold() int64 {
	return m.threshold
}

// Observe runs cleanup when rec.TotalSize is strictly greater than the
// threshold. It returns a nil outcome when the alarm does not fire.
func (m *Monitor) Observe(ctx context.Context, rec common.SizeRecord) (*cleanup.Outcome, error) {
	if !m.Enabled() || rec.TotalSize <= m.threshold {
		return nil, nil
	}

	m.logger.Warn(ctx, "Bucket size above threshold",
		adapters.Field{Key: "bucket", Value: rec.BucketName},
		adapters.Field{Key: "total_size", Value: rec.TotalSize},
		adapters.Field{Key: "threshold", Value: m.threshold})

	return m.evictor.Run(ctx, rec.BucketName, m.threshold, m.include)
}
