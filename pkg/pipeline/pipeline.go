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

// Package pipeline chains aggregation, threshold monitoring and cleanup for
// notification batches, running batches concurrently on a worker pool.
package pipeline

import (
	"context"
	"time"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/aggregator"
	"github.com/jeremyhahn/go-objwatch/pkg/cleanup"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/metrics"
	"github.com/jeremyhahn/go-objwatch/pkg/monitor"
)

// maxEvictionRounds bounds how many evict-and-recompute rounds a single batch
// may trigger when evictions are followed.
const maxEvictionRounds = 64

// Observer reacts to a freshly appended record.
type Observer interface {
	Observe(ctx context.Context, rec common.SizeRecord) (*cleanup.Outcome, error)
}

// Result is the outcome of one batch.
type Result struct {
	ID       string               `json:"id"`
	Records  []common.SizeRecord  `json:"records"`
	Skipped  []aggregator.Skipped `json:"skipped,omitempty"`
	Outcomes []*cleanup.Outcome   `json:"outcomes,omitempty"`
	Err      error                `json:"-"`
}

// Config contains configuration for the pipeline.
type Config struct {
	Aggregator *aggregator.Aggregator
	Monitor    Observer
	Metrics    *metrics.Metrics
	Logger     adapters.Logger

	// FollowEvictions feeds a removed notification back into the batch after
	// every eviction, so the series reflects the deletion immediately. Leave
	// it unset when the object source already reports its own deletions.
	FollowEvictions bool

	WorkerCount int
	QueueSize   int
}

// Pipeline processes notification batches.
type Pipeline struct {
	aggregator *aggregator.Aggregator
	monitor    Observer
	metrics    *metrics.Metrics
	logger     adapters.Logger
	follow     bool
	pool       *WorkerPool
}

// New creates a pipeline. The worker pool is created but not started.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = adapters.NewNoOpLogger()
	}
	if cfg.Monitor == nil {
		cfg.Monitor = monitor.New(nil, 0, nil, cfg.Logger)
	}
	p := &Pipeline{
		aggregator: cfg.Aggregator,
		monitor:    cfg.Monitor,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		follow:     cfg.FollowEvictions,
	}
	p.pool = NewWorkerPool(WorkerPoolConfig{
		WorkerCount: cfg.WorkerCount,
		QueueSize:   cfg.QueueSize,
		Logger:      cfg.Logger,
	})
	return p
}

// Start launches the workers.
func (p *Pipeline) Start() {
	p.pool.Start(func(ctx context.Context, job Job) Result {
		res := p.Process(ctx, job.Batch)
		res.ID = job.ID
		return res
	})
}

// Submit queues a batch and returns its id.
func (p *Pipeline) Submit(batch []common.Notification) (string, error) {
	return p.pool.Submit(batch)
}

// Results returns the channel of asynchronous batch results.
func (p *Pipeline) Results() <-chan Result {
	return p.pool.Results()
}

// Shutdown drains queued batches and stops the workers.
func (p *Pipeline) Shutdown() {
	p.pool.Shutdown()
}

// Stats returns worker pool counters.
func (p *Pipeline) Stats() WorkerPoolMetrics {
	return p.pool.GetMetrics()
}

// Consume submits each notification from events as its own batch until
// events is closed or ctx is done.
func (p *Pipeline) Consume(ctx context.Context, events <-chan common.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-events:
			if !ok {
				return
			}
			if _, err := p.Submit([]common.Notification{n}); err != nil {
				p.logger.Warn(ctx, "Failed to submit notification",
					adapters.Field{Key: "bucket", Value: n.Bucket},
					adapters.Field{Key: "key", Value: n.Key},
					adapters.Field{Key: "error", Value: err.Error()})
				return
			}
		}
	}
}

// Process runs one batch synchronously: aggregate, then observe the last
// record of every bucket the batch touched.
func (p *Pipeline) Process(ctx context.Context, batch []common.Notification) Result {
	start := time.Now()
	res := Result{Records: make([]common.SizeRecord, 0, len(batch))}

	for round := 0; len(batch) > 0 && round < maxEvictionRounds; round++ {
		br, err := p.aggregator.ProcessBatch(ctx, batch)
		if err != nil {
			res.Err = err
			break
		}
		res.Records = append(res.Records, br.Records...)
		res.Skipped = append(res.Skipped, br.Skipped...)
		p.metrics.EventSkipped(len(br.Skipped))
		for _, rec := range br.Records {
			p.metrics.RecordAppended(rec.BucketName, rec.TotalSize, rec.ObjectCount)
		}

		batch = nil
		for _, rec := range br.Latest() {
			outcome, err := p.monitor.Observe(ctx, rec)
			if err != nil {
				p.logger.Error(ctx, "Cleanup failed",
					adapters.Field{Key: "bucket", Value: rec.BucketName},
					adapters.Field{Key: "error", Value: err.Error()})
				res.Err = err
				continue
			}
			if outcome == nil {
				continue
			}
			p.metrics.CleanupOutcome(string(outcome.Kind))
			res.Outcomes = append(res.Outcomes, outcome)
			if p.follow && outcome.Deleted() {
				batch = append(batch, removal(outcome))
			}
		}
		if res.Err != nil {
			break
		}
	}

	p.metrics.BatchProcessed(res.Err, time.Since(start))
	return res
}

// FollowEviction records the bucket size after an eviction made outside the
// pipeline, such as a manual cleanup. It returns nil when the outcome deleted
// nothing or evictions are not followed.
func (p *Pipeline) FollowEviction(ctx context.Context, outcome *cleanup.Outcome) *Result {
	if !p.follow || !outcome.Deleted() {
		return nil
	}
	res := p.Process(ctx, []common.Notification{removal(outcome)})
	if res.Err != nil {
		p.logger.Warn(ctx, "Failed to record eviction",
			adapters.Field{Key: "bucket", Value: outcome.Bucket},
			adapters.Field{Key: "key", Value: outcome.Event.DeletedKey},
			adapters.Field{Key: "error", Value: res.Err.Error()})
	}
	return &res
}

func removal(outcome *cleanup.Outcome) common.Notification {
	return common.Notification{
		Type:   common.ObjectRemoved,
		Bucket: outcome.Bucket,
		Key:    outcome.Event.DeletedKey,
	}
}
