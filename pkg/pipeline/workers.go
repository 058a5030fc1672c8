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

package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

var (
	// ErrPoolShuttingDown is returned by Submit after Shutdown.
	ErrPoolShuttingDown = errors.New("worker pool is shutting down")

	// ErrPoolCancelled is returned by Submit when the pool context is done.
	ErrPoolCancelled = errors.New("worker pool context cancelled")
)

// Job is a single batch queued for a worker.
type Job struct {
	ID    string
	Batch []common.Notification
}

// WorkerPool runs batches on a fixed number of workers. Each batch is handled
// start to finish by one worker.
type WorkerPool struct {
	workerCount int
	workQueue   chan Job
	resultQueue chan Result
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	logger      adapters.Logger

	mu           sync.RWMutex
	shuttingDown bool

	batchesProcessed atomic.Int64
	batchesSucceeded atomic.Int64
	batchesFailed    atomic.Int64
	recordsAppended  atomic.Int64
}

// WorkerPoolConfig contains configuration for the worker pool.
type WorkerPoolConfig struct {
	WorkerCount int
	QueueSize   int
	Logger      adapters.Logger
}

// NewWorkerPool creates a new worker pool with the specified configuration.
func NewWorkerPool(config WorkerPoolConfig) *WorkerPool {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if config.Logger == nil {
		config.Logger = adapters.NewNoOpLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: config.WorkerCount,
		workQueue:   make(chan Job, config.QueueSize),
		resultQueue: make(chan Result, config.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      config.Logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(processor func(context.Context, Job) Result) {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i, processor)
	}
}

func (wp *WorkerPool) worker(id int, processor func(context.Context, Job) Result) {
	defer wp.wg.Done()

	wp.logger.Debug(wp.ctx, "Worker started",
		adapters.Field{Key: "worker_id", Value: id})

	for {
		select {
		case <-wp.ctx.Done():
			return

		case job, ok := <-wp.workQueue:
			if !ok {
				wp.logger.Debug(wp.ctx, "Worker queue closed",
					adapters.Field{Key: "worker_id", Value: id})
				return
			}

			result := processor(wp.ctx, job)

			wp.batchesProcessed.Add(1)
			wp.recordsAppended.Add(int64(len(result.Records)))
			if result.Err == nil {
				wp.batchesSucceeded.Add(1)
			} else {
				wp.batchesFailed.Add(1)
				wp.logger.Warn(wp.ctx, "Batch failed",
					adapters.Field{Key: "batch_id", Value: job.ID},
					adapters.Field{Key: "error", Value: result.Err.Error()})
			}

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a batch and returns the id assigned to it.
func (wp *WorkerPool) Submit(batch []common.Notification) (string, error) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.shuttingDown {
		return "", ErrPoolShuttingDown
	}

	job := Job{ID: uuid.New().String(), Batch: batch}
	select {
	case <-wp.ctx.Done():
		return "", ErrPoolCancelled
	case wp.workQueue <- job:
		return job.ID, nil
	}
}

// Results returns the result channel. It is closed by Shutdown. Results must
// be consumed or the workers block once the channel buffer is full.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// Shutdown closes the queue, waits for queued batches to finish and closes
// the result channel.
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if wp.shuttingDown {
		wp.mu.Unlock()
		return
	}
	wp.shuttingDown = true
	close(wp.workQueue)
	wp.mu.Unlock()

	wp.logger.Info(wp.ctx, "Shutting down worker pool",
		adapters.Field{Key: "workers", Value: wp.workerCount})

	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Info(wp.ctx, "Worker pool shutdown complete",
		adapters.Field{Key: "processed", Value: wp.batchesProcessed.Load()},
		adapters.Field{Key: "succeeded", Value: wp.batchesSucceeded.Load()},
		adapters.Field{Key: "failed", Value: wp.batchesFailed.Load()},
		adapters.Field{Key: "records", Value: wp.recordsAppended.Load()})
}

// GetMetrics returns the current worker pool counters.
func (wp *WorkerPool) GetMetrics() WorkerPoolMetrics {
	return WorkerPoolMetrics{
		BatchesProcessed: wp.batchesProcessed.Load(),
		BatchesSucceeded: wp.batchesSucceeded.Load(),
		BatchesFailed:    wp.batchesFailed.Load(),
		RecordsAppended:  wp.recordsAppended.Load(),
	}
}

// WorkerPoolMetrics contains counters about worker pool activity.
type WorkerPoolMetrics struct {
	BatchesProcessed int64 `json:"batches_processed"`
	BatchesSucceeded int64 `json:"batches_succeeded"`
	BatchesFailed    int64 `json:"batches_failed"`
	RecordsAppended  int64 `json:"records_appended"`
}
