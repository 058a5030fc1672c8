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

// Package driver runs the scripted scenario that exercises the whole
// pipeline: write a few assignment files, let the threshold evict the
// largest, then publish the size history.
package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/pipeline"
	"github.com/jeremyhahn/go-objwatch/pkg/report"
)

// DefaultThreshold is the bucket size, in bytes, the scenario is tuned for.
const DefaultThreshold = 20

// Step is one object write followed by a pause.
type Step struct {
	Key     string        `json:"key"`
	Content string        `json:"content"`
	Pause   time.Duration `json:"pause"`
}

// DefaultSteps returns the standard scenario. With DefaultThreshold the
// second write evicts assignment2.txt and the third evicts assignment1.txt.
func DefaultSteps() []Step {
	return []Step{
		{Key: "assignment1.txt", Content: "Empty Assignment 1\n", Pause: 5 * time.Second},
		{Key: "assignment2.txt", Content: "Empty Assignment 2222222222\n", Pause: 10 * time.Second},
		{Key: "assignment3.txt", Content: "33", Pause: 10 * time.Second},
	}
}

// Processor runs a notification batch to completion.
type Processor interface {
	Process(ctx context.Context, batch []common.Notification) pipeline.Result
}

// Config contains configuration for a Driver.
type Config struct {
	Bucket string
	Steps  []Step // Default: DefaultSteps()

	// NoWait skips the pauses between steps.
	NoWait bool

	Logger adapters.Logger
}

// StepResult is what happened after one step.
type StepResult struct {
	Key    string          `json:"key"`
	Size   int64           `json:"size"`
	Result pipeline.Result `json:"result"`
}

// Summary is the outcome of a full run.
type Summary struct {
	Steps  []StepResult   `json:"steps"`
	Report *report.Report `json:"report"`
}

// Driver executes the scenario.
type Driver struct {
	source    common.ObjectSource
	processor Processor
	reporter  *report.Reporter
	publisher *report.Publisher
	cfg       Config
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates a driver. A nil publisher skips publishing the report.
func New(source common.ObjectSource, processor Processor, reporter *report.Reporter, publisher *report.Publisher, cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = adapters.NewNoOpLogger()
	}
	if len(cfg.Steps) == 0 {
		cfg.Steps = DefaultSteps()
	}
	return &Driver{
		source:    source,
		processor: processor,
		reporter:  reporter,
		publisher: publisher,
		cfg:       cfg,
		sleep:     sleep,
	}
}

// Run writes every step, processing the created notification after each
// write, then builds and publishes the report.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	if d.cfg.Bucket == "" {
		return nil, common.ErrBucketNotSet
	}

	summary := &Summary{Steps: make([]StepResult, 0, len(d.cfg.Steps))}
	for i, step := range d.cfg.Steps {
		size := int64(len(step.Content))
		if err := d.source.Put(ctx, d.cfg.Bucket, step.Key, strings.NewReader(step.Content)); err != nil {
			return summary, common.NewSourceError("put", d.cfg.Bucket, step.Key, err)
		}
		d.cfg.Logger.Info(ctx, "Created object",
			adapters.Field{Key: "step", Value: i + 1},
			adapters.Field{Key: "key", Value: step.Key},
			adapters.Field{Key: "size", Value: size})

		res := d.processor.Process(ctx, []common.Notification{{
			Type:   common.ObjectCreated,
			Bucket: d.cfg.Bucket,
			Key:    step.Key,
			Size:   &size,
		}})
		summary.Steps = append(summary.Steps, StepResult{Key: step.Key, Size: size, Result: res})
		if res.Err != nil {
			return summary, fmt.Errorf("step %d (%s): %w", i+1, step.Key, res.Err)
		}
		for _, outcome := range res.Outcomes {
			d.cfg.Logger.Info(ctx, "Cleanup outcome",
				adapters.Field{Key: "step", Value: i + 1},
				adapters.Field{Key: "kind", Value: string(outcome.Kind)},
				adapters.Field{Key: "total_size", Value: outcome.TotalSize})
		}

		if !d.cfg.NoWait && step.Pause > 0 {
			if err := d.sleep(ctx, step.Pause); err != nil {
				return summary, err
			}
		}
	}

	rep, err := d.reporter.Build(ctx, d.cfg.Bucket)
	if err != nil {
		return summary, err
	}
	summary.Report = rep

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, rep); err != nil {
			return summary, err
		}
		d.cfg.Logger.Info(ctx, "Published size history",
			adapters.Field{Key: "bucket", Value: d.cfg.Bucket},
			adapters.Field{Key: "key", Value: d.publisher.Key()},
			adapters.Field{Key: "points", Value: len(rep.Points)})
	}
	return summary, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
