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

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/aggregator"
	"github.com/jeremyhahn/go-objwatch/pkg/cleanup"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/driver"
	"github.com/jeremyhahn/go-objwatch/pkg/factory"
	"github.com/jeremyhahn/go-objwatch/pkg/metrics"
	"github.com/jeremyhahn/go-objwatch/pkg/monitor"
	"github.com/jeremyhahn/go-objwatch/pkg/notification"
	"github.com/jeremyhahn/go-objwatch/pkg/pipeline"
	"github.com/jeremyhahn/go-objwatch/pkg/report"
	"github.com/jeremyhahn/go-objwatch/pkg/server/middleware"
	"github.com/jeremyhahn/go-objwatch/pkg/server/rest"
	"github.com/jeremyhahn/go-objwatch/pkg/sizing"
)

// CommandContext holds the wired components commands operate on.
type CommandContext struct {
	Config   *Config
	Logger   adapters.Logger
	Source   common.ObjectSource
	Store    common.RecordStore
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Policy   *cleanup.Policy
	Include  cleanup.Predicate
	Pipeline *pipeline.Pipeline

	Reporter  *report.Reporter
	Publisher *report.Publisher
}

// NewCommandContext validates cfg and builds every component from it. Logs
// go to logOut; nil means stderr.
func NewCommandContext(cfg *Config, logOut io.Writer) (*CommandContext, error) {
	// Validate configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if logOut == nil {
		logOut = os.Stderr
	}
	logger, err := adapters.NewLogger(cfg.LogFormat, cfg.LogLevelValue(), logOut)
	if err != nil {
		return nil, err
	}

	source, err := factory.NewSourceWithLogger(cfg.Source, cfg.GetSourceSettings(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s source: %w", cfg.Source, err)
	}
	store, err := factory.NewStore(cfg.Store, cfg.GetStoreSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	include := cleanup.KeyPattern(cfg.IncludePrefix, cfg.IncludeSuffix, cfg.ReportKey)
	policy := cleanup.New(source, cleanup.WithLogger(logger))
	agg := aggregator.New(source, store, aggregator.WithLogger(logger))

	// The watcher reports deletions itself, so evictions must not be
	// replayed on top of it.
	follow := cfg.FollowEvictions && !(cfg.Watch && cfg.Source == SourceLocal)

	p := pipeline.New(pipeline.Config{
		Aggregator:      agg,
		Monitor:         monitor.New(policy, cfg.Threshold, include, logger),
		Metrics:         m,
		Logger:          logger,
		FollowEvictions: follow,
		WorkerCount:     cfg.Workers,
	})

	return &CommandContext{
		Config:    cfg,
		Logger:    logger,
		Source:    source,
		Store:     store,
		Registry:  reg,
		Metrics:   m,
		Policy:    policy,
		Include:   include,
		Pipeline:  p,
		Reporter:  report.New(store, report.WithWindow(cfg.Window)),
		Publisher: report.NewPublisher(source, nil, cfg.ReportKey),
	}, nil
}

// Close closes the command context and cleans up resources.
func (ctx *CommandContext) Close() error {
	return ctx.Store.Close()
}

func (ctx *CommandContext) bucket(bucket string) (string, error) {
	if bucket == "" {
		bucket = ctx.Config.Bucket
	}
	if bucket == "" {
		return "", ErrBucketRequired
	}
	return bucket, nil
}

// IngestCommand decodes the notification document at filePath and processes
// it. If filePath is empty or "-", reads from stdin.
func (ctx *CommandContext) IngestCommand(c context.Context, filePath string) (pipeline.Result, error) {
	var reader io.Reader
	if filePath == "" || filePath == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(filePath) // #nosec G304 -- User-provided path for CLI file operations, intended behavior
		if err != nil {
			return pipeline.Result{}, err
		}
		defer func() { _ = file.Close() }()
		reader = file
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return pipeline.Result{}, err
	}
	batch, err := notification.Decode(body)
	if err != nil {
		return pipeline.Result{}, err
	}

	res := ctx.Pipeline.Process(c, batch)
	return res, res.Err
}

// SizeCommand computes the live size of a bucket.
func (ctx *CommandContext) SizeCommand(c context.Context, bucket string) (string, sizing.Summary, error) {
	bucket, err := ctx.bucket(bucket)
	if err != nil {
		return "", sizing.Summary{}, err
	}
	summary, _, err := sizing.ComputeBucket(c, ctx.Source, bucket)
	return bucket, summary, err
}

// CleanupCommand evaluates the cleanup policy once. A negative threshold
// uses the configured one. An eviction is fed back through the pipeline so
// the series records the smaller bucket.
func (ctx *CommandContext) CleanupCommand(c context.Context, bucket string, threshold int64) (*cleanup.Outcome, error) {
	bucket, err := ctx.bucket(bucket)
	if err != nil {
		return nil, err
	}
	if threshold < 0 {
		threshold = ctx.Config.Threshold
	}
	outcome, err := ctx.Policy.Run(c, bucket, threshold, ctx.Include)
	if err != nil {
		return nil, err
	}
	ctx.Metrics.CleanupOutcome(string(outcome.Kind))
	ctx.Pipeline.FollowEviction(c, outcome)
	return outcome, nil
}

// ReportCommand builds the size history report and optionally publishes it.
func (ctx *CommandContext) ReportCommand(c context.Context, bucket string, publish bool) (*report.Report, error) {
	bucket, err := ctx.bucket(bucket)
	if err != nil {
		return nil, err
	}
	rep, err := ctx.Reporter.Build(c, bucket)
	if err != nil {
		return nil, err
	}
	if publish {
		if err := ctx.Publisher.Publish(c, rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// RecordsCommand returns the records of a bucket between from and to.
func (ctx *CommandContext) RecordsCommand(c context.Context, bucket string, from, to int64) ([]common.SizeRecord, error) {
	bucket, err := ctx.bucket(bucket)
	if err != nil {
		return nil, err
	}
	return ctx.Store.QueryRange(c, bucket, from, to)
}

// MaxCommand returns the largest record across all buckets. An empty store
// yields a nil record and no error.
func (ctx *CommandContext) MaxCommand(c context.Context) (*common.SizeRecord, error) {
	rec, err := ctx.Store.QueryGlobalMax(c)
	if errors.Is(err, common.ErrNoRecords) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DriverCommand runs the end-to-end scenario against the configured bucket.
func (ctx *CommandContext) DriverCommand(c context.Context, bucket string, noWait bool) (*driver.Summary, error) {
	bucket, err := ctx.bucket(bucket)
	if err != nil {
		return nil, err
	}
	d := driver.New(ctx.Source, ctx.Pipeline, ctx.Reporter, ctx.Publisher, driver.Config{
		Bucket: bucket,
		NoWait: noWait,
		Logger: ctx.Logger,
	})
	return d.Run(c)
}

// NewServer builds the REST server for this context.
func (ctx *CommandContext) NewServer() (*rest.Server, error) {
	config := rest.DefaultServerConfig()
	config.Logger = ctx.Logger
	host, port, err := rest.ParseListen(ctx.Config.Listen)
	if err != nil {
		return nil, fmt.Errorf("invalid listen address %q: %w", ctx.Config.Listen, err)
	}
	config.Host = host
	config.Port = port
	if ctx.Config.RateLimit > 0 {
		config.EnableRateLimit = true
		config.RateLimitConfig = middleware.DefaultRateLimitConfig()
		config.RateLimitConfig.RequestsPerSecond = ctx.Config.RateLimit
		config.RateLimitConfig.Burst = max(1, int(ctx.Config.RateLimit*2))
	}

	return rest.NewServer(rest.Dependencies{
		Source:    ctx.Source,
		Store:     ctx.Store,
		Pipeline:  ctx.Pipeline,
		Reporter:  ctx.Reporter,
		Publisher: ctx.Publisher,
		Policy:    ctx.Policy,
		Include:   ctx.Include,
		Threshold: ctx.Config.Threshold,
		Gatherer:  ctx.Registry,
		Logger:    ctx.Logger,
	}, config)
}

// ServeCommand starts the worker pool and the REST server, plus the file
// watcher when enabled for a local source, and blocks until c is cancelled.
func (ctx *CommandContext) ServeCommand(c context.Context) error {
	server, err := ctx.NewServer()
	if err != nil {
		return err
	}

	ctx.Pipeline.Start()
	defer ctx.Pipeline.Shutdown()
	go ctx.drainResults()

	if ctx.Config.Watch {
		if ctx.Config.Source != SourceLocal {
			return fmt.Errorf("watch requires the %s source", SourceLocal)
		}
		w, err := notification.NewWatcher(notification.WatcherConfig{
			Root:   ctx.Config.SourcePath,
			Logger: ctx.Logger,
		})
		if err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
		go ctx.Pipeline.Consume(c, w.Events())
		ctx.Logger.Info(c, "Watching local source",
			adapters.Field{Key: "root", Value: ctx.Config.SourcePath})
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-c.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// drainResults logs asynchronous batch results until the pool shuts down.
func (ctx *CommandContext) drainResults() {
	for res := range ctx.Pipeline.Results() {
		if res.Err != nil {
			ctx.Logger.Error(context.Background(), "Queued batch failed",
				adapters.Field{Key: "batch_id", Value: res.ID},
				adapters.Field{Key: "error", Value: res.Err.Error()})
			continue
		}
		ctx.Logger.Debug(context.Background(), "Queued batch processed",
			adapters.Field{Key: "batch_id", Value: res.ID},
			adapters.Field{Key: "records", Value: len(res.Records)})
	}
}
