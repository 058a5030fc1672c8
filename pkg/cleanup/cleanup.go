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

// Package cleanup evicts the largest eligible object from a bucket whose
// total size exceeds a threshold.
package cleanup

import (
	"context"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/sizing"
)

// Policy deletes at most one object per evaluation.
type Policy struct {
	source   common.ObjectSource
	selector Selector
	logger   adapters.Logger
}

// Option configures a Policy.
type Option func(*Policy)

// WithSelector replaces the victim selection rule.
func WithSelector(selector Selector) Option {
	return func(p *Policy) {
		if selector != nil {
			p.selector = selector
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger adapters.Logger) Option {
	return func(p *Policy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a policy that deletes through source.
func New(source common.ObjectSource, opts ...Option) *Policy {
	p := &Policy{
		source:   source,
		selector: FirstLargest,
		logger:   adapters.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run lists the bucket and evaluates it.
func (p *Policy) Run(ctx context.Context, bucket string, threshold int64, include Predicate) (*Outcome, error) {
	_, listing, err := sizing.ComputeBucket(ctx, p.source, bucket)
	if err != nil {
		return nil, err
	}
	return p.Evaluate(ctx, bucket, listing, threshold, include)
}

// Evaluate decides on the given listing. The threshold is breached only when
// the listing total is strictly greater than it. A nil predicate admits every
// object.
//
// A delete that reports not-found yields RaceLoss. Any other delete failure
// is returned as a *DeleteError wrapping ErrSourceUnavailable.
func (p *Policy) Evaluate(ctx context.Context, bucket string, listing []common.ObjectRef, threshold int64, include Predicate) (*Outcome, error) {
	if include == nil {
		include = All
	}

	total := sizing.Compute(listing).TotalSize
	outcome := &Outcome{Bucket: bucket, TotalSize: total, Threshold: threshold}

	if total <= threshold {
		outcome.Kind = BelowThreshold
		return outcome, nil
	}

	eligible := make([]common.ObjectRef, 0, len(listing))
	for _, obj := range listing {
		if include(obj) {
			eligible = append(eligible, obj)
		}
	}
	if len(eligible) == 0 {
		p.logger.Info(ctx, "Nothing eligible to delete",
			adapters.Field{Key: "bucket", Value: bucket},
			adapters.Field{Key: "total_size", Value: total},
			adapters.Field{Key: "threshold", Value: threshold})
		outcome.Kind = NoEligibleVictim
		return outcome, nil
	}

	victim := p.selector(eligible)
	outcome.Event = &common.EvictionEvent{DeletedKey: victim.Key, SizeAtDeletion: victim.Size}

	err := p.source.Delete(ctx, bucket, victim.Key)
	switch {
	case err == nil:
		p.logger.Info(ctx, "Evicted largest object",
			adapters.Field{Key: "bucket", Value: bucket},
			adapters.Field{Key: "key", Value: victim.Key},
			adapters.Field{Key: "size", Value: victim.Size})
		outcome.Kind = Evicted
		return outcome, nil
	case common.IsNotFound(err):
		p.logger.Warn(ctx, "Object already removed",
			adapters.Field{Key: "bucket", Value: bucket},
			adapters.Field{Key: "key", Value: victim.Key},
			adapters.Field{Key: "size", Value: victim.Size})
		outcome.Kind = RaceLoss
		return outcome, nil
	default:
		p.logger.Error(ctx, "Failed to delete object",
			adapters.Field{Key: "bucket", Value: bucket},
			adapters.Field{Key: "key", Value: victim.Key},
			adapters.Field{Key: "size", Value: victim.Size},
			adapters.Field{Key: "error", Value: err.Error()})
		return nil, &DeleteError{
			Event: outcome.Event,
			Err:   common.NewSourceError("delete", bucket, victim.Key, err),
		}
	}
}
