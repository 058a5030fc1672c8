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

// Package sizing computes bucket aggregates from object listings.
package sizing

import (
	"context"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// Summary is the aggregate size of a bucket listing.
type Summary struct {
	TotalSize   int64 `json:"total_size"`
	ObjectCount int64 `json:"object_count"`
}

// Compute sums the sizes of objects and counts them.
func Compute(objects []common.ObjectRef) Summary {
	var s Summary
	for _, obj := range objects {
		s.TotalSize += obj.Size
		s.ObjectCount++
	}
	return s
}

// ComputeBucket lists bucket from source and computes its summary. The
// listing is returned alongside so callers can reuse the snapshot.
func ComputeBucket(ctx context.Context, source common.ObjectSource, bucket string) (Summary, []common.ObjectRef, error) {
	objects, err := source.List(ctx, bucket)
	if err != nil {
		return Summary{}, nil, common.NewSourceError("list", bucket, "", err)
	}
	return Compute(objects), objects, nil
}
