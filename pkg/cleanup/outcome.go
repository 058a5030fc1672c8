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

package cleanup

import (
	"fmt"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// Kind classifies the result of a cleanup evaluation.
type Kind string

const (
	// BelowThreshold means the bucket total did not exceed the threshold.
	BelowThreshold Kind = "below_threshold"

	// Evicted means exactly one object was deleted.
	Evicted Kind = "evicted"

	// NoEligibleVictim means no object matched the inclusion predicate.
	NoEligibleVictim Kind = "no_eligible_victim"

	// RaceLoss means the selected object was already gone when deleted.
	RaceLoss Kind = "race_loss"
)

// Outcome is the result of a cleanup evaluation. None of the kinds are errors.
type Outcome struct {
	Kind      Kind   `json:"kind"`
	Bucket    string `json:"bucket"`
	TotalSize int64  `json:"total_size"`
	Threshold int64  `json:"threshold"`

	// Event is set for Evicted and RaceLoss. For RaceLoss it carries the
	// attempted key and its size in the listing.
	Event *common.EvictionEvent `json:"event,omitempty"`
}

// Deleted reports whether the evaluation removed an object.
func (o *Outcome) Deleted() bool {
	return o != nil && o.Kind == Evicted
}

// DeleteError reports a failed eviction. Event names the attempted key and
// its size in the listing.
type DeleteError struct {
	Event *common.EvictionEvent
	Err   error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("evict %s (%d bytes): %v", e.Event.DeletedKey, e.Event.SizeAtDeletion, e.Err)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}
