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
	"strings"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// Predicate reports whether an object may be evicted.
type Predicate func(common.ObjectRef) bool

// DefaultPrefix and DefaultSuffix select the tracked assignment files.
const (
	DefaultPrefix = "assignment"
	DefaultSuffix = ".txt"
)

// KeyPattern matches keys with the given prefix and suffix. Keys listed in
// exclude never match. Empty prefix or suffix match anything.
func KeyPattern(prefix, suffix string, exclude ...string) Predicate {
	excluded := make(map[string]struct{}, len(exclude))
	for _, key := range exclude {
		excluded[key] = struct{}{}
	}
	return func(obj common.ObjectRef) bool {
		if _, ok := excluded[obj.Key]; ok {
			return false
		}
		return strings.HasPrefix(obj.Key, prefix) && strings.HasSuffix(obj.Key, suffix)
	}
}

// All matches every object.
func All(common.ObjectRef) bool { return true }

// Selector picks the victim among the eligible objects. It is only called
// with a non-empty slice.
type Selector func(eligible []common.ObjectRef) common.ObjectRef

// FirstLargest selects the object with the strictly greatest size. Ties go
// to the first one in listing order.
func FirstLargest(eligible []common.ObjectRef) common.ObjectRef {
	victim := eligible[0]
	for _, obj := range eligible[1:] {
		if obj.Size > victim.Size {
			victim = obj
		}
	}
	return victim
}
