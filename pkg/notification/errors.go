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

package notification

import (
	"errors"
	"fmt"
)

// WatcherError represents an error from the filesystem watcher.
type WatcherError struct {
	Op   string
	Path string
	Err  error
}

func (e *WatcherError) Error() string {
	return fmt.Sprintf("watcher %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WatcherError) Unwrap() error {
	return e.Err
}

var (
	// ErrWatcherStopped is returned when operations are attempted on a stopped watcher.
	ErrWatcherStopped = errors.New("watcher is stopped")

	// ErrRootNotSet is returned when a watcher is created without a root directory.
	ErrRootNotSet = errors.New("watch root not set")
)
