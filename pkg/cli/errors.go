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

import "errors"

var (
	// Configuration errors

	// ErrSourcePathRequired is returned when source-path is required but not set.
	ErrSourcePathRequired = errors.New("source-path is required for local source")

	// ErrBucketRequired is returned when a command needs a bucket and none is set.
	ErrBucketRequired = errors.New("bucket is required")

	// ErrRegionRequired is returned when region is required but not set.
	ErrRegionRequired = errors.New("region is required for s3 source")

	// ErrAccountRequired is returned when account-name is required but not set.
	ErrAccountRequired = errors.New("account-name is required for azure source")

	// ErrStorePathRequired is returned when store-path is required but not set.
	ErrStorePathRequired = errors.New("store-path is required for persistent stores")

	// ErrUnsupportedSource is returned when an unsupported source is specified.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrUnsupportedStore is returned when an unsupported record store is specified.
	ErrUnsupportedStore = errors.New("unsupported store")

	// ErrInvalidThreshold is returned for a negative threshold.
	ErrInvalidThreshold = errors.New("threshold cannot be negative")

	// ErrInvalidWindow is returned for a non-positive report window.
	ErrInvalidWindow = errors.New("window must be positive")

	// ErrUnsupportedOutputFormat is returned when an unsupported output format is specified.
	ErrUnsupportedOutputFormat = errors.New("unsupported output format")

	// ErrUnsupportedLogFormat is returned when an unsupported log format is specified.
	ErrUnsupportedLogFormat = errors.New("unsupported log format")
)
