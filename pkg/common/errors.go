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

package common

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors

	// ErrNotConfigured is returned when a backend is used before Configure.
	ErrNotConfigured = errors.New("not configured")

	// ErrPathNotSet is returned when the required path is not set.
	ErrPathNotSet = errors.New("path not set")

	// ErrBucketNotSet is returned when the required bucket is not set.
	ErrBucketNotSet = errors.New("bucket not set")

	// ErrAccountNotSet is returned when required account credentials are not set.
	ErrAccountNotSet = errors.New("accountName or accountKey not set")

	// ErrRegionNotSet is returned when the required region is not set.
	ErrRegionNotSet = errors.New("region not set")

	// Source errors

	// ErrSourceUnavailable marks a transient listing or deletion failure.
	// Callers are expected to retry the whole batch.
	ErrSourceUnavailable = errors.New("object source unavailable")

	// ErrObjectNotFound is returned when a key does not exist in a bucket.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when a bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// Record store errors

	// ErrNoRecords is returned by QueryGlobalMax when the store is empty.
	ErrNoRecords = errors.New("no records")

	// ErrStoreClosed is returned when a closed record store is used.
	ErrStoreClosed = errors.New("record store closed")

	// Notification errors

	// ErrMalformedNotification is returned for notifications missing required fields.
	ErrMalformedNotification = errors.New("malformed notification")
)

// SourceError carries the bucket, key and operation of a failed source call.
type SourceError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Bucket, e.Err)
}

// Unwrap exposes the cause and, unless the cause is a not-found condition
// or rejected input, ErrSourceUnavailable so callers can test for transient
// failures.
func (e *SourceError) Unwrap() []error {
	if errors.Is(e.Err, ErrObjectNotFound) || errors.Is(e.Err, ErrSourceUnavailable) ||
		errors.Is(e.Err, ErrMalformedNotification) {
		return []error{e.Err}
	}
	return []error{e.Err, ErrSourceUnavailable}
}

// NewSourceError wraps err with operation context. A nil err returns nil.
func NewSourceError(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Op: op, Bucket: bucket, Key: key, Err: err}
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
