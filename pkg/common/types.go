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

// RecordTypeSize is the fixed tag carried by every size record. It is the
// partition used to find the maximum size ever observed across all buckets.
const RecordTypeSize = "SIZE_RECORD"

// ObjectRef is a single object in a bucket listing.
type ObjectRef struct {
	// Key is unique within the bucket
	Key string `json:"key"`

	// Size is the object size in bytes
	Size int64 `json:"size"`
}

// SizeRecord is one observation of a bucket's aggregate size.
// Records are immutable once written.
type SizeRecord struct {
	// BucketName is the bucket the observation was taken for
	BucketName string `json:"bucket_name"`

	// Timestamp is the observation time in unix seconds
	Timestamp int64 `json:"timestamp"`

	// TotalSize is the sum of all object sizes at Timestamp
	TotalSize int64 `json:"total_size"`

	// ObjectCount is the number of objects at Timestamp
	ObjectCount int64 `json:"object_count"`

	// RecordType is always RecordTypeSize
	RecordType string `json:"record_type"`
}

// NewSizeRecord returns a record tagged with RecordTypeSize.
func NewSizeRecord(bucket string, timestamp, totalSize, objectCount int64) SizeRecord {
	return SizeRecord{
		BucketName:  bucket,
		Timestamp:   timestamp,
		TotalSize:   totalSize,
		ObjectCount: objectCount,
		RecordType:  RecordTypeSize,
	}
}

// EvictionEvent describes an object removed by the cleanup policy.
type EvictionEvent struct {
	DeletedKey     string `json:"deleted_key"`
	SizeAtDeletion int64  `json:"size_at_deletion"`
}

// NotificationType identifies the kind of bucket mutation.
type NotificationType string

const (
	// ObjectCreated is emitted when an object is written or overwritten.
	ObjectCreated NotificationType = "created"

	// ObjectRemoved is emitted when an object is deleted.
	ObjectRemoved NotificationType = "removed"
)

// Notification is a single bucket mutation event. Size is only carried by
// created events; removals never include it.
type Notification struct {
	Type   NotificationType `json:"type"`
	Bucket string           `json:"bucket"`
	Key    string           `json:"key"`
	Size   *int64           `json:"size,omitempty"`
}

// Validate checks that the notification carries every required field.
func (n Notification) Validate() error {
	switch n.Type {
	case ObjectCreated, ObjectRemoved:
	case "":
		return &ValidationError{Field: "type", Message: "type is required"}
	default:
		return &ValidationError{Field: "type", Message: "unknown notification type " + string(n.Type)}
	}
	if n.Bucket == "" {
		return &ValidationError{Field: "bucket", Message: "bucket is required"}
	}
	if n.Key == "" {
		return &ValidationError{Field: "key", Message: "key is required"}
	}
	return nil
}
