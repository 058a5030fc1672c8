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

// Package memory provides an in-memory implementation of the object source.
// This is useful for testing, development, and the driver scenario.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// Notifier receives a notification for every mutation applied to the source.
type Notifier func(common.Notification)

// Memory is an object source that keeps buckets in memory.
type Memory struct {
	mu       sync.RWMutex
	buckets  map[string]map[string][]byte
	notifier Notifier
}

// New creates a new Memory object source.
func New() *Memory {
	return &Memory{
		buckets: make(map[string]map[string][]byte),
	}
}

// Configure sets up the backend with the necessary settings.
// The memory backend has no required settings.
func (m *Memory) Configure(settings map[string]string) error {
	return nil
}

// SetNotifier installs fn to be called after each successful Put or Delete.
func (m *Memory) SetNotifier(fn Notifier) {
	m.mu.Lock()
	m.notifier = fn
	m.mu.Unlock()
}

// List returns every object in the bucket, sorted by key for consistent
// ordering. A bucket that was never written lists as empty.
func (m *Memory) List(ctx context.Context, bucket string) ([]common.ObjectRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	objects := m.buckets[bucket]
	keys := make([]string, 0, len(objects))
	for key := range objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	refs := make([]common.ObjectRef, 0, len(keys))
	for _, key := range keys {
		refs = append(refs, common.ObjectRef{Key: key, Size: int64(len(objects[key]))})
	}
	return refs, nil
}

// Delete removes an object from the bucket.
func (m *Memory) Delete(ctx context.Context, bucket, key string) error {
	if err := common.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	objects, ok := m.buckets[bucket]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", common.ErrObjectNotFound, bucket, key)
	}
	if _, exists := objects[key]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", common.ErrObjectNotFound, bucket, key)
	}
	delete(objects, key)
	notifier := m.notifier
	m.mu.Unlock()

	if notifier != nil {
		notifier(common.Notification{Type: common.ObjectRemoved, Bucket: bucket, Key: key})
	}
	return nil
}

// Put stores an object, replacing any existing object with the same key.
func (m *Memory) Put(ctx context.Context, bucket, key string, data io.Reader) error {
	if err := common.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dataBytes, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	objects, ok := m.buckets[bucket]
	if !ok {
		objects = make(map[string][]byte)
		m.buckets[bucket] = objects
	}
	objects[key] = dataBytes
	notifier := m.notifier
	m.mu.Unlock()

	if notifier != nil {
		size := int64(len(dataBytes))
		notifier(common.Notification{Type: common.ObjectCreated, Bucket: bucket, Key: key, Size: &size})
	}
	return nil
}

// Get returns a copy of an object's contents.
func (m *Memory) Get(bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.buckets[bucket][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", common.ErrObjectNotFound, bucket, key)
	}
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return dataCopy, nil
}

// Count returns the number of objects in a bucket. This is useful for testing.
func (m *Memory) Count(bucket string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.buckets[bucket])
}
