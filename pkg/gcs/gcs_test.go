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

package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

type mockGCSClient struct {
	buckets map[string]*mockGCSBucket
}

func (m *mockGCSClient) Bucket(name string) gcsBucket {
	b, ok := m.buckets[name]
	if !ok {
		return &mockGCSBucket{missing: true}
	}
	return b
}

type mockGCSBucket struct {
	objects   map[string][]byte
	missing   bool
	listErr   error
	deleteErr error
}

func (m *mockGCSBucket) Object(name string) gcsObject {
	return &mockGCSObject{bucket: m, name: name}
}

func (m *mockGCSBucket) Objects(ctx context.Context, query *storage.Query) gcsIterator {
	if m.missing {
		return &mockGCSIterator{err: storage.ErrBucketNotExist}
	}
	if m.listErr != nil {
		return &mockGCSIterator{err: m.listErr}
	}
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	attrs := make([]*storage.ObjectAttrs, 0, len(keys))
	for _, key := range keys {
		attrs = append(attrs, &storage.ObjectAttrs{Name: key, Size: int64(len(m.objects[key]))})
	}
	return &mockGCSIterator{attrs: attrs}
}

type mockGCSObject struct {
	bucket *mockGCSBucket
	name   string
}

func (m *mockGCSObject) NewWriter(ctx context.Context) io.WriteCloser {
	return &mockGCSWriter{bucket: m.bucket, name: m.name, buf: &bytes.Buffer{}}
}

func (m *mockGCSObject) Delete(ctx context.Context) error {
	if m.bucket.deleteErr != nil {
		return m.bucket.deleteErr
	}
	if _, ok := m.bucket.objects[m.name]; !ok {
		return storage.ErrObjectNotExist
	}
	delete(m.bucket.objects, m.name)
	return nil
}

type mockGCSWriter struct {
	bucket *mockGCSBucket
	name   string
	buf    *bytes.Buffer
}

func (m *mockGCSWriter) Write(p []byte) (n int, err error) {
	return m.buf.Write(p)
}

func (m *mockGCSWriter) Close() error {
	m.bucket.objects[m.name] = m.buf.Bytes()
	return nil
}

type mockGCSIterator struct {
	attrs []*storage.ObjectAttrs
	index int
	err   error
}

func (m *mockGCSIterator) Next() (*storage.ObjectAttrs, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.index >= len(m.attrs) {
		return nil, iterator.Done
	}
	attr := m.attrs[m.index]
	m.index++
	return attr, nil
}

func newMockGCS() (*GCS, *mockGCSBucket) {
	bucket := &mockGCSBucket{objects: make(map[string][]byte)}
	return &GCS{
		client: &mockGCSClient{buckets: map[string]*mockGCSBucket{"test-bucket": bucket}},
	}, bucket
}

func TestGCS_PutAndList(t *testing.T) {
	g, _ := newMockGCS()
	ctx := context.Background()

	if err := g.Put(ctx, "test-bucket", "assignment1.txt", strings.NewReader("Empty Assignment 1\n")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := g.Put(ctx, "test-bucket", "assignment2.txt", strings.NewReader("Empty Assignment 2222222222\n")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	refs, err := g.List(ctx, "test-bucket")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(refs))
	}
	if refs[0].Size+refs[1].Size != 47 {
		t.Fatalf("expected total 47, got %d", refs[0].Size+refs[1].Size)
	}
}

func TestGCS_ListMissingBucket(t *testing.T) {
	g, _ := newMockGCS()
	_, err := g.List(context.Background(), "missing")
	if !errors.Is(err, common.ErrBucketNotFound) {
		t.Fatalf("expected ErrBucketNotFound, got %v", err)
	}
}

func TestGCS_ListError(t *testing.T) {
	g, bucket := newMockGCS()
	bucket.listErr = errors.New("backend unavailable")
	if _, err := g.List(context.Background(), "test-bucket"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGCS_Delete(t *testing.T) {
	g, bucket := newMockGCS()
	ctx := context.Background()
	bucket.objects["k.txt"] = []byte("data")

	if err := g.Delete(ctx, "test-bucket", "k.txt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := bucket.objects["k.txt"]; ok {
		t.Fatal("expected object to be removed")
	}

	err := g.Delete(ctx, "test-bucket", "k.txt")
	if !errors.Is(err, common.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestGCS_DeleteError(t *testing.T) {
	g, bucket := newMockGCS()
	bucket.objects["k.txt"] = []byte("data")
	bucket.deleteErr = errors.New("permission denied")

	err := g.Delete(context.Background(), "test-bucket", "k.txt")
	if err == nil || errors.Is(err, common.ErrObjectNotFound) {
		t.Fatalf("expected a non-not-found error, got %v", err)
	}
}

func TestGCS_InvalidKey(t *testing.T) {
	g, _ := newMockGCS()
	if err := g.Put(context.Background(), "test-bucket", "../x", strings.NewReader("x")); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}

func TestGCS_NotConfigured(t *testing.T) {
	g := New()
	if _, err := g.List(context.Background(), "b"); !errors.Is(err, common.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := g.Put(context.Background(), "b", "k", strings.NewReader("x")); !errors.Is(err, common.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGCS_Configure(t *testing.T) {
	orig := gcsNewClient
	defer func() { gcsNewClient = orig }()

	var gotOpts int
	gcsNewClient = func(ctx context.Context, opts ...option.ClientOption) (*storage.Client, error) {
		gotOpts = len(opts)
		return &storage.Client{}, nil
	}

	g := New()
	if err := g.Configure(map[string]string{"endpoint": "http://localhost:4443/storage/v1/", "anonymous": "true"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotOpts != 2 {
		t.Fatalf("expected 2 client options, got %d", gotOpts)
	}
	if g.client == nil {
		t.Fatal("expected client to be set")
	}

	gcsNewClient = func(ctx context.Context, opts ...option.ClientOption) (*storage.Client, error) {
		return nil, errors.New("no credentials")
	}
	if err := New().Configure(map[string]string{}); err == nil {
		t.Fatal("expected client creation error")
	}
}
