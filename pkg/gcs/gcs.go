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

// Package gcs implements an object source backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// Small internal interfaces to enable unit tests without real GCS.
type gcsObject interface {
	NewWriter(ctx context.Context) io.WriteCloser
	Delete(ctx context.Context) error
}

type gcsBucket interface {
	Object(name string) gcsObject
	Objects(ctx context.Context, query *storage.Query) gcsIterator
}

type gcsIterator interface {
	Next() (*storage.ObjectAttrs, error)
}

type gcsClient interface {
	Bucket(name string) gcsBucket
}

type clientWrapper struct{ *storage.Client }
type bucketWrapper struct{ *storage.BucketHandle }
type objectWrapper struct{ *storage.ObjectHandle }

func (c clientWrapper) Bucket(name string) gcsBucket { return bucketWrapper{c.Client.Bucket(name)} }
func (b bucketWrapper) Object(name string) gcsObject {
	return objectWrapper{b.BucketHandle.Object(name)}
}
func (b bucketWrapper) Objects(ctx context.Context, query *storage.Query) gcsIterator {
	return b.BucketHandle.Objects(ctx, query)
}
func (o objectWrapper) NewWriter(ctx context.Context) io.WriteCloser {
	return o.ObjectHandle.NewWriter(ctx)
}
func (o objectWrapper) Delete(ctx context.Context) error { return o.ObjectHandle.Delete(ctx) }

var gcsNewClient = func(ctx context.Context, opts ...option.ClientOption) (*storage.Client, error) {
	return storage.NewClient(ctx, opts...)
}

// GCS is an object source that lists and mutates Cloud Storage buckets.
type GCS struct {
	client gcsClient
}

// New creates a new GCS object source.
func New() *GCS {
	return &GCS{}
}

// Configure sets up the backend with the necessary settings.
// Settings:
//   - endpoint: custom endpoint, e.g. a fake-gcs-server emulator (optional)
//   - anonymous: "true" to skip authentication, for emulators (optional)
func (g *GCS) Configure(settings map[string]string) error {
	if g.client != nil {
		return nil
	}

	var opts []option.ClientOption
	if endpoint := settings["endpoint"]; endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if settings["anonymous"] == "true" {
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := gcsNewClient(context.Background(), opts...)
	if err != nil {
		return err
	}
	g.client = clientWrapper{client}
	return nil
}

// List iterates every object in the bucket.
func (g *GCS) List(ctx context.Context, bucket string) ([]common.ObjectRef, error) {
	if g.client == nil {
		return nil, common.ErrNotConfigured
	}

	refs := make([]common.ObjectRef, 0)
	query := &storage.Query{}
	if err := query.SetAttrSelection([]string{"Name", "Size"}); err != nil {
		return nil, err
	}

	it := g.client.Bucket(bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done { //nolint:err113 // iterator.Done is the standard sentinel error for GCS iterators
			break
		}
		if err != nil {
			if errors.Is(err, storage.ErrBucketNotExist) {
				return nil, fmt.Errorf("%w: %s", common.ErrBucketNotFound, bucket)
			}
			return nil, err
		}
		refs = append(refs, common.ObjectRef{Key: attrs.Name, Size: attrs.Size})
	}
	return refs, nil
}

// Delete removes an object from the bucket.
func (g *GCS) Delete(ctx context.Context, bucket, key string) error {
	if g.client == nil {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}

	err := g.client.Bucket(bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s/%s", common.ErrObjectNotFound, bucket, key)
	}
	return err
}

// Put streams an object into the bucket. The upload is committed on Close.
func (g *GCS) Put(ctx context.Context, bucket, key string, data io.Reader) error {
	if g.client == nil {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}

	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
