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

// Package azure implements an object source backed by Azure Blob Storage.
// Buckets map to blob containers within a single storage account.
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// Small internal interfaces for testability without network.
type BlobAPI interface {
	UploadFromReader(ctx context.Context, r io.Reader) error
	Delete(ctx context.Context) error
}

type ContainerAPI interface {
	NewBlockBlob(name string) BlobAPI
	ListBlobsFlat(ctx context.Context) ([]common.ObjectRef, error)
}

type ServiceAPI interface {
	NewContainer(name string) ContainerAPI
}

type serviceWrapper struct{ azblob.ServiceURL }
type containerWrapper struct{ azblob.ContainerURL }
type blobWrapper struct{ azblob.BlockBlobURL }

// Function variables to enable unit testing without real network I/O.
var (
	azureUploadFn = func(ctx context.Context, r io.Reader, b azblob.BlockBlobURL) error {
		_, err := azblob.UploadStreamToBlockBlob(ctx, r, b, azblob.UploadStreamToBlockBlobOptions{})
		return err
	}
	azureDeleteFn = func(ctx context.Context, b azblob.BlockBlobURL) error {
		_, err := b.Delete(ctx, azblob.DeleteSnapshotsOptionNone, azblob.BlobAccessConditions{})
		return err
	}
	azureListFn = func(ctx context.Context, c azblob.ContainerURL) ([]common.ObjectRef, error) {
		refs := make([]common.ObjectRef, 0)
		marker := azblob.Marker{}

		for marker.NotDone() {
			listBlob, err := c.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{})
			if err != nil {
				return nil, err
			}

			for _, blob := range listBlob.Segment.BlobItems {
				var size int64
				if blob.Properties.ContentLength != nil {
					size = *blob.Properties.ContentLength
				}
				refs = append(refs, common.ObjectRef{Key: blob.Name, Size: size})
			}

			marker = listBlob.NextMarker
		}

		return refs, nil
	}
)

func (s serviceWrapper) NewContainer(name string) ContainerAPI {
	return containerWrapper{s.ServiceURL.NewContainerURL(name)}
}

func (c containerWrapper) NewBlockBlob(name string) BlobAPI {
	return blobWrapper{c.ContainerURL.NewBlockBlobURL(name)}
}

func (c containerWrapper) ListBlobsFlat(ctx context.Context) ([]common.ObjectRef, error) {
	return azureListFn(ctx, c.ContainerURL)
}

func (b blobWrapper) UploadFromReader(ctx context.Context, r io.Reader) error {
	return azureUploadFn(ctx, r, b.BlockBlobURL)
}
func (b blobWrapper) Delete(ctx context.Context) error {
	return azureDeleteFn(ctx, b.BlockBlobURL)
}

// Azure is an object source that lists and mutates blob containers.
type Azure struct {
	service ServiceAPI
}

// New creates a new Azure object source.
func New() *Azure {
	return &Azure{}
}

// NewWithService creates an Azure object source around an existing service.
func NewWithService(service ServiceAPI) *Azure {
	return &Azure{service: service}
}

// Configure sets up the backend with the necessary settings.
// Required settings:
//   - accountName: Azure storage account name
//   - accountKey: Azure storage account key
//
// Optional settings:
//   - endpoint: Custom service URL (for Azurite, etc.)
func (a *Azure) Configure(settings map[string]string) error {
	accountName := settings["accountName"]
	accountKey := settings["accountKey"]
	if accountName == "" || accountKey == "" {
		return common.ErrAccountNotSet
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return err
	}

	p := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	endpoint := settings["endpoint"]
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}

	a.service = serviceWrapper{azblob.NewServiceURL(*u, p)}
	return nil
}

// List returns every blob in the container named by bucket.
func (a *Azure) List(ctx context.Context, bucket string) ([]common.ObjectRef, error) {
	if a.service == nil {
		return nil, common.ErrNotConfigured
	}
	refs, err := a.service.NewContainer(bucket).ListBlobsFlat(ctx)
	if err != nil {
		if hasServiceCode(err, azblob.ServiceCodeContainerNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrBucketNotFound, bucket)
		}
		return nil, err
	}
	return refs, nil
}

// Delete removes a blob from the container.
func (a *Azure) Delete(ctx context.Context, bucket, key string) error {
	if a.service == nil {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}

	err := a.service.NewContainer(bucket).NewBlockBlob(key).Delete(ctx)
	if err != nil && hasServiceCode(err, azblob.ServiceCodeBlobNotFound) {
		return fmt.Errorf("%w: %s/%s", common.ErrObjectNotFound, bucket, key)
	}
	return err
}

// Put uploads a block blob to the container.
func (a *Azure) Put(ctx context.Context, bucket, key string, data io.Reader) error {
	if a.service == nil {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}
	return a.service.NewContainer(bucket).NewBlockBlob(key).UploadFromReader(ctx, data)
}

func hasServiceCode(err error, code azblob.ServiceCodeType) bool {
	var stgErr azblob.StorageError
	return errors.As(err, &stgErr) && stgErr.ServiceCode() == code
}
