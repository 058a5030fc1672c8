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

// Package local implements an object source backed by a directory tree.
// Each bucket is a subdirectory of the configured root and each object is a
// regular file below it.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// TempSuffix marks in-flight writes, which are never listed.
const TempSuffix = ".objwatch-tmp"

// Local is an object source that stores objects on the local disk.
type Local struct {
	path   string
	logger adapters.Logger
}

// New creates a new Local object source.
func New() *Local {
	return &Local{logger: adapters.NewNoOpLogger()}
}

// Configure sets up the backend with the necessary settings.
// Settings:
//   - path: The root directory holding one subdirectory per bucket (required)
func (l *Local) Configure(settings map[string]string) error {
	l.path = settings["path"]
	if l.path == "" {
		return common.ErrPathNotSet
	}

	// Ensure directory exists
	return os.MkdirAll(l.path, 0750)
}

// SetLogger sets the logger used for mutation messages.
func (l *Local) SetLogger(logger adapters.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// GetPath returns the configured root directory.
func (l *Local) GetPath() string {
	return l.path
}

// BucketPath returns the directory that holds bucket.
func (l *Local) BucketPath(bucket string) string {
	return filepath.Join(l.path, bucket)
}

func (l *Local) objectPath(bucket, key string) (string, error) {
	if l.path == "" {
		return "", common.ErrNotConfigured
	}
	if err := common.ValidateBucket(bucket); err != nil {
		return "", err
	}
	if err := common.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.path, bucket, filepath.FromSlash(key)), nil
}

// List walks the bucket directory and returns every regular file in
// lexical key order. A missing bucket directory lists as empty.
func (l *Local) List(ctx context.Context, bucket string) ([]common.ObjectRef, error) {
	if l.path == "" {
		return nil, common.ErrNotConfigured
	}
	if err := common.ValidateBucket(bucket); err != nil {
		return nil, err
	}

	root := l.BucketPath(bucket)
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return []common.ObjectRef{}, nil
	}

	refs := make([]common.ObjectRef, 0)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Files removed mid-walk are not part of the snapshot
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}

		if info.IsDir() || !info.Mode().IsRegular() || strings.HasSuffix(path, TempSuffix) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		refs = append(refs, common.ObjectRef{Key: filepath.ToSlash(relPath), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// Delete removes an object file. Empty parent directories are left in place.
func (l *Local) Delete(ctx context.Context, bucket, key string) error {
	path, err := l.objectPath(bucket, key)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", common.ErrObjectNotFound, bucket, key)
		}
		return err
	}

	l.logger.Debug(ctx, "object deleted",
		adapters.Field{Key: "bucket", Value: bucket},
		adapters.Field{Key: "key", Value: key})
	return nil
}

// Put writes an object through a temporary file and renames it into place,
// so listings never observe a partially written object.
func (l *Local) Put(ctx context.Context, bucket, key string, data io.Reader) error {
	path, err := l.objectPath(bucket, key)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	tmp := path + TempSuffix
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) // #nosec G304 -- key validated above
	if err != nil {
		return err
	}

	written, err := io.Copy(file, data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	l.logger.Debug(ctx, "object written",
		adapters.Field{Key: "bucket", Value: bucket},
		adapters.Field{Key: "key", Value: key},
		adapters.Field{Key: "size", Value: written})
	return nil
}
