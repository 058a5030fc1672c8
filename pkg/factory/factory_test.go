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

package factory

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredTypes(t *testing.T) {
	assert.Equal(t, []string{"azure", "gcs", "local", "memory", "s3"}, SourceTypes())
	assert.Equal(t, []string{"badger", "memory", "sqlite"}, StoreTypes())
}

func TestUnknownTypes(t *testing.T) {
	_, err := NewSource("ftp", nil)
	assert.True(t, errors.Is(err, ErrUnknownSource))

	_, err = NewStore("redis", nil)
	assert.True(t, errors.Is(err, ErrUnknownStore))
}

func TestMemorySource(t *testing.T) {
	source, err := NewSource("memory", map[string]string{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, source.Put(ctx, "b1", "k", strings.NewReader("data")))
	refs, err := source.List(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestLocalSource(t *testing.T) {
	dir := t.TempDir()
	source, err := NewSource("local", map[string]string{"path": dir})
	require.NoError(t, err)
	assert.IsType(t, &local.Local{}, source)

	_, err = NewSource("local", map[string]string{})
	assert.True(t, errors.Is(err, common.ErrPathNotSet))
}

func TestNewSourceWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := adapters.NewJSONLogger(&buf)
	logger.SetLevel(adapters.DebugLevel)

	source, err := NewSourceWithLogger("local", map[string]string{"path": t.TempDir()}, logger)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, source.Put(ctx, "bucket1", "k.txt", strings.NewReader("data")))
	require.NoError(t, source.Delete(ctx, "bucket1", "k.txt"))
	assert.Contains(t, buf.String(), "object deleted")

	source, err = NewSourceWithLogger("memory", map[string]string{}, logger)
	require.NoError(t, err)
	assert.NotNil(t, source)

	_, err = NewSourceWithLogger("ftp", nil, logger)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestAzureSourceRequiresAccount(t *testing.T) {
	_, err := NewSource("azure", map[string]string{})
	assert.True(t, errors.Is(err, common.ErrAccountNotSet))
}

func TestStores(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]string
	}{
		{"memory", map[string]string{}},
		{"badger", map[string]string{"path": filepath.Join(t.TempDir(), "badger")}},
		{"sqlite", map[string]string{"path": filepath.Join(t.TempDir(), "records.db")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.name, tt.settings)
			require.NoError(t, err)
			defer store.Close()

			ctx := context.Background()
			require.NoError(t, store.Append(ctx, common.NewSizeRecord("b1", 1, 47, 2)))
			rec, err := store.QueryGlobalMax(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(47), rec.TotalSize)
		})
	}
}

func TestPersistentStoresRequirePath(t *testing.T) {
	for _, storeType := range []string{"badger", "sqlite"} {
		_, err := NewStore(storeType, map[string]string{})
		assert.True(t, errors.Is(err, common.ErrPathNotSet), storeType)
	}
}
