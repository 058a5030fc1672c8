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

package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/recordstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformanceInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) common.RecordStore {
		store, err := Open(Config{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestConformanceOnDisk(t *testing.T) {
	storetest.Run(t, func(t *testing.T) common.RecordStore {
		store, err := Open(Config{Path: t.TempDir()})
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.True(t, errors.Is(err, common.ErrPathNotSet))
}

func TestReopenPreservesRecords(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, common.NewSizeRecord("b1", 100, 19, 1)))
	require.NoError(t, store.Append(ctx, common.NewSizeRecord("b1", 100, 47, 2)))
	require.NoError(t, store.Close())

	store, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(ctx, common.NewSizeRecord("b1", 100, 19, 1)))

	records, err := store.QueryRange(ctx, "b1", 100, 100)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []int64{19, 47, 19}, []int64{records[0].TotalSize, records[1].TotalSize, records[2].TotalSize})

	top, err := store.QueryGlobalMax(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(47), top.TotalSize)
}

func TestNegativeTimestampsOrder(t *testing.T) {
	store, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, common.NewSizeRecord("b1", 5, 1, 1)))
	require.NoError(t, store.Append(ctx, common.NewSizeRecord("b1", -5, 2, 1)))

	records, err := store.QueryRange(ctx, "b1", -10, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(-5), records[0].Timestamp)
}

func TestRejectsNullBucket(t *testing.T) {
	store, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	err = store.Append(context.Background(), common.NewSizeRecord("b\x00x", 1, 1, 1))
	assert.Error(t, err)
}

func TestKeyEncodingOrder(t *testing.T) {
	assert.Less(t, string(encodeInt(-1)), string(encodeInt(0)))
	assert.Less(t, string(encodeInt(0)), string(encodeInt(1)))
	assert.Less(t, string(encodeInt(255)), string(encodeInt(256)))
	assert.Less(t, string(indexKey(10, 200, 0)), string(indexKey(11, 100, 0)))
	assert.Less(t, string(indexKey(10, 100, 5)), string(indexKey(10, 200, 0)))
}
