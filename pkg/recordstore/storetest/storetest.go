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

// Package storetest provides the conformance suite every record store must
// pass. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty store for a single test.
type Factory func(t *testing.T) common.RecordStore

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("EmptyStore", func(t *testing.T) { testEmptyStore(t, newStore(t)) })
	t.Run("RangeIsInclusive", func(t *testing.T) { testRangeInclusive(t, newStore(t)) })
	t.Run("RangeIsolatesBuckets", func(t *testing.T) { testRangeIsolatesBuckets(t, newStore(t)) })
	t.Run("RangeOrdersByTimestamp", func(t *testing.T) { testRangeOrdering(t, newStore(t)) })
	t.Run("RangeUnboundedUpper", func(t *testing.T) { testRangeUnbounded(t, newStore(t)) })
	t.Run("GlobalMax", func(t *testing.T) { testGlobalMax(t, newStore(t)) })
	t.Run("GlobalMaxTieBreak", func(t *testing.T) { testGlobalMaxTieBreak(t, newStore(t)) })
	t.Run("DuplicatesKept", func(t *testing.T) { testDuplicates(t, newStore(t)) })
	t.Run("ConcurrentAppend", func(t *testing.T) { testConcurrentAppend(t, newStore(t)) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, newStore(t)) })
}

func appendAll(t *testing.T, store common.RecordStore, records ...common.SizeRecord) {
	t.Helper()
	for _, rec := range records {
		require.NoError(t, store.Append(context.Background(), rec))
	}
}

func testEmptyStore(t *testing.T, store common.RecordStore) {
	ctx := context.Background()

	records, err := store.QueryRange(ctx, "b1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = store.QueryGlobalMax(ctx)
	assert.True(t, errors.Is(err, common.ErrNoRecords), "expected ErrNoRecords, got %v", err)
}

func testRangeInclusive(t *testing.T, store common.RecordStore) {
	appendAll(t, store,
		common.NewSizeRecord("b1", 100, 19, 1),
		common.NewSizeRecord("b1", 105, 47, 2),
		common.NewSizeRecord("b1", 110, 19, 1),
		common.NewSizeRecord("b1", 111, 21, 2),
	)

	records, err := store.QueryRange(context.Background(), "b1", 100, 110)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(100), records[0].Timestamp)
	assert.Equal(t, int64(110), records[2].Timestamp)
	for _, rec := range records {
		assert.Equal(t, common.RecordTypeSize, rec.RecordType)
		assert.Equal(t, "b1", rec.BucketName)
	}

	records, err = store.QueryRange(context.Background(), "b1", 200, 300)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func testRangeIsolatesBuckets(t *testing.T, store common.RecordStore) {
	appendAll(t, store,
		common.NewSizeRecord("b1", 100, 10, 1),
		common.NewSizeRecord("b10", 100, 99, 9),
		common.NewSizeRecord("b2", 101, 20, 2),
	)

	records, err := store.QueryRange(context.Background(), "b1", 0, 1000)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(10), records[0].TotalSize)
}

func testRangeOrdering(t *testing.T, store common.RecordStore) {
	appendAll(t, store,
		common.NewSizeRecord("b1", 105, 1, 1),
		common.NewSizeRecord("b1", 100, 2, 1),
		common.NewSizeRecord("b1", 105, 3, 1),
		common.NewSizeRecord("b1", 102, 4, 1),
	)

	records, err := store.QueryRange(context.Background(), "b1", 0, 1000)
	require.NoError(t, err)
	require.Len(t, records, 4)

	got := make([]int64, 0, len(records))
	for _, rec := range records {
		got = append(got, rec.TotalSize)
	}
	// ascending timestamp, insertion order among equal timestamps
	assert.Equal(t, []int64{2, 4, 1, 3}, got)
}

func testRangeUnbounded(t *testing.T, store common.RecordStore) {
	appendAll(t, store,
		common.NewSizeRecord("b1", 100, 1, 1),
		common.NewSizeRecord("b1", 1_900_000_000, 2, 1),
	)

	records, err := store.QueryRange(context.Background(), "b1", 50, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func testGlobalMax(t *testing.T, store common.RecordStore) {
	appendAll(t, store,
		common.NewSizeRecord("b1", 100, 10, 1),
		common.NewSizeRecord("b2", 101, 50, 3),
		common.NewSizeRecord("b1", 102, 30, 2),
	)

	rec, err := store.QueryGlobalMax(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(50), rec.TotalSize)
	assert.Equal(t, "b2", rec.BucketName)
	assert.Equal(t, int64(3), rec.ObjectCount)
}

func testGlobalMaxTieBreak(t *testing.T, store common.RecordStore) {
	appendAll(t, store,
		common.NewSizeRecord("b1", 200, 47, 2),
		common.NewSizeRecord("b2", 100, 47, 5),
		common.NewSizeRecord("b3", 150, 12, 1),
	)

	rec, err := store.QueryGlobalMax(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(47), rec.TotalSize)
	assert.Equal(t, int64(200), rec.Timestamp, "ties resolve to the most recent timestamp")
}

func testDuplicates(t *testing.T, store common.RecordStore) {
	rec := common.NewSizeRecord("b1", 100, 47, 2)
	appendAll(t, store, rec, rec)

	records, err := store.QueryRange(context.Background(), "b1", 100, 100)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func testConcurrentAppend(t *testing.T, store common.RecordStore) {
	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			bucket := fmt.Sprintf("bucket-%d", w%2)
			for i := 0; i < perWorker; i++ {
				rec := common.NewSizeRecord(bucket, int64(1000+i), int64(w*perWorker+i), 1)
				if err := store.Append(context.Background(), rec); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	total := 0
	for _, bucket := range []string{"bucket-0", "bucket-1"} {
		records, err := store.QueryRange(context.Background(), bucket, 0, 0)
		require.NoError(t, err)
		for i := 1; i < len(records); i++ {
			assert.LessOrEqual(t, records[i-1].Timestamp, records[i].Timestamp)
		}
		total += len(records)
	}
	assert.Equal(t, workers*perWorker, total)

	rec, err := store.QueryGlobalMax(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker-1), rec.TotalSize)
}

func testClosed(t *testing.T, store common.RecordStore) {
	require.NoError(t, store.Close())

	err := store.Append(context.Background(), common.NewSizeRecord("b1", 1, 1, 1))
	assert.True(t, errors.Is(err, common.ErrStoreClosed), "expected ErrStoreClosed, got %v", err)

	_, err = store.QueryRange(context.Background(), "b1", 0, 0)
	assert.True(t, errors.Is(err, common.ErrStoreClosed), "expected ErrStoreClosed, got %v", err)
}
