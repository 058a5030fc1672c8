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

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/memory"
	recordmemory "github.com/jeremyhahn/go-objwatch/pkg/recordstore/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(ts int64) func() time.Time {
	return func() time.Time { return time.Unix(ts, 0) }
}

func seed(t *testing.T, store common.RecordStore, records ...common.SizeRecord) {
	t.Helper()
	for _, rec := range records {
		require.NoError(t, store.Append(context.Background(), rec))
	}
}

func TestBuildWindow(t *testing.T) {
	store := recordmemory.New()
	seed(t, store,
		common.NewSizeRecord("b1", 85, 500, 3),
		common.NewSizeRecord("b1", 90, 19, 1),
		common.NewSizeRecord("b1", 95, 47, 2),
		common.NewSizeRecord("b1", 100, 19, 1),
		common.NewSizeRecord("b2", 99, 1000, 9),
	)

	r, err := New(store, WithClock(at(100))).Build(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(90), r.From)
	assert.Equal(t, int64(100), r.To)
	assert.False(t, r.Empty)
	assert.Equal(t, []Point{{90, 19}, {95, 47}, {100, 19}}, r.Points)
	assert.Equal(t, int64(1000), r.MaxSize, "maximum spans every bucket and all time")
}

func TestBuildEmpty(t *testing.T) {
	r, err := New(recordmemory.New(), WithClock(at(100))).Build(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, r.Empty)
	assert.Empty(t, r.Points)
	assert.NotNil(t, r.Points)
	assert.Equal(t, int64(0), r.MaxSize)
}

func TestBuildCustomWindow(t *testing.T) {
	store := recordmemory.New()
	seed(t, store, common.NewSizeRecord("b1", 40, 19, 1))

	reporter := New(store, WithClock(at(100)), WithWindow(time.Minute))
	assert.Equal(t, time.Minute, reporter.Window())
	r, err := reporter.Build(context.Background(), "b1")
	require.NoError(t, err)
	assert.Len(t, r.Points, 1)

	assert.Equal(t, DefaultWindow, New(store, WithWindow(-1)).Window())
}

func TestBuildStoreClosed(t *testing.T) {
	store := recordmemory.New()
	require.NoError(t, store.Close())
	_, err := New(store).Build(context.Background(), "b1")
	assert.True(t, errors.Is(err, common.ErrStoreClosed))
}

func TestPublish(t *testing.T) {
	src := memory.New()
	pub := NewPublisher(src, nil, "")
	assert.Equal(t, DefaultKey, pub.Key())

	r := &Report{Bucket: "b1", From: 90, To: 100, Points: []Point{{95, 47}}, MaxSize: 47}
	require.NoError(t, pub.Publish(context.Background(), r))

	data, err := src.Get("b1", DefaultKey)
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *r, got)
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONRenderer{}.Render(&buf, &Report{Bucket: "b1", Points: []Point{}, Empty: true}))
	assert.Contains(t, buf.String(), `"empty": true`)
	assert.Contains(t, buf.String(), `"points": []`)
	assert.Equal(t, "application/json", JSONRenderer{}.ContentType())
}

type errRenderer struct{ JSONRenderer }

func (errRenderer) Render(io.Writer, *Report) error { return errors.New("render failed") }

func TestPublishRenderError(t *testing.T) {
	src := memory.New()
	pub := NewPublisher(src, errRenderer{}, "out.json")
	err := pub.Publish(context.Background(), &Report{Bucket: "b1"})
	require.Error(t, err)
	assert.Equal(t, 0, src.Count("b1"))
}
