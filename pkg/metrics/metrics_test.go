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

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordAppended("b1", 1, 1)
	m.EventSkipped(3)
	m.BatchProcessed(nil, time.Millisecond)
	m.CleanupOutcome("evicted")
}

func TestRecordAppended(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAppended("b1", 19, 1)
	m.RecordAppended("b1", 47, 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RecordsAppended.WithLabelValues("b1")))
	assert.Equal(t, float64(47), testutil.ToFloat64(m.BucketSize.WithLabelValues("b1")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ObjectCount.WithLabelValues("b1")))
}

func TestBatchesAndOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.BatchProcessed(nil, 5*time.Millisecond)
	m.BatchProcessed(errors.New("unreachable"), time.Millisecond)
	m.BatchProcessed(nil, time.Millisecond)
	m.EventSkipped(2)
	m.EventSkipped(0)
	m.CleanupOutcome("evicted")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.BatchesTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BatchesTotal.WithLabelValues("error")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EventsSkipped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Evictions.WithLabelValues("evicted")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordAppended("b1", 19, 1)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `objwatch_bucket_size_bytes{bucket="b1"} 19`)
}
