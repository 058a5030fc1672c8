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

package rest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/aggregator"
	"github.com/jeremyhahn/go-objwatch/pkg/cleanup"
	"github.com/jeremyhahn/go-objwatch/pkg/memory"
	"github.com/jeremyhahn/go-objwatch/pkg/metrics"
	"github.com/jeremyhahn/go-objwatch/pkg/monitor"
	"github.com/jeremyhahn/go-objwatch/pkg/pipeline"
	recordmemory "github.com/jeremyhahn/go-objwatch/pkg/recordstore/memory"
	"github.com/jeremyhahn/go-objwatch/pkg/report"
)

const testBucket = "b1"

type testEnv struct {
	source   *memory.Memory
	store    *recordmemory.Store
	pipeline *pipeline.Pipeline
	router   *gin.Engine
	clock    int64
}

// newTestEnv wires an in-memory source and store behind a test router.
func newTestEnv(t *testing.T, threshold int64) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		source: memory.New(),
		store:  recordmemory.New(),
		clock:  1000,
	}
	now := func() time.Time { return time.Unix(env.clock, 0) }

	reg := prometheus.NewRegistry()
	include := cleanup.KeyPattern(cleanup.DefaultPrefix, cleanup.DefaultSuffix, report.DefaultKey)
	policy := cleanup.New(env.source)
	agg := aggregator.New(env.source, env.store, aggregator.WithClock(now))
	env.pipeline = pipeline.New(pipeline.Config{
		Aggregator:      agg,
		Monitor:         monitor.New(policy, threshold, include, nil),
		Metrics:         metrics.New(reg),
		FollowEvictions: true,
		WorkerCount:     1,
	})

	config := DefaultServerConfig()
	config.Mode = gin.TestMode
	config.EnableLogging = false
	config.Logger = adapters.NewNoOpLogger()

	server, err := NewServer(Dependencies{
		Source:    env.source,
		Store:     env.store,
		Pipeline:  env.pipeline,
		Reporter:  report.New(env.store, report.WithClock(now)),
		Publisher: report.NewPublisher(env.source, nil, ""),
		Policy:    policy,
		Include:   include,
		Threshold: threshold,
		Gatherer:  reg,
	}, config)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	env.router = server.Router()
	return env
}

func (e *testEnv) put(t *testing.T, key, data string) {
	t.Helper()
	if err := e.source.Put(context.Background(), testBucket, key, strings.NewReader(data)); err != nil {
		t.Fatalf("Put(%s) error = %v", key, err)
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
