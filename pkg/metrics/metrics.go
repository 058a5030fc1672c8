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

// Package metrics exposes pipeline activity as Prometheus collectors.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "objwatch"

// Metrics holds the pipeline collectors.
type Metrics struct {
	RecordsAppended *prometheus.CounterVec
	EventsSkipped   prometheus.Counter
	BatchesTotal    *prometheus.CounterVec
	BatchDuration   prometheus.Histogram
	Evictions       *prometheus.CounterVec
	BucketSize      *prometheus.GaugeVec
	ObjectCount     *prometheus.GaugeVec
}

// New registers the pipeline collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsAppended: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_appended_total",
				Help:      "Total number of size records appended by bucket",
			},
			[]string{"bucket"},
		),
		EventsSkipped: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_skipped_total",
				Help:      "Total number of malformed notifications skipped",
			},
		),
		BatchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Total number of notification batches by status",
			},
			[]string{"status"},
		),
		BatchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_milliseconds",
				Help:      "Duration of notification batch processing in milliseconds",
				Buckets: []float64{
					1,    // in-memory sources
					10,   // local disk
					50,   // 50ms
					100,  // single remote listing
					500,  // 500ms
					1000, // 1s
					5000, // large remote buckets
				},
			},
		),
		Evictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cleanup_outcomes_total",
				Help:      "Total number of cleanup evaluations by outcome",
			},
			[]string{"outcome"},
		),
		BucketSize: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bucket_size_bytes",
				Help:      "Last observed total size of a bucket",
			},
			[]string{"bucket"},
		),
		ObjectCount: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bucket_objects",
				Help:      "Last observed object count of a bucket",
			},
			[]string{"bucket"},
		),
	}
}

// RecordAppended counts an appended record and updates the bucket gauges.
func (m *Metrics) RecordAppended(bucket string, totalSize, objectCount int64) {
	if m == nil {
		return
	}
	m.RecordsAppended.WithLabelValues(bucket).Inc()
	m.BucketSize.WithLabelValues(bucket).Set(float64(totalSize))
	m.ObjectCount.WithLabelValues(bucket).Set(float64(objectCount))
}

// EventSkipped counts n skipped notifications.
func (m *Metrics) EventSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EventsSkipped.Add(float64(n))
}

// BatchProcessed records a batch result and its duration.
func (m *Metrics) BatchProcessed(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.BatchesTotal.WithLabelValues(status).Inc()
	m.BatchDuration.Observe(float64(elapsed.Milliseconds()))
}

// CleanupOutcome counts a cleanup evaluation by its outcome kind.
func (m *Metrics) CleanupOutcome(kind string) {
	if m == nil {
		return
	}
	m.Evictions.WithLabelValues(kind).Inc()
}

// Handler serves the collectors registered with gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
