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
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/cleanup"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/notification"
	"github.com/jeremyhahn/go-objwatch/pkg/pipeline"
	"github.com/jeremyhahn/go-objwatch/pkg/report"
	"github.com/jeremyhahn/go-objwatch/pkg/server/middleware"
	"github.com/jeremyhahn/go-objwatch/pkg/sizing"
	"github.com/jeremyhahn/go-objwatch/pkg/version"
)

// Dependencies are the components the handlers serve.
type Dependencies struct {
	Source    common.ObjectSource
	Store     common.RecordStore
	Pipeline  *pipeline.Pipeline
	Reporter  *report.Reporter
	Publisher *report.Publisher
	Policy    *cleanup.Policy
	Include   cleanup.Predicate
	Threshold int64
	Gatherer  prometheus.Gatherer
	Logger    adapters.Logger
}

// Handler serves the pipeline over HTTP
type Handler struct {
	deps Dependencies
}

// NewHandler creates a new Handler instance
func NewHandler(deps Dependencies) *Handler {
	if deps.Logger == nil {
		deps.Logger = adapters.NewNoOpLogger()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Handler{deps: deps}
}

// IngestNotifications handles notification delivery
// @Summary Ingest notifications
// @Description Accepts an S3 event document, optionally wrapped in SNS and SQS envelopes, or a JSON array of notifications
// @Tags notifications
// @Accept json
// @Produce json
// @Param async query bool false "Queue the batch instead of processing it inline"
// @Success 200 {object} pipeline.Result
// @Success 202 {object} SubmittedResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /notifications [post]
func (h *Handler) IngestNotifications(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondWithError(c, http.StatusRequestEntityTooLarge, "Request entity too large")
			return
		}
		RespondWithError(c, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	batch, err := notification.Decode(body)
	if err != nil {
		RespondWithErr(c, err)
		return
	}

	ctx := c.Request.Context()
	log := middleware.LoggerFor(ctx, h.deps.Logger)

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		id, err := h.deps.Pipeline.Submit(batch)
		if err != nil {
			RespondWithError(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		log.Debug(ctx, "Batch queued",
			adapters.Field{Key: "batch_id", Value: id},
			adapters.Field{Key: "notifications", Value: len(batch)})
		c.JSON(http.StatusAccepted, SubmittedResponse{ID: id, Notifications: len(batch)})
		return
	}

	res := h.deps.Pipeline.Process(ctx, batch)
	if res.Err != nil {
		log.Error(ctx, "Batch failed",
			adapters.Field{Key: "notifications", Value: len(batch)},
			adapters.Field{Key: "error", Value: res.Err.Error()})
		RespondWithErr(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetBucketSize handles live size computation
// @Summary Current bucket size
// @Description Lists the bucket and returns its total size and object count
// @Tags buckets
// @Produce json
// @Param bucket path string true "Bucket name"
// @Success 200 {object} SizeResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /buckets/{bucket}/size [get]
func (h *Handler) GetBucketSize(c *gin.Context) {
	bucket := c.Param("bucket")
	summary, _, err := sizing.ComputeBucket(c.Request.Context(), h.deps.Source, bucket)
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SizeResponse{Bucket: bucket, TotalSize: summary.TotalSize, ObjectCount: summary.ObjectCount})
}

// GetRecords handles record range queries
// @Summary Query size records
// @Description Returns the records of a bucket with from <= timestamp <= to in timestamp order. to of 0 means no upper bound.
// @Tags records
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param from query int false "Inclusive lower bound in unix seconds"
// @Param to query int false "Inclusive upper bound in unix seconds"
// @Success 200 {object} RecordsResponse
// @Failure 400 {object} ErrorResponse
// @Router /buckets/{bucket}/records [get]
func (h *Handler) GetRecords(c *gin.Context) {
	bucket := c.Param("bucket")
	from, err := queryInt(c, "from")
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "invalid from: "+err.Error())
		return
	}
	to, err := queryInt(c, "to")
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "invalid to: "+err.Error())
		return
	}

	records, err := h.deps.Store.QueryRange(c.Request.Context(), bucket, from, to)
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	c.JSON(http.StatusOK, RecordsResponse{
		Bucket:  bucket,
		From:    from,
		To:      to,
		Records: records,
		Count:   len(records),
		Empty:   len(records) == 0,
	})
}

// GetGlobalMax handles the all-time maximum query
// @Summary Largest record
// @Description Returns the record with the greatest total size across all buckets
// @Tags records
// @Produce json
// @Success 200 {object} common.SizeRecord
// @Failure 404 {object} ErrorResponse
// @Router /records/max [get]
func (h *Handler) GetGlobalMax(c *gin.Context) {
	rec, err := h.deps.Store.QueryGlobalMax(c.Request.Context())
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetReport handles report export
// @Summary Size history report
// @Description Returns the recent series of a bucket and the all-time maximum
// @Tags reports
// @Produce json
// @Param bucket path string true "Bucket name"
// @Success 200 {object} report.Report
// @Router /buckets/{bucket}/report [get]
func (h *Handler) GetReport(c *gin.Context) {
	rep, err := h.deps.Reporter.Build(c.Request.Context(), c.Param("bucket"))
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// PublishReport handles report publication
// @Summary Publish size history report
// @Description Builds the report and writes it into the bucket
// @Tags reports
// @Produce json
// @Param bucket path string true "Bucket name"
// @Success 201 {object} report.Report
// @Failure 503 {object} ErrorResponse
// @Router /buckets/{bucket}/report [post]
func (h *Handler) PublishReport(c *gin.Context) {
	ctx := c.Request.Context()
	rep, err := h.deps.Reporter.Build(ctx, c.Param("bucket"))
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	if err := h.deps.Publisher.Publish(ctx, rep); err != nil {
		RespondWithErr(c, err)
		return
	}
	c.Header("Location", "/"+rep.Bucket+"/"+h.deps.Publisher.Key())
	c.JSON(http.StatusCreated, rep)
}

// RunCleanup handles manual cleanup
// @Summary Run cleanup
// @Description Evicts the largest eligible object when the bucket exceeds the threshold
// @Tags cleanup
// @Produce json
// @Param bucket path string true "Bucket name"
// @Param threshold query int false "Threshold in bytes, defaults to the configured threshold"
// @Success 200 {object} cleanup.Outcome
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /buckets/{bucket}/cleanup [post]
func (h *Handler) RunCleanup(c *gin.Context) {
	threshold := h.deps.Threshold
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			RespondWithError(c, http.StatusBadRequest, "invalid threshold: "+err.Error())
			return
		}
		threshold = v
	}

	outcome, err := h.deps.Policy.Run(c.Request.Context(), c.Param("bucket"), threshold, h.deps.Include)
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	if h.deps.Pipeline != nil {
		h.deps.Pipeline.FollowEviction(c.Request.Context(), outcome)
	}
	c.JSON(http.StatusOK, outcome)
}

// HealthCheck handles health check requests
// @Summary Health check
// @Description Check if the server is healthy
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) HealthCheck(c *gin.Context) {
	info := version.GetInfo()
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   info.Version,
		Commit:    info.Commit,
		Threshold: h.deps.Threshold,
	})
}

func queryInt(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
