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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error" example:"Bad Request"`
	Code    int    `json:"code" example:"400"`
	Message string `json:"message,omitempty" example:"detailed error description"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	Version   string `json:"version,omitempty" example:"0.1.0"`
	Commit    string `json:"commit,omitempty" example:"abc1234"`
	Threshold int64  `json:"threshold" example:"20"`
} // @name HealthResponse

// SizeResponse is the live size of a bucket
type SizeResponse struct {
	Bucket      string `json:"bucket" example:"assignment-bucket"`
	TotalSize   int64  `json:"total_size" example:"47"`
	ObjectCount int64  `json:"object_count" example:"2"`
} // @name SizeResponse

// RecordsResponse is a range of size records
type RecordsResponse struct {
	Bucket  string              `json:"bucket" example:"assignment-bucket"`
	From    int64               `json:"from" example:"1730000000"`
	To      int64               `json:"to" example:"0"`
	Records []common.SizeRecord `json:"records"`
	Count   int                 `json:"count" example:"3"`
	Empty   bool                `json:"empty" example:"false"`
} // @name RecordsResponse

// SubmittedResponse is returned for batches queued asynchronously
type SubmittedResponse struct {
	ID            string `json:"id" example:"5b8cf2b6-8c0e-4a37-9a2e-7e0f5d2b8a11"`
	Notifications int    `json:"notifications" example:"1"`
} // @name SubmittedResponse

// RespondWithError sends a standard error response
func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

// RespondWithErr maps err to a status code and sends it.
func RespondWithErr(c *gin.Context, err error) {
	RespondWithError(c, StatusFor(err), err.Error())
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, common.ErrMalformedNotification):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNoRecords),
		errors.Is(err, common.ErrObjectNotFound),
		errors.Is(err, common.ErrBucketNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrSourceUnavailable), errors.Is(err, common.ErrStoreClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
