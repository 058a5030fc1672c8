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
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/jeremyhahn/go-objwatch/pkg/metrics"
)

// SetupRoutes configures all routes for the REST API
func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler(handler.deps.Gatherer)))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/notifications", handler.IngestNotifications)
		v1.GET("/records/max", handler.GetGlobalMax)

		buckets := v1.Group("/buckets/:bucket")
		{
			buckets.GET("/size", handler.GetBucketSize)
			buckets.GET("/records", handler.GetRecords)
			buckets.GET("/report", handler.GetReport)
			buckets.POST("/report", handler.PublishReport)
			buckets.POST("/cleanup", handler.RunCleanup)
		}
	}
}
