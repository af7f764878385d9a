// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// ServiceName is reported by the HTTP tracing middleware.
const ServiceName = "fxzscan"

// RegisterRoutes registers the /analysis endpoints on rg.
//
// Endpoints:
//
//	POST /v1/analysis/run             - Run an analysis of the configured root
//	GET  /v1/analysis/latest          - Last report produced by /run
//	GET  /v1/analysis/snapshots       - List snapshots
//	GET  /v1/analysis/snapshots/diff  - Diff two snapshots
//	GET  /v1/analysis/health          - Health check
//
// Example:
//
//	v1 := router.Group("/v1")
//	analyzer.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	analysis := rg.Group("/analysis")
	{
		analysis.POST("/run", handlers.HandleRun)
		analysis.GET("/latest", handlers.HandleLatest)

		analysis.GET("/snapshots", handlers.HandleListSnapshots)
		analysis.GET("/snapshots/diff", handlers.HandleDiffSnapshots)

		analysis.GET("/health", handlers.HandleHealth)
	}
}

// NewRouter builds the HTTP engine: recovery and tracing middleware, the
// /v1 API and the Prometheus /metrics endpoint.
func NewRouter(handlers *Handlers, debug bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(ServiceName))
	if debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}
