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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/AleutianAI/fxzscan/services/analyzer/report"
	"github.com/AleutianAI/fxzscan/services/analyzer/snapshot"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeMissingParameter  = "MISSING_PARAMETER"
	CodeAnalysisFailed    = "ANALYSIS_FAILED"
	CodeNoReport          = "NO_REPORT"
	CodeSnapshotsDisabled = "SNAPSHOTS_DISABLED"
	CodeSnapshotNotFound  = "SNAPSHOT_NOT_FOUND"
	CodeSnapshotFailed    = "SNAPSHOT_FAILED"
	CodeInternal          = "INTERNAL_ERROR"
)

// requestIDHeader carries the caller's request ID, echoed in responses.
const requestIDHeader = "X-Request-ID"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RunRequest is the optional body of POST /v1/analysis/run.
type RunRequest struct {
	// Snapshot saves the report when a snapshot store is configured.
	Snapshot bool `json:"snapshot"`

	// Label is attached to the saved snapshot.
	Label string `json:"label" binding:"max=200"`
}

// HealthResponse is the body of GET /v1/analysis/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Root        string `json:"root"`
	HasReport   bool   `json:"has_report"`
	LastRunID   string `json:"last_run_id,omitempty"`
	Snapshots   bool   `json:"snapshots"`
	LastRunAtMs int64  `json:"last_run_at_milli,omitempty"`
}

// SnapshotListResponse is the body of GET /v1/analysis/snapshots.
type SnapshotListResponse struct {
	Snapshots []*snapshot.Metadata `json:"snapshots"`
}

// Handlers serves the analysis HTTP API for one project root.
//
// Thread Safety: Safe for concurrent use. Runs are serialized.
type Handlers struct {
	analyzer  *Analyzer
	root      string
	snapshots *snapshot.Manager
	logger    *slog.Logger

	runMu sync.Mutex

	mu        sync.RWMutex
	latest    *Result
	latestAt  time.Time
	latestRaw []byte
}

// NewHandlers creates the HTTP handlers.
//
// Inputs:
//   - analyzer: Must not be nil.
//   - root: Project root analyzed by POST /run.
//   - snapshots: Optional. Nil disables the snapshot endpoints.
//   - logger: Must not be nil.
func NewHandlers(analyzer *Analyzer, root string, snapshots *snapshot.Manager, logger *slog.Logger) (*Handlers, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}
	return &Handlers{
		analyzer:  analyzer,
		root:      absRoot,
		snapshots: snapshots,
		logger:    logger,
	}, nil
}

// HandleRun handles POST /v1/analysis/run.
//
// Description:
//
//	Runs a full analysis of the configured root and caches the report for
//	GET /latest. With {"snapshot": true} the report is also saved as a
//	snapshot; its ID is returned in the X-Snapshot-ID header.
//
// Response:
//
//	200 OK: The report JSON
//	400 Bad Request: Malformed body
//	500 Internal Server Error: The analysis or snapshot save failed
func (h *Handlers) HandleRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleRun"))

	var req RunRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "invalid request body: " + err.Error(),
				Code:  CodeInvalidRequest,
			})
			return
		}
	}

	h.runMu.Lock()
	defer h.runMu.Unlock()

	result, err := h.analyzer.Run(c.Request.Context(), h.root)
	if err != nil {
		logger.Error("analysis failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  CodeAnalysisFailed,
		})
		return
	}

	data, err := report.Marshal(result.Output)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInternal})
		return
	}

	h.mu.Lock()
	h.latest = result
	h.latestAt = time.Now()
	h.latestRaw = data
	h.mu.Unlock()

	if req.Snapshot && h.snapshots != nil {
		meta, err := h.snapshots.Save(c.Request.Context(), result.Output, req.Label, result.RunID)
		if err != nil {
			logger.Error("snapshot save failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: err.Error(),
				Code:  CodeSnapshotFailed,
			})
			return
		}
		c.Header("X-Snapshot-ID", meta.SnapshotID)
	}

	c.Header("X-Run-ID", result.RunID)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// HandleLatest handles GET /v1/analysis/latest.
//
// Response:
//
//	200 OK: The last report produced by POST /run
//	404 Not Found: No run has completed yet
func (h *Handlers) HandleLatest(c *gin.Context) {
	h.mu.RLock()
	result, data := h.latest, h.latestRaw
	h.mu.RUnlock()

	if result == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no analysis has been run",
			Code:  CodeNoReport,
		})
		return
	}
	c.Header("X-Run-ID", result.RunID)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// HandleListSnapshots handles GET /v1/analysis/snapshots.
//
// Query Parameters:
//
//	limit: Maximum results, default 100 (optional)
//	all: "true" lists snapshots of every project (optional)
func (h *Handlers) HandleListSnapshots(c *gin.Context) {
	if !h.requireSnapshots(c) {
		return
	}

	limit := 0
	if s := c.Query("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  CodeInvalidRequest,
			})
			return
		}
		limit = parsed
	}
	projectRoot := h.root
	if c.Query("all") == "true" {
		projectRoot = ""
	}

	list, err := h.snapshots.List(c.Request.Context(), projectRoot, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInternal})
		return
	}
	c.JSON(http.StatusOK, SnapshotListResponse{Snapshots: list})
}

// HandleDiffSnapshots handles GET /v1/analysis/snapshots/diff.
//
// Query Parameters:
//
//	base: Base snapshot ID (required)
//	target: Target snapshot ID (required)
//
// Response:
//
//	200 OK: snapshot.ReportDiff
//	400 Bad Request: Missing parameter
//	404 Not Found: Unknown snapshot
func (h *Handlers) HandleDiffSnapshots(c *gin.Context) {
	if !h.requireSnapshots(c) {
		return
	}

	baseID, targetID := c.Query("base"), c.Query("target")
	if baseID == "" || targetID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "base and target parameters are required",
			Code:  CodeMissingParameter,
		})
		return
	}

	ctx := c.Request.Context()
	base, _, err := h.snapshots.Load(ctx, baseID)
	if err != nil {
		h.writeSnapshotError(c, baseID, err)
		return
	}
	target, _, err := h.snapshots.Load(ctx, targetID)
	if err != nil {
		h.writeSnapshotError(c, targetID, err)
		return
	}

	diff, err := snapshot.Diff(base, target)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInternal})
		return
	}
	diff.BaseSnapshotID = baseID
	diff.TargetSnapshotID = targetID
	c.JSON(http.StatusOK, diff)
}

// HandleHealth handles GET /v1/analysis/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	h.mu.RLock()
	resp := HealthResponse{
		Status:    "healthy",
		Root:      h.root,
		HasReport: h.latest != nil,
		Snapshots: h.snapshots != nil,
	}
	if h.latest != nil {
		resp.LastRunID = h.latest.RunID
		resp.LastRunAtMs = h.latestAt.UnixMilli()
	}
	h.mu.RUnlock()

	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) requireSnapshots(c *gin.Context) bool {
	if h.snapshots != nil {
		return true
	}
	c.JSON(http.StatusNotImplemented, ErrorResponse{
		Error: "snapshot store is not configured",
		Code:  CodeSnapshotsDisabled,
	})
	return false
}

func (h *Handlers) writeSnapshotError(c *gin.Context, id string, err error) {
	if errors.Is(err, snapshot.ErrSnapshotNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "snapshot not found: " + id,
			Code:  CodeSnapshotNotFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInternal})
}

// getOrCreateRequestID returns the caller's request ID or a new one, and
// echoes it in the response.
func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(requestIDHeader, id)
	return id
}
