// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// astTracerName is the OTel tracer name for the parser stage.
const astTracerName = "fxzscan.ast"

var (
	// parseDuration measures per-file parse time.
	//
	// Labels:
	//   - status: "success", "syntax_error", "too_large", "invalid_content", "canceled"
	parseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fxzscan",
			Subsystem: "parse",
			Name:      "duration_seconds",
			Help:      "Duration of source file parses in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"status"},
	)

	// parseTotal counts parses by outcome.
	parseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fxzscan",
			Subsystem: "parse",
			Name:      "total",
			Help:      "Total number of source file parses by outcome.",
		},
		[]string{"status"},
	)
)

// startParseSpan opens the span covering one Parse call.
func startParseSpan(ctx context.Context, grammar, filePath string, size int) (context.Context, trace.Span) {
	return otel.Tracer(astTracerName).Start(ctx, "ast.Parser.Parse",
		trace.WithAttributes(
			attribute.String("file", filePath),
			attribute.String("grammar", grammar),
			attribute.Int("size_bytes", size),
		),
	)
}

// parseStatus maps a Parse error to a low-cardinality label value.
func parseStatus(err error) string {
	var syntaxErr *SyntaxError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &syntaxErr):
		return "syntax_error"
	case errors.Is(err, ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, ErrInvalidContent):
		return "invalid_content"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// finishParse records metrics and span status for a completed Parse call.
func finishParse(span trace.Span, start time.Time, err error) {
	status := parseStatus(err)
	parseDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	parseTotal.WithLabelValues(status).Inc()

	span.SetAttributes(attribute.String("status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
