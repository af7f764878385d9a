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
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const analyzerTracerName = "fxzscan.analyzer"

var (
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fxzscan",
		Subsystem: "run",
		Name:      "duration_seconds",
		Help:      "Duration of complete analysis runs in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	runTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fxzscan",
		Subsystem: "run",
		Name:      "total",
		Help:      "Total number of analysis runs by outcome.",
	}, []string{"status"})

	filesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fxzscan",
		Subsystem: "run",
		Name:      "files_scanned_total",
		Help:      "Total number of source files discovered across runs.",
	})

	parseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fxzscan",
		Subsystem: "run",
		Name:      "parse_failures_total",
		Help:      "Total number of files reported as parse failures.",
	})
)

func startRunSpan(ctx context.Context, runID, root string, workers int) (context.Context, trace.Span) {
	return otel.Tracer(analyzerTracerName).Start(ctx, "analyzer.Run",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("root", root),
			attribute.Int("workers", workers),
		),
	)
}

func finishRun(span trace.Span, start time.Time, result *Result, err error) {
	defer span.End()
	runDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		runTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	runTotal.WithLabelValues("success").Inc()
	filesScanned.Add(float64(result.Output.ScannedFiles))
	parseFailures.Add(float64(result.ParseFailures))

	span.SetAttributes(
		attribute.Int("scanned_files", result.Output.ScannedFiles),
		attribute.Int("parse_failures", result.ParseFailures),
		attribute.Int("components", len(result.Output.Components)),
	)
}

// WriteMetricsFile writes the process metrics in the Prometheus text format,
// replacing path atomically.
func WriteMetricsFile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
