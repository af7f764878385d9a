// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("fxzscan.extract")

var (
	extractDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fxzscan",
		Subsystem: "extract",
		Name:      "duration_seconds",
		Help:      "Duration of per-file fact extraction in seconds.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	// factsExtracted counts extracted facts by kind.
	//
	// Labels:
	//   - kind: "component", "route", "form", "api_call", "store"
	factsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fxzscan",
			Subsystem: "extract",
			Name:      "facts_total",
			Help:      "Total number of facts extracted by kind.",
		},
		[]string{"kind"},
	)
)

func startExtractSpan(ctx context.Context, relPath, grammar string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "extract.Extractor.Extract",
		trace.WithAttributes(
			attribute.String("file", relPath),
			attribute.String("grammar", grammar),
		))
}

func recordExtract(span trace.Span, facts *FileFacts, elapsed time.Duration) {
	extractDuration.Observe(elapsed.Seconds())
	factsExtracted.WithLabelValues("component").Add(float64(len(facts.Components)))
	factsExtracted.WithLabelValues("route").Add(float64(len(facts.Routes)))
	factsExtracted.WithLabelValues("form").Add(float64(len(facts.Forms)))
	factsExtracted.WithLabelValues("api_call").Add(float64(len(facts.APICalls)))
	factsExtracted.WithLabelValues("store").Add(float64(len(facts.Stores)))

	span.SetAttributes(
		attribute.Int("facts", facts.FactCount()),
		attribute.Int("components", len(facts.Components)),
		attribute.Int("routes", len(facts.Routes)),
		attribute.Int("forms", len(facts.Forms)),
		attribute.Int("api_calls", len(facts.APICalls)),
		attribute.Int("stores", len(facts.Stores)),
	)
}
