// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sink writes finished reports to a local file or object storage.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// URL schemes accepted by Open.
const (
	SchemeGCS = "gs"
	SchemeS3  = "s3"
)

// ErrInvalidTarget is returned when an object storage URL has no bucket or object.
var ErrInvalidTarget = errors.New("invalid output target")

// Sink receives the encoded report.
type Sink interface {
	// Write stores data, replacing any previous content at the location.
	Write(ctx context.Context, data []byte) error

	// Location returns the target as given to Open.
	Location() string
}

// Target is a parsed output location.
type Target struct {
	// Scheme is "gs", "s3", or empty for a local path.
	Scheme string
	Bucket string
	Object string
	Path   string
}

// ParseTarget splits target into its parts. Strings without a gs:// or s3://
// prefix are local paths.
func ParseTarget(target string) (Target, error) {
	for _, scheme := range []string{SchemeGCS, SchemeS3} {
		prefix := scheme + "://"
		if !strings.HasPrefix(target, prefix) {
			continue
		}
		bucket, object, ok := strings.Cut(strings.TrimPrefix(target, prefix), "/")
		if !ok || bucket == "" || object == "" || strings.HasSuffix(object, "/") {
			return Target{}, fmt.Errorf("%w: %q must be %s://bucket/object", ErrInvalidTarget, target, scheme)
		}
		return Target{Scheme: scheme, Bucket: bucket, Object: object}, nil
	}
	if target == "" {
		return Target{}, fmt.Errorf("%w: empty path", ErrInvalidTarget)
	}
	return Target{Path: target}, nil
}

// Open returns the sink for target.
//
// Inputs:
//   - ctx: Used by sinks that construct clients eagerly.
//   - target: A local path, gs://bucket/object or s3://bucket/object.
//   - logger: Must not be nil.
func Open(ctx context.Context, target string, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	switch t.Scheme {
	case SchemeGCS:
		return &GCSSink{target: target, bucket: t.Bucket, object: t.Object, logger: logger}, nil
	case SchemeS3:
		cfg, err := S3ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return NewS3Sink(ctx, cfg, target, t.Bucket, t.Object, logger)
	default:
		return &LocalSink{path: t.Path, logger: logger}, nil
	}
}
