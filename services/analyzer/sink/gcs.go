// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sink

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
)

// GCSSink writes to a Google Cloud Storage object using application default
// credentials.
type GCSSink struct {
	target string
	bucket string
	object string
	logger *slog.Logger
}

// Location implements Sink.
func (s *GCSSink) Location() string {
	return s.target
}

// Write implements Sink.
func (s *GCSSink) Write(ctx context.Context, data []byte) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating GCS client: %w", err)
	}
	defer client.Close()

	w := client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing %s: %w", s.target, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", s.target, err)
	}

	s.logger.Info("report uploaded",
		slog.String("bucket", s.bucket),
		slog.String("object", s.object),
		slog.Int("bytes", len(data)))
	return nil
}
