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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Environment variables read by S3ConfigFromEnv.
const (
	EnvS3Endpoint  = "FXZ_S3_ENDPOINT"
	EnvS3AccessKey = "FXZ_S3_ACCESS_KEY"
	EnvS3SecretKey = "FXZ_S3_SECRET_KEY"
	EnvS3Region    = "FXZ_S3_REGION"
	EnvS3Insecure  = "FXZ_S3_INSECURE"
)

// S3Config holds the connection settings for an S3-compatible endpoint.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3ConfigFromEnv reads S3Config from the FXZ_S3_* environment variables.
func S3ConfigFromEnv() (S3Config, error) {
	cfg := S3Config{
		Endpoint:  strings.TrimSpace(os.Getenv(EnvS3Endpoint)),
		Region:    strings.TrimSpace(os.Getenv(EnvS3Region)),
		AccessKey: strings.TrimSpace(os.Getenv(EnvS3AccessKey)),
		SecretKey: strings.TrimSpace(os.Getenv(EnvS3SecretKey)),
		UseSSL:    true,
	}
	if v := strings.TrimSpace(os.Getenv(EnvS3Insecure)); v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return S3Config{}, fmt.Errorf("%s: %w", EnvS3Insecure, err)
		}
		cfg.UseSSL = !insecure
	}
	if cfg.Endpoint == "" {
		return S3Config{}, fmt.Errorf("s3 endpoint is required (%s)", EnvS3Endpoint)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return S3Config{}, fmt.Errorf("s3 access key and secret key are required (%s, %s)", EnvS3AccessKey, EnvS3SecretKey)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return cfg, nil
}

// S3Sink writes to an object in an S3-compatible store.
type S3Sink struct {
	client *minio.Client
	target string
	bucket string
	object string
	region string
	logger *slog.Logger
}

// NewS3Sink creates a sink for bucket/object. No request is made until Write.
func NewS3Sink(_ context.Context, cfg S3Config, target, bucket, object string, logger *slog.Logger) (*S3Sink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Sink{
		client: client,
		target: target,
		bucket: bucket,
		object: object,
		region: cfg.Region,
		logger: logger,
	}, nil
}

// Location implements Sink.
func (s *S3Sink) Location() string {
	return s.target
}

// Write implements Sink. The bucket is created when it does not exist.
func (s *S3Sink) Write(ctx context.Context, data []byte) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
		}
	}

	info, err := s.client.PutObject(ctx, s.bucket, s.object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", s.target, err)
	}

	s.logger.Info("report uploaded",
		slog.String("bucket", s.bucket),
		slog.String("object", s.object),
		slog.String("etag", info.ETag),
		slog.Int("bytes", len(data)))
	return nil
}
