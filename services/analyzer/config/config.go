// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads fxzscan configuration from YAML.
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/fxzscan/services/analyzer/ast"
	"github.com/AleutianAI/fxzscan/services/analyzer/discovery"
	"github.com/AleutianAI/fxzscan/services/analyzer/extract"
	"github.com/AleutianAI/fxzscan/services/analyzer/report"
)

// =============================================================================
// Embedded Defaults
// =============================================================================

//go:embed defaults.yaml
var defaultConfigYAML []byte

// MaxYAMLFileSize bounds the size of a user configuration file (1MB).
const MaxYAMLFileSize = 1 << 20

// DefaultFileName is the configuration file picked up from the working
// directory when no path is given.
const DefaultFileName = "fxzscan.yaml"

var configTracer = otel.Tracer("fxzscan.config")

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the complete fxzscan configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	Discovery DiscoveryConfig `yaml:"discovery"`
	Parser    ParserConfig    `yaml:"parser"`
	Extract   ExtractConfig   `yaml:"extract"`
	Report    ReportConfig    `yaml:"report"`
	Run       RunConfig       `yaml:"run"`
}

// DiscoveryConfig selects the files that are scanned.
type DiscoveryConfig struct {
	// Extensions are matched case-sensitively and must start with ".".
	Extensions []string `yaml:"extensions" validate:"required,min=1,dive,startswith=."`

	// ExcludeDirs are directory names pruned at any depth.
	ExcludeDirs []string `yaml:"exclude_dirs" validate:"dive,required"`

	// ExcludeGlobs are doublestar patterns over root-relative paths.
	ExcludeGlobs []string `yaml:"exclude_globs" validate:"dive,required"`

	IncludeHidden bool `yaml:"include_hidden"`
}

// ParserConfig bounds the parser.
type ParserConfig struct {
	MaxFileSize int64 `yaml:"max_file_size" validate:"gt=0"`
}

// ExtractConfig names the markers the extractor looks for.
type ExtractConfig struct {
	RouteTag             string   `yaml:"route_tag" validate:"required"`
	FormTags             []string `yaml:"form_tags" validate:"required,min=1,dive,required"`
	ProtectedRouteMarker string   `yaml:"protected_route_marker" validate:"required"`
	ThemeProviderMarker  string   `yaml:"theme_provider_marker" validate:"required"`
	AuthStoreMarker      string   `yaml:"auth_store_marker" validate:"required"`
	StoreFactory         string   `yaml:"store_factory" validate:"required"`
	PagesPrefix          string   `yaml:"pages_prefix" validate:"required"`
}

// ReportConfig shapes the written report.
type ReportConfig struct {
	// SplitNotes moves advisory notes out of warnings into a notes field.
	SplitNotes bool `yaml:"split_notes"`

	AdvisoryNotes []string `yaml:"advisory_notes" validate:"dive,required"`
}

// RunConfig controls run-level behavior.
type RunConfig struct {
	// Workers is the parse pool size. 0 uses runtime.NumCPU().
	Workers int `yaml:"workers" validate:"gte=0,lte=1024"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	return LoadConfig(context.Background(), nil)
}

// LoadConfig overlays YAML data on the embedded defaults and validates the
// result.
//
// Inputs:
//   - ctx: Context for tracing.
//   - data: User YAML. Empty data yields the defaults.
//
// Outputs:
//   - *Config: The validated configuration.
//   - error: Non-nil if parsing or validation fails.
func LoadConfig(ctx context.Context, data []byte) (*Config, error) {
	_, span := configTracer.Start(ctx, "config.LoadConfig")
	defer span.End()

	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("LoadConfig: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		return nil, fmt.Errorf("LoadConfig: parsing embedded defaults: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("LoadConfig: parsing YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("LoadConfig: validation: %w", err)
	}

	span.SetAttributes(
		attribute.Int("extensions", len(cfg.Discovery.Extensions)),
		attribute.Int("exclude_dirs", len(cfg.Discovery.ExcludeDirs)),
		attribute.Int("workers", cfg.Run.Workers),
		attribute.Bool("split_notes", cfg.Report.SplitNotes),
	)
	return &cfg, nil
}

// LoadFile reads and loads the configuration at path.
//
// A missing file yields the defaults unless required is set.
func LoadFile(ctx context.Context, path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			slog.Debug("no config file, using defaults", slog.String("path", path))
			return LoadConfig(ctx, nil)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := LoadConfig(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	slog.Debug("config loaded", slog.String("path", path))
	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%s: failed %q constraint (value %v)", first.Namespace(), first.Tag(), first.Value())
		}
		return err
	}
	return nil
}

// =============================================================================
// Stage Options
// =============================================================================

// Workers returns the effective worker count.
func (c *Config) Workers() int {
	if c.Run.Workers > 0 {
		return c.Run.Workers
	}
	return runtime.NumCPU()
}

// DiscoveryOptions converts the discovery section.
func (c *Config) DiscoveryOptions() discovery.Options {
	return discovery.Options{
		Extensions:    c.Discovery.Extensions,
		ExcludeDirs:   c.Discovery.ExcludeDirs,
		ExcludeGlobs:  c.Discovery.ExcludeGlobs,
		IncludeHidden: c.Discovery.IncludeHidden,
	}
}

// ParserOptions converts the parser section.
func (c *Config) ParserOptions(logger *slog.Logger) []ast.ParserOption {
	return []ast.ParserOption{
		ast.WithMaxFileSize(c.Parser.MaxFileSize),
		ast.WithLogger(logger),
	}
}

// ExtractOptions converts the extract section.
func (c *Config) ExtractOptions(extended bool, logger *slog.Logger) extract.Options {
	return extract.Options{
		RouteTag:             c.Extract.RouteTag,
		FormTags:             c.Extract.FormTags,
		ProtectedRouteMarker: c.Extract.ProtectedRouteMarker,
		ThemeProviderMarker:  c.Extract.ThemeProviderMarker,
		AuthStoreMarker:      c.Extract.AuthStoreMarker,
		StoreFactory:         c.Extract.StoreFactory,
		PagesPrefix:          c.Extract.PagesPrefix,
		Extended:             extended,
		Logger:               logger,
	}
}

// AssemblerOptions converts the report section.
func (c *Config) AssemblerOptions(extended bool) report.AssemblerOptions {
	return report.AssemblerOptions{
		SplitNotes:    c.Report.SplitNotes,
		AdvisoryNotes: c.Report.AdvisoryNotes,
		Extended:      extended,
		PagesPrefix:   c.Extract.PagesPrefix,
	}
}
