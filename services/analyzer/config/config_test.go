// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/fxzscan/services/analyzer/ast"
	"github.com/AleutianAI/fxzscan/services/analyzer/discovery"
	"github.com/AleutianAI/fxzscan/services/analyzer/extract"
	"github.com/AleutianAI/fxzscan/services/analyzer/report"
)

func TestDefault_MatchesStageDefaults(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	d := discovery.DefaultOptions()
	assert.Equal(t, d.Extensions, cfg.Discovery.Extensions)
	assert.Equal(t, d.ExcludeDirs, cfg.Discovery.ExcludeDirs)
	assert.False(t, cfg.Discovery.IncludeHidden)

	assert.Equal(t, int64(ast.DefaultMaxFileSize), cfg.Parser.MaxFileSize)

	e := extract.DefaultOptions()
	opts := cfg.ExtractOptions(false, nil)
	assert.Equal(t, e.RouteTag, opts.RouteTag)
	assert.Equal(t, e.FormTags, opts.FormTags)
	assert.Equal(t, e.ProtectedRouteMarker, opts.ProtectedRouteMarker)
	assert.Equal(t, e.ThemeProviderMarker, opts.ThemeProviderMarker)
	assert.Equal(t, e.AuthStoreMarker, opts.AuthStoreMarker)
	assert.Equal(t, e.StoreFactory, opts.StoreFactory)
	assert.Equal(t, e.PagesPrefix, opts.PagesPrefix)

	assert.Equal(t, report.DefaultAdvisoryNotes, cfg.Report.AdvisoryNotes)
	assert.False(t, cfg.Report.SplitNotes)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers())
}

func TestLoadConfig_Overlay(t *testing.T) {
	data := []byte(`
discovery:
  extensions: [".js", ".mjs"]
  exclude_globs: ["**/*.test.js"]
report:
  split_notes: true
run:
  workers: 3
`)
	cfg, err := LoadConfig(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, []string{".js", ".mjs"}, cfg.Discovery.Extensions)
	assert.Equal(t, []string{"node_modules", "dist"}, cfg.Discovery.ExcludeDirs, "unset keys keep defaults")
	assert.Equal(t, []string{"**/*.test.js"}, cfg.DiscoveryOptions().ExcludeGlobs)
	assert.True(t, cfg.AssemblerOptions(false).SplitNotes)
	assert.Equal(t, 3, cfg.Workers())
	assert.Len(t, cfg.ParserOptions(nil), 2)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "bad yaml", yaml: "discovery: [", wantErr: "parsing YAML"},
		{name: "extension without dot", yaml: "discovery:\n  extensions: [js]\n", wantErr: "startswith"},
		{name: "no extensions", yaml: "discovery:\n  extensions: []\n", wantErr: "Discovery.Extensions"},
		{name: "negative workers", yaml: "run:\n  workers: -1\n", wantErr: "gte"},
		{name: "empty route tag", yaml: "extract:\n  route_tag: \"\"\n", wantErr: "required"},
		{name: "zero max size", yaml: "parser:\n  max_file_size: 0\n", wantErr: "gt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(context.Background(), []byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_TooLarge(t *testing.T) {
	data := []byte("# " + strings.Repeat("x", MaxYAMLFileSize))
	_, err := LoadConfig(context.Background(), data)
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFile(context.Background(), filepath.Join(dir, "absent.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, "Route", cfg.Extract.RouteTag)

	_, err = LoadFile(context.Background(), filepath.Join(dir, "absent.yaml"), true)
	require.Error(t, err)

	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("extract:\n  route_tag: PrivateRoute\n"), 0o644))
	cfg, err = LoadFile(context.Background(), path, true)
	require.NoError(t, err)
	assert.Equal(t, "PrivateRoute", cfg.Extract.RouteTag)
}
