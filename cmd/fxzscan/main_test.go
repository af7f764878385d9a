// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/fxzscan/services/analyzer/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"App.jsx":        "import ProtectedRoute from './ProtectedRoute';\nexport default function App() { return <Route path=\"/\" element={<Home />} />; }\n",
		"pages/Home.tsx": "const Home = (): JSX.Element => <form><input type=\"text\" /></form>;\nexport default Home;\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Analyze(t *testing.T) {
	root := writeSource(t)
	out := filepath.Join(t.TempDir(), "report.json")

	code, stdout, stderr := runCLI(t, "--root", root, "--out", out, "--workers", "2")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "✅ Deep analysis complete. Results saved to "+out+"\n", stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(2), got["scannedFiles"])
	assert.Len(t, got["components"], 2)
	assert.Equal(t, []any{"App.jsx"}, got["protectedRouteUsage"])
	assert.NotContains(t, got, "notes")
	assert.NotContains(t, got, "extended")
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"projectRoot\": "))
}

func TestRun_AnalyzeOptionalSections(t *testing.T) {
	root := writeSource(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "report.json")
	metrics := filepath.Join(dir, "metrics.prom")

	code, _, stderr := runCLI(t, "--root", root, "--out", out, "--extended", "--split-notes", "--metrics-out", metrics)
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got["notes"], 4)
	assert.Empty(t, got["warnings"])
	assert.Contains(t, got, "extended")

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "fxzscan_run_total")
}

func TestRun_AnalyzeErrors(t *testing.T) {
	root := writeSource(t)

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "missing root", args: []string{"--root", filepath.Join(root, "missing"), "--out", filepath.Join(t.TempDir(), "r.json")}, wantMsg: "root directory not found"},
		{name: "label without db", args: []string{"--root", root, "--label", "x"}, wantMsg: "--label requires --snapshot-db"},
		{name: "zero workers", args: []string{"--root", root, "--workers", "0"}, wantMsg: "--workers must be at least 1"},
		{name: "bad log format", args: []string{"--root", root, "--log-format", "xml"}, wantMsg: "invalid --log-format"},
		{name: "missing config", args: []string{"--root", root, "--config", filepath.Join(root, "nope.yaml")}, wantMsg: "reading config"},
		{name: "bad out target", args: []string{"--root", root, "--out", "s3://bucket"}, wantMsg: "invalid output target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "❌ An error occurred during analysis: ")
			assert.Contains(t, stderr, tt.wantMsg)
		})
	}
}

func TestRun_Snapshots(t *testing.T) {
	root := writeSource(t)
	db := t.TempDir()
	out := filepath.Join(t.TempDir(), "report.json")

	code, _, stderr := runCLI(t, "--root", root, "--out", out, "--snapshot-db", db, "--label", "first")
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "--root", root, "--out", out, "--snapshot-db", db, "--label", "second")
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := runCLI(t, "snapshot", "list", "--snapshot-db", db)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Found 2 snapshots:")
	assert.Contains(t, stdout, "first")
	assert.Contains(t, stdout, "second")

	ids := snapshotIDs(t, db)
	require.Len(t, ids, 2)

	code, stdout, stderr = runCLI(t, "snapshot", "show", ids[0], "--snapshot-db", db)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"element": "<Home>"`)

	code, stdout, stderr = runCLI(t, "snapshot", "diff", ids[1], ids[0], "--snapshot-db", db)
	require.Equal(t, 0, code, stderr)
	var diff snapshot.ReportDiff
	require.NoError(t, json.Unmarshal([]byte(stdout), &diff))
	assert.Equal(t, 0, diff.Summary.TotalChanges)

	code, stdout, stderr = runCLI(t, "snapshot", "delete", ids[0], "--snapshot-db", db)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Deleted snapshot "+ids[0]+"\n", stdout)

	code, _, stderr = runCLI(t, "snapshot", "show", ids[0], "--snapshot-db", db)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "❌ ")
	assert.NotContains(t, stderr, "during analysis")
	assert.Contains(t, stderr, "snapshot not found")
}

func TestRun_SnapshotRequiresDB(t *testing.T) {
	code, _, stderr := runCLI(t, "snapshot", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--snapshot-db is required")
}

func snapshotIDs(t *testing.T, dir string) []string {
	t.Helper()
	db, err := snapshot.OpenDB(dir)
	require.NoError(t, err)
	defer db.Close()

	m, err := snapshot.NewManager(db, discardLogger())
	require.NoError(t, err)
	metas, err := m.List(context.Background(), "", 0)
	require.NoError(t, err)

	ids := make([]string, len(metas))
	for i, meta := range metas {
		ids[i] = meta.SnapshotID
	}
	return ids
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
		wantOut string
	}{
		{name: "json", level: "info", format: "json", wantOut: `"msg":"hello"`},
		{name: "text", level: "debug", format: "TEXT", wantOut: "msg=hello"},
		{name: "auto on buffer", level: "info", format: "", wantOut: `"msg":"hello"`},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(&buf, tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			logger.Info("hello")
			assert.Contains(t, buf.String(), tt.wantOut)
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))
}
