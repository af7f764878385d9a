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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForRun(t *testing.T, runs <-chan *Result, want func(*Result) bool) *Result {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case r := <-runs:
			if want(r) {
				return r
			}
		case <-deadline:
			t.Fatal("timed out waiting for analysis run")
			return nil
		}
	}
}

// settleWatcher gives Watch time to register the tree after the first run
// has been delivered.
func settleWatcher() {
	time.Sleep(150 * time.Millisecond)
}

func TestAnalyzer_Watch_RerunsOnChange(t *testing.T) {
	root := writeFixture(t)
	a := newTestAnalyzer(t, WithWorkers(2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan *Result, 16)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, root, 20*time.Millisecond, func(_ context.Context, r *Result) error {
			runs <- r
			return nil
		})
	}()

	first := waitForRun(t, runs, func(*Result) bool { return true })
	assert.Equal(t, 5, first.Output.ScannedFiles)
	settleWatcher()

	newDir := filepath.Join(root, "widgets")
	require.NoError(t, os.MkdirAll(newDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(newDir, "Card.tsx"),
		[]byte("export const Card = () => <div />;\n"), 0o644))

	waitForRun(t, runs, func(r *Result) bool { return r.Output.ScannedFiles == 6 })

	// Ignored extension.
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# notes\n"), 0o644))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestAnalyzer_Watch_RerunsWhenDirectoryMovedAway(t *testing.T) {
	root := writeFixture(t)
	a := newTestAnalyzer(t, WithWorkers(2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan *Result, 16)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, root, 20*time.Millisecond, func(_ context.Context, r *Result) error {
			runs <- r
			return nil
		})
	}()

	first := waitForRun(t, runs, func(*Result) bool { return true })
	require.Len(t, first.Output.Components, 2)
	settleWatcher()

	// A rename out of the tree produces a single event on the directory
	// itself and none for the files inside it.
	require.NoError(t, os.Rename(filepath.Join(root, "pages"), filepath.Join(t.TempDir(), "pages")))

	moved := waitForRun(t, runs, func(r *Result) bool { return r.Output.ScannedFiles == 4 })
	require.Len(t, moved.Output.Components, 1)
	assert.Equal(t, "App", moved.Output.Components[0].Name)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestAnalyzer_Relevant_DirectoryRemoval(t *testing.T) {
	root := writeFixture(t)
	a := newTestAnalyzer(t)

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	dirs := make(map[string]struct{})
	require.NoError(t, a.watchTree(watcher, dirs, root, root))
	pages := filepath.Join(root, "pages")
	require.Contains(t, dirs, pages)
	assert.NotContains(t, dirs, filepath.Join(root, "node_modules"))

	assert.True(t, a.relevant(watcher, dirs, root, fsnotify.Event{Name: pages, Op: fsnotify.Rename}))
	assert.NotContains(t, dirs, pages)
	assert.Contains(t, dirs, root)

	assert.False(t, a.relevant(watcher, dirs, root, fsnotify.Event{Name: filepath.Join(root, "LICENSE"), Op: fsnotify.Remove}),
		"extensionless files that were never watched are ignored")
	assert.True(t, a.relevant(watcher, dirs, root, fsnotify.Event{Name: filepath.Join(root, "App.jsx"), Op: fsnotify.Remove}))
}

func TestAnalyzer_Watch_OnRunErrorStops(t *testing.T) {
	root := writeFixture(t)
	sentinel := errors.New("sink failed")

	err := newTestAnalyzer(t).Watch(context.Background(), root, 0, func(context.Context, *Result) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestAnalyzer_Watch_InitialRunError(t *testing.T) {
	err := newTestAnalyzer(t).Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), 0,
		func(context.Context, *Result) error { return nil })
	assert.Error(t, err)
}

func TestAnalyzer_Watch_NilCallback(t *testing.T) {
	assert.Error(t, newTestAnalyzer(t).Watch(context.Background(), t.TempDir(), 0, nil))
}
