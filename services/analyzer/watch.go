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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a re-run.
const DefaultDebounce = 200 * time.Millisecond

// RunFunc receives each completed run in watch mode.
type RunFunc func(ctx context.Context, result *Result) error

// Watch runs the analysis once, then again after every burst of source
// changes under root until ctx is canceled.
//
// Description:
//
//	Every directory under root that discovery would descend into is watched.
//	Directories created later are added. Events on files whose extension is
//	scanned reset a debounce timer; when it fires the full analysis runs and
//	onRun receives the result. Runs never overlap.
//
// Inputs:
//   - ctx: Stops watching when canceled.
//   - root: Directory to analyze.
//   - debounce: Quiet period. Values below 1 use DefaultDebounce.
//   - onRun: Called after each successful run. Must not be nil.
//
// Outputs:
//   - error: The first run's error, an onRun error or a watcher failure.
//     Nil when ctx is canceled. Failures of later runs are logged only.
func (a *Analyzer) Watch(ctx context.Context, root string, debounce time.Duration, onRun RunFunc) error {
	if onRun == nil {
		return fmt.Errorf("onRun must not be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root %q: %w", root, err)
	}

	result, err := a.Run(ctx, absRoot)
	if err != nil {
		return err
	}
	if err := onRun(ctx, result); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dirs := make(map[string]struct{})
	if err := a.watchTree(watcher, dirs, absRoot, absRoot); err != nil {
		return err
	}
	a.logger.Info("watching for changes", slog.String("root", absRoot))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !a.relevant(watcher, dirs, absRoot, event) {
				continue
			}
			a.logger.Debug("source changed",
				slog.String("file", event.Name),
				slog.String("op", event.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-timer.C:
			result, err := a.Run(ctx, absRoot)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.logger.Warn("re-run failed", slog.String("error", err.Error()))
				continue
			}
			if err := onRun(ctx, result); err != nil {
				return err
			}
		}
	}
}

// relevant reports whether event should trigger a re-run. Newly created
// directories are added to the watcher and dirs as a side effect; removed or
// renamed ones are dropped from both.
func (a *Analyzer) relevant(watcher *fsnotify.Watcher, dirs map[string]struct{}, root string, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, ok := dirs[event.Name]; ok {
			forgetTree(watcher, dirs, event.Name)
			return true
		}
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if a.skipDir(info.Name()) {
				return false
			}
			if err := a.watchTree(watcher, dirs, root, event.Name); err != nil {
				a.logger.Warn("failed to watch new directory",
					slog.String("dir", event.Name),
					slog.String("error", err.Error()))
			}
			return true
		}
	}

	if !a.cfg.Discovery.IncludeHidden && strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	ext := filepath.Ext(event.Name)
	for _, want := range a.cfg.Discovery.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// watchTree adds dir and every non-excluded directory below it.
func (a *Analyzer) watchTree(watcher *fsnotify.Watcher, dirs map[string]struct{}, root, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && a.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		dirs[path] = struct{}{}
		return nil
	})
}

// forgetTree drops dir and everything below it from dirs. The kernel may
// already have released the watches, so Remove errors are ignored.
func forgetTree(watcher *fsnotify.Watcher, dirs map[string]struct{}, dir string) {
	prefix := dir + string(filepath.Separator)
	for path := range dirs {
		if path == dir || strings.HasPrefix(path, prefix) {
			_ = watcher.Remove(path)
			delete(dirs, path)
		}
	}
}

func (a *Analyzer) skipDir(name string) bool {
	if !a.cfg.Discovery.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, excluded := range a.cfg.Discovery.ExcludeDirs {
		if name == excluded {
			return true
		}
	}
	return false
}
