// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package discovery finds the source files an analysis run scans.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

var (
	// ErrRootNotFound is returned when the root directory does not exist.
	ErrRootNotFound = errors.New("root directory not found")

	// ErrRootNotDir is returned when the root exists but is not a directory.
	ErrRootNotDir = errors.New("root is not a directory")
)

// Options controls which files are discovered.
type Options struct {
	// Extensions lists the file extensions to include, with the leading dot.
	// Matching is case-sensitive.
	Extensions []string

	// ExcludeDirs lists directory base names that are never descended into.
	ExcludeDirs []string

	// ExcludeGlobs are doublestar patterns matched against root-relative,
	// slash-separated paths of both files and directories.
	ExcludeGlobs []string

	// IncludeHidden includes files and directories whose name starts with ".".
	IncludeHidden bool
}

// DefaultOptions returns the options for a JavaScript/TypeScript frontend.
func DefaultOptions() Options {
	return Options{
		Extensions:  []string{".js", ".jsx", ".ts", ".tsx"},
		ExcludeDirs: []string{"node_modules", "dist"},
	}
}

// Discover walks root and returns the sorted absolute paths of matching files.
//
// Inputs:
//   - ctx: Checked between directory entries.
//   - root: Directory to scan. Relative paths resolve against the working directory.
//   - opts: Filters. Empty Extensions means DefaultOptions().Extensions.
//
// Outputs:
//   - []string: Absolute paths in lexicographic order.
//   - error: ErrRootNotFound, ErrRootNotDir, doublestar.ErrBadPattern, or a walk error.
func Discover(ctx context.Context, root string, opts Options) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, absRoot)
		}
		return nil, fmt.Errorf("stat root %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDir, absRoot)
	}

	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultOptions().Extensions
	}
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[ext] = struct{}{}
	}
	excludedDirs := make(map[string]struct{}, len(opts.ExcludeDirs))
	for _, dir := range opts.ExcludeDirs {
		excludedDirs[dir] = struct{}{}
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == absRoot {
			return nil
		}

		name := d.Name()
		rel := RelPath(absRoot, path)

		if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if _, skip := excludedDirs[name]; skip {
				return filepath.SkipDir
			}
			excluded, err := matchesAny(opts.ExcludeGlobs, rel)
			if err != nil {
				return err
			}
			if excluded {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := exts[filepath.Ext(name)]; !ok {
			return nil
		}
		if !isFile(path, d) {
			return nil
		}
		excluded, err := matchesAny(opts.ExcludeGlobs, rel)
		if err != nil {
			return err
		}
		if excluded {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}

	sort.Strings(files)
	return files, nil
}

// RelPath returns path relative to root with forward slashes. Paths outside
// root are returned unchanged in slash form.
func RelPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// isFile reports whether the entry is a regular file or a symlink to one.
func isFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func matchesAny(patterns []string, rel string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
