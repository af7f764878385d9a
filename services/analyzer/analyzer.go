// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer runs the React structural analysis end to end.
//
// A run has four stages: discovery lists the source files, the parser turns
// each into a tree-sitter tree, the extractor pulls structural facts from
// each tree and the assembler folds them into one report. Files are parsed
// and extracted concurrently but folded in discovery order, so the report is
// identical for any worker count.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/fxzscan/services/analyzer/ast"
	"github.com/AleutianAI/fxzscan/services/analyzer/config"
	"github.com/AleutianAI/fxzscan/services/analyzer/discovery"
	"github.com/AleutianAI/fxzscan/services/analyzer/extract"
	"github.com/AleutianAI/fxzscan/services/analyzer/report"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Analyzer runs analyses with a fixed configuration.
//
// Thread Safety: Safe for concurrent use. Each Run owns its own assembler.
type Analyzer struct {
	cfg       *config.Config
	parser    *ast.Parser
	extractor *extract.Extractor
	extended  bool
	workers   int
	logger    *slog.Logger
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithExtended enables the extended facts section of the report.
func WithExtended(extended bool) Option {
	return func(a *Analyzer) {
		a.extended = extended
	}
}

// WithWorkers overrides the configured pool size. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// New creates an Analyzer.
//
// Inputs:
//   - cfg: Validated configuration. Must not be nil.
//   - logger: Must not be nil.
//   - opts: Optional overrides.
//
// Outputs:
//   - *Analyzer: Ready to Run.
//   - error: Non-nil if an argument is nil.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Analyzer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	a := &Analyzer{
		cfg:     cfg,
		workers: cfg.Workers(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.parser = ast.NewParser(cfg.ParserOptions(logger)...)
	a.extractor = extract.NewExtractor(cfg.ExtractOptions(a.extended, logger))
	return a, nil
}

// Workers returns the pool size used by Run.
func (a *Analyzer) Workers() int {
	return a.workers
}

// Result is the outcome of one Run.
type Result struct {
	// RunID identifies the run in logs, spans and snapshots.
	RunID string

	// Output is the finished report.
	Output *report.AnalysisOutput

	// ParseFailures is the number of files that could not be parsed.
	ParseFailures int

	// Duration is the wall time of the run.
	Duration time.Duration
}

// fileResult is the per-file slot filled by a pool worker.
type fileResult struct {
	facts    *extract.FileFacts
	parseErr error
}

// Run analyzes every source file under root.
//
// Description:
//
//	Discovers files, then reads, parses and extracts them on a bounded
//	pool. Parse failures become report warnings and contribute no facts.
//	Discovery errors, read errors and cancellation abort the run.
//
// Inputs:
//   - ctx: Cancels the run.
//   - root: Directory to analyze. Resolved to an absolute path.
//
// Outputs:
//   - *Result: The report and run statistics.
//   - error: Non-nil if the run could not complete.
func (a *Analyzer) Run(ctx context.Context, root string) (result *Result, err error) {
	start := time.Now()
	runID := uuid.NewString()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	ctx, span := startRunSpan(ctx, runID, absRoot, a.workers)
	defer func() {
		finishRun(span, start, result, err)
	}()

	logger := a.logger.With(slog.String("run_id", runID))
	logger.Debug("analysis started",
		slog.String("root", absRoot),
		slog.Int("workers", a.workers),
		slog.Bool("extended", a.extended))

	files, err := discovery.Discover(ctx, absRoot, a.cfg.DiscoveryOptions())
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, path := range files {
		g.Go(func() error {
			res, err := a.processFile(gctx, absRoot, path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	asm := report.NewAssembler(absRoot, a.cfg.AssemblerOptions(a.extended))
	asm.SetScannedFiles(len(files))
	for i, res := range results {
		if res.parseErr != nil {
			logger.Warn("failed to parse file",
				slog.String("file", files[i]),
				slog.String("error", res.parseErr.Error()))
			asm.AddParseFailure(files[i], res.parseErr)
			continue
		}
		asm.Fold(res.facts)
	}
	out := asm.Finish()

	result = &Result{
		RunID:         runID,
		Output:        out,
		ParseFailures: asm.ParseFailures(),
		Duration:      time.Since(start),
	}

	logger.Info("analysis complete",
		slog.String("root", absRoot),
		slog.Int("scanned_files", out.ScannedFiles),
		slog.Int("components", len(out.Components)),
		slog.Int("routes", len(out.Routes)),
		slog.Int("forms", len(out.Forms)),
		slog.Int("api_calls", len(out.APICalls)),
		slog.Int("stores", len(out.ZustandStores)),
		slog.Int("parse_failures", result.ParseFailures),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// processFile reads, parses and extracts one file. Only read failures and
// cancellation are returned as errors; parse failures go in the result.
func (a *Analyzer) processFile(ctx context.Context, root, path string) (fileResult, error) {
	if err := ctx.Err(); err != nil {
		return fileResult{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fileResult{}, fmt.Errorf("reading %s: %w", path, err)
	}

	tree, err := a.parser.Parse(ctx, content, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fileResult{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fileResult{}, ctxErr
		}
		return fileResult{parseErr: err}, nil
	}
	defer tree.Close()

	facts := a.extractor.Extract(ctx, tree, discovery.RelPath(root, path))
	if err := ctx.Err(); err != nil {
		return fileResult{}, err
	}
	return fileResult{facts: facts}, nil
}
