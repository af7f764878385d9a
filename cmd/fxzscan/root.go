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
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/AleutianAI/fxzscan/services/analyzer"
	"github.com/AleutianAI/fxzscan/services/analyzer/config"
	"github.com/AleutianAI/fxzscan/services/analyzer/report"
	"github.com/AleutianAI/fxzscan/services/analyzer/sink"
	"github.com/AleutianAI/fxzscan/services/analyzer/snapshot"
	"github.com/spf13/cobra"
)

const (
	defaultRoot = "./frontend/react-app/src"
	defaultOut  = "./FIXZONE_FRONTEND_FULL_ANALYSIS.json"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	trace      bool
	root       string
	snapshotDB string
}

// analyzeOptions are the flags of the root analyze command.
type analyzeOptions struct {
	out        string
	workers    int
	extended   bool
	splitNotes bool
	metricsOut string
	label      string
	watch      bool
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	a := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "fxzscan",
		Short: "Static structure analysis for React source trees",
		Long: `Parse every .js/.jsx/.ts/.tsx file under --root and write one JSON
report of components, routes, forms, API calls, zustand stores and
ProtectedRoute/ThemeProvider imports.

Examples:
  fxzscan
  fxzscan --root ./src --out report.json --workers 8
  fxzscan --out gs://reports/app.json --extended
  fxzscan --snapshot-db ./.fxzscan --label nightly
  fxzscan --watch`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, g, a)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML config file (default: "+config.DefaultFileName+" if present)")
	pf.StringVar(&g.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: text or json (default: text on a terminal, json otherwise)")
	pf.BoolVar(&g.trace, "trace", false, "Export trace spans to stderr")
	pf.StringVar(&g.root, "root", defaultRoot, "Source directory to analyze")
	pf.StringVar(&g.snapshotDB, "snapshot-db", "", "BadgerDB directory for report snapshots")

	f := cmd.Flags()
	f.StringVarP(&a.out, "out", "o", defaultOut, "Output file, gs://bucket/object or s3://bucket/object")
	f.IntVar(&a.workers, "workers", 0, "Parse workers (default: run.workers from config, 0 means one per CPU)")
	f.BoolVar(&a.extended, "extended", false, "Add import inventory, authStore usage, test id coverage and pages")
	f.BoolVar(&a.splitNotes, "split-notes", false, "Write advisory notes to notes instead of warnings")
	f.StringVar(&a.metricsOut, "metrics-out", "", "Write run metrics in Prometheus text format to this file")
	f.StringVar(&a.label, "label", "", "Label for the saved snapshot (requires --snapshot-db)")
	f.BoolVar(&a.watch, "watch", false, "Re-run on source changes until interrupted")

	cmd.AddCommand(newSnapshotCmd(g), newServeCmd(g))
	return cmd
}

// setup builds the logger, tracing and configuration shared by all commands.
// The returned shutdown function flushes tracing.
func (g *globalOptions) setup(ctx context.Context, stderr io.Writer) (*slog.Logger, *config.Config, func(), error) {
	logger, err := newLogger(stderr, g.logLevel, g.logFormat)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)

	shutdown := func() {}
	if g.trace {
		shutdown, err = setupTracing(stderr)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	path, required := g.configPath, true
	if path == "" {
		path, required = config.DefaultFileName, false
	}
	cfg, err := config.LoadFile(ctx, path, required)
	if err != nil {
		shutdown()
		return nil, nil, nil, err
	}
	return logger, cfg, shutdown, nil
}

func runAnalyze(cmd *cobra.Command, g *globalOptions, a *analyzeOptions) error {
	ctx := cmd.Context()
	logger, cfg, shutdown, err := g.setup(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer shutdown()

	if cmd.Flags().Changed("workers") {
		if a.workers < 1 {
			return fmt.Errorf("--workers must be at least 1")
		}
		cfg.Run.Workers = a.workers
	}
	if a.splitNotes {
		cfg.Report.SplitNotes = true
	}
	if a.label != "" && g.snapshotDB == "" {
		return fmt.Errorf("--label requires --snapshot-db")
	}

	an, err := analyzer.New(cfg, logger, analyzer.WithExtended(a.extended))
	if err != nil {
		return err
	}

	out, err := sink.Open(ctx, a.out, logger)
	if err != nil {
		return err
	}

	var snaps *snapshot.Manager
	if g.snapshotDB != "" {
		db, err := snapshot.OpenDB(g.snapshotDB)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if snaps, err = snapshot.NewManager(db, logger); err != nil {
			return err
		}
	}

	stdout := cmd.OutOrStdout()
	publish := func(ctx context.Context, result *analyzer.Result) error {
		data, err := report.Marshal(result.Output)
		if err != nil {
			return err
		}
		if err := out.Write(ctx, data); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		if snaps != nil {
			meta, err := snaps.Save(ctx, result.Output, a.label, result.RunID)
			if err != nil {
				return fmt.Errorf("saving snapshot: %w", err)
			}
			logger.Info("snapshot saved", slog.String("snapshot_id", meta.SnapshotID))
		}
		if a.metricsOut != "" {
			if err := analyzer.WriteMetricsFile(a.metricsOut); err != nil {
				return err
			}
		}
		fmt.Fprintln(stdout, styleFor(stdout, successStyle).Render(
			"✅ Deep analysis complete. Results saved to "+out.Location()))
		return nil
	}

	if a.watch {
		return an.Watch(ctx, g.root, analyzer.DefaultDebounce, publish)
	}

	result, err := an.Run(ctx, g.root)
	if err != nil {
		return err
	}
	return publish(ctx, result)
}
