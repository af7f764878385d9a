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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/fxzscan/services/analyzer"
	"github.com/AleutianAI/fxzscan/services/analyzer/snapshot"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(g *globalOptions) *cobra.Command {
	var (
		addr     string
		debug    bool
		extended bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		Long: `Serve the analysis HTTP API for --root.

Endpoints:
  POST /v1/analysis/run
  GET  /v1/analysis/latest
  GET  /v1/analysis/snapshots
  GET  /v1/analysis/snapshots/diff?base=&target=
  GET  /v1/analysis/health
  GET  /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger, cfg, shutdown, err := g.setup(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer shutdown()

			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			an, err := analyzer.New(cfg, logger, analyzer.WithExtended(extended))
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

			handlers, err := analyzer.NewHandlers(an, g.root, snaps, logger)
			if err != nil {
				return err
			}
			return serve(ctx, addr, analyzer.NewRouter(handlers, debug), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8087", "Listen address")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable gin debug mode and request logging")
	cmd.Flags().BoolVar(&extended, "extended", false, "Include extended facts in reports")
	return cmd
}

// serve runs handler on addr until ctx is canceled, then shuts down gracefully.
func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting fxzscan server", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down fxzscan server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
