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
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/fxzscan/services/analyzer/report"
	"github.com/AleutianAI/fxzscan/services/analyzer/snapshot"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect report snapshots stored with --snapshot-db",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSnapshots(cmd, g, func(m *snapshot.Manager) error {
				projectRoot := ""
				if cmd.Flags().Changed("root") {
					abs, err := filepath.Abs(g.root)
					if err != nil {
						return err
					}
					projectRoot = abs
				}
				metas, err := m.List(cmd.Context(), projectRoot, limit)
				if err != nil {
					return err
				}
				printSnapshotList(cmd.OutOrStdout(), metas)
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", snapshot.DefaultListLimit, "Maximum snapshots to list")

	show := &cobra.Command{
		Use:   "show <snapshot-id>",
		Short: "Print a snapshot's report JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, g, func(m *snapshot.Manager) error {
				out, _, err := m.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return report.Write(cmd.OutOrStdout(), out)
			})
		},
	}

	diff := &cobra.Command{
		Use:   "diff <base-id> <target-id>",
		Short: "Print the differences between two snapshots as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, g, func(m *snapshot.Manager) error {
				base, _, err := m.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				target, _, err := m.Load(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				d, err := snapshot.Diff(base, target)
				if err != nil {
					return err
				}
				d.BaseSnapshotID, d.TargetSnapshotID = args[0], args[1]

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <snapshot-id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSnapshots(cmd, g, func(m *snapshot.Manager) error {
				if err := m.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, diff, del)
	return cmd
}

// withSnapshots opens the snapshot store for the duration of fn.
func withSnapshots(cmd *cobra.Command, g *globalOptions, fn func(*snapshot.Manager) error) error {
	if g.snapshotDB == "" {
		return fmt.Errorf("--snapshot-db is required")
	}
	logger, _, shutdown, err := g.setup(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer shutdown()

	db, err := snapshot.OpenDB(g.snapshotDB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	m, err := snapshot.NewManager(db, logger)
	if err != nil {
		return err
	}
	return fn(m)
}

func printSnapshotList(w io.Writer, metas []*snapshot.Metadata) {
	if len(metas) == 0 {
		fmt.Fprintln(w, "No snapshots found.")
		return
	}

	fmt.Fprintf(w, "Found %d snapshot%s:\n", len(metas), plural(len(metas), "", "s"))
	fmt.Fprintln(w, styleFor(w, dimStyle).Render(strings.Repeat("─", 96)))
	fmt.Fprintf(w, "%-16s  %-19s  %6s  %10s  %8s  %9s  %s\n",
		"ID", "Created", "Files", "Components", "Failures", "Size", "Label")
	for _, m := range metas {
		created := time.UnixMilli(m.CreatedAtMilli).Local().Format("2006-01-02 15:04:05")
		fmt.Fprintf(w, "%-16s  %-19s  %6d  %10d  %8d  %9s  %s\n",
			m.SnapshotID, created, m.ScannedFiles, m.Components, m.ParseFailures,
			formatBytes(m.CompressedSize), m.Label)
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
