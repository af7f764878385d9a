// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// fxzscan statically analyzes a React source tree and writes a JSON report of
// its components, routes, forms, API calls and zustand stores.
//
// Usage:
//
//	fxzscan [--root ./frontend/react-app/src] [--out report.json] [flags]
//	fxzscan snapshot list|show|diff|delete --snapshot-db <dir>
//	fxzscan serve --addr :8087 --root <dir>
//
// Exit codes:
//
//	0 - success
//	1 - any error
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	msg := "❌ " + err.Error()
	if cmd == root {
		msg = "❌ An error occurred during analysis: " + err.Error()
	}
	fmt.Fprintln(stderr, styleFor(stderr, errorStyle).Render(msg))
	return 1
}
