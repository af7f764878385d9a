// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"strings"

	"github.com/AleutianAI/fxzscan/services/analyzer/extract"
)

// AssemblerOptions configures an Assembler.
type AssemblerOptions struct {
	// SplitNotes moves the advisory notes from Warnings into Notes.
	SplitNotes bool

	// AdvisoryNotes replaces DefaultAdvisoryNotes when non-empty.
	AdvisoryNotes []string

	// Extended adds the ExtendedFacts section.
	Extended bool

	// PagesPrefix selects the components listed as pages. Defaults to "pages/".
	PagesPrefix string
}

// Assembler accumulates file facts into one AnalysisOutput.
//
// Description:
//
//	Facts are appended in the order Fold is called. Components are
//	deduplicated by name, keeping the first one folded. Callers that process
//	files concurrently must fold in discovery order to keep output
//	deterministic.
//
// Thread Safety: Not safe for concurrent use. The run orchestrator owns it.
type Assembler struct {
	opts     AssemblerOptions
	out      *AnalysisOutput
	seen     map[string]struct{}
	failures int
	finished bool
}

// NewAssembler creates an Assembler for a report rooted at projectRoot.
func NewAssembler(projectRoot string, opts AssemblerOptions) *Assembler {
	if len(opts.AdvisoryNotes) == 0 {
		opts.AdvisoryNotes = DefaultAdvisoryNotes
	}
	if opts.PagesPrefix == "" {
		opts.PagesPrefix = "pages/"
	}
	out := New(projectRoot)
	if opts.Extended {
		out.Extended = &ExtendedFacts{}
		out.normalize()
	}
	return &Assembler{
		opts: opts,
		out:  out,
		seen: make(map[string]struct{}),
	}
}

// SetScannedFiles records the number of discovered files.
func (a *Assembler) SetScannedFiles(n int) {
	a.out.ScannedFiles = n
}

// AddParseFailure records one warning for a file that could not be parsed.
func (a *Assembler) AddParseFailure(path string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	a.out.Warnings = append(a.out.Warnings, ParseFailurePrefix+path+": "+msg)
	a.failures++
}

// ParseFailures returns how many parse failures were recorded.
func (a *Assembler) ParseFailures() int {
	return a.failures
}

// Fold appends the facts of one file. Nil facts are ignored.
func (a *Assembler) Fold(facts *extract.FileFacts) {
	if facts == nil {
		return
	}
	out := a.out

	for _, c := range facts.Components {
		if _, dup := a.seen[c.Name]; dup {
			continue
		}
		a.seen[c.Name] = struct{}{}
		out.Components = append(out.Components, c)
	}
	out.Routes = append(out.Routes, facts.Routes...)
	out.Forms = append(out.Forms, facts.Forms...)
	out.APICalls = append(out.APICalls, facts.APICalls...)
	out.ZustandStores = append(out.ZustandStores, facts.Stores...)

	for i := 0; i < facts.ProtectedRouteImports; i++ {
		out.ProtectedRouteUsage = append(out.ProtectedRouteUsage, facts.FilePath)
	}
	for i := 0; i < facts.ThemeProviderImports; i++ {
		out.ThemeProviderUsage = append(out.ThemeProviderUsage, facts.FilePath)
	}

	if ext := out.Extended; ext != nil {
		ext.Imports = append(ext.Imports, facts.Imports...)
		for i := 0; i < facts.AuthStoreImports; i++ {
			ext.AuthStoreUsage = append(ext.AuthStoreUsage, facts.FilePath)
		}
		ext.TestIDCoverage.InteractiveElements += facts.InteractiveElements
		ext.TestIDCoverage.WithTestID += facts.WithTestID
	}
}

// Finish appends the advisory notes and returns the report. Calling Finish
// again returns the same report without appending the notes twice.
func (a *Assembler) Finish() *AnalysisOutput {
	if a.finished {
		return a.out
	}
	a.finished = true

	notes := append([]string(nil), a.opts.AdvisoryNotes...)
	if a.opts.SplitNotes {
		a.out.Notes = notes
	} else {
		a.out.Warnings = append(a.out.Warnings, notes...)
	}

	if ext := a.out.Extended; ext != nil {
		for _, c := range a.out.Components {
			if strings.HasPrefix(c.FilePath, a.opts.PagesPrefix) {
				ext.Pages = append(ext.Pages, c.Name)
			}
		}
		if cov := &ext.TestIDCoverage; cov.InteractiveElements > 0 {
			cov.Ratio = float64(cov.WithTestID) / float64(cov.InteractiveElements)
		}
	}
	return a.out
}
