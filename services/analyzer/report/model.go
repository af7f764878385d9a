// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report assembles per-file facts into the single JSON analysis
// report and reads it back.
package report

import (
	"strings"

	"github.com/AleutianAI/fxzscan/services/analyzer/extract"
)

// ParseFailurePrefix starts every warning produced by a file that failed to parse.
const ParseFailurePrefix = "Failed to parse "

// AnalysisOutput is the complete report of one run. Field order is the JSON
// key order.
type AnalysisOutput struct {
	ProjectRoot         string                  `json:"projectRoot"`
	ScannedFiles        int                     `json:"scannedFiles"`
	Components          []extract.ComponentInfo `json:"components"`
	Routes              []extract.RouteInfo     `json:"routes"`
	Forms               []extract.FormInfo      `json:"forms"`
	APICalls            []extract.APICallInfo   `json:"apiCalls"`
	ZustandStores       []extract.StoreInfo     `json:"zustandStores"`
	ProtectedRouteUsage []string                `json:"protectedRouteUsage"`
	ThemeProviderUsage  []string                `json:"themeProviderUsage"`
	Warnings            []string                `json:"warnings"`

	// Notes holds the advisory notes when they are split from warnings.
	Notes []string `json:"notes,omitempty"`

	// Extended is set only for runs with extended facts enabled.
	Extended *ExtendedFacts `json:"extended,omitempty"`
}

// ExtendedFacts are the optional facts beyond the core report.
type ExtendedFacts struct {
	Imports        []extract.ImportInfo `json:"imports"`
	AuthStoreUsage []string             `json:"authStoreUsage"`
	TestIDCoverage TestIDCoverage       `json:"testIdCoverage"`
	Pages          []string             `json:"pages"`
}

// TestIDCoverage summarizes how many interactive elements carry a test id.
type TestIDCoverage struct {
	InteractiveElements int     `json:"interactiveElements"`
	WithTestID          int     `json:"withTestId"`
	Ratio               float64 `json:"ratio"`
}

// New returns an empty report for projectRoot with every list initialized.
func New(projectRoot string) *AnalysisOutput {
	out := &AnalysisOutput{ProjectRoot: projectRoot}
	out.normalize()
	return out
}

// ParseFailures returns the warnings produced by files that failed to parse.
func (o *AnalysisOutput) ParseFailures() []string {
	failures := make([]string, 0)
	for _, w := range o.Warnings {
		if strings.HasPrefix(w, ParseFailurePrefix) {
			failures = append(failures, w)
		}
	}
	return failures
}

// normalize replaces nil lists with empty ones so they encode as [].
func (o *AnalysisOutput) normalize() {
	if o.Components == nil {
		o.Components = make([]extract.ComponentInfo, 0)
	}
	if o.Routes == nil {
		o.Routes = make([]extract.RouteInfo, 0)
	}
	if o.Forms == nil {
		o.Forms = make([]extract.FormInfo, 0)
	}
	if o.APICalls == nil {
		o.APICalls = make([]extract.APICallInfo, 0)
	}
	if o.ZustandStores == nil {
		o.ZustandStores = make([]extract.StoreInfo, 0)
	}
	for i := range o.ZustandStores {
		if o.ZustandStores[i].State == nil {
			o.ZustandStores[i].State = make([]string, 0)
		}
		if o.ZustandStores[i].Actions == nil {
			o.ZustandStores[i].Actions = make([]string, 0)
		}
	}
	if o.ProtectedRouteUsage == nil {
		o.ProtectedRouteUsage = make([]string, 0)
	}
	if o.ThemeProviderUsage == nil {
		o.ThemeProviderUsage = make([]string, 0)
	}
	if o.Warnings == nil {
		o.Warnings = make([]string, 0)
	}
	if ext := o.Extended; ext != nil {
		if ext.Imports == nil {
			ext.Imports = make([]extract.ImportInfo, 0)
		}
		for i := range ext.Imports {
			if ext.Imports[i].Specifiers == nil {
				ext.Imports[i].Specifiers = make([]extract.ImportSpecifier, 0)
			}
		}
		if ext.AuthStoreUsage == nil {
			ext.AuthStoreUsage = make([]string, 0)
		}
		if ext.Pages == nil {
			ext.Pages = make([]string, 0)
		}
	}
}
