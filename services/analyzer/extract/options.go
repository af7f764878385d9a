// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import "log/slog"

// Options configures an Extractor. Zero-valued fields take their defaults.
type Options struct {
	// RouteTag is the tag name of declarative route elements.
	RouteTag string

	// FormTags lists the form-related tag names.
	FormTags []string

	// ProtectedRouteMarker and ThemeProviderMarker are matched as substrings
	// of import sources.
	ProtectedRouteMarker string
	ThemeProviderMarker  string

	// AuthStoreMarker is matched as a substring of import sources when
	// Extended is set.
	AuthStoreMarker string

	// StoreFactory is the identifier that creates stores.
	StoreFactory string

	// PagesPrefix marks components whose root-relative path starts with it.
	PagesPrefix string

	// Extended enables the import inventory, auth-store usage and test id
	// coverage facts.
	Extended bool

	// Logger receives per-file debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the options matching a React + zustand project.
func DefaultOptions() Options {
	return Options{
		RouteTag:             "Route",
		FormTags:             []string{"form", "input", "textarea", "select", "button"},
		ProtectedRouteMarker: "ProtectedRoute",
		ThemeProviderMarker:  "ThemeProvider",
		AuthStoreMarker:      "authStore",
		StoreFactory:         "create",
		PagesPrefix:          "pages/",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RouteTag == "" {
		o.RouteTag = d.RouteTag
	}
	if len(o.FormTags) == 0 {
		o.FormTags = d.FormTags
	}
	if o.ProtectedRouteMarker == "" {
		o.ProtectedRouteMarker = d.ProtectedRouteMarker
	}
	if o.ThemeProviderMarker == "" {
		o.ThemeProviderMarker = d.ThemeProviderMarker
	}
	if o.AuthStoreMarker == "" {
		o.AuthStoreMarker = d.AuthStoreMarker
	}
	if o.StoreFactory == "" {
		o.StoreFactory = d.StoreFactory
	}
	if o.PagesPrefix == "" {
		o.PagesPrefix = d.PagesPrefix
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
