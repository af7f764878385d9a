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

// ComponentType classifies how a component was declared.
type ComponentType string

const (
	// FunctionComponent is a capitalized function declaration containing JSX.
	FunctionComponent ComponentType = "Function Component"

	// ArrowFunctionComponent is a capitalized variable declarator containing JSX.
	ArrowFunctionComponent ComponentType = "Arrow Function Component"
)

// API call kinds.
const (
	APICallFetch = "fetch"
	APICallAxios = "axios"
)

// DynamicURL is recorded when a call's first argument is not a string literal.
const DynamicURL = "dynamic"

// ComponentInfo is a UI component candidate.
type ComponentInfo struct {
	Name     string        `json:"name"`
	Type     ComponentType `json:"type"`
	FilePath string        `json:"filePath"`
	IsPage   bool          `json:"isPage"`
}

// RouteInfo is one declarative route element. Path and Element are nil when
// the attribute is absent or has no usable value.
type RouteInfo struct {
	Path     *string `json:"path"`
	Element  *string `json:"element"`
	FilePath string  `json:"filePath"`
}

// FormInfo is one form-related element and its literal attributes.
type FormInfo struct {
	Tag        string     `json:"tag"`
	Attributes Attributes `json:"attributes"`
	FilePath   string     `json:"filePath"`
}

// APICallInfo is one fetch or axios call site.
type APICallInfo struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Method   string `json:"method,omitempty"`
	FilePath string `json:"filePath"`
}

// StoreInfo is a zustand-style store definition.
type StoreInfo struct {
	Name     string   `json:"name"`
	FilePath string   `json:"filePath"`
	State    []string `json:"state"`
	Actions  []string `json:"actions"`
}

// ImportSpecifier is one binding introduced by an import statement.
//
// Imported is "default" for default imports, "*" for namespace imports and the
// exported name otherwise.
type ImportSpecifier struct {
	Local    string `json:"local"`
	Imported string `json:"imported"`
}

// ImportInfo is one import statement.
type ImportInfo struct {
	FilePath   string            `json:"filePath"`
	Source     string            `json:"source"`
	Specifiers []ImportSpecifier `json:"specifiers"`
}

// FileFacts is everything extracted from a single file.
//
// Components are candidates. Deduplication by name happens when facts from
// all files are folded into a report.
//
// Thread Safety: FileFacts is not modified after Extract returns.
type FileFacts struct {
	FilePath   string
	Components []ComponentInfo
	Routes     []RouteInfo
	Forms      []FormInfo
	APICalls   []APICallInfo
	Stores     []StoreInfo

	// ProtectedRouteImports is the number of import statements whose source
	// contains the protected-route marker.
	ProtectedRouteImports int

	// ThemeProviderImports is the number of import statements whose source
	// contains the theme-provider marker.
	ThemeProviderImports int

	// Populated only when the extractor runs with Extended set.
	Imports             []ImportInfo
	AuthStoreImports    int
	InteractiveElements int
	WithTestID          int
}

// FactCount returns the number of facts recorded, excluding import counters.
func (f *FileFacts) FactCount() int {
	if f == nil {
		return 0
	}
	return len(f.Components) + len(f.Routes) + len(f.Forms) + len(f.APICalls) + len(f.Stores)
}

func newFileFacts(relPath string) *FileFacts {
	return &FileFacts{
		FilePath:   relPath,
		Components: make([]ComponentInfo, 0),
		Routes:     make([]RouteInfo, 0),
		Forms:      make([]FormInfo, 0),
		APICalls:   make([]APICallInfo, 0),
		Stores:     make([]StoreInfo, 0),
	}
}
