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

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/fxzscan/services/analyzer/ast"
)

func extractSource(t *testing.T, relPath, src string, opts Options) *FileFacts {
	t.Helper()
	tree, err := ast.NewParser().Parse(context.Background(), []byte(src), relPath)
	require.NoError(t, err, "fixture must parse cleanly")
	t.Cleanup(tree.Close)
	return NewExtractor(opts).Extract(context.Background(), tree, relPath)
}

func strPtr(s string) *string { return &s }

func TestExtract_Components(t *testing.T) {
	src := `
import React from 'react';

export const Header = () => <header>Title</header>;

const helper = () => <span />;

const NoMarkup = () => 42;

export default function Dashboard() {
  const Inner = () => <>inner</>;
  return <main><Header /></main>;
}

function lowercase() { return <div />; }
`
	facts := extractSource(t, "components/Dashboard.jsx", src, Options{})

	require.Len(t, facts.Components, 3)
	assert.Equal(t, ComponentInfo{
		Name: "Header", Type: ArrowFunctionComponent, FilePath: "components/Dashboard.jsx",
	}, facts.Components[0])
	assert.Equal(t, "Dashboard", facts.Components[1].Name)
	assert.Equal(t, FunctionComponent, facts.Components[1].Type)
	assert.Equal(t, "Inner", facts.Components[2].Name)
	assert.Equal(t, ArrowFunctionComponent, facts.Components[2].Type)
}

func TestExtract_Components_IsPage(t *testing.T) {
	src := `export const UsersPage = () => <div>users</div>;`

	page := extractSource(t, "pages/UsersPage.jsx", src, Options{})
	require.Len(t, page.Components, 1)
	assert.True(t, page.Components[0].IsPage)

	nested := extractSource(t, "features/pages/UsersPage.jsx", src, Options{})
	require.Len(t, nested.Components, 1)
	assert.False(t, nested.Components[0].IsPage)
}

func TestExtract_Components_DestructuringIgnored(t *testing.T) {
	src := `const { Provider } = makeContext(<div />);`
	facts := extractSource(t, "ctx.jsx", src, Options{})
	assert.Empty(t, facts.Components)
}

func TestExtract_Routes(t *testing.T) {
	src := `
export function AppRoutes() {
  return (
    <Routes>
      <Route path="/users" element={<Users />} />
      <Route path="/" element={Home} />
      <Route path={paths.settings} element={<Layout.Main />}>
        <Route index element={<Overview />} />
      </Route>
      <Route path="" element={<>x</>} />
    </Routes>
  );
}
`
	facts := extractSource(t, "App.jsx", src, Options{})

	require.Len(t, facts.Routes, 5)
	assert.Equal(t, RouteInfo{Path: strPtr("/users"), Element: strPtr("<Users>"), FilePath: "App.jsx"}, facts.Routes[0])
	assert.Equal(t, RouteInfo{Path: strPtr("/"), Element: strPtr("<Home>"), FilePath: "App.jsx"}, facts.Routes[1])
	assert.Equal(t, RouteInfo{Path: strPtr("{expression}"), Element: strPtr("<Layout.Main>"), FilePath: "App.jsx"}, facts.Routes[2])
	assert.Nil(t, facts.Routes[3].Path)
	assert.Equal(t, "<Overview>", *facts.Routes[3].Element)
	assert.Nil(t, facts.Routes[4].Path)
	assert.Equal(t, "{expression}", *facts.Routes[4].Element)
}

func TestExtract_Routes_ParenthesizedElement(t *testing.T) {
	src := `const r = <Route path="/p" element={(<Profile />)} />;`
	facts := extractSource(t, "r.jsx", src, Options{})
	require.Len(t, facts.Routes, 1)
	assert.Equal(t, "<Profile>", *facts.Routes[0].Element)
}

func TestExtract_Routes_CustomTag(t *testing.T) {
	src := `const r = <PrivateRoute path="/admin" />;`
	facts := extractSource(t, "r.jsx", src, Options{RouteTag: "PrivateRoute"})
	require.Len(t, facts.Routes, 1)
	assert.Equal(t, "/admin", *facts.Routes[0].Path)
	assert.Nil(t, facts.Routes[0].Element)
}

func TestExtract_Forms(t *testing.T) {
	src := `
export const Login = () => (
  <form className="login" onSubmit={handleSubmit}>
    <input type="text" value={someVar} />
    <input name="a" type="email" name="b" disabled />
    <button type="submit" data-testid="login-submit">Go</button>
    <Form.Input type="text" />
  </form>
);
`
	facts := extractSource(t, "Login.jsx", src, Options{})

	require.Len(t, facts.Forms, 4)

	assert.Equal(t, "form", facts.Forms[0].Tag)
	assert.Equal(t, []string{"className"}, facts.Forms[0].Attributes.Keys())

	assert.Equal(t, "input", facts.Forms[1].Tag)
	assert.Equal(t, []string{"type"}, facts.Forms[1].Attributes.Keys())
	value, ok := facts.Forms[1].Attributes.Get("type")
	require.True(t, ok)
	assert.Equal(t, "text", value)
	_, ok = facts.Forms[1].Attributes.Get("value")
	assert.False(t, ok)

	assert.Equal(t, []string{"name", "type"}, facts.Forms[2].Attributes.Keys())
	name, _ := facts.Forms[2].Attributes.Get("name")
	assert.Equal(t, "b", name)

	assert.Equal(t, "button", facts.Forms[3].Tag)
	assert.Equal(t, []string{"type", "data-testid"}, facts.Forms[3].Attributes.Keys())

	assert.Zero(t, facts.InteractiveElements, "coverage counters are extended-only")
}

func TestExtract_APICalls(t *testing.T) {
	src := `
async function load(id, dynamicUrlVar, data) {
  await fetch('/api/users');
  await fetch(dynamicUrlVar);
  await fetch("/api/a\x2Fb");
  await axios.post("/api/login", data);
  await axios.get(` + "`/api/users/${id}`" + `);
  await axios('/api/raw');
  await api.get('/api/other');
  await axios['delete']('/api/computed');
  await fetch?.('/api/optional');
  await axios?.put('/api/optional');
  await axios.get?.('/api/optional');
  await axios['get']?.('/api/optional');
  window.fetch('/api/window');
}
`
	facts := extractSource(t, "api.js", src, Options{})

	require.Len(t, facts.APICalls, 5)
	assert.Equal(t, APICallInfo{Type: "fetch", URL: "/api/users", FilePath: "api.js"}, facts.APICalls[0])
	assert.Equal(t, APICallInfo{Type: "fetch", URL: "dynamic", FilePath: "api.js"}, facts.APICalls[1])
	assert.Equal(t, APICallInfo{Type: "fetch", URL: "/api/a/b", FilePath: "api.js"}, facts.APICalls[2])
	assert.Equal(t, APICallInfo{Type: "axios", URL: "/api/login", Method: "post", FilePath: "api.js"}, facts.APICalls[3])
	assert.Equal(t, APICallInfo{Type: "axios", URL: "dynamic", Method: "get", FilePath: "api.js"}, facts.APICalls[4])
}

func TestExtract_APICalls_OptionalCallsSkipped(t *testing.T) {
	for _, src := range []string{
		`fetch?.('/a');`,
		`axios.get?.('/a');`,
		`axios?.get('/a');`,
		`axios.post?.('/a', body);`,
	} {
		facts := extractSource(t, "a.js", src, Options{})
		assert.Empty(t, facts.APICalls, src)
	}
}

func TestExtract_APICalls_ChainedAxiosRecordsInnerCallOnly(t *testing.T) {
	facts := extractSource(t, "a.js", `axios.create().get('/api/nested');`, Options{})
	require.Len(t, facts.APICalls, 1)
	assert.Equal(t, APICallInfo{Type: "axios", URL: "dynamic", Method: "create", FilePath: "a.js"}, facts.APICalls[0])
}

func TestExtract_APICalls_FetchOffIdentifier(t *testing.T) {
	facts := extractSource(t, "a.js", `fetch.call(null, '/x');`, Options{})
	require.Len(t, facts.APICalls, 1)
	assert.Equal(t, "fetch", facts.APICalls[0].Type)
	assert.Equal(t, "dynamic", facts.APICalls[0].URL)
}

func TestExtract_Stores(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		want *StoreInfo
	}{
		{
			name: "direct factory",
			path: "stores/cartStore.js",
			src: `import { create } from 'zustand';
export default create((set) => ({ items: [], addItem: (i) => set((s) => ({ items: [...s.items, i] })) }));`,
			want: &StoreInfo{Name: "cartStore", FilePath: "stores/cartStore.js", State: []string{"items"}, Actions: []string{"addItem"}},
		},
		{
			name: "curried factory uses inner argument",
			path: "stores/authStore.ts",
			src: `export default create(persist)((set, get) => ({
  user: null,
  token,
  login: async (u) => set({ user: u }),
  logout: function () { set({ user: null }) },
  refresh() {},
  ...extra,
  'quoted': 1,
  [computed]: 2,
}));`,
			want: &StoreInfo{Name: "authStore", FilePath: "stores/authStore.ts", State: []string{}, Actions: []string{}},
		},
		{
			name: "generic curried factory",
			path: "stores/themeStore.tsx",
			src: `export default create<ThemeState>()((set) => ({
  mode: 'light',
  token,
  toggle: () => set((s) => ({ mode: s.mode === 'light' ? 'dark' : 'light' })),
  reset: function () { set({ mode: 'light' }) },
  refresh() {},
  ...extra,
  'quoted': 1,
  [computed]: 2,
}));`,
			want: &StoreInfo{
				Name: "themeStore", FilePath: "stores/themeStore.tsx",
				State: []string{"mode", "token"}, Actions: []string{"toggle", "reset"},
			},
		},
		{
			name: "block bodied factory",
			path: "stores/blockStore.js",
			src:  `export default create((set) => { return { a: 1 }; });`,
			want: &StoreInfo{Name: "blockStore", FilePath: "stores/blockStore.js", State: []string{}, Actions: []string{}},
		},
		{
			name: "parenthesized export",
			path: "stores/wrapped.js",
			src:  `export default (create((set) => ({ a: 1, b: () => set({ a: 2 }) })));`,
			want: &StoreInfo{Name: "wrapped", FilePath: "stores/wrapped.js", State: []string{"a"}, Actions: []string{"b"}},
		},
		{
			name: "parenthesized curried export",
			path: "stores/persisted.js",
			src:  `export default (create(persist)((set) => ({ a: 1 })));`,
			want: &StoreInfo{Name: "persisted", FilePath: "stores/persisted.js", State: []string{}, Actions: []string{}},
		},
		{
			name: "other factory name",
			path: "stores/other.js",
			src:  `export default makeStore((set) => ({ a: 1 }));`,
		},
		{
			name: "named export",
			path: "stores/named.js",
			src:  `export const useStore = create((set) => ({ a: 1 }));`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := extractSource(t, tt.path, tt.src, Options{})
			if tt.want == nil {
				assert.Empty(t, facts.Stores)
				return
			}
			require.Len(t, facts.Stores, 1)
			assert.Equal(t, *tt.want, facts.Stores[0])
		})
	}
}

func TestExtract_ImportSignals(t *testing.T) {
	src := `
import Guard from './ProtectedRouteWrapper';
import { ThemeProvider } from '../context/ThemeProvider';
import ProtectedRoute from './components/ProtectedRoute';
import React from 'react';
`
	facts := extractSource(t, "App.jsx", src, Options{})
	assert.Equal(t, 2, facts.ProtectedRouteImports)
	assert.Equal(t, 1, facts.ThemeProviderImports)
	assert.Empty(t, facts.Imports, "inventory is extended-only")
}

func TestExtract_Extended(t *testing.T) {
	src := `
import React, { useState as useLocalState, useEffect } from 'react';
import * as api from '../api';
import useAuthStore from '../stores/authStore';
import './styles.css';

export const Form = () => (
  <form data-testid="form">
    <input data-testid={id} />
    <button>Save</button>
  </form>
);
`
	facts := extractSource(t, "pages/Form.jsx", src, Options{Extended: true})

	require.Len(t, facts.Imports, 4)
	assert.Equal(t, ImportInfo{
		FilePath: "pages/Form.jsx",
		Source:   "react",
		Specifiers: []ImportSpecifier{
			{Local: "React", Imported: "default"},
			{Local: "useLocalState", Imported: "useState"},
			{Local: "useEffect", Imported: "useEffect"},
		},
	}, facts.Imports[0])
	assert.Equal(t, []ImportSpecifier{{Local: "api", Imported: "*"}}, facts.Imports[1].Specifiers)
	assert.Empty(t, facts.Imports[3].Specifiers)

	assert.Equal(t, 1, facts.AuthStoreImports)
	assert.Equal(t, 3, facts.InteractiveElements)
	assert.Equal(t, 2, facts.WithTestID)
}

func TestExtract_CanceledContext(t *testing.T) {
	tree, err := ast.NewParser().Parse(context.Background(), []byte(`fetch('/a');`), "a.js")
	require.NoError(t, err)
	defer tree.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	facts := NewExtractor(Options{}).Extract(ctx, tree, "a.js")
	require.NotNil(t, facts)
}

func TestFileFacts_FactCount(t *testing.T) {
	var nilFacts *FileFacts
	assert.Zero(t, nilFacts.FactCount())

	facts := extractSource(t, "a.jsx", `export const A = () => <input type="x" />; fetch('/a');`, Options{})
	assert.Equal(t, 3, facts.FactCount())
}
