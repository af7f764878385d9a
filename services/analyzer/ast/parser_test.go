// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"errors"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse_JSX(t *testing.T) {
	parser := NewParser()
	src := []byte(`import React from 'react';

export const App = () => (
  <div className="app">
    <Header title={title} />
  </div>
);
`)

	tree, err := parser.Parse(context.Background(), src, "src/App.jsx")
	require.NoError(t, err)
	defer tree.Close()

	assert.Equal(t, NodeProgram, tree.Root().Type())
	assert.Equal(t, GrammarTSX, tree.Grammar())
}

func TestParser_Parse_TypeScriptWithJSX(t *testing.T) {
	parser := NewParser()
	src := []byte(`interface Props { title?: string }

class Store {
  count: number = 0;
}

export function Title({ title }: Props) {
  const label = title ?? "none";
  return <h1>{label?.toUpperCase()}</h1>;
}
`)

	tree, err := parser.Parse(context.Background(), src, "src/Title.tsx")
	require.NoError(t, err)
	defer tree.Close()

	var kinds []string
	Walk(tree.Root(), func(n *sitter.Node) bool {
		kinds = append(kinds, n.Type())
		return true
	})
	assert.Contains(t, kinds, NodeFunctionDecl)
	assert.Contains(t, kinds, NodeJSXElement)
}

func TestParser_Parse_SyntaxError(t *testing.T) {
	parser := NewParser()
	src := []byte("const a = 1;\nconst b = = 2;\n")

	tree, err := parser.Parse(context.Background(), src, "src/broken.js")
	require.Error(t, err)
	assert.Nil(t, tree)

	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr), "expected *SyntaxError, got %T", err)
	assert.Equal(t, 2, syntaxErr.Line)
	assert.True(t,
		strings.HasPrefix(err.Error(), "Unexpected token (") || strings.HasPrefix(err.Error(), "Missing "),
		"unexpected message %q", err.Error())
}

func TestParser_Parse_FileTooLarge(t *testing.T) {
	parser := NewParser(WithMaxFileSize(16))
	src := []byte("const value = 'this is longer than sixteen bytes';")

	_, err := parser.Parse(context.Background(), src, "big.js")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileTooLarge))
	assert.Equal(t, int64(16), parser.MaxFileSize())
}

func TestParser_Parse_InvalidUTF8(t *testing.T) {
	parser := NewParser()
	src := []byte{'c', 'o', 'n', 's', 't', ' ', 0xff, 0xfe}

	_, err := parser.Parse(context.Background(), src, "bad.js")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidContent))
}

func TestParser_Parse_Canceled(t *testing.T) {
	parser := NewParser()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parser.Parse(ctx, []byte("const a = 1;"), "a.js")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParseCtxError_AttachesContextError(t *testing.T) {
	limit := errors.New("operation limit was hit")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := parseCtxError(ctx, limit)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, limit)
	assert.Equal(t, "canceled", parseStatus(err))

	err = parseCtxError(context.Background(), limit)
	assert.ErrorIs(t, err, limit)
	assert.NotErrorIs(t, err, context.Canceled)
}

func TestNewParser_IgnoresNonPositiveSize(t *testing.T) {
	parser := NewParser(WithMaxFileSize(0), WithMaxFileSize(-5))
	assert.Equal(t, int64(DefaultMaxFileSize), parser.MaxFileSize())
}

func TestGrammarFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.js", GrammarTSX},
		{"a.jsx", GrammarTSX},
		{"a.ts", GrammarTSX},
		{"a.TSX", GrammarTSX},
		{"a.mts", GrammarTypeScript},
		{"a.cjs", GrammarJavaScript},
		{"a.unknown", GrammarTSX},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, GrammarFor(tt.path))
		})
	}
}

func TestTree_StringValue(t *testing.T) {
	parser := NewParser()
	src := []byte(`const url = "/api/a\x41\né";`)

	tree, err := parser.Parse(context.Background(), src, "s.js")
	require.NoError(t, err)
	defer tree.Close()

	var str *sitter.Node
	Walk(tree.Root(), func(n *sitter.Node) bool {
		if str == nil && n.Type() == NodeString {
			str = n
		}
		return str == nil
	})
	require.NotNil(t, str)

	value, ok := tree.StringValue(str)
	require.True(t, ok)
	assert.Equal(t, "/api/aA\né", value)

	raw, ok := tree.RawString(str)
	require.True(t, ok)
	assert.Equal(t, `/api/a\x41\né`, raw)
}

func TestDecodeEscape(t *testing.T) {
	tests := []struct {
		seq  string
		want string
	}{
		{`\n`, "\n"},
		{`\t`, "\t"},
		{`\'`, "'"},
		{`\"`, `"`},
		{`\x41`, "A"},
		{`\u00e9`, "\u00e9"},
		{`\u{1F600}`, "\U0001F600"},
		{`\0`, "\x00"},
		{`\q`, "q"},
		{"\\\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.seq, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeEscape(tt.seq))
		})
	}
}

func TestTree_CloseTwice(t *testing.T) {
	tree, err := NewParser().Parse(context.Background(), []byte("let a;"), "a.js")
	require.NoError(t, err)
	tree.Close()
	tree.Close()
}
