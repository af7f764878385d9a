// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract walks parsed source trees and records the structural facts
// of a React frontend: components, routes, forms, API calls, stores and
// import signals.
package extract

import (
	"context"
	"log/slog"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/fxzscan/services/analyzer/ast"
)

// ctxCheckInterval is how many nodes are visited between context checks.
const ctxCheckInterval = 4096

// Extractor turns syntax trees into FileFacts.
//
// Thread Safety: Extractor holds only immutable configuration and is safe for
// concurrent use. Per-file state lives in a fileWalker.
type Extractor struct {
	opts     Options
	formTags map[string]struct{}
	logger   *slog.Logger
}

// NewExtractor creates an Extractor. Zero-valued option fields take defaults.
func NewExtractor(opts Options) *Extractor {
	opts = opts.withDefaults()
	formTags := make(map[string]struct{}, len(opts.FormTags))
	for _, tag := range opts.FormTags {
		formTags[tag] = struct{}{}
	}
	return &Extractor{
		opts:     opts,
		formTags: formTags,
		logger:   opts.Logger,
	}
}

// Extract records the facts of one parsed file.
//
// Description:
//
//	Visits every node of the tree once in pre-order with an explicit stack
//	and dispatches on the node kind. A node matches at most one pattern
//	family. Shapes that do not match a pattern are ignored; Extract never
//	fails on a well-formed tree.
//
// Inputs:
//   - ctx: Context for cancellation. When canceled the facts gathered so far
//     are returned and the caller is expected to discard them.
//   - tree: The parsed file. Not closed by Extract.
//   - relPath: Root-relative path with forward slashes.
//
// Outputs:
//   - *FileFacts: Never nil.
func (e *Extractor) Extract(ctx context.Context, tree *ast.Tree, relPath string) *FileFacts {
	grammar := ""
	if tree != nil {
		grammar = tree.Grammar()
	}
	ctx, span := startExtractSpan(ctx, relPath, grammar)
	defer span.End()

	start := time.Now()
	w := &fileWalker{
		ex:    e,
		tree:  tree,
		facts: newFileFacts(relPath),
	}

	if tree != nil && tree.Root() != nil {
		w.walk(ctx, tree.Root())
	}

	recordExtract(span, w.facts, time.Since(start))
	e.logger.Debug("extracted file facts",
		slog.String("file", relPath),
		slog.String("grammar", grammar),
		slog.Int("facts", w.facts.FactCount()),
		slog.Int("components", len(w.facts.Components)),
		slog.Int("routes", len(w.facts.Routes)),
		slog.Int("forms", len(w.facts.Forms)),
		slog.Int("api_calls", len(w.facts.APICalls)),
		slog.Int("stores", len(w.facts.Stores)))

	return w.facts
}

// fileWalker holds the per-file traversal state.
type fileWalker struct {
	ex    *Extractor
	tree  *ast.Tree
	facts *FileFacts
}

func (w *fileWalker) walk(ctx context.Context, root *sitter.Node) {
	stack := []*sitter.Node{root}
	visited := 0
	for len(stack) > 0 {
		visited++
		if visited%ctxCheckInterval == 0 && ctx.Err() != nil {
			return
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		w.visit(node)

		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			if child := node.NamedChild(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
}

func (w *fileWalker) visit(node *sitter.Node) {
	switch node.Type() {
	case ast.NodeImportStatement:
		w.visitImport(node)
	case ast.NodeVariableDeclarator:
		w.visitVariableDeclarator(node)
	case ast.NodeFunctionDecl, ast.NodeGeneratorFuncDecl:
		w.visitFunctionDeclaration(node)
	case ast.NodeJSXElement:
		w.visitJSXElement(openingElement(node))
	case ast.NodeJSXSelfClosingElement:
		w.visitJSXElement(node)
	case ast.NodeCallExpression:
		w.visitCall(node)
	case ast.NodeExportStatement:
		w.visitExport(node)
	}
}
