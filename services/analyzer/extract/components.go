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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/fxzscan/services/analyzer/ast"
)

func (w *fileWalker) visitVariableDeclarator(node *sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil || name.Type() != ast.NodeIdentifier {
		return
	}
	w.recordComponent(w.tree.Text(name), ArrowFunctionComponent, node)
}

func (w *fileWalker) visitFunctionDeclaration(node *sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.recordComponent(w.tree.Text(name), FunctionComponent, node)
}

// recordComponent adds a candidate when name is capitalized and the
// declaration contains JSX anywhere below it.
func (w *fileWalker) recordComponent(name string, kind ComponentType, decl *sitter.Node) {
	if !isCapitalized(name) || !containsJSX(decl) {
		return
	}
	w.facts.Components = append(w.facts.Components, ComponentInfo{
		Name:     name,
		Type:     kind,
		FilePath: w.facts.FilePath,
		IsPage:   strings.HasPrefix(w.facts.FilePath, w.ex.opts.PagesPrefix),
	})
}

// isCapitalized reports whether name starts with an ASCII uppercase letter.
func isCapitalized(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

// containsJSX reports whether any descendant of node is a JSX element or
// fragment. The search stops at the first hit.
func containsJSX(node *sitter.Node) bool {
	found := false
	ast.Walk(node, func(n *sitter.Node) bool {
		if found {
			return false
		}
		switch n.Type() {
		case ast.NodeJSXElement, ast.NodeJSXSelfClosingElement, ast.NodeJSXFragment:
			found = true
			return false
		}
		return true
	})
	return found
}
