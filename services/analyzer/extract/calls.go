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
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/fxzscan/services/analyzer/ast"
)

// plainCall reports whether call is an ordinary call: it has a parenthesized
// argument list and is not part of an optional chain.
func plainCall(call *sitter.Node) bool {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != ast.NodeArguments {
		return false
	}
	return !hasOptionalChain(call)
}

// hasOptionalChain reports whether node carries its own ?. token. Newer
// grammars wrap it in an optional_chain node; call expressions expose it as a
// bare anonymous token before the arguments.
func hasOptionalChain(node *sitter.Node) bool {
	if node.ChildByFieldName("optional_chain") != nil {
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case ast.NodeOptionalChain, ast.NodeOptionalToken:
			return true
		}
	}
	return false
}

func (w *fileWalker) visitCall(call *sitter.Node) {
	if !plainCall(call) {
		return
	}
	callee := call.ChildByFieldName("function")
	if callee == nil {
		return
	}

	var base string
	switch callee.Type() {
	case ast.NodeIdentifier:
		base = w.tree.Text(callee)
	case ast.NodeMemberExpression, ast.NodeSubscriptExpr:
		if hasOptionalChain(callee) {
			return
		}
		object := callee.ChildByFieldName("object")
		if object == nil || object.Type() != ast.NodeIdentifier {
			return
		}
		base = w.tree.Text(object)
	default:
		return
	}

	switch base {
	case APICallFetch:
		w.facts.APICalls = append(w.facts.APICalls, APICallInfo{
			Type:     APICallFetch,
			URL:      w.firstArgumentURL(call),
			FilePath: w.facts.FilePath,
		})
	case APICallAxios:
		if callee.Type() != ast.NodeMemberExpression {
			return
		}
		property := callee.ChildByFieldName("property")
		if property == nil || property.Type() != ast.NodePropertyIdent {
			return
		}
		w.facts.APICalls = append(w.facts.APICalls, APICallInfo{
			Type:     APICallAxios,
			URL:      w.firstArgumentURL(call),
			Method:   w.tree.Text(property),
			FilePath: w.facts.FilePath,
		})
	}
}

// firstArgumentURL returns the cooked value of the first argument when it is
// a string literal, else DynamicURL.
func (w *fileWalker) firstArgumentURL(call *sitter.Node) string {
	first := ast.FirstNamedChild(call.ChildByFieldName("arguments"))
	if value, ok := w.tree.StringValue(first); ok {
		return value
	}
	return DynamicURL
}
