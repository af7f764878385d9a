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
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/fxzscan/services/analyzer/ast"
)

func (w *fileWalker) visitExport(node *sitter.Node) {
	if !isDefaultExport(node) {
		return
	}
	value := ast.Unparenthesize(node.ChildByFieldName("value"))
	if value == nil || value.Type() != ast.NodeCallExpression || !plainCall(value) {
		return
	}
	factory, ok := w.storeFactory(value)
	if !ok {
		return
	}

	store := StoreInfo{
		Name:     storeName(w.facts.FilePath),
		FilePath: w.facts.FilePath,
		State:    make([]string, 0),
		Actions:  make([]string, 0),
	}
	w.classifyStoreMembers(factory, &store)
	w.facts.Stores = append(w.facts.Stores, store)
}

func isDefaultExport(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil && child.Type() == ast.NodeDefault {
			return true
		}
	}
	return false
}

// storeFactory matches create(f)(...) and create(f) and returns the factory
// argument, which may be nil when neither call has arguments.
func (w *fileWalker) storeFactory(call *sitter.Node) (*sitter.Node, bool) {
	callee := call.ChildByFieldName("function")
	if callee == nil {
		return nil, false
	}

	switch callee.Type() {
	case ast.NodeIdentifier:
		if w.tree.Text(callee) != w.ex.opts.StoreFactory {
			return nil, false
		}
		return firstArgument(call), true

	case ast.NodeCallExpression:
		if !plainCall(callee) {
			return nil, false
		}
		inner := callee.ChildByFieldName("function")
		if inner == nil || inner.Type() != ast.NodeIdentifier || w.tree.Text(inner) != w.ex.opts.StoreFactory {
			return nil, false
		}
		if factory := firstArgument(callee); factory != nil {
			return factory, true
		}
		return firstArgument(call), true
	}
	return nil, false
}

func firstArgument(call *sitter.Node) *sitter.Node {
	return ast.FirstNamedChild(call.ChildByFieldName("arguments"))
}

// classifyStoreMembers fills state and actions from an arrow factory whose
// body is an object literal. Other factory shapes leave both lists empty.
func (w *fileWalker) classifyStoreMembers(factory *sitter.Node, store *StoreInfo) {
	if factory == nil || factory.Type() != ast.NodeArrowFunction {
		return
	}
	body := ast.Unparenthesize(factory.ChildByFieldName("body"))
	if body == nil || body.Type() != ast.NodeObject {
		return
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case ast.NodeShorthandProperty:
			store.State = append(store.State, w.tree.Text(member))
		case ast.NodePair:
			key := member.ChildByFieldName("key")
			if key == nil || key.Type() != ast.NodePropertyIdent {
				continue
			}
			value := ast.Unparenthesize(member.ChildByFieldName("value"))
			if value != nil && (value.Type() == ast.NodeArrowFunction || ast.IsFunctionExpression(value)) {
				store.Actions = append(store.Actions, w.tree.Text(key))
			} else {
				store.State = append(store.State, w.tree.Text(key))
			}
		}
	}
}

// storeName is the file base name with its extension removed.
func storeName(relPath string) string {
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}
