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

const (
	// expressionPlaceholder is recorded for route attributes holding an
	// expression other than a name or element.
	expressionPlaceholder = "{expression}"

	testIDAttribute = "data-testid"
)

// openingElement returns the opening tag of a jsx_element.
func openingElement(element *sitter.Node) *sitter.Node {
	if tag := element.ChildByFieldName("open_tag"); tag != nil {
		return tag
	}
	for i := 0; i < int(element.NamedChildCount()); i++ {
		if child := element.NamedChild(i); child.Type() == ast.NodeJSXOpeningElement {
			return child
		}
	}
	return nil
}

// plainTagName returns the tag name of an opening or self-closing element
// when it is a plain identifier. Member, namespaced and fragment tags
// return false.
func (w *fileWalker) plainTagName(tag *sitter.Node) (string, bool) {
	if tag == nil {
		return "", false
	}
	name := tag.ChildByFieldName("name")
	if name == nil {
		return "", false
	}
	switch name.Type() {
	case ast.NodeIdentifier, ast.NodeJSXIdentifier:
		return w.tree.Text(name), true
	}
	return "", false
}

// jsxAttr is one plain-named attribute with its value node, which is nil for
// boolean shorthand attributes.
type jsxAttr struct {
	name  string
	value *sitter.Node
}

func (w *fileWalker) attributes(tag *sitter.Node) []jsxAttr {
	var attrs []jsxAttr
	for i := 0; i < int(tag.NamedChildCount()); i++ {
		child := tag.NamedChild(i)
		if child.Type() != ast.NodeJSXAttribute {
			continue
		}
		nameNode := child.NamedChild(0)
		if nameNode == nil {
			continue
		}
		switch nameNode.Type() {
		case ast.NodePropertyIdent, ast.NodeIdentifier, ast.NodeJSXIdentifier:
		default:
			continue
		}
		var value *sitter.Node
		for j := 1; j < int(child.NamedChildCount()); j++ {
			if v := child.NamedChild(j); v.Type() != ast.NodeComment {
				value = v
				break
			}
		}
		attrs = append(attrs, jsxAttr{name: w.tree.Text(nameNode), value: value})
	}
	return attrs
}

func (w *fileWalker) visitJSXElement(tag *sitter.Node) {
	name, ok := w.plainTagName(tag)
	if !ok {
		return
	}
	if name == w.ex.opts.RouteTag {
		w.recordRoute(tag)
	}
	if _, isForm := w.ex.formTags[name]; isForm {
		w.recordForm(name, tag)
	}
}

func (w *fileWalker) recordRoute(tag *sitter.Node) {
	props := make(map[string]string)
	for _, attr := range w.attributes(tag) {
		if value, ok := w.routeAttributeValue(attr.value); ok {
			props[attr.name] = value
		}
	}
	w.facts.Routes = append(w.facts.Routes, RouteInfo{
		Path:     nonEmpty(props["path"]),
		Element:  nonEmpty(props["element"]),
		FilePath: w.facts.FilePath,
	})
}

// routeAttributeValue renders an attribute value: literal text for strings,
// <Name> for identifiers and elements, {expression} for anything else.
// Empty containers and bare element values have no rendering.
func (w *fileWalker) routeAttributeValue(value *sitter.Node) (string, bool) {
	if value == nil {
		return "", false
	}
	switch value.Type() {
	case ast.NodeString:
		return w.tree.RawString(value)
	case ast.NodeJSXExpression:
		expr := ast.Unparenthesize(ast.FirstNamedChild(value))
		if expr == nil {
			return "", false
		}
		switch expr.Type() {
		case ast.NodeIdentifier:
			return "<" + w.tree.Text(expr) + ">", true
		case ast.NodeJSXSelfClosingElement:
			if name := expr.ChildByFieldName("name"); name != nil {
				return "<" + w.tree.Text(name) + ">", true
			}
		case ast.NodeJSXElement:
			if open := openingElement(expr); open != nil {
				if name := open.ChildByFieldName("name"); name != nil {
					return "<" + w.tree.Text(name) + ">", true
				}
			}
		}
		return expressionPlaceholder, true
	}
	return "", false
}

func (w *fileWalker) recordForm(tagName string, tag *sitter.Node) {
	attrs := NewAttributes()
	hasTestID := false
	for _, attr := range w.attributes(tag) {
		if attr.name == testIDAttribute {
			hasTestID = true
		}
		if value, ok := w.tree.RawString(attr.value); ok {
			attrs.Set(attr.name, value)
		}
	}
	w.facts.Forms = append(w.facts.Forms, FormInfo{
		Tag:        tagName,
		Attributes: attrs,
		FilePath:   w.facts.FilePath,
	})

	if w.ex.opts.Extended {
		w.facts.InteractiveElements++
		if hasTestID {
			w.facts.WithTestID++
		}
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
