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
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Tree is a successfully parsed source file.
//
// Thread Safety: A Tree is not safe for concurrent use. Each worker parses
// and walks its own tree.
type Tree struct {
	tree    *sitter.Tree
	root    *sitter.Node
	content []byte
	grammar string
}

// Root returns the program node.
func (t *Tree) Root() *sitter.Node {
	return t.root
}

// Text returns the source text covered by node.
func (t *Tree) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(t.content)
}

// Grammar returns the grammar name used to parse the tree.
func (t *Tree) Grammar() string {
	return t.grammar
}

// Close releases the underlying tree-sitter tree. Safe to call more than once.
func (t *Tree) Close() {
	if t == nil || t.tree == nil {
		return
	}
	t.tree.Close()
	t.tree = nil
	t.root = nil
}

// Walk visits node and its descendants in pre-order using an explicit stack.
// Returning false from fn skips the children of the visited node.
func Walk(node *sitter.Node, fn func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	stack := []*sitter.Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(n) {
			continue
		}
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			if child := n.NamedChild(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
}

// FirstNamedChild returns the first named child of node that is not a comment.
func FirstNamedChild(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Type() != NodeComment {
			return child
		}
	}
	return nil
}

// Unparenthesize strips any number of enclosing parenthesized_expression nodes.
func Unparenthesize(node *sitter.Node) *sitter.Node {
	for node != nil && node.Type() == NodeParenthesized {
		inner := FirstNamedChild(node)
		if inner == nil {
			return node
		}
		node = inner
	}
	return node
}

// IsFunctionExpression reports whether node is a function or generator
// expression. The kind was renamed between grammar releases.
func IsFunctionExpression(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case NodeFunction, NodeFunctionExpr, NodeGeneratorFunction:
		return true
	}
	return false
}

// RawString returns the text between the quotes of a string node without
// processing escapes. ok is false when node is not a string literal.
func (t *Tree) RawString(node *sitter.Node) (value string, ok bool) {
	if node == nil || node.Type() != NodeString {
		return "", false
	}
	text := t.Text(node)
	if len(text) < 2 {
		return "", true
	}
	return text[1 : len(text)-1], true
}

// StringValue returns the cooked value of a string literal node, with escape
// sequences decoded. ok is false when node is not a string literal.
func (t *Tree) StringValue(node *sitter.Node) (value string, ok bool) {
	if node == nil || node.Type() != NodeString {
		return "", false
	}
	var b strings.Builder
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case NodeEscapeSequence:
			b.WriteString(DecodeEscape(t.Text(child)))
		default:
			b.WriteString(t.Text(child))
		}
	}
	return b.String(), true
}

// DecodeEscape decodes a single JavaScript escape sequence such as `\n`,
// `\x41`, `\u00e9` or `\u{1F600}`. Unknown escapes yield the escaped
// character itself and line continuations yield nothing.
func DecodeEscape(seq string) string {
	if len(seq) < 2 || seq[0] != '\\' {
		return seq
	}
	body := seq[1:]

	switch {
	case body == "\n" || body == "\r\n" || body == "\r" || body == "\u2028" || body == "\u2029":
		return ""
	case body == "0":
		return "\x00"
	case strings.HasPrefix(body, "u{") && strings.HasSuffix(body, "}"):
		code, err := strconv.ParseUint(body[2:len(body)-1], 16, 32)
		if err != nil {
			return body
		}
		return string(rune(code))
	case body == "'" || body == "\"":
		return body
	}

	value, _, tail, err := strconv.UnquoteChar(seq, 0)
	if err != nil || tail != "" {
		return body
	}
	return string(value)
}
