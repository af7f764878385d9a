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
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Grammar names reported on spans and in debug logs.
const (
	GrammarTSX        = "tsx"
	GrammarTypeScript = "typescript"
	GrammarJavaScript = "javascript"
)

// extensionGrammars maps file extensions to grammars. Extensions not listed
// here use the TSX grammar, which accepts module syntax, inline JSX and type
// annotations in a single pass.
var extensionGrammars = map[string]string{
	".js":  GrammarTSX,
	".jsx": GrammarTSX,
	".ts":  GrammarTSX,
	".tsx": GrammarTSX,
	".mts": GrammarTypeScript,
	".cts": GrammarTypeScript,
	".mjs": GrammarJavaScript,
	".cjs": GrammarJavaScript,
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMaxFileSize sets the maximum file size the parser will accept.
// Non-positive values are ignored.
func WithMaxFileSize(bytes int64) ParserOption {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithLogger sets the logger used for per-file debug output.
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Parser turns JavaScript and TypeScript source into syntax trees.
//
// Description:
//
//	Parser wraps tree-sitter. Every Parse call creates its own tree-sitter
//	parser instance, so a single Parser is safe for concurrent use from
//	multiple goroutines.
//
//	A tree that contains any ERROR or MISSING node is rejected with a
//	*SyntaxError rather than returned partially. Downstream extraction only
//	ever sees trees that parsed cleanly.
type Parser struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewParser creates a Parser with the given options.
//
// Example:
//
//	parser := NewParser(WithMaxFileSize(5 * 1024 * 1024))
//	tree, err := parser.Parse(ctx, content, "src/App.jsx")
//	if err != nil {
//	    return err
//	}
//	defer tree.Close()
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxFileSize returns the configured size limit in bytes.
func (p *Parser) MaxFileSize() int64 {
	return p.maxFileSize
}

// Parse parses content and returns its syntax tree.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//   - content: Raw source bytes. Must be valid UTF-8.
//   - filePath: Path used to select the grammar and label telemetry.
//
// Outputs:
//   - *Tree: The parsed tree. The caller must call Close.
//   - error: ErrFileTooLarge, ErrInvalidContent, *SyntaxError, or a context error.
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string) (tree *Tree, err error) {
	grammar := GrammarFor(filePath)

	ctx, span := startParseSpan(ctx, grammar, filePath, len(content))
	defer span.End()

	start := time.Now()
	defer func() { finishParse(span, start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		p.logger.Debug("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(languageFor(grammar))

	st, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, parseCtxError(ctx, err)
	}

	if err := ctx.Err(); err != nil {
		st.Close()
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	root := st.RootNode()
	if root == nil {
		st.Close()
		return nil, &SyntaxError{Line: 1, Column: 0}
	}

	if root.HasError() {
		syntaxErr := firstSyntaxError(root)
		st.Close()
		return nil, syntaxErr
	}

	return &Tree{
		tree:    st,
		root:    root,
		content: content,
		grammar: grammar,
	}, nil
}

// GrammarFor returns the grammar name used for filePath.
func GrammarFor(filePath string) string {
	if g, ok := extensionGrammars[strings.ToLower(filepath.Ext(filePath))]; ok {
		return g
	}
	return GrammarTSX
}

func languageFor(grammar string) *sitter.Language {
	switch grammar {
	case GrammarTypeScript:
		return typescript.GetLanguage()
	case GrammarJavaScript:
		return javascript.GetLanguage()
	default:
		return tsx.GetLanguage()
	}
}

// firstSyntaxError returns the first ERROR or MISSING node in pre-order as a
// SyntaxError. Subtrees without errors are skipped.
func firstSyntaxError(root *sitter.Node) *SyntaxError {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.IsMissing() {
			pos := node.StartPoint()
			return &SyntaxError{Line: int(pos.Row) + 1, Column: int(pos.Column), Missing: missingKind(node)}
		}
		if node.Type() == NodeError {
			pos := node.StartPoint()
			return &SyntaxError{Line: int(pos.Row) + 1, Column: int(pos.Column)}
		}
		if !node.HasError() {
			continue
		}

		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}

	pos := root.StartPoint()
	return &SyntaxError{Line: int(pos.Row) + 1, Column: int(pos.Column)}
}

func missingKind(node *sitter.Node) string {
	if kind := node.Type(); kind != "" {
		return kind
	}
	return "token"
}

// parseCtxError wraps a ParseCtx failure. Tree-sitter reports cancellation as
// an operation-limit error, so the context error is attached when set.
func parseCtxError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("tree-sitter parse canceled: %w", errors.Join(ctxErr, err))
	}
	return fmt.Errorf("tree-sitter parse failed: %w", err)
}
