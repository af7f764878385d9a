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
	"errors"
	"fmt"
)

const (
	// DefaultMaxFileSize is the largest source file the parser accepts (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the size above which a debug-level warning is logged.
	WarnFileSize = 1 * 1024 * 1024
)

var (
	// ErrFileTooLarge is returned when content exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent is returned when content is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")
)

// SyntaxError describes the first error or missing node found in a parsed tree.
//
// Line is 1-based and Column is 0-based, following Babel's diagnostic
// convention.
type SyntaxError struct {
	// Line is the 1-based line of the offending node.
	Line int

	// Column is the 0-based column of the offending node.
	Column int

	// Missing is the node kind tree-sitter inserted to recover, if any.
	Missing string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("Missing %s (%d:%d)", e.Missing, e.Line, e.Column)
	}
	return fmt.Sprintf("Unexpected token (%d:%d)", e.Line, e.Column)
}
