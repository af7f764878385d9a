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

// Tree-sitter node kinds shared by the javascript, typescript and tsx grammars.
// Some kinds were renamed between grammar releases; both spellings are listed
// where that happened.
const (
	NodeProgram            = "program"
	NodeComment            = "comment"
	NodeError              = "ERROR"
	NodeImportStatement    = "import_statement"
	NodeImportClause       = "import_clause"
	NodeNamedImports       = "named_imports"
	NodeNamespaceImport    = "namespace_import"
	NodeImportSpecifier    = "import_specifier"
	NodeExportStatement    = "export_statement"
	NodeDefault            = "default"
	NodeVariableDeclarator = "variable_declarator"
	NodeFunctionDecl       = "function_declaration"
	NodeGeneratorFuncDecl  = "generator_function_declaration"
	NodeFunction           = "function"
	NodeFunctionExpr       = "function_expression"
	NodeGeneratorFunction  = "generator_function"
	NodeArrowFunction      = "arrow_function"
	NodeCallExpression     = "call_expression"
	NodeMemberExpression   = "member_expression"
	NodeSubscriptExpr      = "subscript_expression"
	NodeOptionalChain      = "optional_chain"
	NodeOptionalToken      = "?."
	NodeArguments          = "arguments"
	NodeIdentifier         = "identifier"
	NodePropertyIdent      = "property_identifier"
	NodeShorthandProperty  = "shorthand_property_identifier"
	NodeObject             = "object"
	NodePair               = "pair"
	NodeParenthesized      = "parenthesized_expression"
	NodeString             = "string"
	NodeEscapeSequence     = "escape_sequence"

	NodeJSXElement            = "jsx_element"
	NodeJSXSelfClosingElement = "jsx_self_closing_element"
	NodeJSXOpeningElement     = "jsx_opening_element"
	NodeJSXFragment           = "jsx_fragment"
	NodeJSXAttribute          = "jsx_attribute"
	NodeJSXExpression         = "jsx_expression"
	NodeJSXIdentifier         = "jsx_identifier"
)
