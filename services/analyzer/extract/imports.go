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

// Imported names recorded for default and namespace bindings.
const (
	importedDefault   = "default"
	importedNamespace = "*"
)

func (w *fileWalker) visitImport(node *sitter.Node) {
	source, ok := w.tree.StringValue(node.ChildByFieldName("source"))
	if !ok {
		return
	}
	opts := w.ex.opts

	if strings.Contains(source, opts.ProtectedRouteMarker) {
		w.facts.ProtectedRouteImports++
	}
	if strings.Contains(source, opts.ThemeProviderMarker) {
		w.facts.ThemeProviderImports++
	}

	if !opts.Extended {
		return
	}
	if strings.Contains(source, opts.AuthStoreMarker) {
		w.facts.AuthStoreImports++
	}
	w.facts.Imports = append(w.facts.Imports, ImportInfo{
		FilePath:   w.facts.FilePath,
		Source:     source,
		Specifiers: w.importSpecifiers(node),
	})
}

func (w *fileWalker) importSpecifiers(node *sitter.Node) []ImportSpecifier {
	specs := make([]ImportSpecifier, 0)

	var clause *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == ast.NodeImportClause {
			clause = child
			break
		}
	}
	if clause == nil {
		return specs
	}

	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		switch child.Type() {
		case ast.NodeIdentifier:
			specs = append(specs, ImportSpecifier{Local: w.tree.Text(child), Imported: importedDefault})
		case ast.NodeNamespaceImport:
			if local := ast.FirstNamedChild(child); local != nil {
				specs = append(specs, ImportSpecifier{Local: w.tree.Text(local), Imported: importedNamespace})
			}
		case ast.NodeNamedImports:
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() != ast.NodeImportSpecifier {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				imported := w.importedName(name)
				local := imported
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = w.tree.Text(alias)
				}
				specs = append(specs, ImportSpecifier{Local: local, Imported: imported})
			}
		}
	}
	return specs
}

// importedName handles both identifier and string-literal export names.
func (w *fileWalker) importedName(name *sitter.Node) string {
	if value, ok := w.tree.StringValue(name); ok {
		return value
	}
	return w.tree.Text(name)
}
