package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/sem"
)

// Shared TypeScript/JavaScript statement walkers. The two grammars share
// their import/export statement shapes even though declaration node names
// differ, so both language specs dispatch here.

// stripQuotes removes the surrounding quotes of a string literal node text.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			return s[1 : len(s)-1]
		}
	}
	return s
}

// walkImportJS handles `import ... from "..."` statements: default, named
// (with aliases), and namespace clauses each produce an import definition
// bound at the module root.
func walkImportJS(b *fileBuilder, stmt *sitter.Node) {
	source := stmt.ChildByFieldName("source")
	if source == nil {
		return
	}
	path := stripQuotes(source.Content(b.src))

	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		clause := stmt.NamedChild(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			item := clause.NamedChild(j)
			switch item.Type() {
			case "identifier":
				b.addImport(item, path, sem.ImportDefault, "default", item.Content(b.src))
			case "namespace_import":
				for k := 0; k < int(item.NamedChildCount()); k++ {
					if id := item.NamedChild(k); id.Type() == "identifier" {
						b.addImport(id, path, sem.ImportNamespace, "*", id.Content(b.src))
					}
				}
			case "named_imports":
				for k := 0; k < int(item.NamedChildCount()); k++ {
					spec := item.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("name")
					if name == nil {
						continue
					}
					orig := name.Content(b.src)
					local := orig
					bindNode := name
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = alias.Content(b.src)
						bindNode = alias
					}
					b.addImport(bindNode, path, sem.ImportNamed, orig, local)
				}
			}
		}
	}
}

// walkExportJS handles export statements. Re-exports (`export { a as b }
// from "./y"`, `export * from "./y"`) become re-export import bindings;
// bare clauses (`export { x }`) mark existing module-level definitions
// exported; `export default <identifier>` flags the named definition.
func walkExportJS(b *fileBuilder, stmt *sitter.Node) {
	source := stmt.ChildByFieldName("source")

	if source != nil {
		path := stripQuotes(source.Content(b.src))
		star := false
		for i := 0; i < int(stmt.ChildCount()); i++ {
			if stmt.Child(i).Type() == "*" {
				star = true
			}
		}
		if star {
			loc := nodeLocation(stmt, b.file)
			d := &sem.Definition{
				Name:          "*",
				Kind:          sem.KindImport,
				Location:      loc,
				DefiningScope: b.tree.root,
				ImportPath:    path,
				ImportKind:    sem.ImportStar,
				IsReexport:    true,
				IsExported:    true,
			}
			d.SymbolID = sem.NewSymbolID(d.Kind, d.Name, d.Location)
			b.index.AddDefinition(d)
		}
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			clause := stmt.NamedChild(i)
			if clause.Type() != "export_clause" {
				continue
			}
			for j := 0; j < int(clause.NamedChildCount()); j++ {
				spec := clause.NamedChild(j)
				if spec.Type() != "export_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				orig := name.Content(b.src)
				exported := orig
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					exported = alias.Content(b.src)
				}
				loc := nodeLocation(name, b.file)
				d := &sem.Definition{
					Name:          orig,
					Kind:          sem.KindImport,
					Location:      loc,
					DefiningScope: b.tree.root,
					ImportPath:    path,
					ImportKind:    sem.ImportNamed,
					OriginalName:  orig,
					ExportedName:  exported,
					IsReexport:    true,
					IsExported:    true,
				}
				d.SymbolID = sem.NewSymbolID(d.Kind, exported, d.Location)
				b.index.AddDefinition(d)
			}
		}
		b.claimSubtree(stmt)
		return
	}

	// `export { x }` / `export default x` without a source.
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		clause := stmt.NamedChild(i)
		switch clause.Type() {
		case "export_clause":
			for j := 0; j < int(clause.NamedChildCount()); j++ {
				spec := clause.NamedChild(j)
				if spec.Type() != "export_specifier" {
					continue
				}
				if name := spec.ChildByFieldName("name"); name != nil {
					b.exported[name.Content(b.src)] = true
				}
			}
			b.claimSubtree(clause)
		case "identifier":
			if hasDefaultKeyword(stmt) {
				b.defaultName = clause.Content(b.src)
				b.claimSubtree(clause)
			}
		}
	}
}

// hasDefaultKeyword reports whether the export statement carries `default`.
func hasDefaultKeyword(stmt *sitter.Node) bool {
	for i := 0; i < int(stmt.ChildCount()); i++ {
		if stmt.Child(i).Type() == "default" {
			return true
		}
	}
	return false
}

// isExportedJS reports export status by walking the declaration's ancestors
// to the nearest export statement.
func isExportedJS(b *fileBuilder, nameNode *sitter.Node) (bool, bool) {
	decl := nameNode.Parent()
	if decl == nil {
		return false, false
	}
	for n := decl.Parent(); n != nil; n = n.Parent() {
		switch n.Type() {
		case "export_statement":
			return true, hasDefaultKeyword(n)
		case "statement_block", "class_body", "interface_body", "object_type", "function_declaration", "method_definition":
			return false, false
		}
	}
	return false, false
}

// addImport records an import definition bound at the module root.
func (b *fileBuilder) addImport(bindNode *sitter.Node, path, kind, original, local string) {
	loc := nodeLocation(bindNode, b.file)
	d := &sem.Definition{
		Name:          local,
		Kind:          sem.KindImport,
		Location:      loc,
		DefiningScope: b.tree.at(loc.StartLine, loc.StartCol),
		ImportPath:    path,
		ImportKind:    kind,
		OriginalName:  original,
	}
	// Python modules re-expose whatever they import.
	if b.lang == "python" && d.DefiningScope == b.tree.root {
		d.IsExported = true
	}
	d.SymbolID = sem.NewSymbolID(d.Kind, d.Name, d.Location)
	b.index.AddDefinition(d)
	b.definedLocs[loc.Key()] = true
}
