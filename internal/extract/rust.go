package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/sem"
)

// rustQuery is the master capture query for Rust sources. Structs map to
// the class kind, traits to interface, impl blocks to class scopes whose
// owning type the builder resolves through @impl.type.
const rustQuery = `
(function_item name: (identifier) @definition.function) @scope.function
(closure_expression) @scope.closure

(struct_item name: (type_identifier) @definition.class) @scope.class
(field_declaration name: (field_identifier) @definition.field)
(trait_item name: (type_identifier) @definition.interface) @scope.trait
(function_signature_item name: (identifier) @definition.method)
(impl_item type: (type_identifier) @impl.type) @scope.impl
(enum_item name: (type_identifier) @definition.enum) @scope.enum
(enum_variant name: (identifier) @definition.enum_member)
(mod_item name: (identifier) @definition.namespace) @scope.namespace

(let_declaration pattern: (identifier) @definition.variable)
(let_declaration pattern: (identifier) @binding.name type: (_) @binding.type)
(let_declaration pattern: (identifier) @binding.name value: (call_expression function: (scoped_identifier path: (identifier) @binding.ctor)))
(let_declaration pattern: (identifier) @binding.name value: (struct_expression name: (type_identifier) @binding.ctor))
(parameter pattern: (identifier) @definition.parameter)
(parameter pattern: (identifier) @binding.name type: (_) @binding.type)

(use_declaration) @import.statement

(call_expression function: (identifier) @reference.call)
(call_expression function: (field_expression value: (_) @reference.receiver field: (field_identifier) @reference.method))
(call_expression function: (scoped_identifier path: (identifier) @reference.receiver name: (identifier) @reference.method))
(field_expression value: (_) @reference.receiver field: (field_identifier) @reference.member)
(struct_expression name: (type_identifier) @reference.construct)
(type_identifier) @reference.type
(identifier) @reference.read
`

// isExportedRs checks the declaration for a `pub` visibility modifier.
func isExportedRs(b *fileBuilder, nameNode *sitter.Node) (bool, bool) {
	decl := nameNode.Parent()
	if decl == nil {
		return false, false
	}
	for i := 0; i < int(decl.ChildCount()); i++ {
		if decl.Child(i).Type() == "visibility_modifier" {
			return true, false
		}
	}
	return false, false
}

// walkUseRs handles `use` declarations: plain paths, aliases, grouped lists,
// and wildcards. `pub use` re-exports the binding.
func walkUseRs(b *fileBuilder, stmt *sitter.Node) {
	pub := false
	for i := 0; i < int(stmt.ChildCount()); i++ {
		if stmt.Child(i).Type() == "visibility_modifier" {
			pub = true
		}
	}
	if arg := stmt.ChildByFieldName("argument"); arg != nil {
		b.walkUsePath(arg, "", pub)
	}
	b.claimSubtree(stmt)
}

// walkUsePath descends a use tree, accumulating the path prefix.
func (b *fileBuilder) walkUsePath(n *sitter.Node, prefix string, pub bool) {
	joined := func(s string) string {
		if prefix == "" {
			return s
		}
		return prefix + "::" + s
	}
	switch n.Type() {
	case "identifier":
		name := n.Content(b.src)
		b.addUseImport(n, prefix, name, name, pub)
	case "scoped_identifier":
		path := n.ChildByFieldName("path")
		name := n.ChildByFieldName("name")
		if name == nil {
			return
		}
		fullPrefix := prefix
		if path != nil {
			fullPrefix = joined(path.Content(b.src))
		}
		b.addUseImport(name, fullPrefix, name.Content(b.src), name.Content(b.src), pub)
	case "use_as_clause":
		path := n.ChildByFieldName("path")
		alias := n.ChildByFieldName("alias")
		if path == nil || alias == nil {
			return
		}
		pathText := path.Content(b.src)
		orig := pathText
		pfx := prefix
		if i := strings.LastIndex(pathText, "::"); i >= 0 {
			pfx = joined(pathText[:i])
			orig = pathText[i+2:]
		}
		b.addUseImport(alias, pfx, orig, alias.Content(b.src), pub)
	case "scoped_use_list":
		path := n.ChildByFieldName("path")
		pfx := prefix
		if path != nil {
			pfx = joined(path.Content(b.src))
		}
		if list := n.ChildByFieldName("list"); list != nil {
			for i := 0; i < int(list.NamedChildCount()); i++ {
				b.walkUsePath(list.NamedChild(i), pfx, pub)
			}
		}
	case "use_wildcard":
		pfx := prefix
		if n.NamedChildCount() > 0 {
			pfx = joined(n.NamedChild(0).Content(b.src))
		}
		loc := nodeLocation(n, b.file)
		d := &sem.Definition{
			Name:          "*",
			Kind:          sem.KindImport,
			Location:      loc,
			DefiningScope: b.tree.root,
			ImportPath:    pfx,
			ImportKind:    sem.ImportStar,
			IsReexport:    true,
			IsExported:    pub,
		}
		d.SymbolID = sem.NewSymbolID(d.Kind, d.Name, d.Location)
		b.index.AddDefinition(d)
	case "use_list":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.walkUsePath(n.NamedChild(i), prefix, pub)
		}
	}
}

// addUseImport records one use binding. A bare segment with no prefix binds
// a module namespace; anything else is a named import from its prefix path.
func (b *fileBuilder) addUseImport(bindNode *sitter.Node, prefix, original, local string, pub bool) {
	kind := sem.ImportNamed
	path := prefix
	if prefix == "" {
		kind = sem.ImportNamespace
		path = original
	}
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
	if pub {
		d.IsReexport = true
		d.IsExported = true
		d.ExportedName = local
	}
	d.SymbolID = sem.NewSymbolID(d.Kind, d.Name, d.Location)
	b.index.AddDefinition(d)
	b.definedLocs[loc.Key()] = true
}

var rustSpec = langSpec{
	query:      rustQuery,
	isExported: isExportedRs,
	walkImport: walkUseRs,
}
