package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/sem"
)

// pythonQuery is the master capture query for Python sources. Methods are
// captured as functions; the builder reclassifies definitions whose defining
// scope is a class body.
const pythonQuery = `
(function_definition name: (identifier) @definition.function) @scope.function
(function_definition name: (identifier) @definition.function return_type: (type) @binding.return) @scope.function
(lambda) @scope.closure

(class_definition name: (identifier) @definition.class) @scope.class
(class_definition name: (identifier) @definition.class superclasses: (argument_list (identifier) @class.extends)) @scope.class

(assignment left: (identifier) @definition.variable)
(assignment left: (identifier) @binding.name type: (type) @binding.type)
(assignment left: (identifier) @binding.name right: (call function: (identifier) @binding.ctor))
(assignment left: (identifier) @collection.name right: (dictionary) @collection.value)
(assignment left: (identifier) @collection.name right: (list) @collection.value)

(parameters (identifier) @definition.parameter)
(typed_parameter (identifier) @definition.parameter @binding.name type: (type) @binding.type)
(default_parameter name: (identifier) @definition.parameter)

(import_statement) @import.statement
(import_from_statement) @import.statement

(call function: (identifier) @reference.call)
(call function: (attribute object: (_) @reference.receiver attribute: (identifier) @reference.method))
(attribute object: (_) @reference.receiver attribute: (identifier) @reference.member)
(assignment left: (identifier) @reference.assignment)
(return_statement (identifier) @reference.return)
(type (identifier) @reference.type)
(identifier) @reference.read
`

// isExportedPy treats every module-level and class-level binding as
// importable, matching Python's module semantics.
func isExportedPy(b *fileBuilder, nameNode *sitter.Node) (bool, bool) {
	decl := nameNode.Parent()
	if decl == nil {
		return false, false
	}
	for n := decl.Parent(); n != nil; n = n.Parent() {
		switch n.Type() {
		case "function_definition", "lambda":
			return false, false
		}
	}
	return true, false
}

// walkImportPy handles `import a.b [as c]` and `from .mod import x [as y]`.
func walkImportPy(b *fileBuilder, stmt *sitter.Node) {
	switch stmt.Type() {
	case "import_statement":
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			item := stmt.NamedChild(i)
			switch item.Type() {
			case "dotted_name":
				// `import a.b` binds the head segment as a namespace.
				if head := item.NamedChild(0); head != nil {
					b.addImport(head, head.Content(b.src), sem.ImportNamespace, "*", head.Content(b.src))
				}
			case "aliased_import":
				name := item.ChildByFieldName("name")
				alias := item.ChildByFieldName("alias")
				if name == nil || alias == nil {
					continue
				}
				b.addImport(alias, name.Content(b.src), sem.ImportNamespace, "*", alias.Content(b.src))
			}
		}
	case "import_from_statement":
		module := stmt.ChildByFieldName("module_name")
		if module == nil {
			return
		}
		path := module.Content(b.src)
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			item := stmt.NamedChild(i)
			if item.StartByte() == module.StartByte() {
				continue
			}
			switch item.Type() {
			case "dotted_name":
				name := item.Content(b.src)
				bind := item
				if item.NamedChildCount() > 0 {
					bind = item.NamedChild(0)
				}
				b.addImport(bind, path, sem.ImportNamed, name, name)
			case "aliased_import":
				name := item.ChildByFieldName("name")
				alias := item.ChildByFieldName("alias")
				if name == nil || alias == nil {
					continue
				}
				b.addImport(alias, path, sem.ImportNamed, name.Content(b.src), alias.Content(b.src))
			case "wildcard_import":
				loc := nodeLocation(item, b.file)
				d := &sem.Definition{
					Name:          "*",
					Kind:          sem.KindImport,
					Location:      loc,
					DefiningScope: b.tree.root,
					ImportPath:    path,
					ImportKind:    sem.ImportStar,
					IsReexport:    true,
				}
				d.SymbolID = sem.NewSymbolID(d.Kind, d.Name, d.Location)
				b.index.AddDefinition(d)
			}
		}
	}
	b.claimSubtree(stmt)
}

var pythonSpec = langSpec{
	query:      pythonQuery,
	isExported: isExportedPy,
	walkImport: walkImportPy,
}
