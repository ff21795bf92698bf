package resolve

import (
	"github.com/jward/taproot/internal/sem"
)

// resolverKind tags the Resolver variants. A closure per binding would
// capture the same state; the tagged variant keeps construction allocation-
// free and dispatch in one function.
type resolverKind uint8

const (
	resolverLocal resolverKind = iota
	resolverNamedImport
	resolverDefaultImport
	resolverNamespaceImport
)

// Resolver is a lazy, one-name, one-scope lookup. Local and namespace
// variants return a captured symbol; import variants defer the cross-file
// export-chain walk to first use.
type Resolver struct {
	kind   resolverKind
	symbol sem.SymbolID // local target, or the import's own symbol
	file   string       // importing file, for module path resolution
	source string       // import module path
	name   string       // original (source-side) name for named imports
}

// invoke runs the thunk against the corpus.
func (r Resolver) invoke(c Corpus) sem.SymbolID {
	switch r.kind {
	case resolverLocal, resolverNamespaceImport:
		return r.symbol
	case resolverNamedImport:
		target := ResolveModulePath(c, r.file, r.source)
		if target == "" {
			return ""
		}
		return ResolveExportChain(c, target, r.name, sem.ImportNamed)
	case resolverDefaultImport:
		target := ResolveModulePath(c, r.file, r.source)
		if target == "" {
			return ""
		}
		return ResolveExportChain(c, target, r.name, sem.ImportDefault)
	}
	return ""
}

// Index is the scope resolver index: one name → Resolver map per scope,
// built root-down so that each scope's map overlays its parent's. Local
// definitions overwrite imports which overwrite inherited bindings,
// implementing "local > imports > parent". Immutable once built for a file;
// file updates rebuild that file's subtree.
type Index struct {
	corpus     Corpus
	resolvers  map[sem.ScopeID]map[string]Resolver
	direct     map[sem.ScopeID]map[string]bool
	namespaces map[sem.SymbolID]bool
}

// NewIndex builds resolver maps for every file in the corpus.
func NewIndex(c Corpus) *Index {
	ri := &Index{
		corpus:     c,
		resolvers:  make(map[sem.ScopeID]map[string]Resolver),
		direct:     make(map[sem.ScopeID]map[string]bool),
		namespaces: make(map[sem.SymbolID]bool),
	}
	for _, file := range c.SortedFiles() {
		ri.BuildFile(c[file])
	}
	return ri
}

// BuildFile (re)builds the resolver maps for one file's scope tree.
func (ri *Index) BuildFile(ix *sem.Index) {
	ri.buildScope(ix, ix.Root, nil)
}

// RemoveFile drops every scope map belonging to file.
func (ri *Index) RemoveFile(file string) {
	for id := range ri.resolvers {
		if id.File() == file {
			delete(ri.resolvers, id)
			delete(ri.direct, id)
		}
	}
	for id := range ri.namespaces {
		if id.File() == file {
			delete(ri.namespaces, id)
		}
	}
}

func (ri *Index) buildScope(ix *sem.Index, scopeID sem.ScopeID, parent map[string]Resolver) {
	scope, ok := ix.Scopes[scopeID]
	if !ok {
		return
	}

	m := make(map[string]Resolver, len(parent))
	for name, r := range parent {
		m[name] = r
	}
	direct := make(map[string]bool)

	// Imports overlay the inherited bindings.
	for _, imp := range ix.ImportsInScope(scopeID) {
		direct[imp.Name] = true
		switch imp.ImportKind {
		case sem.ImportNamespace:
			m[imp.Name] = Resolver{kind: resolverNamespaceImport, symbol: imp.SymbolID}
			ri.namespaces[imp.SymbolID] = true
		case sem.ImportDefault:
			m[imp.Name] = Resolver{
				kind:   resolverDefaultImport,
				file:   ix.File,
				source: imp.ImportPath,
				name:   imp.OriginalName,
			}
		default:
			m[imp.Name] = Resolver{
				kind:   resolverNamedImport,
				file:   ix.File,
				source: imp.ImportPath,
				name:   imp.OriginalName,
			}
		}
	}

	// Local definitions overwrite imports and inherited entries.
	for _, d := range ix.DefinitionsInScope(scopeID) {
		if d.Kind == sem.KindImport {
			continue
		}
		m[d.Name] = Resolver{kind: resolverLocal, symbol: d.SymbolID}
		direct[d.Name] = true
	}

	ri.resolvers[scopeID] = m
	ri.direct[scopeID] = direct
	for _, child := range scope.Children {
		ri.buildScope(ix, child, m)
	}
}

// Resolve looks name up in scope, consulting the shared cache first. A ""
// result means unresolved and is not cached: it may become resolvable after
// a later file update.
func (ri *Index) Resolve(scopeID sem.ScopeID, name string, cache *Cache) sem.SymbolID {
	if id, ok := cache.Get(scopeID, name); ok {
		return id
	}
	m, ok := ri.resolvers[scopeID]
	if !ok {
		return ""
	}
	r, ok := m[name]
	if !ok {
		return ""
	}
	id := r.invoke(ri.corpus)
	if id != "" {
		cache.Set(scopeID, name, id)
	}
	return id
}

// BindingScope walks up the scope chain from startScope and returns the
// nearest scope that directly binds name (a local definition or import
// declared there, not inherited). Returns startScope when no scope in the
// chain binds it directly.
func (ri *Index) BindingScope(ix *sem.Index, startScope sem.ScopeID, name string) sem.ScopeID {
	for id := startScope; id != ""; {
		if ri.direct[id][name] {
			return id
		}
		s, ok := ix.Scopes[id]
		if !ok {
			break
		}
		id = s.ParentID
	}
	return startScope
}

// IsNamespaceImport reports whether the symbol is a namespace import
// binding (`import * as x`, `use path`, `import a.b`).
func (ri *Index) IsNamespaceImport(id sem.SymbolID) bool {
	return ri.namespaces[id]
}

// Binding returns the resolver registered for name in scope without
// invoking it. Used by the type context to distinguish namespace bindings.
func (ri *Index) Binding(scopeID sem.ScopeID, name string) (Resolver, bool) {
	m, ok := ri.resolvers[scopeID]
	if !ok {
		return Resolver{}, false
	}
	r, ok := m[name]
	return r, ok
}
