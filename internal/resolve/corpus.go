package resolve

import (
	"sort"

	"github.com/jward/taproot/internal/sem"
)

// Corpus is the set of per-file semantic indexes the resolver works over.
// The engine owns it exclusively; everything in this package holds it as a
// read-only view for the duration of a resolve call.
type Corpus map[string]*sem.Index

// SortedFiles returns the corpus file paths in lexical order, the iteration
// order used everywhere determinism matters.
func (c Corpus) SortedFiles() []string {
	files := make([]string, 0, len(c))
	for f := range c {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// DefinitionByID looks a symbol up across the corpus using the file path
// embedded in the symbol id.
func (c Corpus) DefinitionByID(id sem.SymbolID) *sem.Definition {
	file := id.File()
	if file == "" {
		return nil
	}
	ix, ok := c[file]
	if !ok {
		return nil
	}
	return ix.Definitions[id]
}

// ScopeFile returns the file a scope belongs to, or "".
func (c Corpus) ScopeFile(id sem.ScopeID) string {
	return id.File()
}
