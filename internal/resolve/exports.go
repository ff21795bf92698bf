package resolve

import (
	"github.com/jward/taproot/internal/sem"
)

// chainKey guards export-chain traversal against import cycles.
type chainKey struct {
	file string
	name string
}

// ResolveExportChain follows `export { x } from "..."` chains (including
// through package index files) from an exported name in file to the terminal
// definition. Returns "" when the chain dead-ends or cycles; cycles are a
// normal outcome, never an error.
func ResolveExportChain(c Corpus, file, name, kind string) sem.SymbolID {
	return resolveExportChain(c, file, name, kind, make(map[chainKey]bool))
}

func resolveExportChain(c Corpus, file, name, kind string, visited map[chainKey]bool) sem.SymbolID {
	key := chainKey{file, name}
	if visited[key] {
		return ""
	}
	visited[key] = true

	ix, ok := c[file]
	if !ok {
		return ""
	}

	if kind == sem.ImportDefault {
		d := ix.DefaultExport()
		if d == nil {
			return ""
		}
		if d.Kind == sem.KindImport {
			return followImport(c, file, d, visited)
		}
		return d.SymbolID
	}

	if d := ix.ExportedDefinition(name); d != nil {
		// `import { x } from "./y"; export { x }` — keep following.
		if d.Kind == sem.KindImport {
			return followImport(c, file, d, visited)
		}
		return d.SymbolID
	}

	// Re-export bindings: aliased names map the outward name to an inward
	// lookup; star re-exports forward the name unchanged.
	for _, rx := range ix.Reexports() {
		switch rx.ImportKind {
		case sem.ImportNamed:
			outward := rx.ExportedName
			if outward == "" {
				outward = rx.Name
			}
			if outward != name {
				continue
			}
			next := ResolveModulePath(c, file, rx.ImportPath)
			if next == "" {
				continue
			}
			inward := rx.OriginalName
			if inward == "" {
				inward = rx.Name
			}
			if id := resolveExportChain(c, next, inward, sem.ImportNamed, visited); id != "" {
				return id
			}
		case sem.ImportStar:
			next := ResolveModulePath(c, file, rx.ImportPath)
			if next == "" {
				continue
			}
			if id := resolveExportChain(c, next, name, sem.ImportNamed, visited); id != "" {
				return id
			}
		}
	}
	return ""
}

// followImport continues a chain through an exported import binding in file.
func followImport(c Corpus, file string, d *sem.Definition, visited map[chainKey]bool) sem.SymbolID {
	if d.ImportKind == sem.ImportNamespace {
		// An exported namespace binding terminates at the import itself;
		// member access goes through the type context.
		return d.SymbolID
	}
	next := ResolveModulePath(c, file, d.ImportPath)
	if next == "" {
		return ""
	}
	lookup := d.OriginalName
	if lookup == "" {
		lookup = d.Name
	}
	return resolveExportChain(c, next, lookup, d.ImportKind, visited)
}
