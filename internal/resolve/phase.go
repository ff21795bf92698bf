package resolve

import (
	"github.com/jward/taproot/internal/sem"
)

// ResolveNames is phase one: resolve every non-member reference name in its
// scope for the given files. Unresolved names are simply absent from the
// result. Phase one fully precedes call resolution within an update cycle;
// the type context is built between the two.
func ResolveNames(c Corpus, ri *Index, cache *Cache, files []string) NameResult {
	result := NameResult{
		ResolutionsByScope: map[sem.ScopeID]map[string]sem.SymbolID{},
		ScopeToFile:        map[sem.ScopeID]string{},
	}
	for _, file := range files {
		ix, ok := c[file]
		if !ok {
			continue
		}
		for id := range ix.Scopes {
			result.ScopeToFile[id] = file
		}
		for _, ref := range ix.References {
			switch ref.Type {
			case sem.RefMemberAccess:
				// Member names resolve against receiver types in phase two.
				continue
			}
			if ref.CallType == sem.CallMethod || ref.CallType == sem.CallSuper {
				continue
			}
			target := ri.Resolve(ref.ScopeID, ref.Name, cache)
			if target == "" {
				continue
			}
			// Record under the reference's scope and under the scope that
			// supplies the binding, so module-level queries see names that
			// are only referenced in nested scopes.
			record(result.ResolutionsByScope, ref.ScopeID, ref.Name, target)
			if bind := ri.BindingScope(ix, ref.ScopeID, ref.Name); bind != ref.ScopeID {
				record(result.ResolutionsByScope, bind, ref.Name, target)
			}
		}
	}
	return result
}

func record(byScope map[sem.ScopeID]map[string]sem.SymbolID, scope sem.ScopeID, name string, target sem.SymbolID) {
	names := byScope[scope]
	if names == nil {
		names = map[string]sem.SymbolID{}
		byScope[scope] = names
	}
	names[name] = target
}
