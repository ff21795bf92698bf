package sem

import "sort"

// TypeMemberInfo lists the members a type declares directly, keyed by name,
// plus the base type names it extends in declaration order.
type TypeMemberInfo struct {
	Methods     map[string]SymbolID
	Properties  map[string]SymbolID
	Constructor SymbolID // "" when the type has no explicit constructor
	Extends     []string
}

// FunctionCollection records a variable whose initializer is an aggregate of
// function references: an array/object/dict literal naming functions, plus
// spreads of other collections.
type FunctionCollection struct {
	SymbolID   SymbolID
	Functions  []SymbolID // functions stored directly in the literal
	StoredRefs []string   // spread names, resolved in the defining scope
}

// Index is the per-file semantic index: everything extraction produces for
// one source file. The corpus owns one Index per file; downstream components
// hold read-only views keyed by IDs.
type Index struct {
	File        string
	Language    string
	ContentHash string
	Root        ScopeID
	Scopes      map[ScopeID]*LexicalScope
	Definitions map[SymbolID]*Definition
	References  []*Reference

	// TypeBindings maps a location key (variable declaration or constructor
	// target) to the raw type name bound there.
	TypeBindings map[string]string

	// TypeMembers maps each declared type to its member tables.
	TypeMembers map[TypeID]*TypeMemberInfo

	// Collections maps variable symbols to the function collections they hold.
	Collections map[SymbolID]*FunctionCollection

	refsByLoc map[string]*Reference
}

// NewIndex returns an empty index for the given file.
func NewIndex(file, language string) *Index {
	return &Index{
		File:         file,
		Language:     language,
		Scopes:       make(map[ScopeID]*LexicalScope),
		Definitions:  make(map[SymbolID]*Definition),
		TypeBindings: make(map[string]string),
		TypeMembers:  make(map[TypeID]*TypeMemberInfo),
		Collections:  make(map[SymbolID]*FunctionCollection),
	}
}

// AddDefinition records a definition.
func (ix *Index) AddDefinition(d *Definition) {
	ix.Definitions[d.SymbolID] = d
}

// AddReference records a reference and indexes it by location.
func (ix *Index) AddReference(r *Reference) {
	ix.References = append(ix.References, r)
	if ix.refsByLoc == nil {
		ix.refsByLoc = make(map[string]*Reference)
	}
	ix.refsByLoc[r.Location.Key()] = r
}

// ReferenceAt returns the reference whose extent equals loc (start and end),
// or nil. Used by the call resolver to recover receiver expressions from
// Context.ReceiverLocation.
func (ix *Index) ReferenceAt(loc Location) *Reference {
	if ix.refsByLoc == nil {
		return nil
	}
	return ix.refsByLoc[loc.Key()]
}

// DefinitionsInScope returns the bindable definitions whose defining scope is
// scopeID, sorted by source position for deterministic overlay order.
func (ix *Index) DefinitionsInScope(scopeID ScopeID) []*Definition {
	var defs []*Definition
	for _, d := range ix.Definitions {
		if d.DefiningScope == scopeID && d.Bindable() {
			defs = append(defs, d)
		}
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Location.Before(defs[j].Location)
	})
	return defs
}

// ImportsInScope returns the import definitions (including re-exports
// filtered out) binding names in scopeID, sorted by source position.
func (ix *Index) ImportsInScope(scopeID ScopeID) []*Definition {
	var defs []*Definition
	for _, d := range ix.Definitions {
		if d.Kind == KindImport && d.DefiningScope == scopeID && d.Bindable() {
			defs = append(defs, d)
		}
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Location.Before(defs[j].Location)
	})
	return defs
}

// Reexports returns the re-export bindings declared by the file, sorted by
// source position.
func (ix *Index) Reexports() []*Definition {
	var defs []*Definition
	for _, d := range ix.Definitions {
		if d.Kind == KindImport && d.IsReexport {
			defs = append(defs, d)
		}
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Location.Before(defs[j].Location)
	})
	return defs
}

// ExportedDefinition finds a top-level exported definition matching name, or
// an exported import binding of that name. Members are never exported
// directly. Returns nil when nothing matches.
func (ix *Index) ExportedDefinition(name string) *Definition {
	var best *Definition
	for _, d := range ix.Definitions {
		if !d.ExportableAs(name) || d.IsReexport {
			continue
		}
		switch d.Kind {
		case KindMethod, KindProperty, KindField, KindEnumMember:
			continue
		}
		if best == nil || d.Location.Before(best.Location) {
			best = d
		}
	}
	return best
}

// DefaultExport finds the definition flagged as the default export, or nil.
func (ix *Index) DefaultExport() *Definition {
	var best *Definition
	for _, d := range ix.Definitions {
		if !d.IsExported || !d.IsDefault {
			continue
		}
		if best == nil || d.Location.Before(best.Location) {
			best = d
		}
	}
	return best
}

// ScopeAt returns the deepest scope whose extent contains the point
// (line, col), or the module root when only it matches.
func (ix *Index) ScopeAt(line, col int) ScopeID {
	best := ix.Root
	bestDepth := -1
	for id, s := range ix.Scopes {
		if s.Location.ContainsPoint(line, col) && s.Depth > bestDepth {
			best, bestDepth = id, s.Depth
		}
	}
	return best
}

// EnclosingCallable walks up from scopeID to the innermost function, method,
// or constructor scope; falls back to the module root when the reference
// sits at the top level.
func (ix *Index) EnclosingCallable(scopeID ScopeID) ScopeID {
	for id := scopeID; id != ""; {
		s, ok := ix.Scopes[id]
		if !ok {
			break
		}
		if s.IsCallable() {
			return id
		}
		id = s.ParentID
	}
	return ix.Root
}

// EnclosingClass walks up from scopeID to the nearest class scope, returning
// "" when the reference is not inside a class body.
func (ix *Index) EnclosingClass(scopeID ScopeID) ScopeID {
	for id := scopeID; id != ""; {
		s, ok := ix.Scopes[id]
		if !ok {
			break
		}
		if s.Kind == ScopeClass {
			return id
		}
		id = s.ParentID
	}
	return ""
}

// SortedScopeIDs returns the file's scope ids ordered by depth, then by
// source position, so parents come before children. Used wherever deterministic iteration matters.
func (ix *Index) SortedScopeIDs() []ScopeID {
	ids := make([]ScopeID, 0, len(ix.Scopes))
	for id := range ix.Scopes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ix.Scopes[ids[i]], ix.Scopes[ids[j]]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Location != b.Location {
			return a.Location.Before(b.Location)
		}
		return ids[i] < ids[j]
	})
	return ids
}
