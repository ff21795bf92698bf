package resolve

import (
	"sort"
	"strings"

	"github.com/jward/taproot/internal/sem"
)

// builtinTypes are primitive and standard-library type names across the
// supported languages. They resolve to synthetic builtin ids that are
// carried through symbol-type queries but never back member lookup.
var builtinTypes = map[string]bool{
	// TypeScript / JavaScript
	"string": true, "number": true, "boolean": true, "null": true,
	"undefined": true, "object": true, "any": true, "unknown": true,
	"void": true, "never": true, "Array": true, "Promise": true,
	"Map": true, "Set": true, "Record": true, "Date": true, "RegExp": true,
	"Error": true, "Function": true, "symbol": true, "bigint": true,
	// Python
	"str": true, "int": true, "float": true, "bool": true, "bytes": true,
	"dict": true, "list": true, "tuple": true, "set": true, "None": true,
	"Optional": true, "List": true, "Dict": true, "Tuple": true,
	// Rust
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true,
	"f32": true, "f64": true, "usize": true, "isize": true, "char": true,
	"String": true, "Vec": true, "Option": true, "Result": true, "Box": true,
}

// TypeContext tracks symbol → type bindings and type → member maps with
// inheritance. Built once per call-resolution phase from every file's
// semantic index plus the scope resolver index and shared cache.
type TypeContext struct {
	symbolTypes map[sem.SymbolID]sem.SymbolID
	typeMembers map[sem.SymbolID]map[string]sem.SymbolID
	extends     map[sem.SymbolID][]sem.SymbolID
	ctors       map[sem.SymbolID]sem.SymbolID
}

// NewTypeContext builds the context. Type bindings are matched to symbol
// definitions by exact location first, then by a same-line near match of at
// most two columns: constructor-target locations may be offset from the
// variable declaration they bind.
func NewTypeContext(c Corpus, ri *Index, cache *Cache) *TypeContext {
	tc := &TypeContext{
		symbolTypes: make(map[sem.SymbolID]sem.SymbolID),
		typeMembers: make(map[sem.SymbolID]map[string]sem.SymbolID),
		extends:     make(map[sem.SymbolID][]sem.SymbolID),
		ctors:       make(map[sem.SymbolID]sem.SymbolID),
	}

	for _, file := range c.SortedFiles() {
		ix := c[file]

		keys := make([]string, 0, len(ix.TypeBindings))
		for k := range ix.TypeBindings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, locKey := range keys {
			typeName := ix.TypeBindings[locKey]
			def := defAtBindingLocation(ix, locKey)
			if def == nil {
				continue
			}
			typeSym := tc.resolveTypeName(ri, def.DefiningScope, typeName, cache)
			if typeSym != "" {
				tc.symbolTypes[def.SymbolID] = typeSym
			}
		}

		tids := make([]string, 0, len(ix.TypeMembers))
		for tid := range ix.TypeMembers {
			tids = append(tids, string(tid))
		}
		sort.Strings(tids)
		for _, t := range tids {
			tid := sem.TypeID(t)
			info := ix.TypeMembers[tid]
			owner := tid.Symbol()

			members := make(map[string]sem.SymbolID, len(info.Methods)+len(info.Properties))
			for name, id := range info.Properties {
				members[name] = id
			}
			for name, id := range info.Methods {
				members[name] = id
			}
			tc.typeMembers[owner] = members
			if info.Constructor != "" {
				tc.ctors[owner] = info.Constructor
			}

			ownerDef := c.DefinitionByID(owner)
			if ownerDef == nil {
				continue
			}
			for _, baseName := range info.Extends {
				base := tc.resolveTypeName(ri, ownerDef.DefiningScope, baseName, cache)
				if base != "" && !base.IsBuiltin() {
					tc.extends[owner] = append(tc.extends[owner], base)
				}
			}
		}
	}
	return tc
}

// defAtBindingLocation finds the definition a type binding anchors to.
func defAtBindingLocation(ix *sem.Index, locKey string) *sem.Definition {
	loc, err := sem.ParseLocationKey(locKey)
	if err != nil {
		return nil
	}
	var near *sem.Definition
	for _, d := range ix.Definitions {
		if d.Location == loc {
			return d
		}
		if d.Location.StartLine == loc.StartLine && abs(d.Location.StartCol-loc.StartCol) <= 2 {
			if near == nil || d.Location.Before(near.Location) {
				near = d
			}
		}
	}
	return near
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// resolveTypeName parses a raw type annotation and resolves its base name.
// Arrays resolve to the Array builtin, top-level unions stay unresolved,
// generics resolve their base name with the argument list ignored. A name
// bound in scope takes precedence over the builtin table.
func (tc *TypeContext) resolveTypeName(ri *Index, scope sem.ScopeID, raw string, cache *Cache) sem.SymbolID {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}
	if strings.HasSuffix(name, "[]") {
		return sem.BuiltinSymbol("Array")
	}
	if containsTopLevelUnion(name) {
		return ""
	}
	if i := strings.IndexAny(name, "<("); i > 0 {
		name = strings.TrimSpace(name[:i])
	}
	// Rust references and qualified paths reduce to their last segment.
	name = strings.TrimLeft(name, "&")
	name = strings.TrimPrefix(name, "mut ")
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if name == "" {
		return ""
	}
	if id := ri.Resolve(scope, name, cache); id != "" {
		return id
	}
	if builtinTypes[name] {
		return sem.BuiltinSymbol(name)
	}
	return ""
}

// containsTopLevelUnion reports a `|` outside any bracket nesting.
func containsTopLevelUnion(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			depth--
		case '|':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// SymbolType returns the type bound to a variable, parameter, field, or a
// function's return type. "" when untyped or unresolved.
func (tc *TypeContext) SymbolType(id sem.SymbolID) sem.SymbolID {
	return tc.symbolTypes[id]
}

// TypeMember looks name up on the type, walking the extends chain in
// declaration order when the type does not declare it directly. The first
// parent supplying the member wins; cycles are broken by a visited set.
func (tc *TypeContext) TypeMember(typeID sem.SymbolID, name string) sem.SymbolID {
	return tc.typeMember(typeID, name, make(map[sem.SymbolID]bool))
}

func (tc *TypeContext) typeMember(typeID sem.SymbolID, name string, visited map[sem.SymbolID]bool) sem.SymbolID {
	if typeID == "" || typeID.IsBuiltin() || visited[typeID] {
		return ""
	}
	visited[typeID] = true
	if id, ok := tc.typeMembers[typeID][name]; ok {
		return id
	}
	for _, base := range tc.extends[typeID] {
		if id := tc.typeMember(base, name, visited); id != "" {
			return id
		}
	}
	return ""
}

// TypeMembers returns the direct members of a type (no inheritance).
func (tc *TypeContext) TypeMembers(typeID sem.SymbolID) map[string]sem.SymbolID {
	return tc.typeMembers[typeID]
}

// Constructor returns the type's explicit constructor member, or "".
func (tc *TypeContext) Constructor(typeID sem.SymbolID) sem.SymbolID {
	return tc.ctors[typeID]
}

// BaseTypes returns the resolved extends chain of a type, in declaration
// order.
func (tc *TypeContext) BaseTypes(typeID sem.SymbolID) []sem.SymbolID {
	return tc.extends[typeID]
}
