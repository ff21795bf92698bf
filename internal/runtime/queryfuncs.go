package runtime

import (
	"context"

	"github.com/risor-io/risor/object"

	"github.com/jward/taproot/internal/resolve"
	"github.com/jward/taproot/internal/sem"
	"github.com/jward/taproot/internal/store"
)

// makeResolveFn creates the "resolve" host function.
//
// resolve(scope_key, name) → string | nil
func makeResolveFn(state *resolve.State) *object.Builtin {
	return object.NewBuiltin("resolve", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("resolve", 2, len(args))
		}
		scopeStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("resolve: scope_key must be a string, got %s", args[0].Type())
		}
		nameStr, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("resolve: name must be a string, got %s", args[1].Type())
		}
		id := state.Resolve(sem.ScopeID(scopeStr.Value()), nameStr.Value())
		if id == "" {
			return object.Nil
		}
		return object.NewString(string(id))
	})
}

// makeCallsByCallerFn creates the "calls_by_caller" host function.
//
// calls_by_caller(scope_key) → []map
func makeCallsByCallerFn(state *resolve.State) *object.Builtin {
	return object.NewBuiltin("calls_by_caller", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("calls_by_caller", 1, len(args))
		}
		scopeStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("calls_by_caller: scope_key must be a string, got %s", args[0].Type())
		}
		calls := state.CallsByCallerScope(sem.ScopeID(scopeStr.Value()))
		items := make([]object.Object, 0, len(calls))
		for _, cr := range calls {
			items = append(items, callMap(cr))
		}
		return object.NewList(items)
	})
}

func callMap(cr resolve.CallReference) object.Object {
	m := map[string]object.Object{
		"name":      object.NewString(cr.Name),
		"call_type": object.NewString(cr.CallType),
		"file":      object.NewString(cr.Location.File),
		"line":      object.NewInt(int64(cr.Location.StartLine)),
		"col":       object.NewInt(int64(cr.Location.StartCol)),
	}
	if target := cr.Resolved(); target != "" {
		m["target"] = object.NewString(string(target))
	} else {
		m["target"] = object.Nil
	}
	return object.NewMap(m)
}

// makeReferencedSymbolsFn creates the "referenced_symbols" host function.
//
// referenced_symbols() → []string
func makeReferencedSymbolsFn(state *resolve.State) *object.Builtin {
	return object.NewBuiltin("referenced_symbols", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("referenced_symbols", 0, len(args))
		}
		ids := state.AllReferencedSymbols()
		items := make([]object.Object, 0, len(ids))
		for _, id := range ids {
			items = append(items, object.NewString(string(id)))
		}
		return object.NewList(items)
	})
}

// makeReachabilityFn creates the "reachability" host function.
//
// reachability() → map[symbol_key][]map
func makeReachabilityFn(state *resolve.State) *object.Builtin {
	return object.NewBuiltin("reachability", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("reachability", 0, len(args))
		}
		out := make(map[string]object.Object)
		for id, entry := range state.IndirectReachability() {
			reasons := make([]object.Object, 0, len(entry.Reasons))
			for _, r := range entry.Reasons {
				reasons = append(reasons, object.NewMap(map[string]object.Object{
					"type":       object.NewString(r.Type),
					"collection": object.NewString(string(r.CollectionID)),
					"file":       object.NewString(r.ReadLocation.File),
					"line":       object.NewInt(int64(r.ReadLocation.StartLine)),
				}))
			}
			out[string(id)] = object.NewList(reasons)
		}
		return object.NewMap(out)
	})
}

// makeSymbolsByNameFn creates the "symbols_by_name" host function.
//
// symbols_by_name(name) → []map
func makeSymbolsByNameFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("symbols_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbols_by_name", 1, len(args))
		}
		nameStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("symbols_by_name: name must be a string, got %s", args[0].Type())
		}
		syms, err := s.SymbolsByName(nameStr.Value(), "")
		if err != nil {
			return object.Errorf("symbols_by_name: %v", err)
		}
		items := make([]object.Object, 0, len(syms))
		for _, sym := range syms {
			items = append(items, object.NewMap(map[string]object.Object{
				"key":         object.NewString(sym.SymbolKey),
				"name":        object.NewString(sym.Name),
				"kind":        object.NewString(sym.Kind),
				"is_exported": object.NewBool(sym.IsExported),
				"line":        object.NewInt(int64(sym.StartLine)),
				"col":         object.NewInt(int64(sym.StartCol)),
			}))
		}
		return object.NewList(items)
	})
}

// makeReferencesByNameFn creates the "references_by_name" host function.
//
// references_by_name(name) → []map
func makeReferencesByNameFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("references_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("references_by_name", 1, len(args))
		}
		nameStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("references_by_name: name must be a string, got %s", args[0].Type())
		}
		refs, err := s.ReferencesByName(nameStr.Value())
		if err != nil {
			return object.Errorf("references_by_name: %v", err)
		}
		items := make([]object.Object, 0, len(refs))
		for _, r := range refs {
			items = append(items, object.NewMap(map[string]object.Object{
				"id":        object.NewInt(r.ID),
				"name":      object.NewString(r.Name),
				"kind":      object.NewString(r.Kind),
				"call_type": object.NewString(r.CallType),
				"scope":     object.NewString(r.ScopeKey),
				"line":      object.NewInt(int64(r.StartLine)),
				"col":       object.NewInt(int64(r.StartCol)),
			}))
		}
		return object.NewList(items)
	})
}

// makeCallersFn creates the "callers" host function.
//
// callers(symbol_key) → []map
func makeCallersFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("callers", func(ctx context.Context, args ...object.Object) object.Object {
		return callEdgeList(args, "callers", s.CallersByCallee)
	})
}

// makeCalleesFn creates the "callees" host function.
//
// callees(symbol_key) → []map
func makeCalleesFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("callees", func(ctx context.Context, args ...object.Object) object.Object {
		return callEdgeList(args, "callees", s.CalleesByCaller)
	})
}

func callEdgeList(args []object.Object, name string, fetch func(string) ([]*store.CallEdge, error)) object.Object {
	if len(args) != 1 {
		return object.NewArgsError(name, 1, len(args))
	}
	keyStr, ok := args[0].(*object.String)
	if !ok {
		return object.Errorf("%s: symbol_key must be a string, got %s", name, args[0].Type())
	}
	edges, err := fetch(keyStr.Value())
	if err != nil {
		return object.Errorf("%s: %v", name, err)
	}
	items := make([]object.Object, 0, len(edges))
	for _, e := range edges {
		items = append(items, object.NewMap(map[string]object.Object{
			"caller":    object.NewString(e.CallerSymbolKey),
			"callee":    object.NewString(e.CalleeSymbolKey),
			"call_type": object.NewString(e.CallType),
			"line":      object.NewInt(int64(e.Line)),
			"col":       object.NewInt(int64(e.Col)),
		}))
	}
	return object.NewList(items)
}
