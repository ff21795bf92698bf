package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/resolve"
	"github.com/jward/taproot/internal/sem"
)

func symAt(file string, line int, name string) sem.SymbolID {
	return sem.NewSymbolID(sem.KindFunction, name, sem.Location{
		File: file, StartLine: line, StartCol: 0, EndLine: line, EndCol: 10,
	})
}

func scopeAt(file string, line int) sem.ScopeID {
	return sem.NewScopeID(sem.ScopeFunction, sem.Location{
		File: file, StartLine: line, StartCol: 0, EndLine: line + 3, EndCol: 1,
	})
}

func TestStateApplyAndQuery(t *testing.T) {
	s := resolve.NewState()
	scope := scopeAt("a.ts", 1)
	target := symAt("a.ts", 1, "f")

	s2 := s.ApplyNames(resolve.NameResult{
		ResolutionsByScope: map[sem.ScopeID]map[string]sem.SymbolID{
			scope: {"f": target},
		},
		ScopeToFile: map[sem.ScopeID]string{scope: "a.ts"},
	})

	assert.Equal(t, target, s2.Resolve(scope, "f"))
	assert.Equal(t, "a.ts", s2.ScopeToFile(scope))

	// The prior snapshot is untouched.
	assert.Equal(t, sem.SymbolID(""), s.Resolve(scope, "f"))
}

func TestStateRemoveFile(t *testing.T) {
	aScope := scopeAt("a.ts", 1)
	bScope := scopeAt("b.ts", 1)
	aSym := symAt("a.ts", 1, "fa")
	bSym := symAt("b.ts", 1, "fb")

	s := resolve.NewState().ApplyNames(resolve.NameResult{
		ResolutionsByScope: map[sem.ScopeID]map[string]sem.SymbolID{
			aScope: {"fa": aSym},
			bScope: {"fb": bSym},
		},
		ScopeToFile: map[sem.ScopeID]string{aScope: "a.ts", bScope: "b.ts"},
	})
	s = s.ApplyCalls(resolve.CallResult{
		CallsByFile: map[string][]resolve.CallReference{
			"a.ts": {{Name: "fa", CallerScopeID: aScope}},
		},
		CallsByCaller: map[sem.ScopeID][]resolve.CallReference{
			aScope: {{Name: "fa", CallerScopeID: aScope}},
		},
		Indirect: map[sem.SymbolID]resolve.IndirectEntry{
			aSym: {SymbolID: aSym, Reasons: []resolve.ReachabilityReason{{
				Type:         "collection_read",
				ReadLocation: sem.Location{File: "a.ts", StartLine: 3},
			}}},
		},
	})

	s2 := s.RemoveFile("a.ts")

	assert.Equal(t, sem.SymbolID(""), s2.Resolve(aScope, "fa"))
	assert.Equal(t, bSym, s2.Resolve(bScope, "fb"))
	assert.Empty(t, s2.CallsByFile("a.ts"))
	assert.Empty(t, s2.CallsByCallerScope(aScope))
	assert.Empty(t, s2.IndirectReachability())
	assert.Equal(t, "", s2.ScopeToFile(aScope))

	// Original snapshot unchanged.
	assert.Equal(t, aSym, s.Resolve(aScope, "fa"))
}

func TestStateAllReferencedSymbols(t *testing.T) {
	scope := scopeAt("a.ts", 1)
	f := symAt("a.ts", 1, "f")
	g := symAt("a.ts", 5, "g")
	h := symAt("a.ts", 9, "h")

	s := resolve.NewState().
		ApplyNames(resolve.NameResult{
			ResolutionsByScope: map[sem.ScopeID]map[string]sem.SymbolID{scope: {"f": f}},
			ScopeToFile:        map[sem.ScopeID]string{scope: "a.ts"},
		}).
		ApplyCalls(resolve.CallResult{
			CallsByFile: map[string][]resolve.CallReference{
				"a.ts": {{Name: "g", Resolutions: []resolve.Resolution{{SymbolID: g, Confidence: 1}}}},
			},
			CallsByCaller: map[sem.ScopeID][]resolve.CallReference{},
			Indirect: map[sem.SymbolID]resolve.IndirectEntry{
				h: {SymbolID: h},
			},
		})

	ids := s.AllReferencedSymbols()
	assert.Contains(t, ids, f)
	assert.Contains(t, ids, g)
	assert.Contains(t, ids, h, "indirect reachability keys count as referenced")

	// Sorted for determinism.
	for i := 1; i < len(ids); i++ {
		require.True(t, ids[i-1] < ids[i])
	}
}

func TestCacheSoundness(t *testing.T) {
	// A cached hit equals a fresh resolve on the current state.
	e := newEnv(t, map[string]string{
		"lib.ts": `export function shared(): void {}
`,
		"main.ts": `import { shared } from './lib';

shared();
`,
	})

	call := refNamed(t, e.corpus, "main.ts", "shared", sem.RefCall)
	first := e.ri.Resolve(call.ScopeID, "shared", e.cache)
	require.NotEqual(t, sem.SymbolID(""), first)

	fresh := resolve.NewCache()
	second := e.ri.Resolve(call.ScopeID, "shared", fresh)
	assert.Equal(t, second, first)

	// And the cached path must now hit.
	before := e.cache.Stats().Hits
	third := e.ri.Resolve(call.ScopeID, "shared", e.cache)
	assert.Equal(t, first, third)
	assert.Greater(t, e.cache.Stats().Hits, before)
}

func TestDeterminismAcrossFileOrder(t *testing.T) {
	sources := map[string]string{
		"a.ts": `export function fa(): void {}
`,
		"b.ts": `import { fa } from './a';

export function fb(): void {
  fa();
}
`,
		"c.ts": `import { fb } from './b';

fb();
`,
	}

	run := func(order []string) []sem.SymbolID {
		c := buildCorpus(t, sources)
		ri := resolve.NewIndex(c)
		cache := resolve.NewCache()
		state := resolve.NewState()
		state = state.ApplyNames(resolve.ResolveNames(c, ri, cache, order))
		types := resolve.NewTypeContext(c, ri, cache)
		state = state.ApplyCalls(resolve.NewCallResolver(c, ri, cache, types).ResolveFiles(order))
		return state.AllReferencedSymbols()
	}

	forward := run([]string{"a.ts", "b.ts", "c.ts"})
	backward := run([]string{"c.ts", "b.ts", "a.ts"})
	assert.Equal(t, forward, backward, "final state is identical regardless of processing order")
}
