package runtime

import (
	"context"
	"testing"

	"github.com/risor-io/risor/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/resolve"
	"github.com/jward/taproot/internal/sem"
)

func testState() *resolve.State {
	scope := sem.NewScopeID(sem.ScopeModule, sem.Location{File: "a.ts", StartLine: 1, EndLine: 9})
	target := sem.NewSymbolID(sem.KindFunction, "helper", sem.Location{File: "a.ts", StartLine: 1, StartCol: 9, EndLine: 1, EndCol: 15})

	s := resolve.NewState().ApplyNames(resolve.NameResult{
		ResolutionsByScope: map[sem.ScopeID]map[string]sem.SymbolID{
			scope: {"helper": target},
		},
		ScopeToFile: map[sem.ScopeID]string{scope: "a.ts"},
	})
	return s.ApplyCalls(resolve.CallResult{
		CallsByFile: map[string][]resolve.CallReference{
			"a.ts": {{
				Name:          "helper",
				CallType:      "function",
				CallerScopeID: scope,
				Location:      sem.Location{File: "a.ts", StartLine: 4, StartCol: 2, EndLine: 4, EndCol: 8},
				Resolutions:   []resolve.Resolution{{SymbolID: target, Confidence: 1}},
			}},
		},
		CallsByCaller: map[sem.ScopeID][]resolve.CallReference{
			scope: {{
				Name:          "helper",
				CallType:      "function",
				CallerScopeID: scope,
				Resolutions:   []resolve.Resolution{{SymbolID: target, Confidence: 1}},
			}},
		},
		Indirect: map[sem.SymbolID]resolve.IndirectEntry{},
	})
}

func TestResolveGlobal(t *testing.T) {
	rt := NewRuntime(nil, testState(), "")

	err := rt.RunSource(context.Background(), `
scope := "module@a.ts:1:0-9:0"
target := resolve(scope, "helper")
assert(target != nil, "expected helper to resolve")
assert(string(target).contains("helper"), "unexpected target")

missing := resolve(scope, "ghost")
assert(missing == nil, "ghost should not resolve")
`, nil)
	require.NoError(t, err)
}

func TestCallsByCallerGlobal(t *testing.T) {
	rt := NewRuntime(nil, testState(), "")

	err := rt.RunSource(context.Background(), `
calls := calls_by_caller("module@a.ts:1:0-9:0")
assert(len(calls) == 1, "expected one call")
assert(calls[0]["name"] == "helper")
assert(calls[0]["target"] != nil)
`, nil)
	require.NoError(t, err)
}

func TestReferencedSymbolsGlobal(t *testing.T) {
	rt := NewRuntime(nil, testState(), "")

	err := rt.RunSource(context.Background(), `
syms := referenced_symbols()
assert(len(syms) == 1)
`, nil)
	require.NoError(t, err)
}

func TestParseAndQueryGlobals(t *testing.T) {
	rt := NewRuntime(nil, nil, "")

	err := rt.RunSource(context.Background(), `
tree := parse_src("function helper() {}", "javascript")
root := tree.RootNode()
matches := query("(function_declaration name: (identifier) @name)", root)
assert(len(matches) == 1, "expected one match")
assert(node_text(matches[0]["name"]) == "helper")
`, nil)
	require.NoError(t, err)
}

func TestExtraGlobalsOverride(t *testing.T) {
	rt := NewRuntime(nil, nil, "")

	ran := false
	mark := object.NewBuiltin("mark", func(ctx context.Context, args ...object.Object) object.Object {
		ran = true
		return object.Nil
	})
	err := rt.RunSource(context.Background(), `mark()`, map[string]any{"mark": mark})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestLoadScriptMissing(t *testing.T) {
	rt := NewRuntime(nil, nil, t.TempDir())
	_, err := rt.LoadScript("nope.risor")
	assert.Error(t, err)
}
