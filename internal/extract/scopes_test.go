package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/sem"
)

func loc(file string, sl, sc, el, ec int) sem.Location {
	return sem.Location{File: file, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec}
}

func TestScopeTreeParenting(t *testing.T) {
	tree := newScopeTree("f.ts", 20, 0)

	outer := scopeCandidate{kind: sem.ScopeFunction, name: "outer", loc: loc("f.ts", 2, 0, 10, 1)}
	inner := scopeCandidate{kind: sem.ScopeFunction, name: "inner", loc: loc("f.ts", 4, 2, 8, 3)}
	block := scopeCandidate{kind: sem.ScopeBlock, loc: loc("f.ts", 5, 4, 7, 5)}

	// Intentionally unsorted: build sorts by source position.
	require.NoError(t, tree.build([]scopeCandidate{block, outer, inner}))

	outerID := sem.NewScopeID(sem.ScopeFunction, outer.loc)
	innerID := sem.NewScopeID(sem.ScopeFunction, inner.loc)
	blockID := sem.NewScopeID(sem.ScopeBlock, block.loc)

	assert.Equal(t, tree.root, tree.scopes[outerID].ParentID)
	assert.Equal(t, outerID, tree.scopes[innerID].ParentID)
	assert.Equal(t, innerID, tree.scopes[blockID].ParentID, "parent is the smallest containing scope")

	assert.Equal(t, 0, tree.scopes[tree.root].Depth)
	assert.Equal(t, 1, tree.scopes[outerID].Depth)
	assert.Equal(t, 2, tree.scopes[innerID].Depth)
	assert.Equal(t, 3, tree.scopes[blockID].Depth)

	assert.Equal(t, []sem.ScopeID{outerID}, tree.scopes[tree.root].Children)
}

func TestScopeTreeChildOrderIsSourceOrder(t *testing.T) {
	tree := newScopeTree("f.ts", 30, 0)
	first := scopeCandidate{kind: sem.ScopeFunction, name: "a", loc: loc("f.ts", 2, 0, 4, 1)}
	second := scopeCandidate{kind: sem.ScopeFunction, name: "b", loc: loc("f.ts", 6, 0, 9, 1)}

	require.NoError(t, tree.build([]scopeCandidate{second, first}))

	root := tree.scopes[tree.root]
	require.Len(t, root.Children, 2)
	assert.Equal(t, "a", tree.scopes[root.Children[0]].Name)
	assert.Equal(t, "b", tree.scopes[root.Children[1]].Name)
}

func TestScopeTreeMissingName(t *testing.T) {
	tree := newScopeTree("f.ts", 10, 0)
	bad := scopeCandidate{kind: sem.ScopeClass, needName: true, loc: loc("f.ts", 2, 0, 5, 1)}

	err := tree.build([]scopeCandidate{bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSymbolName)
}

func TestScopeAt(t *testing.T) {
	tree := newScopeTree("f.ts", 20, 0)
	outer := scopeCandidate{kind: sem.ScopeFunction, name: "outer", loc: loc("f.ts", 2, 0, 10, 1)}
	inner := scopeCandidate{kind: sem.ScopeFunction, name: "inner", loc: loc("f.ts", 4, 2, 8, 3)}
	require.NoError(t, tree.build([]scopeCandidate{outer, inner}))

	assert.Equal(t, sem.NewScopeID(sem.ScopeFunction, inner.loc), tree.at(5, 0))
	assert.Equal(t, sem.NewScopeID(sem.ScopeFunction, outer.loc), tree.at(3, 0))
	assert.Equal(t, tree.root, tree.at(15, 0))
}

func TestScopeKindMapping(t *testing.T) {
	cases := map[string]string{
		"module":      sem.ScopeModule,
		"namespace":   sem.ScopeModule,
		"class":       sem.ScopeClass,
		"interface":   sem.ScopeClass,
		"enum":        sem.ScopeClass,
		"function":    sem.ScopeFunction,
		"closure":     sem.ScopeFunction,
		"method":      sem.ScopeMethod,
		"constructor": sem.ScopeConstructor,
		"block":       sem.ScopeBlock,
	}
	for entity, want := range cases {
		kind, ok := scopeKindFor(CaptureNode{Category: "scope", Entity: entity})
		require.True(t, ok, entity)
		assert.Equal(t, want, kind, entity)
	}

	// Unknown entity under the scope category falls back to block.
	kind, ok := scopeKindFor(CaptureNode{Category: "scope", Entity: "mystery"})
	require.True(t, ok)
	assert.Equal(t, sem.ScopeBlock, kind)

	// Non-scope categories with non-scope entities are ignored.
	_, ok = scopeKindFor(CaptureNode{Category: "definition", Entity: "variable"})
	assert.False(t, ok)
}

func TestCaptureNameGrammar(t *testing.T) {
	valid := []string{"scope.function", "definition.variable", "reference.call.method"}
	for _, name := range valid {
		assert.True(t, captureNameRE.MatchString(name), name)
	}
	invalid := []string{"scope", "Scope.function", "a.b.c.d", "scope.Function", "scope.func-tion"}
	for _, name := range invalid {
		assert.False(t, captureNameRE.MatchString(name), name)
	}
}
