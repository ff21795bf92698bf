package sem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationKeyRoundTrip(t *testing.T) {
	cases := []Location{
		{File: "src/main.ts", StartLine: 1, StartCol: 0, EndLine: 10, EndCol: 5},
		{File: "a/b/c.py", StartLine: 42, StartCol: 8, EndLine: 42, EndCol: 19},
		{File: "weird:name.rs", StartLine: 3, StartCol: 1, EndLine: 7, EndCol: 0},
	}
	for _, loc := range cases {
		parsed, err := ParseLocationKey(loc.Key())
		require.NoError(t, err, "key %q", loc.Key())
		assert.Equal(t, loc, parsed)
	}
}

func TestParseLocationKeyMalformed(t *testing.T) {
	for _, key := range []string{"", "nocolons", "a:b:c-d:e", "f.ts:1:2-3"} {
		_, err := ParseLocationKey(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestScopeIDRoundTrip(t *testing.T) {
	loc := Location{File: "pkg/mod.ts", StartLine: 2, StartCol: 0, EndLine: 8, EndCol: 1}
	id := NewScopeID(ScopeFunction, loc)

	kind, parsed, err := id.Parse()
	require.NoError(t, err)
	assert.Equal(t, ScopeFunction, kind)
	assert.Equal(t, loc, parsed)
	assert.Equal(t, "pkg/mod.ts", id.File())
}

func TestSymbolIDRoundTrip(t *testing.T) {
	loc := Location{File: "src/app.py", StartLine: 5, StartCol: 4, EndLine: 5, EndCol: 11}
	id := NewSymbolID(KindFunction, "process", loc)

	kind, name, parsed, err := id.Parse()
	require.NoError(t, err)
	assert.Equal(t, KindFunction, kind)
	assert.Equal(t, "process", name)
	assert.Equal(t, loc, parsed)
	assert.Equal(t, "process", id.Name())
	assert.Equal(t, "src/app.py", id.File())
}

func TestBuiltinSymbol(t *testing.T) {
	id := BuiltinSymbol("string")
	assert.True(t, id.IsBuiltin())
	assert.Equal(t, "string", id.Name())
	assert.Equal(t, "", id.File())

	real := NewSymbolID(KindClass, "Helper", Location{File: "a.ts", StartLine: 1, EndLine: 1})
	assert.False(t, real.IsBuiltin())
}

func TestTypeIDSymbolIsomorphism(t *testing.T) {
	loc := Location{File: "m.ts", StartLine: 1, StartCol: 0, EndLine: 4, EndCol: 1}
	tid := NewTypeID(KindClass, "Server", loc)

	cat, name, parsed, err := tid.Parse()
	require.NoError(t, err)
	assert.Equal(t, KindClass, cat)
	assert.Equal(t, "Server", name)
	assert.Equal(t, loc, parsed)
	assert.Equal(t, NewSymbolID(KindClass, "Server", loc), tid.Symbol())
}
