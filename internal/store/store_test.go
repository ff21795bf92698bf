package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestInsertAndLookupFile(t *testing.T) {
	s := newTestStore(t)

	id, err := s.InsertFile(&File{
		Path:        "src/main.ts",
		Language:    "typescript",
		Hash:        "abc",
		LastIndexed: time.Now(),
	})
	require.NoError(t, err)
	require.Positive(t, id)

	f, err := s.FileByPath("src/main.ts")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, id, f.ID)
	assert.Equal(t, "typescript", f.Language)

	missing, err := s.FileByPath("nope.ts")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCommitBatchAndQueries(t *testing.T) {
	s := newTestStore(t)

	fileID, err := s.InsertFile(&File{Path: "main.ts", Language: "typescript", LastIndexed: time.Now()})
	require.NoError(t, err)

	batch := NewFileBatch(fileID)
	batch.Symbols = append(batch.Symbols,
		Symbol{SymbolKey: "function#helper#main.ts:1:9-1:15", Name: "helper", Kind: "function", IsExported: true, StartLine: 1, StartCol: 9, EndLine: 1, EndCol: 15},
		Symbol{SymbolKey: "function#main#main.ts:3:9-3:13", Name: "main", Kind: "function", StartLine: 3, StartCol: 9, EndLine: 3, EndCol: 13},
	)
	batch.Scopes = append(batch.Scopes,
		Scope{ScopeKey: "module@main.ts:1:0-6:0", Kind: "module", Depth: 0, StartLine: 1, EndLine: 6},
	)
	batch.References = append(batch.References,
		Reference{ScopeKey: "module@main.ts:1:0-6:0", Name: "helper", Kind: "call", CallType: "function", StartLine: 4, StartCol: 2, EndLine: 4, EndCol: 8},
	)
	batch.ResolvedRefs[0] = []ResolvedReference{
		{TargetSymbolKey: "function#helper#main.ts:1:9-1:15", Confidence: 1.0, ResolutionKind: "function"},
	}
	batch.CallEdges = append(batch.CallEdges, CallEdge{
		CallerSymbolKey: "function#main#main.ts:3:9-3:13",
		CalleeSymbolKey: "function#helper#main.ts:1:9-1:15",
		CallType:        "function",
		Line:            4, Col: 2,
	})
	batch.Imports = append(batch.Imports, Import{Source: "./util", ImportedName: "x", LocalAlias: "x", Kind: "named"})
	batch.Reachability = append(batch.Reachability, Reachability{
		SymbolKey: "function#helper#main.ts:1:9-1:15", Reason: "collection_read", ReadFile: "main.ts", ReadLine: 4,
	})

	require.NoError(t, s.CommitBatch(batch))

	syms, err := s.SymbolsByFile(fileID)
	require.NoError(t, err)
	assert.Len(t, syms, 2)

	helper, err := s.SymbolByKey("function#helper#main.ts:1:9-1:15")
	require.NoError(t, err)
	require.NotNil(t, helper)
	assert.True(t, helper.IsExported)

	refs, err := s.ReferencesByName("helper")
	require.NoError(t, err)
	require.Len(t, refs, 1)

	resolved, err := s.ResolvedReferencesByRef(refs[0].ID)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "function#helper#main.ts:1:9-1:15", resolved[0].TargetSymbolKey)

	byTarget, err := s.ResolvedReferencesByTarget("function#helper#main.ts:1:9-1:15")
	require.NoError(t, err)
	assert.Len(t, byTarget, 1)

	callees, err := s.CalleesByCaller("function#main#main.ts:3:9-3:13")
	require.NoError(t, err)
	require.Len(t, callees, 1)
	assert.Equal(t, "function#helper#main.ts:1:9-1:15", callees[0].CalleeSymbolKey)

	callers, err := s.CallersByCallee("function#helper#main.ts:1:9-1:15")
	require.NoError(t, err)
	assert.Len(t, callers, 1)

	imports, err := s.ImportsByFile(fileID)
	require.NoError(t, err)
	assert.Len(t, imports, 1)

	reach, err := s.AllReachability()
	require.NoError(t, err)
	assert.Len(t, reach, 1)
}

func TestDeleteFileData(t *testing.T) {
	s := newTestStore(t)

	fileID, err := s.InsertFile(&File{Path: "gone.ts", Language: "typescript", LastIndexed: time.Now()})
	require.NoError(t, err)

	batch := NewFileBatch(fileID)
	batch.Symbols = append(batch.Symbols, Symbol{SymbolKey: "function#g#gone.ts:1:0-1:1", Name: "g", Kind: "function"})
	batch.References = append(batch.References, Reference{Name: "g", Kind: "call", StartLine: 3})
	batch.ResolvedRefs[0] = []ResolvedReference{{TargetSymbolKey: "function#g#gone.ts:1:0-1:1", Confidence: 1}}
	batch.Reachability = append(batch.Reachability, Reachability{
		SymbolKey: "function#g#gone.ts:1:0-1:1", Reason: "collection_read", ReadFile: "gone.ts",
	})
	require.NoError(t, s.CommitBatch(batch))

	require.NoError(t, s.DeleteFileData(fileID))

	syms, err := s.SymbolsByFile(fileID)
	require.NoError(t, err)
	assert.Empty(t, syms)

	refs, err := s.ReferencesByName("g")
	require.NoError(t, err)
	assert.Empty(t, refs)

	reach, err := s.AllReachability()
	require.NoError(t, err)
	assert.Empty(t, reach)
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.SetMetadata("k", "v1"))
	require.NoError(t, s.SetMetadata("k", "v2"))

	v, err = s.GetMetadata("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}
