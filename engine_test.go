package taproot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/sem"
)

func indexDir(t *testing.T, dbPath, dir string, opts ...Option) *Engine {
	t.Helper()
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	ctx := context.Background()
	require.NoError(t, e.IndexDirectory(ctx, dir))
	require.NoError(t, e.Resolve(ctx))
	return e
}

func fileByFullPath(e *Engine, suffix string) *sem.Index {
	for _, f := range e.Files() {
		if filepath.Base(f) == suffix || f == suffix {
			return e.FileIndex(f)
		}
	}
	return nil
}

func defIn(t *testing.T, ix *sem.Index, kind, name string) *sem.Definition {
	t.Helper()
	require.NotNil(t, ix)
	for _, d := range ix.Definitions {
		if d.Kind == kind && d.Name == name {
			return d
		}
	}
	t.Fatalf("no %s %q in %s", kind, name, ix.File)
	return nil
}

func TestEngineShadowing(t *testing.T) {
	e := indexDir(t, "", "testdata/typescript/level-01-shadowing")

	ix := fileByFullPath(e, "t.ts")
	require.NotNil(t, ix)

	var xs []*sem.Definition
	for _, d := range ix.Definitions {
		if d.Kind == sem.KindVariable && d.Name == "x" {
			xs = append(xs, d)
		}
	}
	require.Len(t, xs, 2)
	outer, inner := xs[0], xs[1]
	if inner.Location.Before(outer.Location) {
		outer, inner = inner, outer
	}

	state := e.State()
	gotInner := state.Resolve(ix.ScopeAt(inner.Location.StartLine+1, 4), "x")
	assert.Equal(t, inner.SymbolID, gotInner, "inner body sees the inner x")

	gotOuter := state.Resolve(ix.ScopeAt(outer.Location.StartLine+5, 2), "x")
	assert.Equal(t, outer.SymbolID, gotOuter, "outer body sees the outer x")
}

func TestEngineReexportChain(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	e := indexDir(t, dbPath, "testdata/typescript/level-02-reexport-chain")

	original := fileByFullPath(e, "original.ts")
	consumer := fileByFullPath(e, "consumer.ts")
	helper := defIn(t, original, sem.KindFunction, "helper")

	// In-memory state: the module scope of consumer.ts binds helper to the
	// terminal definition in original.ts.
	got := e.State().Resolve(consumer.Root, "helper")
	assert.Equal(t, helper.SymbolID, got)

	// Persisted store: the call reference inside u resolves to the same.
	refs, err := e.Store().ReferencesByName("helper")
	require.NoError(t, err)
	found := false
	for _, r := range refs {
		if r.Kind != sem.RefCall {
			continue
		}
		resolved, err := e.Store().ResolvedReferencesByRef(r.ID)
		require.NoError(t, err)
		require.NotEmpty(t, resolved, "helper call should be resolved")
		assert.Equal(t, string(helper.SymbolID), resolved[0].TargetSymbolKey)
		found = true
	}
	assert.True(t, found, "expected a call reference to helper")
}

func TestEngineNamespaceImport(t *testing.T) {
	e := indexDir(t, "", "testdata/typescript/level-03-namespace-import")

	app := fileByFullPath(e, "app.ts")
	utils := fileByFullPath(e, "utils.ts")
	nsImport := defIn(t, app, sem.KindImport, "u")
	helper := defIn(t, utils, sem.KindFunction, "helper")

	state := e.State()
	assert.Equal(t, nsImport.SymbolID, state.Resolve(app.Root, "u"),
		"the namespace binding resolves to the import symbol")

	var resolvedHelper sem.SymbolID
	for _, scopeID := range app.SortedScopeIDs() {
		for _, cr := range state.CallsByCallerScope(scopeID) {
			if cr.Name == "helper" {
				resolvedHelper = cr.Resolved()
			}
		}
	}
	assert.Equal(t, helper.SymbolID, resolvedHelper,
		"u.helper() resolves through the namespace-member path")
}

func TestEngineClassMethodsTS(t *testing.T) {
	e := indexDir(t, "", "testdata/typescript/level-04-class-methods")

	ix := fileByFullPath(e, "main.ts")
	bark := defIn(t, ix, sem.KindMethod, "bark")
	move := defIn(t, ix, sem.KindMethod, "move")

	targets := map[string]sem.SymbolID{}
	for _, scopeID := range ix.SortedScopeIDs() {
		for _, cr := range e.State().CallsByCallerScope(scopeID) {
			if cr.Resolved() != "" {
				targets[cr.Name] = cr.Resolved()
			}
		}
	}
	assert.Equal(t, bark.SymbolID, targets["bark"])
	assert.Equal(t, move.SymbolID, targets["move"], "inherited method resolves through extends")
}

func TestEngineHandlerMapReachability(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	e := indexDir(t, dbPath, "testdata/typescript/level-05-handler-map")

	ix := fileByFullPath(e, "handlers.ts")
	a := defIn(t, ix, sem.KindFunction, "handlerA")
	b := defIn(t, ix, sem.KindFunction, "handlerB")

	referenced := e.State().AllReferencedSymbols()
	assert.Contains(t, referenced, a.SymbolID)
	assert.Contains(t, referenced, b.SymbolID)

	entries, err := e.Store().AllReachability()
	require.NoError(t, err)
	keys := map[string]bool{}
	for _, r := range entries {
		keys[r.SymbolKey] = true
		assert.Equal(t, "collection_read", r.Reason)
	}
	assert.True(t, keys[string(a.SymbolID)])
	assert.True(t, keys[string(b.SymbolID)])
}

func TestEnginePythonRelativeImport(t *testing.T) {
	e := indexDir(t, "", "testdata/python/level-01-relative-import")

	helperIx := fileByFullPath(e, "helper.py")
	workerIx := fileByFullPath(e, "worker.py")
	process := defIn(t, helperIx, sem.KindFunction, "process")

	var got sem.SymbolID
	for _, scopeID := range workerIx.SortedScopeIDs() {
		for _, cr := range e.State().CallsByCallerScope(scopeID) {
			if cr.Name == "process" {
				got = cr.Resolved()
			}
		}
	}
	assert.Equal(t, process.SymbolID, got, "process() resolves into utils/helper.py")
}

func TestEnginePythonConstructorMethod(t *testing.T) {
	e := indexDir(t, "", "testdata/python/level-02-class-methods")

	ix := fileByFullPath(e, "main.py")
	help := defIn(t, ix, sem.KindMethod, "help")

	var got sem.SymbolID
	for _, scopeID := range ix.SortedScopeIDs() {
		for _, cr := range e.State().CallsByCallerScope(scopeID) {
			if cr.Name == "help" {
				got = cr.Resolved()
			}
		}
	}
	assert.Equal(t, help.SymbolID, got)
}

func TestEngineRustImplMethod(t *testing.T) {
	e := indexDir(t, "", "testdata/rust/level-01-impl-methods")

	ix := fileByFullPath(e, "main.rs")
	start := defIn(t, ix, sem.KindMethod, "start")

	var got sem.SymbolID
	for _, scopeID := range ix.SortedScopeIDs() {
		for _, cr := range e.State().CallsByCallerScope(scopeID) {
			if cr.Name == "start" {
				got = cr.Resolved()
			}
		}
	}
	assert.Equal(t, start.SymbolID, got)
}

func TestEngineSkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ts")
	require.NoError(t, os.WriteFile(path, []byte("export function f(): void {}\n"), 0o644))

	e, err := New("")
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	require.NoError(t, e.Resolve(ctx))
	before := e.State()

	// Re-indexing the same content changes nothing and Resolve is a no-op.
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	require.NoError(t, e.Resolve(ctx))
	assert.Same(t, before, e.State())
}

func TestEngineFileUpdate(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.ts")
	app := filepath.Join(dir, "app.ts")
	require.NoError(t, os.WriteFile(lib, []byte("export function old(): void {}\n"), 0o644))
	require.NoError(t, os.WriteFile(app, []byte("import { old } from './lib';\n\nold();\n"), 0o644))

	e, err := New("")
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	require.NoError(t, e.IndexFiles(ctx, []string{lib, app}))
	require.NoError(t, e.Resolve(ctx))

	libIx := e.FileIndex(lib)
	oldDef := defIn(t, libIx, sem.KindFunction, "old")
	assert.Contains(t, e.State().AllReferencedSymbols(), oldDef.SymbolID)

	// Renaming the export invalidates the old resolution after re-resolve.
	require.NoError(t, os.WriteFile(lib, []byte("export function renamed(): void {}\n"), 0o644))
	require.NoError(t, e.IndexFiles(ctx, []string{lib}))
	require.NoError(t, e.Resolve(ctx))

	assert.NotContains(t, e.State().AllReferencedSymbols(), oldDef.SymbolID,
		"resolutions into the old definition are gone after the update")
	appIx := e.FileIndex(app)
	assert.Equal(t, sem.SymbolID(""), e.State().Resolve(appIx.Root, "old"),
		"the import no longer resolves")
}

func TestEngineRemoveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.ts")
	require.NoError(t, os.WriteFile(path, []byte("export function g(): void {}\n\ng();\n"), 0o644))

	e, err := New("")
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	require.NoError(t, e.Resolve(ctx))
	require.NotEmpty(t, e.State().AllReferencedSymbols())

	e.RemoveFile(path)
	assert.Nil(t, e.FileIndex(path))
	assert.Empty(t, e.State().AllReferencedSymbols())
}

func TestEngineSerialMatchesParallel(t *testing.T) {
	dir := "testdata/typescript/level-02-reexport-chain"

	serial := indexDir(t, "", dir, WithParallel(false))
	parallel := indexDir(t, "", dir, WithParallel(true))

	assert.Equal(t,
		serial.State().AllReferencedSymbols(),
		parallel.State().AllReferencedSymbols(),
		"pipelines produce identical resolution state")
}

func TestEngineLanguageFilter(t *testing.T) {
	e := indexDir(t, "", "testdata", WithLanguages("python"))
	for _, f := range e.Files() {
		assert.Equal(t, "python", e.FileIndex(f).Language)
	}
	assert.NotEmpty(t, e.Files())
}
