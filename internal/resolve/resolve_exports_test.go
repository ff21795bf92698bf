package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/taproot/internal/resolve"
	"github.com/jward/taproot/internal/sem"
)

func TestReexportChain(t *testing.T) {
	e := newEnv(t, map[string]string{
		"original.ts": `export function helper(x: number): number {
  return x * 2;
}
`,
		"index.ts": `export { helper } from './original';
`,
		"consumer.ts": `import { helper } from './index';

export function u(y: number): number {
  return helper(y);
}
`,
	})

	want := defNamed(t, e.corpus, "original.ts", sem.KindFunction, "helper")

	// Module-scope resolution follows the chain to the terminal definition.
	moduleScope := e.corpus["consumer.ts"].Root
	got := e.ri.Resolve(moduleScope, "helper", e.cache)
	assert.Equal(t, want.SymbolID, got)

	// The call site inside u resolves to the same symbol.
	call := refNamed(t, e.corpus, "consumer.ts", "helper", sem.RefCall)
	assert.Equal(t, want.SymbolID, e.ri.Resolve(call.ScopeID, "helper", e.cache))
}

func TestReexportChainIdempotent(t *testing.T) {
	e := newEnv(t, map[string]string{
		"original.ts": `export function helper(): void {}
`,
		"index.ts": `export { helper } from './original';
`,
	})

	first := resolve.ResolveExportChain(e.corpus, "index.ts", "helper", sem.ImportNamed)
	second := resolve.ResolveExportChain(e.corpus, "index.ts", "helper", sem.ImportNamed)
	assert.NotEqual(t, sem.SymbolID(""), first)
	assert.Equal(t, first, second)
}

func TestAliasedReexport(t *testing.T) {
	e := newEnv(t, map[string]string{
		"impl.ts": `export function actual(): void {}
`,
		"facade.ts": `export { actual as published } from './impl';
`,
		"user.ts": `import { published } from './facade';

published();
`,
	})

	want := defNamed(t, e.corpus, "impl.ts", sem.KindFunction, "actual")
	got := e.ri.Resolve(e.corpus["user.ts"].Root, "published", e.cache)
	assert.Equal(t, want.SymbolID, got, "aliased re-export maps the outward name to the inward lookup")
}

func TestStarReexport(t *testing.T) {
	e := newEnv(t, map[string]string{
		"deep.ts": `export function buried(): void {}
`,
		"index.ts": `export * from './deep';
`,
		"main.ts": `import { buried } from './index';

buried();
`,
	})

	want := defNamed(t, e.corpus, "deep.ts", sem.KindFunction, "buried")
	got := e.ri.Resolve(e.corpus["main.ts"].Root, "buried", e.cache)
	assert.Equal(t, want.SymbolID, got)
}

func TestImportCycleReturnsNil(t *testing.T) {
	e := newEnv(t, map[string]string{
		"a.ts": `export { ghost } from './b';
`,
		"b.ts": `export { ghost } from './a';
`,
	})

	got := resolve.ResolveExportChain(e.corpus, "a.ts", "ghost", sem.ImportNamed)
	assert.Equal(t, sem.SymbolID(""), got, "cycles resolve to nil, never error")
}

func TestDefaultImport(t *testing.T) {
	e := newEnv(t, map[string]string{
		"logger.ts": `export default function createLogger(): void {}
`,
		"main.ts": `import Logger from './logger';

Logger();
`,
	})

	want := defNamed(t, e.corpus, "logger.ts", sem.KindFunction, "createLogger")
	got := e.ri.Resolve(e.corpus["main.ts"].Root, "Logger", e.cache)
	assert.Equal(t, want.SymbolID, got)
}

func TestPackageIndexFile(t *testing.T) {
	e := newEnv(t, map[string]string{
		"pkg/index.ts": `export function entry(): void {}
`,
		"main.ts": `import { entry } from './pkg';

entry();
`,
	})

	want := defNamed(t, e.corpus, "pkg/index.ts", sem.KindFunction, "entry")
	got := e.ri.Resolve(e.corpus["main.ts"].Root, "entry", e.cache)
	assert.Equal(t, want.SymbolID, got, "directory imports resolve through the package index file")
}

func TestImportThroughExportedImport(t *testing.T) {
	e := newEnv(t, map[string]string{
		"origin.ts": `export function thing(): void {}
`,
		"middle.ts": `import { thing } from './origin';
export { thing };
`,
		"end.ts": `import { thing } from './middle';

thing();
`,
	})

	want := defNamed(t, e.corpus, "origin.ts", sem.KindFunction, "thing")
	got := e.ri.Resolve(e.corpus["end.ts"].Root, "thing", e.cache)
	assert.Equal(t, want.SymbolID, got, "an exported import keeps the chain going")
}
