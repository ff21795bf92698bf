package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/sem"
)

func extractTS(t *testing.T, name, src string) *sem.Index {
	t.Helper()
	ix, err := Source(context.Background(), name, "typescript", []byte(src))
	require.NoError(t, err)
	return ix
}

func findDef(ix *sem.Index, kind, name string) *sem.Definition {
	for _, d := range ix.Definitions {
		if d.Kind == kind && d.Name == name {
			return d
		}
	}
	return nil
}

func findRef(ix *sem.Index, name, refType string) *sem.Reference {
	for _, r := range ix.References {
		if r.Name == name && r.Type == refType {
			return r
		}
	}
	return nil
}

func TestTSFunctionAndScopes(t *testing.T) {
	ix := extractTS(t, "main.ts", `
function helper(): void {}

function main(): void {
  helper()
}
`)

	helper := findDef(ix, sem.KindFunction, "helper")
	require.NotNil(t, helper, "expected helper definition")
	assert.Equal(t, ix.Root, helper.DefiningScope, "top-level function binds at the module root")

	mainDef := findDef(ix, sem.KindFunction, "main")
	require.NotNil(t, mainDef)

	call := findRef(ix, "helper", sem.RefCall)
	require.NotNil(t, call, "expected call reference to helper")
	assert.Equal(t, sem.CallFunction, call.CallType)

	callScope := ix.Scopes[call.ScopeID]
	require.NotNil(t, callScope)
	assert.NotEqual(t, ix.Root, call.ScopeID, "call site sits inside main's scope")
}

func TestTSShadowing(t *testing.T) {
	ix := extractTS(t, "t.ts", `
function outer() {
  const x = 1;
  function inner() {
    const x = 2;
    return x;
  }
  return x;
}
`)

	var defs []*sem.Definition
	for _, d := range ix.Definitions {
		if d.Kind == sem.KindVariable && d.Name == "x" {
			defs = append(defs, d)
		}
	}
	require.Len(t, defs, 2, "expected two x definitions")
	assert.NotEqual(t, defs[0].DefiningScope, defs[1].DefiningScope,
		"shadowed definitions bind in different scopes")
}

func TestTSClassMembers(t *testing.T) {
	ix := extractTS(t, "server.ts", `
class Server {
  port: number;
  start(): void {}
  stop(): void {}
}
`)

	class := findDef(ix, sem.KindClass, "Server")
	require.NotNil(t, class)

	start := findDef(ix, sem.KindMethod, "start")
	require.NotNil(t, start)
	assert.Equal(t, class.SymbolID, start.ParentSymbolID)

	tid := sem.NewTypeID(sem.KindClass, "Server", class.Location)
	info := ix.TypeMembers[tid]
	require.NotNil(t, info, "expected type member info for Server")
	assert.Contains(t, info.Methods, "start")
	assert.Contains(t, info.Methods, "stop")
	assert.Contains(t, info.Properties, "port")
}

func TestTSExtends(t *testing.T) {
	ix := extractTS(t, "animals.ts", `
class Animal {
  move(): void {}
}

class Dog extends Animal {
  bark(): void {}
}
`)

	dog := findDef(ix, sem.KindClass, "Dog")
	require.NotNil(t, dog)
	assert.Equal(t, []string{"Animal"}, dog.Extends)
}

func TestTSImports(t *testing.T) {
	ix := extractTS(t, "app.ts", `
import defaultThing from './things';
import { greet, helper as h } from './utils';
import * as ns from './ns';
`)

	def := findDef(ix, sem.KindImport, "defaultThing")
	require.NotNil(t, def)
	assert.Equal(t, sem.ImportDefault, def.ImportKind)
	assert.Equal(t, "./things", def.ImportPath)

	greet := findDef(ix, sem.KindImport, "greet")
	require.NotNil(t, greet)
	assert.Equal(t, sem.ImportNamed, greet.ImportKind)
	assert.Equal(t, "greet", greet.OriginalName)

	aliased := findDef(ix, sem.KindImport, "h")
	require.NotNil(t, aliased, "alias binds the local name")
	assert.Equal(t, "helper", aliased.OriginalName)

	ns := findDef(ix, sem.KindImport, "ns")
	require.NotNil(t, ns)
	assert.Equal(t, sem.ImportNamespace, ns.ImportKind)

	// Import clause identifiers never leak into the reference stream.
	assert.Nil(t, findRef(ix, "greet", sem.RefRead))
}

func TestTSExports(t *testing.T) {
	ix := extractTS(t, "lib.ts", `
export function visible(): void {}
function hidden(): void {}
export { hidden as alias } from './other';
export * from './wide';
`)

	visible := findDef(ix, sem.KindFunction, "visible")
	require.NotNil(t, visible)
	assert.True(t, visible.IsExported)

	hidden := findDef(ix, sem.KindFunction, "hidden")
	require.NotNil(t, hidden)
	assert.False(t, hidden.IsExported)

	var aliased, star *sem.Definition
	for _, rx := range ix.Reexports() {
		switch rx.ImportKind {
		case sem.ImportNamed:
			aliased = rx
		case sem.ImportStar:
			star = rx
		}
	}
	require.NotNil(t, aliased, "expected aliased re-export binding")
	assert.Equal(t, "alias", aliased.ExportedName)
	assert.Equal(t, "hidden", aliased.OriginalName)
	assert.Equal(t, "./other", aliased.ImportPath)

	require.NotNil(t, star, "expected star re-export binding")
	assert.Equal(t, "./wide", star.ImportPath)
}

func TestTSConstructorBinding(t *testing.T) {
	ix := extractTS(t, "svc.ts", `
class Service {
  run(): void {}
}

const svc = new Service();
`)

	v := findDef(ix, sem.KindVariable, "svc")
	require.NotNil(t, v)
	assert.Equal(t, "Service", ix.TypeBindings[v.Location.Key()],
		"constructor assignment records a type binding at the variable")

	construct := findRef(ix, "Service", sem.RefConstruct)
	require.NotNil(t, construct)
	require.NotNil(t, construct.Context)
	require.NotNil(t, construct.Context.ConstructTarget)
	assert.Equal(t, v.Location, *construct.Context.ConstructTarget)
}

func TestTSTypeAnnotationBinding(t *testing.T) {
	ix := extractTS(t, "cfg.ts", `
interface Config {
  host: string;
}

const cfg: Config = { host: "localhost" };
`)

	v := findDef(ix, sem.KindVariable, "cfg")
	require.NotNil(t, v)
	assert.Equal(t, "Config", ix.TypeBindings[v.Location.Key()])

	typeRef := findRef(ix, "Config", sem.RefType)
	require.NotNil(t, typeRef, "expected type reference to Config")
}

func TestTSMethodCallReceiver(t *testing.T) {
	ix := extractTS(t, "call.ts", `
class Server {
  start(): void {}
}

const s = new Server();
s.start();
`)

	call := findRef(ix, "start", sem.RefCall)
	require.NotNil(t, call)
	assert.Equal(t, sem.CallMethod, call.CallType)
	require.NotNil(t, call.Context)
	assert.Equal(t, "s", call.Context.ReceiverName)
	require.NotNil(t, call.Context.ReceiverLocation)

	// The receiver location points at the `s` read reference.
	recv := ix.ReferenceAt(*call.Context.ReceiverLocation)
	require.NotNil(t, recv)
	assert.Equal(t, "s", recv.Name)
}

func TestTSFunctionCollection(t *testing.T) {
	ix := extractTS(t, "handlers.ts", `
function handlerA(): void {}
function handlerB(): void {}

const HANDLERS = { a: handlerA, b: handlerB };
`)

	v := findDef(ix, sem.KindVariable, "HANDLERS")
	require.NotNil(t, v)

	fc := ix.Collections[v.SymbolID]
	require.NotNil(t, fc, "expected HANDLERS to be a function collection")
	assert.Len(t, fc.Functions, 2)
}

func TestTSMissingScopeNameIsFatal(t *testing.T) {
	// A class scope requires a name; the builder surfaces the error from a
	// degenerate capture rather than producing a partial index. Regular
	// sources always carry names, so drive the scope tree directly.
	tree := newScopeTree("x.ts", 5, 0)
	err := tree.build([]scopeCandidate{{
		kind:     sem.ScopeClass,
		needName: true,
		loc:      sem.Location{File: "x.ts", StartLine: 1, StartCol: 0, EndLine: 3, EndCol: 1},
	}})
	assert.ErrorIs(t, err, ErrMissingSymbolName)
}

func TestUnsupportedLanguage(t *testing.T) {
	_, err := File(context.Background(), "main.zig", []byte("const x = 1;"))
	assert.Error(t, err)
}
