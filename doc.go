// Package taproot provides cross-file symbol resolution built on
// tree-sitter. For each reference site in a corpus of TypeScript,
// JavaScript, Python, or Rust sources it produces the definition the
// reference binds to, honoring lexical scoping and shadowing, imports
// (re-export chains, relative paths, namespace imports, package index
// files), class/trait inheritance, and receiver-type-directed member
// dispatch.
//
// # Pipeline
//
// Taproot operates in two phases per update cycle:
//
//  1. Extract: parse each changed file with tree-sitter, normalize the
//     query captures, build the file's scope tree and semantic index
//     (definitions, references, type bindings, type members, function
//     collections).
//
//  2. Resolve: rebuild the changed files' scope resolver maps, resolve
//     names (phase one), construct the type context, then resolve calls,
//     constructors, member accesses, and indirect reachability (phase
//     two). The committed resolution state is swapped atomically.
//
// # Usage
//
// Create an Engine, index source files, resolve, and query:
//
//	e, err := taproot.New("taproot.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/project")
//	err = e.Resolve(ctx)
//
//	state := e.State()
//	target := state.Resolve(scopeID, "helper")
//	calls := state.CallsByCallerScope(callerScope)
//
// The in-memory [Engine.State] snapshot answers resolution queries in O(1);
// the SQLite-backed [QueryBuilder] serves go-to-definition, find-references,
// and call-graph queries from the persisted snapshot without re-indexing.
//
// # Concurrency
//
// The resolution core is single-threaded and cooperative: no operation
// suspends mid-call, and reentrancy (an import resolver triggering another)
// is bounded by the import-cycle guard. File parsing and extraction run in
// a worker pool, but commits into the corpus, cache, and registry are
// serialized. Readers outside an update cycle see the last committed state.
//
// # Incremental Indexing
//
// [Engine.IndexFiles] skips unchanged files via content hashing. A changed
// file invalidates exactly its own cache entries and resolver maps; the
// next [Engine.Resolve] re-runs both phases for the changed files and every
// file importing them.
package taproot
