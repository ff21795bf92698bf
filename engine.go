package taproot

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jward/taproot/internal/extract"
	"github.com/jward/taproot/internal/resolve"
	"github.com/jward/taproot/internal/sem"
	"github.com/jward/taproot/internal/store"
)

// Engine orchestrates the taproot pipeline: file discovery, change
// detection, extraction, two-phase resolution, and query access. It owns the
// corpus of per-file semantic indexes, the scope resolver index, the shared
// resolution cache, and the committed resolution state.
type Engine struct {
	store     *store.Store
	corpus    resolve.Corpus
	resolvers *resolve.Index
	cache     *resolve.Cache
	state     *resolve.State
	languages map[string]bool // nil means all languages

	// dirty accumulates files changed since the last Resolve.
	dirty map[string]bool

	// useParallel enables the parallel extraction pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel extraction. When true (default),
// IndexFiles uses a worker pool for parsing and extraction with a single
// goroutine committing results into the corpus. Set to false for serial
// mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// New creates an Engine. When dbPath is non-empty, resolved output is
// persisted to a SQLite database there for CLI queries and scripts; an
// empty dbPath keeps everything in memory.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		corpus:      resolve.Corpus{},
		cache:       resolve.NewCache(),
		state:       resolve.NewState(),
		dirty:       map[string]bool{},
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolvers = resolve.NewIndex(e.corpus)

	if dbPath != "" {
		s, err := store.NewStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("taproot: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("taproot: migrate: %w", err)
		}
		e.store = s
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the underlying Store, or nil for an in-memory engine.
func (e *Engine) Store() *store.Store {
	return e.store
}

// State returns the last committed resolution snapshot. Readers outside an
// update cycle always see a consistent snapshot; Resolve swaps it
// atomically.
func (e *Engine) State() *resolve.State {
	return e.state
}

// FileIndex returns the semantic index of an indexed file, or nil. The
// index is owned by the engine; callers must treat it as read-only.
func (e *Engine) FileIndex(path string) *sem.Index {
	return e.corpus[path]
}

// Files returns the indexed file paths in lexical order.
func (e *Engine) Files() []string {
	return e.corpus.SortedFiles()
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// CacheStats reports the shared resolution cache's effectiveness.
func (e *Engine) CacheStats() resolve.CacheStats {
	return e.cache.Stats()
}

// IndexFiles indexes the given file paths. Unchanged files (same content
// hash) are skipped. Fatal extraction errors abort only the file they occur
// in, leaving its previous index intact; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.indexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := e.indexFile(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) indexFile(ctx context.Context, path string) error {
	content, skip, err := e.prepareFile(path)
	if err != nil || skip {
		return err
	}
	ix, err := extract.File(ctx, path, content)
	if err != nil {
		return err
	}
	ix.ContentHash = contentHash(content)
	e.commitIndex(ix)
	return nil
}

// prepareFile reads a file and decides whether it needs (re)indexing.
func (e *Engine) prepareFile(path string) (content []byte, skip bool, err error) {
	lang, ok := extract.LanguageForFile(path)
	if !ok {
		return nil, true, nil // unsupported extension
	}
	if e.languages != nil && !e.languages[lang] {
		return nil, true, nil // filtered out
	}
	content, err = os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	if prev, ok := e.corpus[path]; ok && prev.ContentHash == contentHash(content) {
		return nil, true, nil // unchanged
	}
	return content, false, nil
}

// commitIndex installs a freshly extracted index into the corpus and marks
// the file dirty. All derived state keyed under the file is purged here,
// before the rebuild: registry entries on the next Resolve, cache entries
// and resolver maps immediately.
func (e *Engine) commitIndex(ix *sem.Index) {
	e.corpus[ix.File] = ix
	e.cache.InvalidateFile(ix.File)
	e.resolvers.RemoveFile(ix.File)
	e.resolvers.BuildFile(ix)
	e.dirty[ix.File] = true
}

// RemoveFile drops a file from the corpus and all derived state.
func (e *Engine) RemoveFile(file string) {
	delete(e.corpus, file)
	e.cache.InvalidateFile(file)
	e.resolvers.RemoveFile(file)
	e.state = e.state.RemoveFile(file)
	delete(e.dirty, file)
	if e.store != nil {
		if f, err := e.store.FileByPath(file); err == nil && f != nil {
			_ = e.store.DeleteFileData(f.ID)
			_, _ = e.store.DB().Exec("DELETE FROM files WHERE id = ?", f.ID)
		}
	}
}

// IndexDirectory discovers every supported source file under root and
// indexes it. Discovery respects .gitignore when root sits inside a git
// checkout; outside one it walks the tree, pruning hidden directories and
// the dependency caches of the supported ecosystems.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.discoverSources(root)
	if err != nil {
		return err
	}
	return e.IndexFiles(ctx, paths)
}

// prunedDirs are directory names never descended into during a filesystem
// walk: package caches and build output for the languages taproot indexes.
var prunedDirs = map[string]bool{
	"node_modules": true, // npm / yarn
	"__pycache__":  true, // python bytecode
	"target":       true, // cargo build output
	"vendor":       true,
}

// discoverSources returns the supported source files under root. It asks
// git first (ls-files covers tracked plus untracked-but-not-ignored, which
// is exactly the set worth indexing) and treats any git failure as "not a
// repository", switching to a pruned walk.
func (e *Engine) discoverSources(root string) ([]string, error) {
	var paths []string
	keep := func(p string) {
		if _, ok := extract.LanguageForFile(p); ok {
			paths = append(paths, p)
		}
	}

	git := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	git.Dir = root
	if out, err := git.Output(); err == nil {
		for _, line := range strings.Split(string(out), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				keep(filepath.Join(root, line))
			}
		}
		return paths, nil
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			if name := d.Name(); p != root && (strings.HasPrefix(name, ".") || prunedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		default:
			keep(p)
			return nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("discover sources under %s: %w", root, err)
	}
	return paths, nil
}

// Resolve runs the two-phase resolution over every file affected by the
// updates since the last call: name resolution first, then the type context,
// then call resolution. The committed state is replaced atomically at the
// end; persisting to the store happens last.
func (e *Engine) Resolve(ctx context.Context) error {
	if len(e.dirty) == 0 {
		return nil
	}
	defer func() { e.dirty = map[string]bool{} }()

	affected := e.affectedFiles()

	state := e.state
	for _, file := range affected {
		// Importing files hold cached bindings into the changed files;
		// those must not survive the update either.
		e.cache.InvalidateFile(file)
		state = state.RemoveFile(file)
	}

	// Phase 1 fully precedes call resolution; the type context is built
	// between the two.
	names := resolve.ResolveNames(e.corpus, e.resolvers, e.cache, affected)
	state = state.ApplyNames(names)

	types := resolve.NewTypeContext(e.corpus, e.resolvers, e.cache)
	calls := resolve.NewCallResolver(e.corpus, e.resolvers, e.cache, types).ResolveFiles(affected)
	state = state.ApplyCalls(calls)

	e.state = state

	if e.store != nil {
		for _, file := range affected {
			if err := e.persistFile(file); err != nil {
				return fmt.Errorf("taproot: persist %s: %w", file, err)
			}
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// affectedFiles is the dirty set plus every file whose imports resolve into
// it: those files' lazily resolved bindings may now point elsewhere.
func (e *Engine) affectedFiles() []string {
	affected := map[string]bool{}
	for f := range e.dirty {
		affected[f] = true
	}
	for _, file := range e.corpus.SortedFiles() {
		if affected[file] {
			continue
		}
		ix := e.corpus[file]
		for _, d := range ix.Definitions {
			if d.Kind != sem.KindImport {
				continue
			}
			target := resolve.ResolveModulePath(e.corpus, file, d.ImportPath)
			if target != "" && e.dirty[target] {
				affected[file] = true
				break
			}
		}
	}
	files := make([]string, 0, len(affected))
	for f := range affected {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

func contentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// persistFile writes one file's extraction and resolution output to the
// store in a single batch, replacing any previous rows.
func (e *Engine) persistFile(file string) error {
	ix, ok := e.corpus[file]
	if !ok {
		return nil
	}

	if existing, err := e.store.FileByPath(file); err != nil {
		return err
	} else if existing != nil {
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return err
		}
		if _, err := e.store.DB().Exec("DELETE FROM files WHERE id = ?", existing.ID); err != nil {
			return err
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:        file,
		Language:    ix.Language,
		Hash:        ix.ContentHash,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return err
	}

	batch := store.NewFileBatch(fileID)
	e.fillBatch(batch, ix)
	return e.store.CommitBatch(batch)
}

// fillBatch converts the in-memory index plus the committed state into
// store rows.
func (e *Engine) fillBatch(batch *store.FileBatch, ix *sem.Index) {
	defIDs := make([]string, 0, len(ix.Definitions))
	for id := range ix.Definitions {
		defIDs = append(defIDs, string(id))
	}
	sort.Strings(defIDs)
	for _, id := range defIDs {
		d := ix.Definitions[sem.SymbolID(id)]
		if d.Kind == sem.KindImport {
			batch.Imports = append(batch.Imports, store.Import{
				Source:       d.ImportPath,
				ImportedName: d.OriginalName,
				LocalAlias:   d.Name,
				Kind:         d.ImportKind,
				IsReexport:   d.IsReexport,
			})
			if d.IsReexport {
				batch.Reexports = append(batch.Reexports, store.Reexport{
					ExportedName: d.ExportedName,
					OriginalName: d.OriginalName,
					Source:       d.ImportPath,
				})
			}
			continue
		}
		batch.Symbols = append(batch.Symbols, store.Symbol{
			SymbolKey:       string(d.SymbolID),
			Name:            d.Name,
			Kind:            d.Kind,
			IsExported:      d.IsExported,
			StartLine:       d.Location.StartLine,
			StartCol:        d.Location.StartCol,
			EndLine:         d.Location.EndLine,
			EndCol:          d.Location.EndCol,
			ParentSymbolKey: string(d.ParentSymbolID),
		})
	}

	for _, scopeID := range ix.SortedScopeIDs() {
		s := ix.Scopes[scopeID]
		batch.Scopes = append(batch.Scopes, store.Scope{
			ScopeKey:       string(s.ID),
			Kind:           s.Kind,
			Name:           s.Name,
			Depth:          s.Depth,
			StartLine:      s.Location.StartLine,
			StartCol:       s.Location.StartCol,
			EndLine:        s.Location.EndLine,
			EndCol:         s.Location.EndCol,
			ParentScopeKey: string(s.ParentID),
		})
	}

	callsByLoc := map[string]resolve.CallReference{}
	for _, cr := range e.state.CallsByFile(ix.File) {
		callsByLoc[cr.Location.Key()] = cr
	}

	for i, ref := range ix.References {
		batch.References = append(batch.References, store.Reference{
			ScopeKey:  string(ref.ScopeID),
			Name:      ref.Name,
			Kind:      ref.Type,
			CallType:  ref.CallType,
			StartLine: ref.Location.StartLine,
			StartCol:  ref.Location.StartCol,
			EndLine:   ref.Location.EndLine,
			EndCol:    ref.Location.EndCol,
		})

		if cr, ok := callsByLoc[ref.Location.Key()]; ok {
			for _, r := range cr.Resolutions {
				batch.ResolvedRefs[i] = append(batch.ResolvedRefs[i], store.ResolvedReference{
					TargetSymbolKey: string(r.SymbolID),
					Confidence:      r.Confidence,
					ResolutionKind:  cr.CallType,
				})
			}
			if cr.Resolved() != "" {
				batch.CallEdges = append(batch.CallEdges, store.CallEdge{
					CallerScopeKey:  string(cr.CallerScopeID),
					CallerSymbolKey: string(e.callerSymbol(ix, cr.CallerScopeID)),
					CalleeSymbolKey: string(cr.Resolved()),
					CallType:        cr.CallType,
					Line:            cr.Location.StartLine,
					Col:             cr.Location.StartCol,
				})
			}
			continue
		}

		if target := e.state.Resolve(ref.ScopeID, ref.Name); target != "" {
			batch.ResolvedRefs[i] = append(batch.ResolvedRefs[i], store.ResolvedReference{
				TargetSymbolKey: string(target),
				Confidence:      1.0,
				ResolutionKind:  "name",
			})
		}
	}

	for id, entry := range e.state.IndirectReachability() {
		for _, reason := range entry.Reasons {
			if reason.ReadLocation.File != ix.File {
				continue
			}
			batch.Reachability = append(batch.Reachability, store.Reachability{
				SymbolKey:           string(id),
				Reason:              reason.Type,
				CollectionSymbolKey: string(reason.CollectionID),
				ReadFile:            reason.ReadLocation.File,
				ReadLine:            reason.ReadLocation.StartLine,
				ReadCol:             reason.ReadLocation.StartCol,
			})
		}
	}
	sort.Slice(batch.Reachability, func(i, j int) bool {
		a, b := batch.Reachability[i], batch.Reachability[j]
		if a.SymbolKey != b.SymbolKey {
			return a.SymbolKey < b.SymbolKey
		}
		return a.ReadLine < b.ReadLine
	})
}

// callerSymbol maps a caller scope to the function/method definition owning
// it, or "" for module-level calls.
func (e *Engine) callerSymbol(ix *sem.Index, scopeID sem.ScopeID) sem.SymbolID {
	s, ok := ix.Scopes[scopeID]
	if !ok || s.Name == "" {
		return ""
	}
	for _, d := range ix.Definitions {
		switch d.Kind {
		case sem.KindFunction, sem.KindMethod:
			if d.Name == s.Name && s.Location.Contains(d.Location) && d.DefiningScope == s.ParentID {
				return d.SymbolID
			}
		}
	}
	return ""
}
