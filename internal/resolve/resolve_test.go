package resolve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/taproot/internal/extract"
	"github.com/jward/taproot/internal/resolve"
	"github.com/jward/taproot/internal/sem"
)

// buildCorpus extracts every source into a corpus, keyed by file name.
func buildCorpus(t *testing.T, sources map[string]string) resolve.Corpus {
	t.Helper()
	c := resolve.Corpus{}
	for name, src := range sources {
		ix, err := extract.File(context.Background(), name, []byte(src))
		require.NoError(t, err, "extract %s", name)
		c[name] = ix
	}
	return c
}

// env bundles the corpus with a fresh resolver index and cache.
type env struct {
	corpus resolve.Corpus
	ri     *resolve.Index
	cache  *resolve.Cache
}

func newEnv(t *testing.T, sources map[string]string) *env {
	c := buildCorpus(t, sources)
	return &env{
		corpus: c,
		ri:     resolve.NewIndex(c),
		cache:  resolve.NewCache(),
	}
}

// defNamed finds a definition by kind and name in one file.
func defNamed(t *testing.T, c resolve.Corpus, file, kind, name string) *sem.Definition {
	t.Helper()
	ix, ok := c[file]
	require.True(t, ok, "no index for %s", file)
	for _, d := range ix.Definitions {
		if d.Kind == kind && d.Name == name {
			return d
		}
	}
	t.Fatalf("no %s definition %q in %s", kind, name, file)
	return nil
}

// refNamed finds a reference by name and type in one file.
func refNamed(t *testing.T, c resolve.Corpus, file, name, refType string) *sem.Reference {
	t.Helper()
	ix, ok := c[file]
	require.True(t, ok, "no index for %s", file)
	for _, r := range ix.References {
		if r.Name == name && r.Type == refType {
			return r
		}
	}
	t.Fatalf("no %s reference %q in %s", refType, name, file)
	return nil
}

// resolveCalls runs the full phase-two pipeline over every file.
func (e *env) resolveCalls(t *testing.T) resolve.CallResult {
	t.Helper()
	types := resolve.NewTypeContext(e.corpus, e.ri, e.cache)
	return resolve.NewCallResolver(e.corpus, e.ri, e.cache, types).ResolveFiles(e.corpus.SortedFiles())
}

// callTo finds the resolved call reference for name in file.
func callTo(t *testing.T, result resolve.CallResult, file, name string) resolve.CallReference {
	t.Helper()
	for _, cr := range result.CallsByFile[file] {
		if cr.Name == name {
			return cr
		}
	}
	t.Fatalf("no call reference %q in %s", name, file)
	return resolve.CallReference{}
}
