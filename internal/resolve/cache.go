package resolve

import (
	"github.com/jward/taproot/internal/sem"
)

// cacheKey is a (scope, name) pair.
type cacheKey struct {
	scope sem.ScopeID
	name  string
}

// Cache is the shared resolution cache: (scope, name) → symbol, with a
// secondary file index for O(k) invalidation. Negative results are never
// stored — a miss may become a hit after a later file update. The cache is
// owned by the Engine and torn down with it; access is single-threaded per
// query (see the concurrency notes in doc.go).
type Cache struct {
	entries  map[cacheKey]sem.SymbolID
	fileKeys map[string]map[cacheKey]struct{}
	hits     int
	misses   int
}

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Total   int
	Hits    int
	Misses  int
	HitRate float64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries:  make(map[cacheKey]sem.SymbolID),
		fileKeys: make(map[string]map[cacheKey]struct{}),
	}
}

// Get returns the cached symbol and whether it was present, counting the
// lookup toward the hit/miss stats.
func (c *Cache) Get(scope sem.ScopeID, name string) (sem.SymbolID, bool) {
	id, ok := c.entries[cacheKey{scope, name}]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return id, ok
}

// Has reports presence without touching the stats.
func (c *Cache) Has(scope sem.ScopeID, name string) bool {
	_, ok := c.entries[cacheKey{scope, name}]
	return ok
}

// Set stores a resolution, overwriting any previous entry. The scope's file
// is derived from the scope-id encoding; keys whose scope does not decode to
// a file are kept but never invalidated per-file.
func (c *Cache) Set(scope sem.ScopeID, name string, id sem.SymbolID) {
	key := cacheKey{scope, name}
	c.entries[key] = id
	if file := scope.File(); file != "" {
		keys := c.fileKeys[file]
		if keys == nil {
			keys = make(map[cacheKey]struct{})
			c.fileKeys[file] = keys
		}
		keys[key] = struct{}{}
	}
}

// InvalidateFile removes exactly the entries whose scope belongs to file.
func (c *Cache) InvalidateFile(file string) {
	for key := range c.fileKeys[file] {
		delete(c.entries, key)
	}
	delete(c.fileKeys, file)
}

// Clear drops every entry and resets the stats.
func (c *Cache) Clear() {
	c.entries = make(map[cacheKey]sem.SymbolID)
	c.fileKeys = make(map[string]map[cacheKey]struct{})
	c.hits = 0
	c.misses = 0
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	s := CacheStats{
		Total:  c.hits + c.misses,
		Hits:   c.hits,
		Misses: c.misses,
	}
	if s.Total > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Total)
	}
	return s
}
