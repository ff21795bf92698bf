package resolve

import (
	"github.com/jward/taproot/internal/sem"
)

// markIndirectReads scans a file's read references for function collections:
// a read of a variable holding an aggregate of function references marks
// every stored function reachable. Nested collections are expanded by
// resolving stored reference names in the collection's defining scope;
// self-referencing collections terminate through the visited set.
func markIndirectReads(c Corpus, ri *Index, cache *Cache, ix *sem.Index, out map[sem.SymbolID]IndirectEntry) {
	for _, ref := range ix.References {
		switch ref.Type {
		case sem.RefRead, sem.RefReturn:
		default:
			continue
		}
		if ref.AccessType != "read" {
			continue
		}
		target := ri.Resolve(ref.ScopeID, ref.Name, cache)
		if target == "" {
			continue
		}
		fc := collectionFor(c, target)
		if fc == nil {
			continue
		}
		expandCollection(c, ri, cache, fc, target, ref.Location, out, map[sem.SymbolID]bool{})
	}
}

// collectionFor returns the function collection stored in the variable, or
// nil when the symbol is not a collection.
func collectionFor(c Corpus, id sem.SymbolID) *sem.FunctionCollection {
	file := id.File()
	if file == "" {
		return nil
	}
	ix, ok := c[file]
	if !ok {
		return nil
	}
	return ix.Collections[id]
}

// expandCollection marks the collection's functions reachable and recurses
// into nested collections named by stored references.
func expandCollection(c Corpus, ri *Index, cache *Cache, fc *sem.FunctionCollection,
	collectionID sem.SymbolID, readLoc sem.Location,
	out map[sem.SymbolID]IndirectEntry, visited map[sem.SymbolID]bool) {

	if visited[collectionID] {
		return
	}
	visited[collectionID] = true

	reason := ReachabilityReason{
		Type:         "collection_read",
		CollectionID: collectionID,
		ReadLocation: readLoc,
	}
	for _, fn := range fc.Functions {
		appendReason(out, fn, reason)
	}

	def := c.DefinitionByID(collectionID)
	if def == nil {
		return
	}
	for _, name := range fc.StoredRefs {
		target := ri.Resolve(def.DefiningScope, name, cache)
		if target == "" {
			continue
		}
		if nested := collectionFor(c, target); nested != nil {
			expandCollection(c, ri, cache, nested, target, readLoc, out, visited)
			continue
		}
		if d := c.DefinitionByID(target); d != nil && (d.Kind == sem.KindFunction || d.Kind == sem.KindMethod) {
			appendReason(out, target, reason)
		}
	}
}

func appendReason(out map[sem.SymbolID]IndirectEntry, id sem.SymbolID, reason ReachabilityReason) {
	entry := out[id]
	entry.SymbolID = id
	for _, r := range entry.Reasons {
		if r == reason {
			return
		}
	}
	entry.Reasons = append(entry.Reasons, reason)
	out[id] = entry
}
