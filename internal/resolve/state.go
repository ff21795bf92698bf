package resolve

import (
	"sort"

	"github.com/jward/taproot/internal/sem"
)

// Resolution is one resolved target of a call reference.
type Resolution struct {
	SymbolID   sem.SymbolID
	Confidence float64
}

// CallReference is a resolved call site, indexed by the innermost enclosing
// function/method/constructor scope for call-graph consumers.
type CallReference struct {
	Location      sem.Location
	CallerScopeID sem.ScopeID
	Name          string
	CallType      string
	Resolutions   []Resolution
}

// Resolved returns the call's first resolved target, or "".
func (cr CallReference) Resolved() sem.SymbolID {
	if len(cr.Resolutions) == 0 {
		return ""
	}
	return cr.Resolutions[0].SymbolID
}

// ReachabilityReason records why a function is indirectly reachable.
type ReachabilityReason struct {
	Type         string // "collection_read"
	CollectionID sem.SymbolID
	ReadLocation sem.Location
}

// IndirectEntry collects the reasons a function is reachable without a
// direct call site.
type IndirectEntry struct {
	SymbolID sem.SymbolID
	Reasons  []ReachabilityReason
}

// NameResult is the output of the name-resolution phase for a set of files.
type NameResult struct {
	ResolutionsByScope map[sem.ScopeID]map[string]sem.SymbolID
	ScopeToFile        map[sem.ScopeID]string
}

// CallResult is the output of the call-resolution phase for a set of files.
type CallResult struct {
	CallsByFile   map[string][]CallReference
	CallsByCaller map[sem.ScopeID][]CallReference
	Indirect      map[sem.SymbolID]IndirectEntry
}

// State is an immutable resolution snapshot. Transitions return a new State
// sharing unchanged entries; readers outside an update cycle always see the
// last committed snapshot.
type State struct {
	resolutionsByScope map[sem.ScopeID]map[string]sem.SymbolID
	scopeToFile        map[sem.ScopeID]string
	callsByFile        map[string][]CallReference
	callsByCaller      map[sem.ScopeID][]CallReference
	indirect           map[sem.SymbolID]IndirectEntry
}

// NewState returns the empty snapshot.
func NewState() *State {
	return &State{
		resolutionsByScope: map[sem.ScopeID]map[string]sem.SymbolID{},
		scopeToFile:        map[sem.ScopeID]string{},
		callsByFile:        map[string][]CallReference{},
		callsByCaller:      map[sem.ScopeID][]CallReference{},
		indirect:           map[sem.SymbolID]IndirectEntry{},
	}
}

func (s *State) clone() *State {
	next := &State{
		resolutionsByScope: make(map[sem.ScopeID]map[string]sem.SymbolID, len(s.resolutionsByScope)),
		scopeToFile:        make(map[sem.ScopeID]string, len(s.scopeToFile)),
		callsByFile:        make(map[string][]CallReference, len(s.callsByFile)),
		callsByCaller:      make(map[sem.ScopeID][]CallReference, len(s.callsByCaller)),
		indirect:           make(map[sem.SymbolID]IndirectEntry, len(s.indirect)),
	}
	for k, v := range s.resolutionsByScope {
		next.resolutionsByScope[k] = v
	}
	for k, v := range s.scopeToFile {
		next.scopeToFile[k] = v
	}
	for k, v := range s.callsByFile {
		next.callsByFile[k] = v
	}
	for k, v := range s.callsByCaller {
		next.callsByCaller[k] = v
	}
	for k, v := range s.indirect {
		next.indirect[k] = v
	}
	return next
}

// RemoveFile drops every scope, call, and indirect entry keyed under file.
// Called before a file is re-added; a fatal extraction error leaves the
// previous snapshot untouched because no transition runs.
func (s *State) RemoveFile(file string) *State {
	next := s.clone()
	for scope, f := range next.scopeToFile {
		if f != file {
			continue
		}
		delete(next.scopeToFile, scope)
		delete(next.resolutionsByScope, scope)
		delete(next.callsByCaller, scope)
	}
	delete(next.callsByFile, file)
	for id, entry := range next.indirect {
		var kept []ReachabilityReason
		for _, r := range entry.Reasons {
			if r.ReadLocation.File != file {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			delete(next.indirect, id)
		} else if len(kept) != len(entry.Reasons) {
			next.indirect[id] = IndirectEntry{SymbolID: id, Reasons: kept}
		}
	}
	return next
}

// ApplyNames merges a name-resolution result into the snapshot.
func (s *State) ApplyNames(r NameResult) *State {
	next := s.clone()
	for scope, names := range r.ResolutionsByScope {
		merged := make(map[string]sem.SymbolID, len(names))
		for n, id := range next.resolutionsByScope[scope] {
			merged[n] = id
		}
		for n, id := range names {
			merged[n] = id
		}
		next.resolutionsByScope[scope] = merged
	}
	for scope, file := range r.ScopeToFile {
		next.scopeToFile[scope] = file
	}
	return next
}

// ApplyCalls merges a call-resolution result into the snapshot.
func (s *State) ApplyCalls(r CallResult) *State {
	next := s.clone()
	for file, calls := range r.CallsByFile {
		next.callsByFile[file] = calls
	}
	for scope, calls := range r.CallsByCaller {
		next.callsByCaller[scope] = calls
	}
	for id, entry := range r.Indirect {
		prior := next.indirect[id]
		merged := IndirectEntry{SymbolID: id}
		merged.Reasons = append(merged.Reasons, prior.Reasons...)
		merged.Reasons = append(merged.Reasons, entry.Reasons...)
		next.indirect[id] = merged
	}
	return next
}

// Resolve returns the committed resolution for (scope, name), or "".
func (s *State) Resolve(scope sem.ScopeID, name string) sem.SymbolID {
	return s.resolutionsByScope[scope][name]
}

// CallsByCallerScope returns the calls whose caller scope is scope.
func (s *State) CallsByCallerScope(scope sem.ScopeID) []CallReference {
	return s.callsByCaller[scope]
}

// CallsByFile returns the resolved calls recorded for file.
func (s *State) CallsByFile(file string) []CallReference {
	return s.callsByFile[file]
}

// ScopeToFile returns the file owning scope, or "".
func (s *State) ScopeToFile(scope sem.ScopeID) string {
	return s.scopeToFile[scope]
}

// AllReferencedSymbols returns the union of every resolution target and
// every indirectly reachable symbol, sorted for determinism.
func (s *State) AllReferencedSymbols() []sem.SymbolID {
	seen := map[sem.SymbolID]bool{}
	for _, names := range s.resolutionsByScope {
		for _, id := range names {
			seen[id] = true
		}
	}
	for _, calls := range s.callsByFile {
		for _, call := range calls {
			for _, r := range call.Resolutions {
				seen[r.SymbolID] = true
			}
		}
	}
	for id := range s.indirect {
		seen[id] = true
	}
	ids := make([]sem.SymbolID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IndirectReachability returns the indirect reachability table.
func (s *State) IndirectReachability() map[sem.SymbolID]IndirectEntry {
	return s.indirect
}
