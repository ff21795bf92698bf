package extract

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jward/taproot/internal/sem"
)

// Fatal extraction errors. Both abort the file's index build and leave any
// previously committed state for the file untouched.
var (
	ErrMissingSymbolName = errors.New("extract: scope capture missing symbol name")
	ErrInvalidScopeTree  = errors.New("extract: invalid scope tree")
)

// scopeEntityKind maps capture entities to scope kinds. Captures whose
// category is "scope" but whose entity is not listed fall back to block.
var scopeEntityKind = map[string]string{
	"module":      sem.ScopeModule,
	"namespace":   sem.ScopeModule,
	"class":       sem.ScopeClass,
	"interface":   sem.ScopeClass,
	"enum":        sem.ScopeClass,
	"impl":        sem.ScopeClass,
	"trait":       sem.ScopeClass,
	"function":    sem.ScopeFunction,
	"closure":     sem.ScopeFunction,
	"method":      sem.ScopeMethod,
	"constructor": sem.ScopeConstructor,
	"block":       sem.ScopeBlock,
}

// scopeCandidate is one scope-creating capture, paired with the name its
// sibling definition capture carried (empty for anonymous scopes).
type scopeCandidate struct {
	kind     string
	name     string
	needName bool
	loc      sem.Location
}

// scopeKindFor returns the scope kind a capture creates, or ("", false) when
// the capture is not scope-creating.
func scopeKindFor(c CaptureNode) (string, bool) {
	if k, ok := scopeEntityKind[c.Entity]; ok {
		return k, true
	}
	if c.Category == "scope" {
		return sem.ScopeBlock, true
	}
	return "", false
}

// scopeTree accumulates a file's scope tree during extraction.
type scopeTree struct {
	file   string
	root   sem.ScopeID
	scopes map[sem.ScopeID]*sem.LexicalScope
}

// newScopeTree creates a tree with the module root spanning the whole file.
func newScopeTree(file string, lastLine, lastCol int) *scopeTree {
	rootLoc := sem.Location{File: file, StartLine: 1, StartCol: 0, EndLine: lastLine, EndCol: lastCol}
	rootID := sem.NewScopeID(sem.ScopeModule, rootLoc)
	t := &scopeTree{
		file:   file,
		root:   rootID,
		scopes: map[sem.ScopeID]*sem.LexicalScope{},
	}
	t.scopes[rootID] = &sem.LexicalScope{
		ID:       rootID,
		Kind:     sem.ScopeModule,
		Location: rootLoc,
	}
	return t
}

// build processes the candidates in ascending source order, attaching each
// new scope to the smallest existing scope that strictly contains it.
func (t *scopeTree) build(candidates []scopeCandidate) error {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].loc.Before(candidates[j].loc)
	})

	for _, c := range candidates {
		if c.needName && c.name == "" {
			return fmt.Errorf("%w: %s scope at %s", ErrMissingSymbolName, c.kind, c.loc.Key())
		}
		id := sem.NewScopeID(c.kind, c.loc)
		if _, dup := t.scopes[id]; dup {
			continue
		}
		parent := t.smallestContaining(c.loc)
		if parent == nil {
			return fmt.Errorf("%w: no parent contains %s scope at %s", ErrInvalidScopeTree, c.kind, c.loc.Key())
		}
		s := &sem.LexicalScope{
			ID:       id,
			ParentID: parent.ID,
			Name:     c.name,
			Kind:     c.kind,
			Location: c.loc,
		}
		t.scopes[id] = s
		parent.Children = append(parent.Children, id)
	}

	return t.computeDepths()
}

// smallestContaining returns the existing scope with the smallest area whose
// extent strictly contains loc. The module root contains everything, so the
// result is nil only when loc escapes the file extents.
func (t *scopeTree) smallestContaining(loc sem.Location) *sem.LexicalScope {
	var best *sem.LexicalScope
	var bestLines, bestCols int
	for _, s := range t.scopes {
		if !s.Location.StrictlyContains(loc) {
			continue
		}
		lines, cols := s.Location.Area()
		if best == nil || lines < bestLines || (lines == bestLines && cols < bestCols) {
			best, bestLines, bestCols = s, lines, cols
		}
	}
	return best
}

// computeDepths walks the tree from the root, assigning depths and sorting
// each scope's children by source position. A scope unreachable from the
// root means the parent links are inconsistent.
func (t *scopeTree) computeDepths() error {
	seen := 0
	queue := []sem.ScopeID{t.root}
	t.scopes[t.root].Depth = 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		seen++
		s := t.scopes[id]
		sort.Slice(s.Children, func(i, j int) bool {
			return t.scopes[s.Children[i]].Location.Before(t.scopes[s.Children[j]].Location)
		})
		for _, child := range s.Children {
			t.scopes[child].Depth = s.Depth + 1
			queue = append(queue, child)
		}
	}
	if seen != len(t.scopes) {
		return fmt.Errorf("%w: %d of %d scopes reachable from root", ErrInvalidScopeTree, seen, len(t.scopes))
	}
	return nil
}

// at returns the deepest scope containing the point.
func (t *scopeTree) at(line, col int) sem.ScopeID {
	best := t.root
	bestDepth := -1
	for id, s := range t.scopes {
		if s.Location.ContainsPoint(line, col) && s.Depth > bestDepth {
			best, bestDepth = id, s.Depth
		}
	}
	return best
}
