package sem

import (
	"fmt"
	"strconv"
	"strings"
)

// Location is a source position range. Lines are 1-based, columns 0-based
// (tree-sitter rows are shifted up by one at normalization time so that
// locations match editor conventions).
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Key returns the deterministic string form of the location,
// "path:startLine:startCol-endLine:endCol".
func (l Location) Key() string {
	return fmt.Sprintf("%s:%d:%d-%d:%d", l.File, l.StartLine, l.StartCol, l.EndLine, l.EndCol)
}

// ParseLocationKey is the inverse of Location.Key. The file path may itself
// contain colons, so the positional fields are parsed from the right.
func ParseLocationKey(key string) (Location, error) {
	parts := strings.Split(key, ":")
	if len(parts) < 4 {
		return Location{}, fmt.Errorf("sem: malformed location key %q", key)
	}
	ec, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return Location{}, fmt.Errorf("sem: malformed location key %q: %w", key, err)
	}
	mid := strings.SplitN(parts[len(parts)-2], "-", 2)
	if len(mid) != 2 {
		return Location{}, fmt.Errorf("sem: malformed location key %q", key)
	}
	sc, err := strconv.Atoi(mid[0])
	if err != nil {
		return Location{}, fmt.Errorf("sem: malformed location key %q: %w", key, err)
	}
	el, err := strconv.Atoi(mid[1])
	if err != nil {
		return Location{}, fmt.Errorf("sem: malformed location key %q: %w", key, err)
	}
	sl, err := strconv.Atoi(parts[len(parts)-3])
	if err != nil {
		return Location{}, fmt.Errorf("sem: malformed location key %q: %w", key, err)
	}
	return Location{
		File:      strings.Join(parts[:len(parts)-3], ":"),
		StartLine: sl,
		StartCol:  sc,
		EndLine:   el,
		EndCol:    ec,
	}, nil
}

// ContainsPoint reports whether the point (line, col) falls within l.
// Column comparisons apply only on the boundary lines.
func (l Location) ContainsPoint(line, col int) bool {
	if line < l.StartLine || line > l.EndLine {
		return false
	}
	if line == l.StartLine && col < l.StartCol {
		return false
	}
	if line == l.EndLine && col > l.EndCol {
		return false
	}
	return true
}

// Contains reports whether l fully contains other: other starts no earlier
// and ends no later than l.
func (l Location) Contains(other Location) bool {
	startOK := l.StartLine < other.StartLine ||
		(l.StartLine == other.StartLine && l.StartCol <= other.StartCol)
	endOK := l.EndLine > other.EndLine ||
		(l.EndLine == other.EndLine && l.EndCol >= other.EndCol)
	return startOK && endOK
}

// StrictlyContains reports whether l contains other and their extents differ.
func (l Location) StrictlyContains(other Location) bool {
	return l.Contains(other) && l != other
}

// Area is a comparable measure of the extent's size, used to pick the
// smallest containing scope. Spans are compared by line span first, then by
// column span on the tie.
func (l Location) Area() (lines, cols int) {
	return l.EndLine - l.StartLine, l.EndCol - l.StartCol
}

// Before orders locations by (startLine, startCol, endLine, endCol).
func (l Location) Before(other Location) bool {
	if l.StartLine != other.StartLine {
		return l.StartLine < other.StartLine
	}
	if l.StartCol != other.StartCol {
		return l.StartCol < other.StartCol
	}
	if l.EndLine != other.EndLine {
		return l.EndLine < other.EndLine
	}
	return l.EndCol < other.EndCol
}
