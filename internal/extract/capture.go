package extract

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/sem"
)

// captureNameRE is the capture name grammar: category.entity with an
// optional qualifier, max depth 3, lowercase and underscores only.
var captureNameRE = regexp.MustCompile(`^[a-z_]+\.[a-z_]+(\.[a-z_]+)?$`)

// CaptureNode is one normalized capture from a tree-sitter query match:
// the parsed capture name, the node's text and location, and the node
// itself for the builder's context attachment.
type CaptureNode struct {
	Name      string // full capture name, e.g. "definition.function"
	Category  string // "definition"
	Entity    string // "function"
	Qualifier string // optional third segment
	Text      string
	Location  sem.Location
	Node      *sitter.Node
}

// normalizeCapture validates a capture name against the grammar and builds a
// CaptureNode. Returns (zero, false) for malformed names; malformed captures
// are skipped, not fatal.
func normalizeCapture(name string, node *sitter.Node, src []byte, file string) (CaptureNode, bool) {
	if !captureNameRE.MatchString(name) {
		return CaptureNode{}, false
	}
	parts := strings.SplitN(name, ".", 3)
	c := CaptureNode{
		Name:     name,
		Category: parts[0],
		Entity:   parts[1],
		Text:     node.Content(src),
		Location: nodeLocation(node, file),
		Node:     node,
	}
	if len(parts) == 3 {
		c.Qualifier = parts[2]
	}
	return c, true
}

// nodeLocation converts a node's 0-based tree-sitter rows to the engine's
// 1-based lines, keeping columns 0-based.
func nodeLocation(node *sitter.Node, file string) sem.Location {
	start := node.StartPoint()
	end := node.EndPoint()
	return sem.Location{
		File:      file,
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

// match is one query match: capture name → normalized captures. Quantified
// patterns (extends lists, parameter lists) record several captures under
// one name.
type match map[string][]CaptureNode

// runQuery executes a tree-sitter query against root and returns the
// normalized matches in document order. Captures whose names fail the
// grammar are dropped from their match.
func runQuery(pattern string, lang *sitter.Language, root *sitter.Node, src []byte, file string) ([]match, error) {
	q, err := sitter.NewQuery([]byte(pattern), lang)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, root)

	var matches []match
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		m = cursor.FilterPredicates(m, src)
		if len(m.Captures) == 0 {
			continue
		}
		mm := make(match, len(m.Captures))
		for _, capture := range m.Captures {
			name := q.CaptureNameForId(capture.Index)
			cn, ok := normalizeCapture(name, capture.Node, src, file)
			if !ok {
				continue
			}
			mm[name] = append(mm[name], cn)
		}
		if len(mm) > 0 {
			matches = append(matches, mm)
		}
	}
	return matches, nil
}
