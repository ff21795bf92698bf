package runtime

import (
	"context"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/extract"
)

// parsedTree keeps the inputs a tree was produced from. Scripts hold node
// proxies, and node_text/query need the original bytes and grammar back;
// the tree-sitter binding gives no way from a Node to its Tree, so trees
// are registered here under their root node and found again by walking a
// node's Parent() chain up to that root.
type parsedTree struct {
	src     []byte
	grammar *sitter.Language
}

// treeTable is the registry of trees parsed during one script run.
type treeTable struct {
	mu    sync.RWMutex
	trees map[uintptr]*parsedTree
}

func newTreeTable() *treeTable {
	return &treeTable{trees: map[uintptr]*parsedTree{}}
}

func (t *treeTable) register(tree *sitter.Tree, src []byte, grammar *sitter.Language) {
	key := uintptr(unsafe.Pointer(tree.RootNode()))
	t.mu.Lock()
	t.trees[key] = &parsedTree{src: src, grammar: grammar}
	t.mu.Unlock()
}

// owner finds the registered tree a node belongs to.
func (t *treeTable) owner(node *sitter.Node) (*parsedTree, bool) {
	root := node
	for root.Parent() != nil {
		root = root.Parent()
	}
	t.mu.RLock()
	pt, ok := t.trees[uintptr(unsafe.Pointer(root))]
	t.mu.RUnlock()
	return pt, ok
}

// stringArg unwraps args[i] as a string, or returns a non-nil error object.
func stringArg(fn string, args []object.Object, i int) (string, object.Object) {
	s, ok := args[i].(*object.String)
	if !ok {
		return "", object.Errorf("%s: argument %d must be a string, got %s", fn, i+1, args[i].Type())
	}
	return s.Value(), nil
}

// nodeArg unwraps args[i] as a proxied *sitter.Node.
func nodeArg(fn string, args []object.Object, i int) (*sitter.Node, object.Object) {
	proxy, ok := args[i].(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: argument %d must be a syntax node, got %s", fn, i+1, args[i].Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: argument %d must be a syntax node, got %T", fn, i+1, proxy.Interface())
	}
	return node, nil
}

// treeGlobals builds the tree-sitter surface exposed to scripts:
//
//	parse(path, language)     → Tree (reads the file)
//	parse_src(text, language) → Tree
//	node_text(node)           → string
//	query(pattern, node)      → list of {capture name → Node} maps
func treeGlobals(tt *treeTable) map[string]any {
	doParse := func(ctx context.Context, src []byte, langName string) object.Object {
		grammar, ok := extract.GrammarForLanguage(langName)
		if !ok {
			return object.Errorf("parse: unsupported language %q", langName)
		}
		parser := sitter.NewParser()
		defer parser.Close()
		parser.SetLanguage(grammar)

		tree, err := parser.ParseCtx(ctx, nil, src)
		if err != nil {
			return object.Errorf("parse: %v", err)
		}
		tt.register(tree, src, grammar)

		proxy, err := object.NewProxy(tree)
		if err != nil {
			return object.Errorf("parse: proxy: %v", err)
		}
		return proxy
	}

	parse := object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse", 2, len(args))
		}
		path, errObj := stringArg("parse", args, 0)
		if errObj != nil {
			return errObj
		}
		langName, errObj := stringArg("parse", args, 1)
		if errObj != nil {
			return errObj
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return object.Errorf("parse: reading %s: %v", path, err)
		}
		return doParse(ctx, src, langName)
	})

	parseSrc := object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}
		text, errObj := stringArg("parse_src", args, 0)
		if errObj != nil {
			return errObj
		}
		langName, errObj := stringArg("parse_src", args, 1)
		if errObj != nil {
			return errObj
		}
		return doParse(ctx, []byte(text), langName)
	})

	nodeText := object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args, 0)
		if errObj != nil {
			return errObj
		}
		pt, ok := tt.owner(node)
		if !ok {
			return object.Errorf("node_text: node does not belong to a parsed tree")
		}
		return object.NewString(node.Content(pt.src))
	})

	queryFn := object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		pattern, errObj := stringArg("query", args, 0)
		if errObj != nil {
			return errObj
		}
		node, errObj := nodeArg("query", args, 1)
		if errObj != nil {
			return errObj
		}
		pt, ok := tt.owner(node)
		if !ok {
			return object.Errorf("query: node does not belong to a parsed tree")
		}
		return runTreeQuery(pattern, node, pt)
	})

	return map[string]any{
		"parse":     parse,
		"parse_src": parseSrc,
		"node_text": nodeText,
		"query":     queryFn,
	}
}

// runTreeQuery executes one pattern against a node and converts each match
// into a script map of capture name → proxied node.
func runTreeQuery(pattern string, node *sitter.Node, pt *parsedTree) object.Object {
	q, err := sitter.NewQuery([]byte(pattern), pt.grammar)
	if err != nil {
		return object.Errorf("query: bad pattern: %v", err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, node)

	results := []object.Object{}
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		m = cursor.FilterPredicates(m, pt.src)
		if len(m.Captures) == 0 {
			continue
		}
		entry := make(map[string]object.Object, len(m.Captures))
		for _, capture := range m.Captures {
			proxy, err := object.NewProxy(capture.Node)
			if err != nil {
				return object.Errorf("query: proxy: %v", err)
			}
			entry[q.CaptureNameForId(capture.Index)] = proxy
		}
		results = append(results, object.NewMap(entry))
	}
	return object.NewList(results)
}

// makeLogFn builds the "log" global: log(message) writes a prefixed line to
// stderr so script output stays separate from query results on stdout.
func makeLogFn() *object.Builtin {
	return object.NewBuiltin("log", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("log", 1, len(args))
		}
		msg, errObj := stringArg("log", args, 0)
		if errObj != nil {
			return errObj
		}
		fmt.Fprintf(os.Stderr, "taproot: %s\n", msg)
		return object.Nil
	})
}
