package extract

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".ts":  "typescript",
	".tsx": "typescript",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".py":  "python",
	".rs":  "rust",
}

// langToGrammar maps language names to tree-sitter Language objects.
// Lazily initialized on first call via sync.Once.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[string]*sitter.Language{
			"typescript": ts.GetLanguage(),
			"javascript": javascript.GetLanguage(),
			"python":     python.GetLanguage(),
			"rust":       rust.GetLanguage(),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// GrammarForLanguage returns the tree-sitter Language for a canonical
// language name. Returns (nil, false) if the language is not supported.
func GrammarForLanguage(lang string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := langToGrammar[lang]
	return l, ok
}

// SourceExtensions returns the extensions tried when resolving a module path
// for the given language, in resolution order.
func SourceExtensions(lang string) []string {
	switch lang {
	case "typescript":
		return []string{".ts", ".tsx", ".js", ".jsx"}
	case "javascript":
		return []string{".js", ".jsx", ".mjs", ".ts", ".tsx"}
	case "python":
		return []string{".py"}
	case "rust":
		return []string{".rs"}
	}
	return nil
}

// IndexFileNames returns the package index file names tried when a module
// path resolves to a directory.
func IndexFileNames(lang string) []string {
	switch lang {
	case "typescript":
		return []string{"index.ts", "index.tsx", "index.js", "index.jsx"}
	case "javascript":
		return []string{"index.js", "index.jsx", "index.mjs", "index.ts"}
	case "python":
		return []string{"__init__.py"}
	case "rust":
		return []string{"mod.rs"}
	}
	return nil
}
