package resolve

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/jward/taproot/internal/extract"
)

// ResolveModulePath maps an import source (./util, ../a/b, app.services.auth,
// crate::utils) to a corpus file path, or "" when the module lives outside
// the corpus (external packages, stdlib). The rule family is selected by the
// importing file's language.
func ResolveModulePath(c Corpus, importingFile, source string) string {
	ix, ok := c[importingFile]
	if !ok {
		return ""
	}
	switch ix.Language {
	case "typescript", "javascript":
		return resolveRelativePath(c, importingFile, source, ix.Language)
	case "python":
		return resolvePythonPath(c, importingFile, source)
	case "rust":
		return resolveRustPath(c, importingFile, source)
	}
	return ""
}

// resolveRelativePath handles the ECMAScript rules: relative sources get the
// extension list tried in order, then the directory index files. Bare
// specifiers are external packages.
func resolveRelativePath(c Corpus, importingFile, source, lang string) string {
	if !strings.HasPrefix(source, "./") && !strings.HasPrefix(source, "../") &&
		source != "." && source != ".." && !strings.HasPrefix(source, "/") {
		return ""
	}
	base := path.Dir(toSlash(importingFile))
	target := path.Clean(path.Join(base, source))
	return tryCandidates(c, target, lang)
}

// resolvePythonPath handles dotted module paths. Leading dots consume parent
// directory levels from the importing file; absolute paths are tried against
// the importing file's directory and each of its ancestors, which covers
// package roots without a configured search path.
func resolvePythonPath(c Corpus, importingFile, source string) string {
	base := path.Dir(toSlash(importingFile))

	dots := 0
	for dots < len(source) && source[dots] == '.' {
		dots++
	}
	rest := source[dots:]
	var parts []string
	if rest != "" {
		parts = strings.Split(rest, ".")
	}

	if dots > 0 {
		dir := base
		for i := 1; i < dots; i++ {
			dir = path.Dir(dir)
		}
		target := path.Join(append([]string{dir}, parts...)...)
		return tryCandidates(c, target, "python")
	}

	rel := path.Join(parts...)
	for dir := base; ; dir = path.Dir(dir) {
		if found := tryCandidates(c, path.Join(dir, rel), "python"); found != "" {
			return found
		}
		if dir == "." || dir == "/" || dir == path.Dir(dir) {
			break
		}
	}
	return tryCandidates(c, rel, "python")
}

// resolveRustPath handles crate/self/super module paths against the corpus.
// crate:: is approximated by walking the importing file's ancestor
// directories, which finds the crate root without reading a manifest.
func resolveRustPath(c Corpus, importingFile, source string) string {
	base := path.Dir(toSlash(importingFile))
	segs := strings.Split(source, "::")

	switch segs[0] {
	case "self":
		segs = segs[1:]
	case "super":
		for len(segs) > 0 && segs[0] == "super" {
			base = path.Dir(base)
			segs = segs[1:]
		}
	case "crate":
		segs = segs[1:]
		rel := path.Join(segs...)
		for dir := base; ; dir = path.Dir(dir) {
			if found := tryCandidates(c, path.Join(dir, rel), "rust"); found != "" {
				return found
			}
			if dir == "." || dir == "/" || dir == path.Dir(dir) {
				break
			}
		}
		return ""
	}

	return tryCandidates(c, path.Join(append([]string{base}, segs...)...), "rust")
}

// tryCandidates probes the corpus for target: as-is, with each source
// extension, then as a directory with its package index files.
func tryCandidates(c Corpus, target, lang string) string {
	if found := corpusLookup(c, target); found != "" {
		return found
	}
	for _, ext := range extract.SourceExtensions(lang) {
		if found := corpusLookup(c, target+ext); found != "" {
			return found
		}
	}
	for _, index := range extract.IndexFileNames(lang) {
		if found := corpusLookup(c, path.Join(target, index)); found != "" {
			return found
		}
	}
	return ""
}

// corpusLookup matches a candidate against corpus keys, tolerating OS path
// separators in the indexed paths.
func corpusLookup(c Corpus, candidate string) string {
	if _, ok := c[candidate]; ok {
		return candidate
	}
	clean := path.Clean(candidate)
	if _, ok := c[clean]; ok {
		return clean
	}
	for f := range c {
		if toSlash(f) == clean {
			return f
		}
	}
	return ""
}

func toSlash(p string) string {
	return filepath.ToSlash(p)
}
