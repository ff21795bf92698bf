package extract

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/taproot/internal/sem"
)

// langSpec bundles the per-language query and the node-walking hooks the
// shared builder dispatches to. Queries use the canonical capture vocabulary
// (@category.entity names); walkers handle the statement shapes a single
// query pattern cannot express, such as import clauses.
type langSpec struct {
	query string

	// isExported inspects a definition's name node and reports whether the
	// declaration is exported and whether it is the default export.
	isExported func(b *fileBuilder, nameNode *sitter.Node) (exported, isDefault bool)

	// walkImport handles an import/use statement node.
	walkImport func(b *fileBuilder, stmt *sitter.Node)

	// walkExport handles an export statement node (nil for languages
	// without export statements).
	walkExport func(b *fileBuilder, stmt *sitter.Node)
}

// langSpecs is populated from the per-language files.
var langSpecs = map[string]*langSpec{
	"typescript": &typescriptSpec,
	"javascript": &javascriptSpec,
	"python":     &pythonSpec,
	"rust":       &rustSpec,
}

// File parses src with the language grammar inferred from path and builds
// the file's semantic index. Fatal errors (missing scope names, an
// inconsistent scope tree) abort the whole file.
func File(ctx context.Context, path string, src []byte) (*sem.Index, error) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("extract: unsupported file %s", path)
	}
	return Source(ctx, path, lang, src)
}

// Source is File with the language made explicit.
func Source(ctx context.Context, path, lang string, src []byte) (*sem.Index, error) {
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("extract: unsupported language %q", lang)
	}
	spec, ok := langSpecs[lang]
	if !ok {
		return nil, fmt.Errorf("extract: no extraction spec for %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("extract: parse %s: %w", path, err)
	}
	root := tree.RootNode()

	matches, err := runQuery(spec.query, grammar, root, src, path)
	if err != nil {
		return nil, fmt.Errorf("extract: query %s: %w", path, err)
	}

	b := &fileBuilder{
		file:        path,
		lang:        lang,
		src:         src,
		spec:        spec,
		matches:     matches,
		index:       sem.NewIndex(path, lang),
		definedLocs: map[string]bool{},
		refs:        map[string]*sem.Reference{},
		refRank:     map[string]int{},
		exported:    map[string]bool{},
		implTargets: map[sem.ScopeID]string{},
	}
	if err := b.buildScopes(src); err != nil {
		return nil, err
	}
	b.buildIndex()
	return b.index, nil
}

// fileBuilder turns one file's normalized matches into a semantic index.
type fileBuilder struct {
	file    string
	lang    string
	src     []byte
	spec    *langSpec
	matches []match
	tree    *scopeTree
	index   *sem.Index

	definedLocs map[string]bool
	refs        map[string]*sem.Reference
	refRank     map[string]int
	exported    map[string]bool // names exported via `export { x }` clauses
	defaultName string          // name flagged by `export default <identifier>`
	implTargets map[sem.ScopeID]string
	collections []pendingCollection
}

type pendingCollection struct {
	nameLoc sem.Location
	stored  []string
	spreads []string
}

// scopeNameEntities are definition entities whose text names the scope
// created in the same match. Class-like scopes require the name.
var scopeNameEntities = map[string]bool{
	"function":    true,
	"class":       true,
	"interface":   true,
	"enum":        true,
	"namespace":   true,
	"method":      true,
	"constructor": true,
}

var namedScopeKinds = map[string]bool{
	"class":     true,
	"interface": true,
	"enum":      true,
	"namespace": true,
}

// buildScopes runs the first pass: collect scope-creating captures, pair
// them with their sibling name captures, and build the scope tree.
func (b *fileBuilder) buildScopes(src []byte) error {
	lastLine := bytes.Count(src, []byte{'\n'}) + 1
	lastCol := len(src) - (bytes.LastIndexByte(src, '\n') + 1)
	b.tree = newScopeTree(b.file, lastLine, lastCol)

	var candidates []scopeCandidate
	for _, m := range b.matches {
		for _, c := range m.captures() {
			kind, ok := scopeKindFor(c)
			if !ok || c.Category != "scope" {
				continue
			}
			cand := scopeCandidate{kind: kind, loc: c.Location}
			if name, entity, ok := m.definitionName(); ok && scopeNameEntities[entity] {
				cand.name = name
				cand.needName = namedScopeKinds[entity]
				if entity == "method" && name == "constructor" {
					cand.kind = sem.ScopeConstructor
				}
			}
			candidates = append(candidates, cand)
		}
	}
	if err := b.tree.build(candidates); err != nil {
		return err
	}
	b.index.Root = b.tree.root
	b.index.Scopes = b.tree.scopes
	return nil
}

// buildIndex runs the second pass over the matches, then finalizes members,
// exports, collections, and references.
func (b *fileBuilder) buildIndex() {
	for _, m := range b.matches {
		b.processMatch(m)
	}
	b.finalizeMembers()
	b.finalizeCollections()
	b.finalizeReferences()
}

func (b *fileBuilder) processMatch(m match) {
	// Statement walkers first: their inner identifiers must not leak into
	// the reference stream.
	if c, ok := m.first("import.statement"); ok {
		b.spec.walkImport(b, c.Node)
		b.claimSubtree(c.Node)
		return
	}
	if c, ok := m.first("export.statement"); ok && b.spec.walkExport != nil {
		b.spec.walkExport(b, c.Node)
		return
	}

	for name, caps := range m {
		for _, c := range caps {
			switch {
			case strings.HasPrefix(name, "definition."):
				b.addDefinition(m, c)
			case strings.HasPrefix(name, "reference."):
				b.addReference(m, c)
			}
		}
	}

	if nameCap, ok := m.first("binding.name"); ok {
		if typeCap, ok := m.first("binding.type"); ok {
			b.index.TypeBindings[nameCap.Location.Key()] = cleanTypeText(typeCap.Text)
		}
		if ctorCap, ok := m.first("binding.ctor"); ok {
			b.index.TypeBindings[nameCap.Location.Key()] = cleanTypeText(ctorCap.Text)
		}
	}

	if nameCap, ok := m.first("collection.name"); ok {
		if valCap, ok := m.first("collection.value"); ok {
			b.addCollection(nameCap, valCap)
		}
	}

	if implCap, ok := m.first("impl.type"); ok {
		if scopeCap, ok := m.scopeCapture(); ok {
			kind, _ := scopeKindFor(scopeCap)
			b.implTargets[sem.NewScopeID(kind, scopeCap.Location)] = implCap.Text
		}
	}
}

// definitionEntityKind maps definition capture entities to definition kinds.
var definitionEntityKind = map[string]string{
	"function":    sem.KindFunction,
	"variable":    sem.KindVariable,
	"class":       sem.KindClass,
	"interface":   sem.KindInterface,
	"enum":        sem.KindEnum,
	"namespace":   sem.KindNamespace,
	"type_alias":  sem.KindTypeAlias,
	"parameter":   sem.KindParameter,
	"method":      sem.KindMethod,
	"property":    sem.KindProperty,
	"field":       sem.KindField,
	"enum_member": sem.KindEnumMember,
}

func (b *fileBuilder) addDefinition(m match, c CaptureNode) {
	kind, ok := definitionEntityKind[c.Entity]
	if !ok || c.Text == "" {
		return
	}

	def := &sem.Definition{
		Name:     c.Text,
		Kind:     kind,
		Location: c.Location,
	}

	// A definition that owns a scope in the same match binds its name in
	// that scope's parent; everything else binds where the name appears.
	if scopeCap, ok := m.scopeCapture(); ok {
		scopeKind, _ := scopeKindFor(scopeCap)
		if c.Entity == "method" && c.Text == "constructor" {
			scopeKind = sem.ScopeConstructor
		}
		ownID := sem.NewScopeID(scopeKind, scopeCap.Location)
		if own, found := b.tree.scopes[ownID]; found {
			def.DefiningScope = own.ParentID
		}
	}
	if def.DefiningScope == "" {
		def.DefiningScope = b.tree.at(c.Location.StartLine, c.Location.StartCol)
	}

	for _, ext := range m.all("class.extends") {
		if ext.Text != "" {
			def.Extends = append(def.Extends, ext.Text)
		}
	}
	if ret, ok := m.first("binding.return"); ok {
		def.ReturnType = cleanTypeText(ret.Text)
		b.index.TypeBindings[c.Location.Key()] = def.ReturnType
	}
	if kind == sem.KindFunction || kind == sem.KindMethod {
		def.Parameters = parameterNames(c.Node, b.src)
	}

	exported, isDefault := b.spec.isExported(b, c.Node)
	def.IsExported = exported
	def.IsDefault = isDefault

	def.SymbolID = sem.NewSymbolID(kind, def.Name, def.Location)
	b.definedLocs[c.Location.Key()] = true

	// Several patterns may capture the same declaration (e.g. a class with
	// and without its heritage clause); merge instead of clobbering.
	if prior, ok := b.index.Definitions[def.SymbolID]; ok {
		for _, base := range def.Extends {
			dup := false
			for _, have := range prior.Extends {
				if have == base {
					dup = true
					break
				}
			}
			if !dup {
				prior.Extends = append(prior.Extends, base)
			}
		}
		if prior.ReturnType == "" {
			prior.ReturnType = def.ReturnType
		}
		if len(prior.Parameters) == 0 {
			prior.Parameters = def.Parameters
		}
		prior.IsExported = prior.IsExported || def.IsExported
		prior.IsDefault = prior.IsDefault || def.IsDefault
		return
	}
	b.index.AddDefinition(def)
}

// refRanks order reference captures so that the most specific capture wins
// when several patterns hit the same identifier.
var refRanks = map[string]int{
	sem.RefRead:         1,
	sem.RefReturn:       2,
	sem.RefAssignment:   2,
	sem.RefType:         3,
	sem.RefMemberAccess: 3,
	sem.RefCall:         4,
	sem.RefConstruct:    4,
}

func (b *fileBuilder) addReference(m match, c CaptureNode) {
	if c.Text == "" {
		return
	}
	var ref *sem.Reference
	switch c.Entity {
	case "call":
		ref = &sem.Reference{Name: c.Text, Type: sem.RefCall, CallType: sem.CallFunction}
	case "construct":
		ref = &sem.Reference{Name: c.Text, Type: sem.RefConstruct, CallType: sem.CallConstructor}
		if nameCap, ok := m.first("binding.name"); ok {
			loc := nameCap.Location
			ref.Context = &sem.RefContext{ConstructTarget: &loc}
		}
	case "method":
		ref = &sem.Reference{Name: c.Text, Type: sem.RefCall, CallType: sem.CallMethod}
		b.attachReceiver(m, ref)
	case "member":
		ref = &sem.Reference{Name: c.Text, Type: sem.RefMemberAccess, AccessType: "read"}
		b.attachReceiver(m, ref)
	case "type":
		ref = &sem.Reference{Name: c.Text, Type: sem.RefType}
	case "assignment":
		ref = &sem.Reference{Name: c.Text, Type: sem.RefAssignment, AccessType: "write"}
	case "return":
		ref = &sem.Reference{Name: c.Text, Type: sem.RefReturn, AccessType: "read"}
	case "read", "variable":
		ref = &sem.Reference{Name: c.Text, Type: sem.RefRead, AccessType: "read"}
	default:
		return
	}
	ref.Location = c.Location
	ref.ScopeID = b.tree.at(c.Location.StartLine, c.Location.StartCol)
	if isOptionalChain(c.Node) {
		ref.IsOptionalChain = true
	}

	key := c.Location.Key()
	rank, seen := b.refRank[key]
	switch {
	case !seen || refRanks[ref.Type] > rank:
		b.refs[key] = ref
		b.refRank[key] = refRanks[ref.Type]
	case refRanks[ref.Type] == rank && b.refs[key].Context == nil && ref.Context != nil:
		// Same pattern strength, but this capture carries context.
		b.refs[key] = ref
	}
}

// attachReceiver copies the reference.receiver capture of the match into the
// reference context. A `super` receiver switches the call type.
func (b *fileBuilder) attachReceiver(m match, ref *sem.Reference) {
	recv, ok := m.first("reference.receiver")
	if !ok {
		return
	}
	loc := recv.Location
	ctx := &sem.RefContext{ReceiverLocation: &loc}
	switch recv.Node.Type() {
	case "identifier", "this", "self":
		ctx.ReceiverName = recv.Text
	case "super":
		ref.CallType = sem.CallSuper
	}
	ref.Context = ctx
}

// addCollection walks an array/object/dict literal and records identifier
// entries and spreads for later resolution.
func (b *fileBuilder) addCollection(nameCap, valCap CaptureNode) {
	pc := pendingCollection{nameLoc: nameCap.Location}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "identifier":
				pc.stored = append(pc.stored, child.Content(b.src))
			case "spread_element", "dictionary_splat", "list_splat":
				for j := 0; j < int(child.NamedChildCount()); j++ {
					if sub := child.NamedChild(j); sub.Type() == "identifier" {
						pc.spreads = append(pc.spreads, sub.Content(b.src))
					}
				}
			case "pair", "shorthand_property_identifier":
				if child.Type() == "shorthand_property_identifier" {
					pc.stored = append(pc.stored, child.Content(b.src))
					continue
				}
				if v := child.ChildByFieldName("value"); v != nil && v.Type() == "identifier" {
					pc.stored = append(pc.stored, v.Content(b.src))
				}
			}
		}
	}
	walk(valCap.Node)
	if len(pc.stored) > 0 || len(pc.spreads) > 0 {
		b.collections = append(b.collections, pc)
	}
}

// finalizeMembers resolves member ownership: class-like scopes map to their
// owning definitions (or impl targets), members get parent symbols and kind
// fixups, and the type member tables are filled.
func (b *fileBuilder) finalizeMembers() {
	owners := map[sem.ScopeID]*sem.Definition{}
	defsByName := map[string]*sem.Definition{}
	for _, d := range b.index.Definitions {
		defsByName[d.Kind+"\x00"+d.Name] = d
	}
	typeKinds := []string{sem.KindClass, sem.KindInterface, sem.KindEnum}

	for id, s := range b.index.Scopes {
		if s.Kind != sem.ScopeClass {
			continue
		}
		if target, ok := b.implTargets[id]; ok {
			for _, k := range typeKinds {
				if d, found := defsByName[k+"\x00"+target]; found {
					owners[id] = d
					break
				}
			}
			continue
		}
		if s.Name == "" {
			continue
		}
		for _, k := range typeKinds {
			if d, found := defsByName[k+"\x00"+s.Name]; found && s.Location.StrictlyContains(d.Location) {
				owners[id] = d
				break
			}
		}
	}

	// A function defined directly in a class scope is a method of that type
	// (Python defs, Rust impl items).
	for _, d := range b.index.Definitions {
		if d.Kind != sem.KindFunction {
			continue
		}
		if s, ok := b.index.Scopes[d.DefiningScope]; ok && s.Kind == sem.ScopeClass {
			d.Kind = sem.KindMethod
			d.SymbolID = sem.NewSymbolID(d.Kind, d.Name, d.Location)
			delete(b.index.Definitions, sem.NewSymbolID(sem.KindFunction, d.Name, d.Location))
			b.index.Definitions[d.SymbolID] = d
		}
	}

	// A type with an extends clause but no members of its own still needs a
	// member-info entry so the inheritance walk can pass through it.
	for _, d := range b.index.Definitions {
		switch d.Kind {
		case sem.KindClass, sem.KindInterface:
		default:
			continue
		}
		if len(d.Extends) == 0 {
			continue
		}
		tid := sem.NewTypeID(d.Kind, d.Name, d.Location)
		if b.index.TypeMembers[tid] == nil {
			b.index.TypeMembers[tid] = &sem.TypeMemberInfo{
				Methods:    map[string]sem.SymbolID{},
				Properties: map[string]sem.SymbolID{},
				Extends:    d.Extends,
			}
		}
	}

	for _, d := range b.index.Definitions {
		switch d.Kind {
		case sem.KindMethod, sem.KindProperty, sem.KindField, sem.KindEnumMember:
		default:
			continue
		}
		owner := b.ownerOf(d, owners)
		if owner == nil {
			continue
		}
		d.ParentSymbolID = owner.SymbolID
		tid := sem.NewTypeID(owner.Kind, owner.Name, owner.Location)
		info := b.index.TypeMembers[tid]
		if info == nil {
			info = &sem.TypeMemberInfo{
				Methods:    map[string]sem.SymbolID{},
				Properties: map[string]sem.SymbolID{},
				Extends:    owner.Extends,
			}
			b.index.TypeMembers[tid] = info
		}
		switch d.Kind {
		case sem.KindMethod:
			if d.Name == "constructor" || d.Name == "__init__" || d.Name == "new" {
				info.Constructor = d.SymbolID
			}
			info.Methods[d.Name] = d.SymbolID
		default:
			info.Properties[d.Name] = d.SymbolID
		}
	}
}

// ownerOf finds the class-like scope a member definition belongs to.
func (b *fileBuilder) ownerOf(d *sem.Definition, owners map[sem.ScopeID]*sem.Definition) *sem.Definition {
	for id := d.DefiningScope; id != ""; {
		if owner, ok := owners[id]; ok {
			return owner
		}
		s, ok := b.index.Scopes[id]
		if !ok {
			return nil
		}
		id = s.ParentID
	}
	return nil
}

// finalizeCollections binds collection entries: names matching a function
// definition in this file become stored functions, everything else is kept
// as a stored reference for scope resolution at read time.
func (b *fileBuilder) finalizeCollections() {
	fnByName := map[string]sem.SymbolID{}
	for _, d := range b.index.Definitions {
		if d.Kind == sem.KindFunction {
			fnByName[d.Name] = d.SymbolID
		}
	}
	for _, pc := range b.collections {
		var owner *sem.Definition
		for _, d := range b.index.Definitions {
			if d.Kind == sem.KindVariable && d.Location == pc.nameLoc {
				owner = d
				break
			}
		}
		if owner == nil {
			continue
		}
		fc := &sem.FunctionCollection{SymbolID: owner.SymbolID}
		for _, name := range pc.stored {
			if id, ok := fnByName[name]; ok {
				fc.Functions = append(fc.Functions, id)
			} else {
				fc.StoredRefs = append(fc.StoredRefs, name)
			}
		}
		fc.StoredRefs = append(fc.StoredRefs, pc.spreads...)
		b.index.Collections[owner.SymbolID] = fc
	}
}

// finalizeReferences applies deferred export clauses, drops references that
// sit on definition sites, and commits the rest in source order.
func (b *fileBuilder) finalizeReferences() {
	if len(b.exported) > 0 || b.defaultName != "" {
		for _, d := range b.index.Definitions {
			if d.DefiningScope != b.index.Root {
				continue
			}
			if b.exported[d.Name] {
				d.IsExported = true
			}
			if d.Name == b.defaultName {
				d.IsExported = true
				d.IsDefault = true
			}
		}
	}

	keys := make([]string, 0, len(b.refs))
	for k := range b.refs {
		if b.definedLocs[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return b.refs[keys[i]].Location.Before(b.refs[keys[j]].Location)
	})
	for _, k := range keys {
		b.index.AddReference(b.refs[k])
	}
}

// claimSubtree marks every identifier under n as definition territory so the
// generic read pattern does not emit references for import clauses.
func (b *fileBuilder) claimSubtree(n *sitter.Node) {
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "identifier" {
			b.definedLocs[nodeLocation(node, b.file).Key()] = true
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			walk(node.NamedChild(i))
		}
	}
	walk(n)
}

// captures flattens a match's capture lists.
func (m match) captures() []CaptureNode {
	var out []CaptureNode
	for _, caps := range m {
		out = append(out, caps...)
	}
	return out
}

// first returns the earliest capture recorded under name.
func (m match) first(name string) (CaptureNode, bool) {
	caps := m[name]
	if len(caps) == 0 {
		return CaptureNode{}, false
	}
	return caps[0], true
}

// all returns every capture recorded under name.
func (m match) all(name string) []CaptureNode {
	return m[name]
}

// scopeCapture returns the match's scope-creating capture, if any.
func (m match) scopeCapture() (CaptureNode, bool) {
	for name, caps := range m {
		if strings.HasPrefix(name, "scope.") && len(caps) > 0 {
			return caps[0], true
		}
	}
	return CaptureNode{}, false
}

// definitionName returns the text and entity of the match's definition
// capture, used to name the scope created in the same match.
func (m match) definitionName() (name, entity string, ok bool) {
	for capName, caps := range m {
		if strings.HasPrefix(capName, "definition.") && len(caps) > 0 {
			return caps[0].Text, caps[0].Entity, true
		}
	}
	return "", "", false
}

// cleanTypeText normalizes a raw annotation: strips the leading ":" of
// annotation nodes and surrounding whitespace.
func cleanTypeText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ":")
	return strings.TrimSpace(s)
}

// parameterNames walks a function node's parameter list for the signature.
func parameterNames(nameNode *sitter.Node, src []byte) []sem.Parameter {
	decl := nameNode.Parent()
	if decl == nil {
		return nil
	}
	params := decl.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []sem.Parameter
	ordinal := 0
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "identifier":
				out = append(out, sem.Parameter{Name: child.Content(src), Ordinal: ordinal})
				ordinal++
			case "required_parameter", "optional_parameter", "typed_parameter",
				"typed_default_parameter", "default_parameter", "parameter":
				name := child.ChildByFieldName("pattern")
				if name == nil {
					name = child.ChildByFieldName("name")
				}
				if name == nil && child.NamedChildCount() > 0 {
					name = child.NamedChild(0)
				}
				p := sem.Parameter{Ordinal: ordinal}
				if name != nil && name.Type() == "identifier" {
					p.Name = name.Content(src)
				}
				if t := child.ChildByFieldName("type"); t != nil {
					p.TypeExpr = cleanTypeText(t.Content(src))
				}
				out = append(out, p)
				ordinal++
			case "self_parameter", "self":
				out = append(out, sem.Parameter{Name: "self", Ordinal: ordinal})
				ordinal++
			}
		}
	}
	walk(params)
	return out
}

// isOptionalChain reports whether the node participates in an optional
// member expression (a?.b).
func isOptionalChain(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	if p.Type() != "member_expression" && p.Type() != "call_expression" {
		return false
	}
	for i := 0; i < int(p.ChildCount()); i++ {
		if p.Child(i).Type() == "optional_chain" {
			return true
		}
	}
	return false
}
