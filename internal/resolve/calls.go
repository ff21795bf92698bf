package resolve

import (
	"github.com/jward/taproot/internal/sem"
)

// maxReceiverDepth bounds recursive receiver resolution (chained calls like
// a().b().c()); real chains are shallow, the bound only guards degenerate
// capture streams.
const maxReceiverDepth = 16

// CallResolver routes call, construct, and member-access references to
// their targets using the scope resolver index and the type context.
type CallResolver struct {
	corpus Corpus
	ri     *Index
	cache  *Cache
	types  *TypeContext
}

// NewCallResolver wires a call resolver for one resolution phase. The type
// context must already be built: phase one (names) fully precedes phase two
// (calls).
func NewCallResolver(c Corpus, ri *Index, cache *Cache, types *TypeContext) *CallResolver {
	return &CallResolver{corpus: c, ri: ri, cache: cache, types: types}
}

// ResolveFiles resolves every call-shaped reference in the given files and
// runs the indirect reachability pass over their reads.
func (r *CallResolver) ResolveFiles(files []string) CallResult {
	result := CallResult{
		CallsByFile:   map[string][]CallReference{},
		CallsByCaller: map[sem.ScopeID][]CallReference{},
		Indirect:      map[sem.SymbolID]IndirectEntry{},
	}
	for _, file := range files {
		ix, ok := r.corpus[file]
		if !ok {
			continue
		}
		var calls []CallReference
		for _, ref := range ix.References {
			switch ref.Type {
			case sem.RefCall, sem.RefConstruct, sem.RefMemberAccess:
			default:
				continue
			}
			target := r.resolveReference(ix, ref, 0)
			cr := CallReference{
				Location:      ref.Location,
				CallerScopeID: ix.EnclosingCallable(ref.ScopeID),
				Name:          ref.Name,
				CallType:      ref.CallType,
			}
			// Unknown targets are recorded unresolved, never propagated
			// as errors.
			if target != "" {
				cr.Resolutions = []Resolution{{SymbolID: target, Confidence: 1.0}}
			}
			calls = append(calls, cr)
		}
		result.CallsByFile[file] = calls
		for _, cr := range calls {
			result.CallsByCaller[cr.CallerScopeID] = append(result.CallsByCaller[cr.CallerScopeID], cr)
		}

		markIndirectReads(r.corpus, r.ri, r.cache, ix, result.Indirect)
	}
	return result
}

// resolveReference dispatches one reference to the matching resolution
// strategy and returns the target symbol, or "" for unresolved.
func (r *CallResolver) resolveReference(ix *sem.Index, ref *sem.Reference, depth int) sem.SymbolID {
	if depth > maxReceiverDepth {
		return ""
	}
	switch ref.CallType {
	case sem.CallMethod:
		return r.resolveMethodCall(ix, ref, depth)
	case sem.CallSuper:
		return r.resolveSuperCall(ix, ref)
	case sem.CallConstructor:
		return r.ri.Resolve(ref.ScopeID, ref.Name, r.cache)
	case sem.CallFunction:
		return r.ri.Resolve(ref.ScopeID, ref.Name, r.cache)
	default:
		// Bare member access resolves like a method call without invoking.
		if ref.Type == sem.RefMemberAccess {
			return r.resolveMethodCall(ix, ref, depth)
		}
		return r.ri.Resolve(ref.ScopeID, ref.Name, r.cache)
	}
}

// resolveMethodCall determines the receiver's type and looks the member up
// with the inheritance walk. Namespace-import receivers switch to
// namespace-member resolution.
func (r *CallResolver) resolveMethodCall(ix *sem.Index, ref *sem.Reference, depth int) sem.SymbolID {
	if ref.Context == nil || ref.Context.ReceiverLocation == nil {
		return ""
	}

	// Self receivers bind to the enclosing class/impl type.
	if ref.Context.ReceiverName == "self" || ref.Context.ReceiverName == "this" {
		owner := r.enclosingOwnerType(ix, ref.ScopeID)
		if owner == "" {
			return ""
		}
		return r.types.TypeMember(owner, ref.Name)
	}

	if name := ref.Context.ReceiverName; name != "" {
		recv := r.ri.Resolve(ref.ScopeID, name, r.cache)
		if recv == "" {
			return ""
		}
		if r.ri.IsNamespaceImport(recv) {
			return r.resolveNamespaceMember(recv, ref.Name)
		}
		if def := r.corpus.DefinitionByID(recv); def != nil {
			switch def.Kind {
			case sem.KindClass, sem.KindInterface, sem.KindEnum:
				// Static / associated member access on the type itself.
				return r.types.TypeMember(recv, ref.Name)
			}
		}
		recvType := r.types.SymbolType(recv)
		if recvType == "" {
			return ""
		}
		return r.types.TypeMember(recvType, ref.Name)
	}

	// The receiver is itself a call or member access: resolve it and chase
	// the result type. The receiver extent covers the whole expression while
	// references anchor at their identifiers, so fall back to matching the
	// start position.
	inner := ix.ReferenceAt(*ref.Context.ReceiverLocation)
	if inner == nil {
		inner = referenceAtStart(ix, *ref.Context.ReceiverLocation)
	}
	if inner == nil {
		return ""
	}
	target := r.resolveReference(ix, inner, depth+1)
	if target == "" {
		return ""
	}
	var recvType sem.SymbolID
	if def := r.corpus.DefinitionByID(target); def != nil {
		switch def.Kind {
		case sem.KindClass, sem.KindInterface:
			// Constructor call: the result type is the class itself.
			recvType = target
		default:
			recvType = r.types.SymbolType(target)
		}
	}
	if recvType == "" {
		return ""
	}
	return r.types.TypeMember(recvType, ref.Name)
}

// resolveSuperCall resolves the enclosing class, then looks the member up on
// its first base.
func (r *CallResolver) resolveSuperCall(ix *sem.Index, ref *sem.Reference) sem.SymbolID {
	owner := r.enclosingOwnerType(ix, ref.ScopeID)
	if owner == "" {
		return ""
	}
	bases := r.types.BaseTypes(owner)
	if len(bases) == 0 {
		return ""
	}
	return r.types.TypeMember(bases[0], ref.Name)
}

// resolveNamespaceMember resolves `ns.member` where ns is a namespace
// import: the member is an exported name of the import's target file.
func (r *CallResolver) resolveNamespaceMember(nsImport sem.SymbolID, member string) sem.SymbolID {
	def := r.corpus.DefinitionByID(nsImport)
	if def == nil {
		return ""
	}
	target := ResolveModulePath(r.corpus, def.Location.File, def.ImportPath)
	if target == "" {
		return ""
	}
	return ResolveExportChain(r.corpus, target, member, sem.ImportNamed)
}

// enclosingOwnerType finds the type owning the method whose body encloses
// scopeID: the class scope's named definition, or a method definition's
// parent symbol (which also covers Rust impl blocks, whose class scopes are
// anonymous).
func (r *CallResolver) enclosingOwnerType(ix *sem.Index, scopeID sem.ScopeID) sem.SymbolID {
	for id := scopeID; id != ""; {
		s, ok := ix.Scopes[id]
		if !ok {
			break
		}
		if s.Kind == sem.ScopeClass {
			if owner := classSymbolForScope(ix, s); owner != "" {
				return owner
			}
		}
		if s.IsCallable() && s.Name != "" {
			for _, d := range ix.Definitions {
				if d.Kind == sem.KindMethod && d.Name == s.Name &&
					d.ParentSymbolID != "" && s.Location.Contains(d.Location) {
					return d.ParentSymbolID
				}
			}
		}
		id = s.ParentID
	}
	return ""
}

// referenceAtStart finds a call-shaped reference anchored at the location's
// start point.
func referenceAtStart(ix *sem.Index, loc sem.Location) *sem.Reference {
	for _, r := range ix.References {
		if r.Location.StartLine != loc.StartLine || r.Location.StartCol != loc.StartCol {
			continue
		}
		switch r.Type {
		case sem.RefCall, sem.RefConstruct, sem.RefMemberAccess:
			return r
		}
	}
	return nil
}

// classSymbolForScope matches a named class scope back to its definition.
func classSymbolForScope(ix *sem.Index, s *sem.LexicalScope) sem.SymbolID {
	if s.Name == "" {
		return ""
	}
	for _, d := range ix.Definitions {
		switch d.Kind {
		case sem.KindClass, sem.KindInterface, sem.KindEnum:
			if d.Name == s.Name && s.Location.Contains(d.Location) {
				return d.SymbolID
			}
		}
	}
	return ""
}
