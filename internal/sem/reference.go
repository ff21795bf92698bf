package sem

// Reference types.
const (
	RefRead         = "read"
	RefCall         = "call"
	RefConstruct    = "construct"
	RefMemberAccess = "member_access"
	RefType         = "type"
	RefAssignment   = "assignment"
	RefReturn       = "return"
)

// Call types.
const (
	CallFunction    = "function"
	CallMethod      = "method"
	CallConstructor = "constructor"
	CallSuper       = "super"
)

// RefContext carries the resolution context a reference was captured with.
// The resolver never re-descends into the syntax tree: everything it needs
// about the surrounding expression is attached here at normalization time.
type RefContext struct {
	ReceiverLocation *Location // receiver expression of a method call
	ReceiverName     string    // receiver text when it is a plain identifier
	PropertyChain    []string  // "a.b.c" member chains, outermost first
	AssignmentSource *Location
	AssignmentTarget *Location
	ConstructTarget  *Location // variable a `new X()` result is assigned to
}

// Reference is a single use site of a name.
type Reference struct {
	Location        Location
	ScopeID         ScopeID
	Name            string
	Type            string // one of the Ref* constants
	CallType        string // one of the Call* constants, "" for non-calls
	Context         *RefContext
	IsOptionalChain bool   // a?.b — preserved in output, ignored for targeting
	AccessType      string // "read" | "write" for member/variable accesses
}
