package sem

import (
	"fmt"
	"strings"
)

// ScopeID identifies a lexical scope: "<kind>@<locationKey>". The location
// key embeds the file path, which is what makes per-file cache invalidation
// and registry teardown possible without a side table.
type ScopeID string

// NewScopeID encodes a scope identifier from its kind and extent.
func NewScopeID(kind string, loc Location) ScopeID {
	return ScopeID(kind + "@" + loc.Key())
}

// Parse splits the ScopeID back into kind and location. Scope kinds never
// contain '@', so the first separator is authoritative.
func (id ScopeID) Parse() (kind string, loc Location, err error) {
	s := string(id)
	i := strings.Index(s, "@")
	if i < 0 {
		return "", Location{}, fmt.Errorf("sem: malformed scope id %q", s)
	}
	loc, err = ParseLocationKey(s[i+1:])
	if err != nil {
		return "", Location{}, err
	}
	return s[:i], loc, nil
}

// File returns the file path component, or "" if the id does not decode.
func (id ScopeID) File() string {
	_, loc, err := id.Parse()
	if err != nil {
		return ""
	}
	return loc.File
}

// SymbolID identifies a definition: "<kind>#<name>#<locationKey>". The
// defining file is carried inside the location key. Symbol names are
// identifiers and never contain '#', so parsing from the left is unambiguous.
type SymbolID string

// NewSymbolID encodes a symbol identifier.
func NewSymbolID(kind, name string, loc Location) SymbolID {
	return SymbolID(kind + "#" + name + "#" + loc.Key())
}

// BuiltinSymbol returns the synthetic id for a builtin primitive type.
// Builtin ids carry no location and do not back member lookup.
func BuiltinSymbol(name string) SymbolID {
	return SymbolID("builtin:" + name)
}

// IsBuiltin reports whether the id names a builtin primitive.
func (id SymbolID) IsBuiltin() bool {
	return strings.HasPrefix(string(id), "builtin:")
}

// Parse splits the SymbolID into kind, name, and location.
func (id SymbolID) Parse() (kind, name string, loc Location, err error) {
	s := string(id)
	i := strings.Index(s, "#")
	if i < 0 {
		return "", "", Location{}, fmt.Errorf("sem: malformed symbol id %q", s)
	}
	j := strings.Index(s[i+1:], "#")
	if j < 0 {
		return "", "", Location{}, fmt.Errorf("sem: malformed symbol id %q", s)
	}
	kind = s[:i]
	name = s[i+1 : i+1+j]
	loc, err = ParseLocationKey(s[i+j+2:])
	if err != nil {
		return "", "", Location{}, err
	}
	return kind, name, loc, nil
}

// Name returns the symbol's name component, or "" if the id does not decode.
// Builtin ids return the builtin name.
func (id SymbolID) Name() string {
	if id.IsBuiltin() {
		return strings.TrimPrefix(string(id), "builtin:")
	}
	_, name, _, err := id.Parse()
	if err != nil {
		return ""
	}
	return name
}

// File returns the defining file, or "" for builtins and malformed ids.
func (id SymbolID) File() string {
	if id.IsBuiltin() {
		return ""
	}
	_, _, loc, err := id.Parse()
	if err != nil {
		return ""
	}
	return loc.File
}

// TypeID identifies a type in the type-member tables:
// "<category>#<name>#<locationKey>". Types live in a separate namespace from
// symbols, though a class's TypeID and SymbolID share name and location.
type TypeID string

// NewTypeID encodes a type identifier.
func NewTypeID(category, name string, loc Location) TypeID {
	return TypeID(category + "#" + name + "#" + loc.Key())
}

// Parse splits the TypeID into category, name, and location.
func (id TypeID) Parse() (category, name string, loc Location, err error) {
	kind, n, loc, err := SymbolID(id).Parse()
	return kind, n, loc, err
}

// Symbol returns the SymbolID that is isomorphic to this TypeID. The owning
// class/interface definition uses the same kind, name, and location.
func (id TypeID) Symbol() SymbolID {
	return SymbolID(id)
}
