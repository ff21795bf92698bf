package store

import "time"

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LastIndexed time.Time
}

type Symbol struct {
	ID              int64
	FileID          int64
	SymbolKey       string
	Name            string
	Kind            string
	IsExported      bool
	StartLine       int
	StartCol        int
	EndLine         int
	EndCol          int
	ParentSymbolKey string
}

type Scope struct {
	ID             int64
	FileID         int64
	ScopeKey       string
	Kind           string
	Name           string
	Depth          int
	StartLine      int
	StartCol       int
	EndLine        int
	EndCol         int
	ParentScopeKey string
}

type Reference struct {
	ID        int64
	FileID    int64
	ScopeKey  string
	Name      string
	Kind      string
	CallType  string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

type Import struct {
	ID           int64
	FileID       int64
	Source       string
	ImportedName string
	LocalAlias   string
	Kind         string
	IsReexport   bool
}

type ResolvedReference struct {
	ID              int64
	ReferenceID     int64
	TargetSymbolKey string
	Confidence      float64
	ResolutionKind  string
}

type CallEdge struct {
	ID              int64
	FileID          int64
	CallerScopeKey  string
	CallerSymbolKey string
	CalleeSymbolKey string
	CallType        string
	Line            int
	Col             int
}

type Reexport struct {
	ID           int64
	FileID       int64
	ExportedName string
	OriginalName string
	Source       string
}

type Reachability struct {
	ID                  int64
	SymbolKey           string
	Reason              string
	CollectionSymbolKey string
	ReadFile            string
	ReadLine            int
	ReadCol             int
}
