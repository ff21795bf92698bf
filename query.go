package taproot

import (
	"database/sql"
	"fmt"

	"github.com/jward/taproot/internal/store"
)

// QueryBuilder provides a query API over the persisted Store.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder creates a QueryBuilder from a Store. Used by the CLI for
// query commands that don't need the Engine.
func NewQueryBuilder(s *store.Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// Location represents a source code position range. Lines are 1-based,
// columns 0-based, matching the engine's location model.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// DefinitionAt finds the definition(s) of the symbol referenced at the
// given position: it looks up references covering (file, line, col),
// follows their resolutions, and returns the target symbol locations.
func (q *QueryBuilder) DefinitionAt(file string, line, col int) ([]Location, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("definition at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}

	rows, err := q.store.DB().Query(
		`SELECT id FROM references_
		 WHERE file_id = ?
		   AND (start_line < ? OR (start_line = ? AND start_col <= ?))
		   AND (end_line > ? OR (end_line = ? AND end_col >= ?))`,
		f.ID,
		line, line, col,
		line, line, col,
	)
	if err != nil {
		return nil, fmt.Errorf("definition at: query references: %w", err)
	}
	defer rows.Close()

	var refIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("definition at: scan ref: %w", err)
		}
		refIDs = append(refIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("definition at: rows: %w", err)
	}

	var locations []Location
	for _, refID := range refIDs {
		resolved, err := q.store.ResolvedReferencesByRef(refID)
		if err != nil {
			return nil, fmt.Errorf("definition at: resolve ref %d: %w", refID, err)
		}
		for _, rr := range resolved {
			loc, err := q.symbolLocation(rr.TargetSymbolKey)
			if err != nil {
				return nil, fmt.Errorf("definition at: symbol location: %w", err)
			}
			if loc != nil {
				locations = append(locations, *loc)
			}
		}
	}
	return locations, nil
}

// ReferencesTo finds all source locations that reference the given symbol.
func (q *QueryBuilder) ReferencesTo(symbolKey string) ([]Location, error) {
	resolved, err := q.store.ResolvedReferencesByTarget(symbolKey)
	if err != nil {
		return nil, fmt.Errorf("references to: %w", err)
	}

	var locations []Location
	for _, rr := range resolved {
		loc, err := q.referenceLocation(rr.ReferenceID)
		if err != nil {
			return nil, fmt.Errorf("references to: ref location: %w", err)
		}
		if loc != nil {
			locations = append(locations, *loc)
		}
	}
	return locations, nil
}

// Callers returns call graph edges where the given symbol is the callee.
func (q *QueryBuilder) Callers(symbolKey string) ([]*store.CallEdge, error) {
	return q.store.CallersByCallee(symbolKey)
}

// Callees returns call graph edges where the given symbol is the caller.
func (q *QueryBuilder) Callees(symbolKey string) ([]*store.CallEdge, error) {
	return q.store.CalleesByCaller(symbolKey)
}

// Dependencies returns all imports for the given file.
func (q *QueryBuilder) Dependencies(fileID int64) ([]*store.Import, error) {
	return q.store.ImportsByFile(fileID)
}

// Reachable returns the persisted indirect-reachability entries.
func (q *QueryBuilder) Reachable() ([]*store.Reachability, error) {
	return q.store.AllReachability()
}

// SymbolsNamed returns symbols by name, optionally filtered by kind.
func (q *QueryBuilder) SymbolsNamed(name, kind string) ([]*store.Symbol, error) {
	return q.store.SymbolsByName(name, kind)
}

// symbolLocation resolves a symbol key to its file path and position.
func (q *QueryBuilder) symbolLocation(symbolKey string) (*Location, error) {
	sym, err := q.store.SymbolByKey(symbolKey)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return nil, nil
	}

	var path string
	err = q.store.DB().QueryRow("SELECT path FROM files WHERE id = ?", sym.FileID).Scan(&path)
	if err != nil {
		return nil, err
	}

	return &Location{
		File:      path,
		StartLine: sym.StartLine,
		StartCol:  sym.StartCol,
		EndLine:   sym.EndLine,
		EndCol:    sym.EndCol,
	}, nil
}

// referenceLocation resolves a reference ID to its file path and position.
func (q *QueryBuilder) referenceLocation(referenceID int64) (*Location, error) {
	ref, err := q.store.ReferenceByID(referenceID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, nil
	}

	var path string
	err = q.store.DB().QueryRow("SELECT path FROM files WHERE id = ?", ref.FileID).Scan(&path)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &Location{
		File:      path,
		StartLine: ref.StartLine,
		StartCol:  ref.StartCol,
		EndLine:   ref.EndLine,
		EndCol:    ref.EndCol,
	}, nil
}
