package store

import (
	"database/sql"
	"fmt"
	"time"
)

// parseFileTimestamp parses the TIMESTAMP-ish string SQLite returns for
// last_indexed once it has passed through COALESCE (which strips the
// column's declared type, so the driver hands back a string instead of
// a time.Time).
func parseFileTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// SymbolCols is the column list used by every symbol scan.
const SymbolCols = `id, file_id, symbol_key, name, kind, is_exported,
	start_line, start_col, end_line, end_col, COALESCE(parent_symbol_key, '')`

func scanSymbol(row interface{ Scan(...any) error }) (*Symbol, error) {
	sym := &Symbol{}
	err := row.Scan(&sym.ID, &sym.FileID, &sym.SymbolKey, &sym.Name, &sym.Kind,
		&sym.IsExported, &sym.StartLine, &sym.StartCol, &sym.EndLine, &sym.EndCol,
		&sym.ParentSymbolKey)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// InsertFile inserts a file record and returns its ID.
func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, last_indexed) VALUES (?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	return res.LastInsertId()
}

// FileByPath returns the file record for path, or nil if not indexed.
func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	var lastIndexed string
	err := s.db.QueryRow(
		"SELECT id, path, language, COALESCE(hash, ''), COALESCE(last_indexed, '1970-01-01') FROM files WHERE path = ?",
		path,
	).Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &lastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	if f.LastIndexed, err = parseFileTimestamp(lastIndexed); err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// FilesByLanguage returns every file of a language.
func (s *Store) FilesByLanguage(lang string) ([]*File, error) {
	rows, err := s.db.Query(
		"SELECT id, path, language, COALESCE(hash, ''), COALESCE(last_indexed, '1970-01-01') FROM files WHERE language = ? ORDER BY path",
		lang,
	)
	if err != nil {
		return nil, fmt.Errorf("files by language: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		var lastIndexed string
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &lastIndexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		if f.LastIndexed, err = parseFileTimestamp(lastIndexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// AllFiles returns every indexed file ordered by path.
func (s *Store) AllFiles() ([]*File, error) {
	rows, err := s.db.Query(
		"SELECT id, path, language, COALESCE(hash, ''), COALESCE(last_indexed, '1970-01-01') FROM files ORDER BY path",
	)
	if err != nil {
		return nil, fmt.Errorf("all files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		var lastIndexed string
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &lastIndexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		if f.LastIndexed, err = parseFileTimestamp(lastIndexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// SymbolsByFile returns every symbol of a file.
func (s *Store) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	rows, err := s.db.Query("SELECT "+SymbolCols+" FROM symbols WHERE file_id = ? ORDER BY start_line, start_col", fileID)
	if err != nil {
		return nil, fmt.Errorf("symbols by file: %w", err)
	}
	defer rows.Close()
	var syms []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		syms = append(syms, sym)
	}
	return syms, rows.Err()
}

// SymbolByKey looks a symbol up by its stable key.
func (s *Store) SymbolByKey(key string) (*Symbol, error) {
	row := s.db.QueryRow("SELECT "+SymbolCols+" FROM symbols WHERE symbol_key = ?", key)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symbol by key: %w", err)
	}
	return sym, nil
}

// SymbolsByName returns symbols matching name, optionally filtered by kind
// (empty kind matches all).
func (s *Store) SymbolsByName(name, kind string) ([]*Symbol, error) {
	q := "SELECT " + SymbolCols + " FROM symbols WHERE name = ?"
	args := []any{name}
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, kind)
	}
	rows, err := s.db.Query(q+" ORDER BY symbol_key", args...)
	if err != nil {
		return nil, fmt.Errorf("symbols by name: %w", err)
	}
	defer rows.Close()
	var syms []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		syms = append(syms, sym)
	}
	return syms, rows.Err()
}

// ReferencesByName returns references matching name across all files.
func (s *Store) ReferencesByName(name string) ([]*Reference, error) {
	rows, err := s.db.Query(
		`SELECT id, file_id, COALESCE(scope_key, ''), name, COALESCE(kind, ''), COALESCE(call_type, ''),
			start_line, start_col, end_line, end_col
		 FROM references_ WHERE name = ? ORDER BY file_id, start_line, start_col`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("references by name: %w", err)
	}
	defer rows.Close()
	var refs []*Reference
	for rows.Next() {
		r := &Reference{}
		if err := rows.Scan(&r.ID, &r.FileID, &r.ScopeKey, &r.Name, &r.Kind, &r.CallType,
			&r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ResolvedReferencesByRef returns the resolutions recorded for a reference.
func (s *Store) ResolvedReferencesByRef(refID int64) ([]*ResolvedReference, error) {
	rows, err := s.db.Query(
		"SELECT id, reference_id, target_symbol_key, confidence, COALESCE(resolution_kind, '') FROM resolved_references WHERE reference_id = ?",
		refID,
	)
	if err != nil {
		return nil, fmt.Errorf("resolved references by ref: %w", err)
	}
	defer rows.Close()
	var out []*ResolvedReference
	for rows.Next() {
		rr := &ResolvedReference{}
		if err := rows.Scan(&rr.ID, &rr.ReferenceID, &rr.TargetSymbolKey, &rr.Confidence, &rr.ResolutionKind); err != nil {
			return nil, fmt.Errorf("scan resolved reference: %w", err)
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ResolvedReferencesByTarget returns every resolution pointing at a symbol.
func (s *Store) ResolvedReferencesByTarget(symbolKey string) ([]*ResolvedReference, error) {
	rows, err := s.db.Query(
		"SELECT id, reference_id, target_symbol_key, confidence, COALESCE(resolution_kind, '') FROM resolved_references WHERE target_symbol_key = ?",
		symbolKey,
	)
	if err != nil {
		return nil, fmt.Errorf("resolved references by target: %w", err)
	}
	defer rows.Close()
	var out []*ResolvedReference
	for rows.Next() {
		rr := &ResolvedReference{}
		if err := rows.Scan(&rr.ID, &rr.ReferenceID, &rr.TargetSymbolKey, &rr.Confidence, &rr.ResolutionKind); err != nil {
			return nil, fmt.Errorf("scan resolved reference: %w", err)
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ReferenceByID returns one reference row.
func (s *Store) ReferenceByID(id int64) (*Reference, error) {
	r := &Reference{}
	err := s.db.QueryRow(
		`SELECT id, file_id, COALESCE(scope_key, ''), name, COALESCE(kind, ''), COALESCE(call_type, ''),
			start_line, start_col, end_line, end_col
		 FROM references_ WHERE id = ?`, id,
	).Scan(&r.ID, &r.FileID, &r.ScopeKey, &r.Name, &r.Kind, &r.CallType,
		&r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reference by id: %w", err)
	}
	return r, nil
}

// CalleesByCaller returns call edges whose caller is the given symbol.
func (s *Store) CalleesByCaller(callerKey string) ([]*CallEdge, error) {
	return s.callEdges("caller_symbol_key", callerKey)
}

// CallersByCallee returns call edges whose callee is the given symbol.
func (s *Store) CallersByCallee(calleeKey string) ([]*CallEdge, error) {
	return s.callEdges("callee_symbol_key", calleeKey)
}

func (s *Store) callEdges(column, key string) ([]*CallEdge, error) {
	rows, err := s.db.Query(
		`SELECT id, COALESCE(file_id, 0), COALESCE(caller_scope_key, ''), COALESCE(caller_symbol_key, ''),
			callee_symbol_key, COALESCE(call_type, ''), line, col
		 FROM call_graph WHERE `+column+` = ? ORDER BY line, col`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("call edges: %w", err)
	}
	defer rows.Close()
	var edges []*CallEdge
	for rows.Next() {
		e := &CallEdge{}
		if err := rows.Scan(&e.ID, &e.FileID, &e.CallerScopeKey, &e.CallerSymbolKey,
			&e.CalleeSymbolKey, &e.CallType, &e.Line, &e.Col); err != nil {
			return nil, fmt.Errorf("scan call edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ImportsByFile returns a file's imports.
func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	rows, err := s.db.Query(
		`SELECT id, file_id, source, COALESCE(imported_name, ''), COALESCE(local_alias, ''), kind, is_reexport
		 FROM imports WHERE file_id = ? ORDER BY id`,
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()
	var imports []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Source, &imp.ImportedName,
			&imp.LocalAlias, &imp.Kind, &imp.IsReexport); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// AllReachability returns the persisted indirect-reachability entries.
func (s *Store) AllReachability() ([]*Reachability, error) {
	rows, err := s.db.Query(
		`SELECT id, symbol_key, reason, COALESCE(collection_symbol_key, ''), COALESCE(read_file, ''), read_line, read_col
		 FROM reachability ORDER BY symbol_key, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("all reachability: %w", err)
	}
	defer rows.Close()
	var out []*Reachability
	for rows.Next() {
		r := &Reachability{}
		if err := rows.Scan(&r.ID, &r.SymbolKey, &r.Reason, &r.CollectionSymbolKey,
			&r.ReadFile, &r.ReadLine, &r.ReadCol); err != nil {
			return nil, fmt.Errorf("scan reachability: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetMetadata returns the stored value for key, or "".
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return value, nil
}

// SetMetadata stores a key/value pair, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}
