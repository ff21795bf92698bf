package store

import (
	"database/sql"
	"fmt"
)

// FileBatch buffers one file's extraction and resolution output for a
// single-transaction commit. ResolvedRefs index into References by slice
// position; the commit rewrites those positions to real row IDs, mirroring
// how the parallel pipeline isolates writes per file.
type FileBatch struct {
	FileID       int64
	Symbols      []Symbol
	Scopes       []Scope
	References   []Reference
	Imports      []Import
	Reexports    []Reexport
	CallEdges    []CallEdge
	Reachability []Reachability

	// ResolvedRefs maps a References slice index to its resolutions.
	ResolvedRefs map[int][]ResolvedReference
}

// NewFileBatch returns an empty batch for fileID.
func NewFileBatch(fileID int64) *FileBatch {
	return &FileBatch{
		FileID:       fileID,
		ResolvedRefs: map[int][]ResolvedReference{},
	}
}

// CommitBatch inserts all buffered data in one transaction. Insert order
// respects FK dependencies: symbols and scopes first, then references, then
// everything keyed off them.
func (s *Store) CommitBatch(batch *FileBatch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for i := range batch.Symbols {
		batch.Symbols[i].FileID = batch.FileID
		if err := insertSymbolTx(tx, &batch.Symbols[i]); err != nil {
			return fmt.Errorf("commit batch: symbol %q: %w", batch.Symbols[i].Name, err)
		}
	}
	for i := range batch.Scopes {
		batch.Scopes[i].FileID = batch.FileID
		if err := insertScopeTx(tx, &batch.Scopes[i]); err != nil {
			return fmt.Errorf("commit batch: scope %q: %w", batch.Scopes[i].ScopeKey, err)
		}
	}

	refIDs := make([]int64, len(batch.References))
	for i := range batch.References {
		batch.References[i].FileID = batch.FileID
		id, err := insertReferenceTx(tx, &batch.References[i])
		if err != nil {
			return fmt.Errorf("commit batch: reference %q: %w", batch.References[i].Name, err)
		}
		refIDs[i] = id
	}
	for idx, resolutions := range batch.ResolvedRefs {
		if idx < 0 || idx >= len(refIDs) {
			continue
		}
		for i := range resolutions {
			resolutions[i].ReferenceID = refIDs[idx]
			if err := insertResolvedRefTx(tx, &resolutions[i]); err != nil {
				return fmt.Errorf("commit batch: resolved reference: %w", err)
			}
		}
	}

	for i := range batch.Imports {
		batch.Imports[i].FileID = batch.FileID
		if err := insertImportTx(tx, &batch.Imports[i]); err != nil {
			return fmt.Errorf("commit batch: import %q: %w", batch.Imports[i].Source, err)
		}
	}
	for i := range batch.Reexports {
		batch.Reexports[i].FileID = batch.FileID
		if err := insertReexportTx(tx, &batch.Reexports[i]); err != nil {
			return fmt.Errorf("commit batch: reexport %q: %w", batch.Reexports[i].ExportedName, err)
		}
	}
	for i := range batch.CallEdges {
		batch.CallEdges[i].FileID = batch.FileID
		if err := insertCallEdgeTx(tx, &batch.CallEdges[i]); err != nil {
			return fmt.Errorf("commit batch: call edge: %w", err)
		}
	}
	for i := range batch.Reachability {
		if err := insertReachabilityTx(tx, &batch.Reachability[i]); err != nil {
			return fmt.Errorf("commit batch: reachability: %w", err)
		}
	}

	return tx.Commit()
}

func insertSymbolTx(tx *sql.Tx, sym *Symbol) error {
	_, err := tx.Exec(
		`INSERT INTO symbols (file_id, symbol_key, name, kind, is_exported,
			start_line, start_col, end_line, end_col, parent_symbol_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.SymbolKey, sym.Name, sym.Kind, sym.IsExported,
		sym.StartLine, sym.StartCol, sym.EndLine, sym.EndCol, nullable(sym.ParentSymbolKey),
	)
	return err
}

func insertScopeTx(tx *sql.Tx, scope *Scope) error {
	_, err := tx.Exec(
		`INSERT INTO scopes (file_id, scope_key, kind, name, depth,
			start_line, start_col, end_line, end_col, parent_scope_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scope.FileID, scope.ScopeKey, scope.Kind, scope.Name, scope.Depth,
		scope.StartLine, scope.StartCol, scope.EndLine, scope.EndCol, nullable(scope.ParentScopeKey),
	)
	return err
}

func insertReferenceTx(tx *sql.Tx, ref *Reference) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO references_ (file_id, scope_key, name, kind, call_type,
			start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.FileID, ref.ScopeKey, ref.Name, ref.Kind, ref.CallType,
		ref.StartLine, ref.StartCol, ref.EndLine, ref.EndCol,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertResolvedRefTx(tx *sql.Tx, rr *ResolvedReference) error {
	_, err := tx.Exec(
		`INSERT INTO resolved_references (reference_id, target_symbol_key, confidence, resolution_kind)
		 VALUES (?, ?, ?, ?)`,
		rr.ReferenceID, rr.TargetSymbolKey, rr.Confidence, rr.ResolutionKind,
	)
	return err
}

func insertImportTx(tx *sql.Tx, imp *Import) error {
	_, err := tx.Exec(
		`INSERT INTO imports (file_id, source, imported_name, local_alias, kind, is_reexport)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		imp.FileID, imp.Source, imp.ImportedName, imp.LocalAlias, imp.Kind, imp.IsReexport,
	)
	return err
}

func insertReexportTx(tx *sql.Tx, rx *Reexport) error {
	_, err := tx.Exec(
		`INSERT INTO reexports (file_id, exported_name, original_name, source)
		 VALUES (?, ?, ?, ?)`,
		rx.FileID, rx.ExportedName, rx.OriginalName, rx.Source,
	)
	return err
}

func insertCallEdgeTx(tx *sql.Tx, e *CallEdge) error {
	_, err := tx.Exec(
		`INSERT INTO call_graph (file_id, caller_scope_key, caller_symbol_key, callee_symbol_key, call_type, line, col)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.FileID, e.CallerScopeKey, nullable(e.CallerSymbolKey), e.CalleeSymbolKey, e.CallType, e.Line, e.Col,
	)
	return err
}

func insertReachabilityTx(tx *sql.Tx, r *Reachability) error {
	_, err := tx.Exec(
		`INSERT INTO reachability (symbol_key, reason, collection_symbol_key, read_file, read_line, read_col)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.SymbolKey, r.Reason, nullable(r.CollectionSymbolKey), r.ReadFile, r.ReadLine, r.ReadCol,
	)
	return err
}

// nullable maps "" to SQL NULL for optional key columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
