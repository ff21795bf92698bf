package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for taproot's persisted resolution
// snapshot. The in-memory registry stays authoritative during an engine run;
// the store exists so CLI queries and scripts can run without re-indexing.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  symbol_key      TEXT NOT NULL UNIQUE,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  is_exported     BOOLEAN DEFAULT FALSE,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  parent_symbol_key TEXT
);

CREATE TABLE IF NOT EXISTS scopes (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  scope_key       TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  name            TEXT,
  depth           INTEGER,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  parent_scope_key TEXT
);

CREATE TABLE IF NOT EXISTS references_ (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  scope_key       TEXT,
  name            TEXT NOT NULL,
  kind            TEXT,
  call_type       TEXT,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  source          TEXT NOT NULL,
  imported_name   TEXT,
  local_alias     TEXT,
  kind            TEXT DEFAULT 'named',
  is_reexport     BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS resolved_references (
  id              INTEGER PRIMARY KEY,
  reference_id    INTEGER NOT NULL REFERENCES references_(id),
  target_symbol_key TEXT NOT NULL,
  confidence      REAL DEFAULT 1.0,
  resolution_kind TEXT
);

CREATE TABLE IF NOT EXISTS call_graph (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER REFERENCES files(id),
  caller_scope_key TEXT,
  caller_symbol_key TEXT,
  callee_symbol_key TEXT NOT NULL,
  call_type       TEXT,
  line            INTEGER,
  col             INTEGER
);

CREATE TABLE IF NOT EXISTS reexports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  exported_name   TEXT NOT NULL,
  original_name   TEXT,
  source          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reachability (
  id              INTEGER PRIMARY KEY,
  symbol_key      TEXT NOT NULL,
  reason          TEXT NOT NULL,
  collection_symbol_key TEXT,
  read_file       TEXT,
  read_line       INTEGER,
  read_col        INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);
CREATE INDEX IF NOT EXISTS idx_scopes_file ON scopes(file_id);
CREATE INDEX IF NOT EXISTS idx_references_file ON references_(file_id);
CREATE INDEX IF NOT EXISTS idx_references_name ON references_(name);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
CREATE INDEX IF NOT EXISTS idx_imports_source ON imports(source);
CREATE INDEX IF NOT EXISTS idx_resolved_refs_reference ON resolved_references(reference_id);
CREATE INDEX IF NOT EXISTS idx_resolved_refs_target ON resolved_references(target_symbol_key);
CREATE INDEX IF NOT EXISTS idx_call_graph_caller ON call_graph(caller_symbol_key);
CREATE INDEX IF NOT EXISTS idx_call_graph_callee ON call_graph(callee_symbol_key);
CREATE INDEX IF NOT EXISTS idx_reexports_file ON reexports(file_id);
CREATE INDEX IF NOT EXISTS idx_reachability_symbol ON reachability(symbol_key);
`

// DeleteFileData transactionally removes all data for a file. Deletes in
// reverse-dependency order to respect FK constraints.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT id FROM references_ WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("query references: %w", err)
	}
	var refIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan reference id: %w", err)
		}
		refIDs = append(refIDs, id)
	}
	rows.Close()

	if len(refIDs) > 0 {
		placeholders := placeholderList(len(refIDs))
		args := int64sToArgs(refIDs)
		if _, err := tx.Exec("DELETE FROM resolved_references WHERE reference_id IN ("+placeholders+")", args...); err != nil {
			return fmt.Errorf("delete resolved references: %w", err)
		}
	}

	if _, err := tx.Exec(
		"DELETE FROM resolved_references WHERE target_symbol_key IN (SELECT symbol_key FROM symbols WHERE file_id = ?)",
		fileID,
	); err != nil {
		return fmt.Errorf("delete resolved references by target: %w", err)
	}

	if _, err := tx.Exec(
		`DELETE FROM reachability WHERE read_file = (SELECT path FROM files WHERE id = ?)
		 OR symbol_key IN (SELECT symbol_key FROM symbols WHERE file_id = ?)`,
		fileID, fileID,
	); err != nil {
		return fmt.Errorf("delete reachability: %w", err)
	}

	for _, q := range []string{
		"DELETE FROM call_graph WHERE file_id = ?",
		"DELETE FROM reexports WHERE file_id = ?",
		"DELETE FROM references_ WHERE file_id = ?",
		"DELETE FROM imports WHERE file_id = ?",
		"DELETE FROM scopes WHERE file_id = ?",
		"DELETE FROM symbols WHERE file_id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete file data: %w", err)
		}
	}

	return tx.Commit()
}
