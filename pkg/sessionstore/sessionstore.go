// Package sessionstore persists session and document metadata: which
// documents belong to which session (or the shared library), their
// selection flags, and each session's general/rag type transition.
//
// Storage is a pure-Go modernc.org/sqlite database opened with WAL
// journaling, a busy timeout, and a single-writer connection pool.
// Full-text search does not live here (that is pkg/sparseindex's
// concern); this database only holds relational metadata rows.
package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kadirpekel/docuquery/pkg/model"
)

// Store is the metadata store for sessions and documents, backed by a
// single SQLite database under storage root/metadata.db.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the metadata database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sessionstore: create dir: %w", err)
		}
	}

	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sessionstore: pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		session_type TEXT NOT NULL DEFAULT 'general',
		web_mode     INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		session_id  TEXT,
		filename    TEXT NOT NULL,
		source      TEXT NOT NULL,
		page_count  INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		selected    INTEGER NOT NULL DEFAULT 1,
		uploaded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_session ON documents(session_id);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("sessionstore: init schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSession inserts a session row if one doesn't already exist,
// defaulting to session_type=general and web_mode=false.
func (s *Store) EnsureSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, session_type, web_mode) VALUES (?, 'general', 0)`,
		sessionID)
	if err != nil {
		return fmt.Errorf("sessionstore: ensure session %s: %w", sessionID, err)
	}
	return nil
}

// SessionType returns the session's current type, defaulting to
// general if the session has no row yet.
func (s *Store) SessionType(ctx context.Context, sessionID string) (model.SessionType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st string
	err := s.db.QueryRowContext(ctx, `SELECT session_type FROM sessions WHERE id = ?`, sessionID).Scan(&st)
	if err == sql.ErrNoRows {
		return model.SessionGeneral, nil
	}
	if err != nil {
		return "", fmt.Errorf("sessionstore: session type %s: %w", sessionID, err)
	}
	return model.SessionType(st), nil
}

// WebMode returns the session's web_mode flag, defaulting to false.
func (s *Store) WebMode(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT web_mode FROM sessions WHERE id = ?`, sessionID).Scan(&v)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sessionstore: web mode %s: %w", sessionID, err)
	}
	return v != 0, nil
}

// SetWebMode toggles the session's web_mode flag.
func (s *Store) SetWebMode(ctx context.Context, sessionID string, on bool) error {
	if err := s.EnsureSession(ctx, sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET web_mode = ? WHERE id = ?`, boolToInt(on), sessionID)
	if err != nil {
		return fmt.Errorf("sessionstore: set web mode %s: %w", sessionID, err)
	}
	return nil
}

// refreshSessionType recomputes and stores session_type from the
// session's current document count: general -> rag on first document,
// rag -> general once the last one is removed.
func (s *Store) refreshSessionType(ctx context.Context, tx *sql.Tx, sessionID string) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
		return fmt.Errorf("count session documents: %w", err)
	}
	sessionType := model.SessionGeneral
	if count > 0 {
		sessionType = model.SessionRAG
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, session_type, web_mode) VALUES (?, ?, 0)
		 ON CONFLICT(id) DO UPDATE SET session_type = excluded.session_type`,
		sessionID, string(sessionType))
	if err != nil {
		return fmt.Errorf("update session type: %w", err)
	}
	return nil
}

// InsertDocument records a newly ingested document and, for a session
// document, transitions the owning session to rag.
func (s *Store) InsertDocument(ctx context.Context, doc model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sessionstore: begin insert: %w", err)
	}
	defer tx.Rollback()

	var sessionID sql.NullString
	if doc.SessionID != nil {
		sessionID = sql.NullString{String: *doc.SessionID, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, session_id, filename, source, page_count, chunk_count, selected, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, sessionID, doc.Filename, string(doc.Source), doc.PageCount, doc.ChunkCount,
		boolToInt(doc.Selected), doc.UploadedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sessionstore: insert document %s: %w", doc.ID, err)
	}

	if doc.SessionID != nil {
		if err := s.refreshSessionType(ctx, tx, *doc.SessionID); err != nil {
			return fmt.Errorf("sessionstore: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteDocument removes a document record. It returns the document
// that was deleted (so callers know which session to rebuild/invalidate)
// and transitions the owning session's type.
func (s *Store) DeleteDocument(ctx context.Context, docID string) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, fmt.Errorf("sessionstore: begin delete: %w", err)
	}
	defer tx.Rollback()

	doc, err := scanDocument(tx.QueryRowContext(ctx,
		`SELECT id, session_id, filename, source, page_count, chunk_count, selected, uploaded_at
		 FROM documents WHERE id = ?`, docID))
	if err != nil {
		return model.Document{}, fmt.Errorf("sessionstore: document %s not found: %w", docID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID); err != nil {
		return model.Document{}, fmt.Errorf("sessionstore: delete document %s: %w", docID, err)
	}

	if doc.SessionID != nil {
		if err := s.refreshSessionType(ctx, tx, *doc.SessionID); err != nil {
			return model.Document{}, fmt.Errorf("sessionstore: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Document{}, fmt.Errorf("sessionstore: commit delete: %w", err)
	}
	return doc, nil
}

// GetDocument looks up a single document by ID, regardless of which
// session (or the library) owns it.
func (s *Store) GetDocument(ctx context.Context, docID string) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT id, session_id, filename, source, page_count, chunk_count, selected, uploaded_at
		 FROM documents WHERE id = ?`, docID))
	if err != nil {
		return model.Document{}, fmt.Errorf("sessionstore: document %s not found: %w", docID, err)
	}
	return doc, nil
}

// SetSelected toggles a document's selection flag.
func (s *Store) SetSelected(ctx context.Context, docID string, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET selected = ? WHERE id = ?`, boolToInt(selected), docID)
	if err != nil {
		return fmt.Errorf("sessionstore: set selected %s: %w", docID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("sessionstore: document %s not found", docID)
	}
	return nil
}

// ListSessionDocuments returns every document owned by sessionID.
func (s *Store) ListSessionDocuments(ctx context.Context, sessionID string) ([]model.Document, error) {
	return s.queryDocuments(ctx, `SELECT id, session_id, filename, source, page_count, chunk_count, selected, uploaded_at
		FROM documents WHERE session_id = ? ORDER BY uploaded_at ASC`, sessionID)
}

// ListLibraryDocuments returns every library (session_id IS NULL) document.
func (s *Store) ListLibraryDocuments(ctx context.Context) ([]model.Document, error) {
	return s.queryDocuments(ctx, `SELECT id, session_id, filename, source, page_count, chunk_count, selected, uploaded_at
		FROM documents WHERE session_id IS NULL ORDER BY uploaded_at ASC`)
}

// SelectedDocIDs returns the IDs of sessionID's currently selected
// documents, the set pkg/pipeline filters retrieval results against.
func (s *Store) SelectedDocIDs(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM documents WHERE session_id = ? AND selected = 1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: selected docs %s: %w", sessionID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sessionstore: scan selected doc: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: query documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("sessionstore: scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (model.Document, error) {
	var (
		doc        model.Document
		sessionID  sql.NullString
		source     string
		selected   int
		uploadedAt string
	)
	if err := row.Scan(&doc.ID, &sessionID, &doc.Filename, &source, &doc.PageCount, &doc.ChunkCount, &selected, &uploadedAt); err != nil {
		return model.Document{}, err
	}
	if sessionID.Valid {
		v := sessionID.String
		doc.SessionID = &v
	}
	doc.Source = model.Source(source)
	doc.Selected = selected != 0
	t, err := time.Parse(time.RFC3339Nano, uploadedAt)
	if err != nil {
		t = time.Time{}
	}
	doc.UploadedAt = t
	return doc, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
