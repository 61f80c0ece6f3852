package ingest

import "path/filepath"

// Paths resolves the on-disk layout, rooted at a single storage
// directory:
//
//	sessions/<session_id>/docs/<doc_id>.pdf
//	sessions/<session_id>/index/dense/      (DenseIndex's own directory)
//	sessions/<session_id>/index/sparse/     (SparseIndex's own directory)
//	library/docs/<doc_id>.pdf
//	library/index/dense/                    (no sparse index for the library)
type Paths struct {
	Root string
}

func (p Paths) sessionDir(id string) string {
	return filepath.Join(p.Root, "sessions", id)
}

// DocsDir returns the raw-PDF directory for a session (sessionID != nil)
// or the shared library (sessionID == nil).
func (p Paths) DocsDir(sessionID *string) string {
	if sessionID == nil {
		return filepath.Join(p.Root, "library", "docs")
	}
	return filepath.Join(p.sessionDir(*sessionID), "docs")
}

// DenseDir returns the DenseIndex directory for a session or the library.
func (p Paths) DenseDir(sessionID *string) string {
	if sessionID == nil {
		return filepath.Join(p.Root, "library", "index", "dense")
	}
	return filepath.Join(p.sessionDir(*sessionID), "index", "dense")
}

// SparseDir returns the SparseIndex directory for a session. The
// library carries no sparse index; library retrieval is dense-only.
func (p Paths) SparseDir(sessionID *string) string {
	if sessionID == nil {
		return ""
	}
	return filepath.Join(p.sessionDir(*sessionID), "index", "sparse")
}

// LockFile returns the path to the cross-process write lock guarding
// a session's (or the library's) index directory.
func (p Paths) LockFile(sessionID *string) string {
	if sessionID == nil {
		return filepath.Join(p.Root, "library", ".write.lock")
	}
	return filepath.Join(p.sessionDir(*sessionID), ".write.lock")
}

// scopeKey is the in-process RWMutex registry key for a session or the
// library.
func scopeKey(sessionID *string) string {
	if sessionID == nil {
		return "library"
	}
	return "session:" + *sessionID
}
