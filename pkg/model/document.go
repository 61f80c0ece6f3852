package model

import "time"

// SessionType tracks whether a session currently owns any ingested
// documents. Sessions start general and flip to rag on first ingest;
// they flip back to general once their last document is removed.
type SessionType string

const (
	SessionGeneral SessionType = "general"
	SessionRAG     SessionType = "rag"
)

// Document is the metadata record for one ingested PDF. A nil SessionID
// means the document belongs to the shared library rather than to a
// single session.
type Document struct {
	ID         string    `json:"id"`
	SessionID  *string   `json:"session_id,omitempty"`
	Filename   string    `json:"filename"`
	Source     Source    `json:"source"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
	Selected   bool      `json:"selected"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// IsLibrary reports whether this document belongs to the shared library.
func (d Document) IsLibrary() bool {
	return d.SessionID == nil
}
