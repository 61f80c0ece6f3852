// Package model holds the data types shared across the retrieval and
// ingestion pipeline: Chunk, the unit of retrieval, and Document, the
// metadata record for an ingested PDF.
package model

import "strconv"

// Source identifies where a chunk or document originated.
type Source string

const (
	// SourceSession marks a chunk/document as owned by a single session.
	SourceSession Source = "session"
	// SourceLibrary marks a chunk/document as shared across sessions.
	SourceLibrary Source = "library"
)

// Chunk is the central retrieval unit: a bounded, overlapping slice of a
// document's text, annotated with scores once it passes through
// retrieval and reranking.
//
// Within one document, ChunkIdx values are unique and contiguous starting
// at 0; (DocID, ChunkIdx) is globally unique and is the deduplication key
// across retrieval sources. Page is non-decreasing in ChunkIdx order
// within a document.
type Chunk struct {
	Text     string `json:"text"`
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
	Page     int    `json:"page"`
	ChunkIdx int    `json:"chunk_idx"`
	Source   Source `json:"source"`

	// Transient, populated by retrieval/reranking. Never persisted.
	Score       float32 `json:"-"`
	BM25Score   float32 `json:"-"`
	RerankScore float32 `json:"-"`
}

// Key returns the deduplication key used by retrieval fusion.
func (c Chunk) Key() string {
	return c.DocID + "#" + strconv.Itoa(c.ChunkIdx)
}
