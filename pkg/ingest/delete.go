package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kadirpekel/docuquery/pkg/denseindex"
	"github.com/kadirpekel/docuquery/pkg/embed"
	"github.com/kadirpekel/docuquery/pkg/errs"
	"github.com/kadirpekel/docuquery/pkg/model"
	"github.com/kadirpekel/docuquery/pkg/parse"
	"github.com/kadirpekel/docuquery/pkg/sparseindex"
)

// Delete removes a document and rebuilds the owning scope's index
// directory from scratch from the remaining documents on disk.
// Rebuild is chosen over in-place deletion: the dense index has no
// tombstoning, and a full rebuild keeps every document's chunk indices
// contiguous from 0.
//
// The rebuild (excluding the doomed document) runs and swaps into
// place before the store record is removed: if the rebuild fails, the
// store still lists the document and the old indexes still serve it,
// so the two never disagree about a document that ended up
// half-deleted. A store failure after a successful rebuild leaves the
// document listed but unindexed, which the next successful delete or
// rebuild repairs.
func (m *Manager) Delete(ctx context.Context, docID string) error {
	doc, err := m.Store.GetDocument(ctx, docID)
	if err != nil {
		return errs.NewValidationError("ingest", "delete", "unknown document id "+docID, err)
	}

	err = m.withWriteLock(doc.SessionID, func() error {
		if err := m.rebuild(ctx, doc.SessionID, docID); err != nil {
			return err
		}
		if _, err := m.Store.DeleteDocument(ctx, docID); err != nil {
			return fmt.Errorf("ingest: delete document record: %w", err)
		}
		rawPath := filepath.Join(m.Paths.DocsDir(doc.SessionID), docID+".pdf")
		if err := os.Remove(rawPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("ingest: failed to remove raw file after delete", "path", rawPath, "error", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if doc.SessionID != nil {
		m.Cache.Invalidate(*doc.SessionID)
	}
	return nil
}

// rebuild re-parses, re-chunks, and re-embeds every document in scope
// (a session, or the library) except excludeDocID, building a fresh
// dense (and, for a session, sparse) index in a staging directory,
// then swaps it into place by rename so a failed rebuild never
// corrupts the index currently in use. excludeDocID is empty when
// nothing is being deleted.
func (m *Manager) rebuild(ctx context.Context, sessionID *string, excludeDocID string) error {
	var docs []model.Document
	var err error
	if sessionID != nil {
		docs, err = m.Store.ListSessionDocuments(ctx, *sessionID)
	} else {
		docs, err = m.Store.ListLibraryDocuments(ctx)
	}
	if err != nil {
		return fmt.Errorf("ingest: rebuild: list documents: %w", err)
	}

	denseFinal := m.Paths.DenseDir(sessionID)
	denseStaging := denseFinal + ".rebuild"
	_ = os.RemoveAll(denseStaging)
	dense, err := denseindex.Open(denseStaging)
	if err != nil {
		return fmt.Errorf("ingest: rebuild: open staging dense index: %w", err)
	}

	var sparse *sparseindex.Index
	var sparseFinal, sparseStaging string
	if sessionID != nil {
		sparseFinal = m.Paths.SparseDir(sessionID)
		sparseStaging = sparseFinal + ".rebuild"
		_ = os.RemoveAll(sparseStaging)
		sparse, err = sparseindex.Open(sparseStaging)
		if err != nil {
			return fmt.Errorf("ingest: rebuild: open staging sparse index: %w", err)
		}
	}

	docsDir := m.Paths.DocsDir(sessionID)
	for _, d := range docs {
		if d.ID == excludeDocID {
			continue
		}
		rawPath := filepath.Join(docsDir, d.ID+".pdf")
		pages, err := parse.PDF(ctx, rawPath, d.Filename)
		if err != nil {
			slog.Warn("ingest: rebuild: skipping unreadable document", "doc_id", d.ID, "error", err)
			continue
		}
		chunks, err := m.chunker.Chunk(pages)
		if err != nil {
			slog.Warn("ingest: rebuild: skipping unchunkable document", "doc_id", d.ID, "error", err)
			continue
		}
		for i := range chunks {
			chunks[i].DocID = d.ID
			chunks[i].Source = d.Source
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors := m.embedder.EmbedBatch(texts, embed.ModeDocument)
		for i, c := range chunks {
			if err := dense.Add(ctx, c, vectors[i]); err != nil {
				return fmt.Errorf("ingest: rebuild: add %s: %w", d.ID, err)
			}
		}
		if sparse != nil {
			if err := sparse.Index(ctx, chunks); err != nil {
				return fmt.Errorf("ingest: rebuild: index %s: %w", d.ID, err)
			}
		}
	}

	if err := dense.Save(); err != nil {
		return fmt.Errorf("ingest: rebuild: save staging dense index: %w", err)
	}
	if sparse != nil {
		if err := sparse.Close(); err != nil {
			return fmt.Errorf("ingest: rebuild: close staging sparse index: %w", err)
		}
	}

	if err := swapDir(denseStaging, denseFinal); err != nil {
		return fmt.Errorf("ingest: rebuild: swap dense index: %w", err)
	}
	if sessionID != nil {
		if err := swapDir(sparseStaging, sparseFinal); err != nil {
			return fmt.Errorf("ingest: rebuild: swap sparse index: %w", err)
		}
	}
	return nil
}

// swapDir atomically replaces final with staging: the old directory is
// removed only after staging is confirmed renameable into place.
func swapDir(staging, final string) error {
	old := final + ".old"
	_ = os.RemoveAll(old)
	if _, err := os.Stat(final); err == nil {
		if err := os.Rename(final, old); err != nil {
			return fmt.Errorf("move current aside: %w", err)
		}
	}
	if err := os.Rename(staging, final); err != nil {
		// Best-effort restore of the previous index.
		_ = os.Rename(old, final)
		return fmt.Errorf("rename staging into place: %w", err)
	}
	_ = os.RemoveAll(old)
	return nil
}
