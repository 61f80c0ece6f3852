package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/docuquery/pkg/denseindex"
	"github.com/kadirpekel/docuquery/pkg/embed"
	"github.com/kadirpekel/docuquery/pkg/errs"
	"github.com/kadirpekel/docuquery/pkg/model"
	"github.com/kadirpekel/docuquery/pkg/parse"
	"github.com/kadirpekel/docuquery/pkg/sparseindex"
)

// ErrNotPDF is returned when Ingest is asked to ingest a non-PDF file.
var ErrNotPDF = errs.NewValidationError("ingest", "ingest", "only PDF uploads are supported", nil)

// Ingest parses, chunks, embeds, and indexes filePath under filename,
// storing it against sessionID (or the shared library if sessionID is
// nil). It returns the persisted Document record.
func (m *Manager) Ingest(ctx context.Context, sessionID *string, filePath, filename string) (model.Document, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return model.Document{}, ErrNotPDF
	}

	docID := uuid.NewString()
	source := model.SourceLibrary
	if sessionID != nil {
		source = model.SourceSession
	}

	var doc model.Document
	err := m.withWriteLock(sessionID, func() error {
		docsDir := m.Paths.DocsDir(sessionID)
		if err := os.MkdirAll(docsDir, 0o755); err != nil {
			return fmt.Errorf("ingest: create docs dir: %w", err)
		}
		dest := filepath.Join(docsDir, docID+".pdf")
		if err := copyFile(filePath, dest); err != nil {
			return fmt.Errorf("ingest: persist raw file: %w", err)
		}

		pages, err := parse.PDF(ctx, dest, filename)
		if err != nil {
			_ = os.Remove(dest)
			return fmt.Errorf("ingest: parse: %w", err)
		}

		chunks, err := m.chunker.Chunk(pages)
		if err != nil {
			_ = os.Remove(dest)
			return fmt.Errorf("ingest: chunk: %w", err)
		}
		for i := range chunks {
			chunks[i].DocID = docID
			chunks[i].Source = source
		}

		vectors, err := embedChunksConcurrently(chunks, m.embedder)
		if err != nil {
			_ = os.Remove(dest)
			return fmt.Errorf("ingest: embed: %w", err)
		}

		dense, err := denseindex.Open(m.Paths.DenseDir(sessionID))
		if err != nil {
			_ = os.Remove(dest)
			return fmt.Errorf("ingest: open dense index: %w", err)
		}
		for i, c := range chunks {
			if err := dense.Add(ctx, c, vectors[i]); err != nil {
				_ = os.Remove(dest)
				return fmt.Errorf("ingest: add to dense index: %w", err)
			}
		}
		if err := dense.Save(); err != nil {
			// Pre-save failure: the on-disk dense index is untouched, so
			// only the raw file needs cleanup to return to the
			// pre-ingest state.
			_ = os.Remove(dest)
			return fmt.Errorf("ingest: save dense index: %w", err)
		}

		var sparse *sparseindex.Index
		if sessionID != nil {
			sparse, err = sparseindex.Open(m.Paths.SparseDir(sessionID))
			if err != nil {
				rollbackDense(ctx, dense, docID)
				_ = os.Remove(dest)
				return fmt.Errorf("ingest: open sparse index: %w", err)
			}
			defer sparse.Close()
			if err := sparse.Index(ctx, chunks); err != nil {
				rollbackDense(ctx, dense, docID)
				_ = os.Remove(dest)
				return fmt.Errorf("ingest: index sparse: %w", err)
			}
		}

		doc = model.Document{
			ID:         docID,
			SessionID:  sessionID,
			Filename:   filename,
			Source:     source,
			PageCount:  len(pages),
			ChunkCount: len(chunks),
			Selected:   true,
			UploadedAt: time.Now(),
		}
		if err := m.Store.InsertDocument(ctx, doc); err != nil {
			rollbackDense(ctx, dense, docID)
			if sparse != nil {
				rollbackSparse(ctx, sparse, docID, chunks)
			}
			_ = os.Remove(dest)
			return fmt.Errorf("ingest: record document: %w", err)
		}

		return nil
	})
	if err != nil {
		return model.Document{}, err
	}

	if sessionID != nil {
		m.Cache.Invalidate(*sessionID)
	}
	return doc, nil
}

// embedChunksConcurrently fans the per-chunk embedding work for one
// document out across a bounded pool of goroutines, since hashing
// each chunk is independent CPU work with no shared state. Embed
// itself never errors; errgroup here buys a bounded worker count
// rather than error aggregation.
func embedChunksConcurrently(chunks []model.Chunk, embedder *embed.Embedder) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	g := new(errgroup.Group)
	g.SetLimit(8)
	for i, c := range chunks {
		i, text := i, c.Text
		g.Go(func() error {
			vectors[i] = embedder.Embed(text, embed.ModeDocument)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// rollbackDense undoes a dense-index add that was saved to disk but
// must be reverted because a later ingest step failed: it deletes the
// document's vectors and saves again, returning the index to its
// pre-ingest contents.
func rollbackDense(ctx context.Context, dense *denseindex.Index, docID string) {
	if err := dense.Delete(ctx, docID); err != nil {
		return
	}
	_ = dense.Save()
}

func rollbackSparse(ctx context.Context, sparse *sparseindex.Index, docID string, chunks []model.Chunk) {
	idxs := make([]int, len(chunks))
	for i, c := range chunks {
		idxs[i] = c.ChunkIdx
	}
	_ = sparse.Delete(ctx, docID, idxs)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	staging := dst + ".tmp"
	out, err := os.OpenFile(staging, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(staging)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(staging)
		return err
	}
	return os.Rename(staging, dst)
}
