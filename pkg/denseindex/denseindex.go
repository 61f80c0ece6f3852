// Package denseindex is an exact (non-ANN) vector index: for the
// per-session and per-library corpus sizes this module targets, brute
// force inner-product search is fast enough and avoids the recall
// trade-offs of approximate nearest-neighbor structures.
//
// It wraps philippgille/chromem-go with an identity embedding
// function: vectors are precomputed upstream by pkg/embed and handed
// in alongside each chunk, never computed by chromem itself. Each
// Index owns a single collection scoped to one session's (or the
// library's) index directory.
package denseindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/kadirpekel/docuquery/pkg/errs"
	"github.com/kadirpekel/docuquery/pkg/model"
)

const collectionName = "chunks"

// dbFile is the on-disk filename the index exports to inside its
// directory.
const dbFile = "vectors.gob"

// Index is a single exact dense vector index, scoped to one session or
// to the shared library.
type Index struct {
	mu  sync.RWMutex
	db  *chromem.DB
	col *chromem.Collection
	dir string
}

func identityEmbed(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("denseindex: embedding function invoked; vectors must be precomputed")
}

// Open loads the index persisted under dir, or creates an empty one if
// dir has no index file yet.
// An index file that is present but unreadable is logged and replaced
// with an empty index rather than failing the request; the next rebuild
// restores it from the Documents list.
func Open(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("denseindex: create dir: %w", err)
	}

	path := filepath.Join(dir, dbFile)
	db := chromem.NewDB()
	if _, err := os.Stat(path); err == nil {
		if err := db.Import(path, ""); err != nil { //nolint:staticcheck
			corruption := errs.NewIndexCorruptionError("dense", path, err)
			slog.Warn("denseindex unreadable, continuing with empty index", "path", path, "error", corruption)
			db = chromem.NewDB()
		}
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, identityEmbed)
	if err != nil {
		return nil, fmt.Errorf("denseindex: get/create collection: %w", err)
	}

	return &Index{db: db, col: col, dir: dir}, nil
}

// Result is one scored hit from Search.
type Result struct {
	Chunk model.Chunk
	Score float32
}

// Add inserts or replaces a chunk's vector. The chunk's text, filename,
// page, doc id, chunk idx and source are stored as metadata so Search can
// reconstruct a model.Chunk without a second lookup.
func (idx *Index) Add(ctx context.Context, c model.Chunk, vector []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	doc := chromem.Document{
		ID:        c.Key(),
		Content:   c.Text,
		Embedding: vector,
		Metadata:  chunkToMetadata(c),
	}
	if err := idx.col.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("denseindex: add %s: %w", c.Key(), err)
	}
	return nil
}

// Search returns the topK nearest chunks to vector by inner product.
func (idx *Index) Search(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if topK <= 0 {
		return nil, nil
	}
	n := idx.col.Count()
	if n == 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}

	hits, err := idx.col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("denseindex: search: %w", err)
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, Result{Chunk: metadataToChunk(h.Content, h.Metadata), Score: h.Similarity})
	}
	return out, nil
}

// Delete removes every chunk belonging to docID.
func (idx *Index) Delete(ctx context.Context, docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.col.Delete(ctx, map[string]string{"doc_id": docID}, nil); err != nil {
		return fmt.Errorf("denseindex: delete doc %s: %w", docID, err)
	}
	return nil
}

// Count returns the number of vectors currently indexed.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.col.Count()
}

// Save persists the index to its directory, exporting to a staging
// file and renaming it into place so a crash or failed write never
// leaves a half-written dbFile on disk.
func (idx *Index) Save() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	path := filepath.Join(idx.dir, dbFile)
	staging := path + ".tmp"
	if err := idx.db.Export(staging, false, ""); err != nil { //nolint:staticcheck
		return fmt.Errorf("denseindex: persist: %w", err)
	}
	if err := os.Rename(staging, path); err != nil {
		return fmt.Errorf("denseindex: swap staged file into place: %w", err)
	}
	return nil
}

func chunkToMetadata(c model.Chunk) map[string]string {
	return map[string]string{
		"doc_id":    c.DocID,
		"filename":  c.Filename,
		"page":      fmt.Sprintf("%d", c.Page),
		"chunk_idx": fmt.Sprintf("%d", c.ChunkIdx),
		"source":    string(c.Source),
	}
}

func metadataToChunk(content string, md map[string]string) model.Chunk {
	var page, chunkIdx int
	fmt.Sscanf(md["page"], "%d", &page)
	fmt.Sscanf(md["chunk_idx"], "%d", &chunkIdx)
	return model.Chunk{
		Text:     content,
		DocID:    md["doc_id"],
		Filename: md["filename"],
		Page:     page,
		ChunkIdx: chunkIdx,
		Source:   model.Source(md["source"]),
	}
}
