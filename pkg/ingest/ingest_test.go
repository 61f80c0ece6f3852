package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/docuquery/pkg/cache"
	"github.com/kadirpekel/docuquery/pkg/chunk"
	"github.com/kadirpekel/docuquery/pkg/embed"
	"github.com/kadirpekel/docuquery/pkg/model"
	"github.com/kadirpekel/docuquery/pkg/sessionstore"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	store, err := sessionstore.Open(filepath.Join(dir, "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	chunker, err := chunk.New(chunk.DefaultConfig())
	require.NoError(t, err)

	c := cache.New(time.Minute, 0)
	return New(Paths{Root: dir}, store, c, embed.New(), chunker)
}

func TestIngest_RejectsNonPDF(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Ingest(context.Background(), nil, "/tmp/whatever.txt", "whatever.txt")
	assert.ErrorIs(t, err, ErrNotPDF)
}

// TestDelete_InvalidatesCacheAndRebuildsIndex exercises the
// delete/rebuild path without requiring a real PDF fixture: the
// document record is inserted directly, so Delete's rebuild pass
// (which excludes the doomed document) has nothing left to re-index
// and swaps an empty but valid dense index into place, so no chunk of
// the deleted document can appear in any later retrieval result.
func TestDelete_InvalidatesCacheAndRebuildsIndex(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	sessionID := "s1"

	doc := model.Document{
		ID: "d1", SessionID: &sessionID, Filename: "a.pdf", Source: model.SourceSession,
		PageCount: 1, ChunkCount: 1, Selected: true, UploadedAt: time.Now(),
	}
	require.NoError(t, m.Store.InsertDocument(ctx, doc))
	m.Cache.Set(sessionID, "what is a?", model.Response{Answer: "cached"})

	require.NoError(t, m.Delete(ctx, "d1"))

	_, ok := m.Cache.Get(sessionID, "what is a?")
	assert.False(t, ok, "cache must be invalidated on document delete")

	_, err := m.Store.GetDocument(ctx, "d1")
	assert.Error(t, err, "deleted document record must no longer be retrievable")

	dense, sparse, release, err := m.SessionIndexes(sessionID)
	require.NoError(t, err)
	defer release()
	assert.Equal(t, 0, dense.Count())
	assert.Equal(t, 0, sparse.Count())
}

func TestDelete_UnknownDocumentErrors(t *testing.T) {
	m := newTestManager(t)
	err := m.Delete(context.Background(), "missing")
	assert.Error(t, err)
}
