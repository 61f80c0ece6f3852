package sessionstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/docuquery/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionType_DefaultsToGeneral(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st, err := s.SessionType(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionGeneral, st)
}

func TestSessionType_TransitionsOnIngestAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sessionID := "s1"

	doc := model.Document{
		ID: "d1", SessionID: &sessionID, Filename: "a.pdf", Source: model.SourceSession,
		PageCount: 3, ChunkCount: 5, Selected: true, UploadedAt: time.Now(),
	}
	require.NoError(t, s.InsertDocument(ctx, doc))

	st, err := s.SessionType(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionRAG, st)

	_, err = s.DeleteDocument(ctx, "d1")
	require.NoError(t, err)

	st, err = s.SessionType(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionGeneral, st)
}

func TestSessionType_StaysRAGWhileAnotherDocumentRemains(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sessionID := "s1"

	for _, id := range []string{"d1", "d2"} {
		doc := model.Document{
			ID: id, SessionID: &sessionID, Filename: id + ".pdf", Source: model.SourceSession,
			PageCount: 1, ChunkCount: 1, Selected: true, UploadedAt: time.Now(),
		}
		require.NoError(t, s.InsertDocument(ctx, doc))
	}

	_, err := s.DeleteDocument(ctx, "d1")
	require.NoError(t, err)

	st, err := s.SessionType(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionRAG, st)
}

func TestSetWebMode(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	on, err := s.WebMode(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, s.SetWebMode(ctx, "s1", true))

	on, err = s.WebMode(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, on)
}

func TestSetSelected_UnknownDocumentErrors(t *testing.T) {
	s := openTestStore(t)
	err := s.SetSelected(context.Background(), "missing", true)
	assert.Error(t, err)
}

func TestSelectedDocIDs_FiltersUnselected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sessionID := "s1"

	for i, id := range []string{"d1", "d2"} {
		doc := model.Document{
			ID: id, SessionID: &sessionID, Filename: id + ".pdf", Source: model.SourceSession,
			PageCount: 1, ChunkCount: 1, Selected: i == 0, UploadedAt: time.Now(),
		}
		require.NoError(t, s.InsertDocument(ctx, doc))
	}

	ids, err := s.SelectedDocIDs(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids)
}

func TestListSessionDocuments_ExcludesLibraryDocuments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sessionID := "s1"

	require.NoError(t, s.InsertDocument(ctx, model.Document{
		ID: "d1", SessionID: &sessionID, Filename: "a.pdf", Source: model.SourceSession,
		PageCount: 1, ChunkCount: 1, Selected: true, UploadedAt: time.Now(),
	}))
	require.NoError(t, s.InsertDocument(ctx, model.Document{
		ID: "lib1", SessionID: nil, Filename: "lib.pdf", Source: model.SourceLibrary,
		PageCount: 1, ChunkCount: 1, Selected: true, UploadedAt: time.Now(),
	}))

	docs, err := s.ListSessionDocuments(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].ID)

	libDocs, err := s.ListLibraryDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, libDocs, 1)
	assert.Equal(t, "lib1", libDocs[0].ID)
}
