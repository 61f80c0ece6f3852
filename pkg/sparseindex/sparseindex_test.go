package sparseindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/docuquery/pkg/model"
)

func TestIndex_IndexSearchDelete(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir)
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	chunks := []model.Chunk{
		{Text: "the quarterly earnings report showed strong revenue growth", DocID: "doc1", ChunkIdx: 0},
		{Text: "a recipe for sourdough bread requires a starter culture", DocID: "doc2", ChunkIdx: 0},
	}
	require.NoError(t, idx.Index(ctx, chunks))
	assert.Equal(t, 2, idx.Count())

	results, err := idx.Search(ctx, "quarterly revenue growth", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc1", results[0].Chunk.DocID)

	require.NoError(t, idx.Delete(ctx, "doc1", []int{0}))
	assert.Equal(t, 1, idx.Count())
}

func TestIndex_EmptyQueryReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir)
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_StopWordOnlyQueryReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir)
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "the a of", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTokenize_PreservesHyphensAndUnderscores(t *testing.T) {
	tokens := Tokenize("state-of-the-art models in gpt_4 architectures")
	assert.Contains(t, tokens, "state-of-the-art")
	assert.Contains(t, tokens, "gpt_4")
	assert.Contains(t, tokens, "architectures")
	assert.NotContains(t, tokens, "in")
}

func TestTokenize_DropsShortAndStopWords(t *testing.T) {
	tokens := Tokenize("a b of the cat")
	assert.Equal(t, []string{"cat"}, tokens)
}
