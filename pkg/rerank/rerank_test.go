package rerank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/docuquery/pkg/model"
)

func TestRerank_OrdersByRelevance(t *testing.T) {
	r := New()
	candidates := []model.Chunk{
		{Text: "a recipe for sourdough bread requires a starter culture", DocID: "doc2", ChunkIdx: 0},
		{Text: "quarterly earnings revenue growth exceeded analyst expectations", DocID: "doc1", ChunkIdx: 0},
	}

	ranked, best := r.Rerank("quarterly earnings revenue", candidates, 5)
	require.Len(t, ranked, 2)
	assert.Equal(t, "doc1", ranked[0].DocID)
	assert.Equal(t, ranked[0].RerankScore, best)
	assert.Greater(t, best, float32(0))
}

func TestRerank_EmptyInput(t *testing.T) {
	r := New()
	ranked, best := r.Rerank("anything", nil, 5)
	assert.Empty(t, ranked)
	assert.Equal(t, float32(0), best)
}

func TestRerank_TruncatesToN(t *testing.T) {
	r := New()
	candidates := []model.Chunk{
		{Text: "alpha beta gamma", DocID: "d1"},
		{Text: "delta epsilon zeta", DocID: "d2"},
		{Text: "eta theta iota", DocID: "d3"},
	}
	ranked, _ := r.Rerank("alpha beta gamma", candidates, 2)
	assert.Len(t, ranked, 2)
}
