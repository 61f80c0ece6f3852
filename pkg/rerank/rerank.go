// Package rerank re-scores retrieval candidates before generation.
//
// # Overview
//
// Fusion over the dense and sparse indexes produces an ordering driven
// by two very differently-scaled signals (inner product vs. BM25).
// Reranking re-scores the fused candidate set against the original
// query using a single, comparable signal before the top N are handed
// to the generator, improving precision at the point it matters most:
// immediately before the chunks enter the prompt.
//
// # Score semantics
//
// Before reranking, Chunk.Score carries the fusion score from
// retrieval (not comparable across queries). After reranking,
// RerankScore is a 0.0-1.0 blend of query/passage embedding similarity
// and lexical term overlap, comparable across candidates of the same
// query but not across different queries.
//
// The scorer is deterministic (an embedding-similarity plus
// lexical-overlap blend, not an LLM call), so reranking stays a
// non-generative step with no model round-trip per candidate.
package rerank

import (
	"sort"

	"github.com/kadirpekel/docuquery/pkg/embed"
	"github.com/kadirpekel/docuquery/pkg/model"
	"github.com/kadirpekel/docuquery/pkg/sparseindex"
)

const (
	embeddingWeight = 0.6
	overlapWeight   = 0.4
)

// Reranker scores candidate chunks against a query.
type Reranker struct {
	embedder *embed.Embedder
}

// New creates a Reranker using the shared process-wide embedder.
func New() *Reranker {
	return &Reranker{embedder: embed.Shared()}
}

// Rerank scores candidates against query and returns the top n, sorted
// by descending RerankScore, along with the best (highest) score seen.
// An empty candidate slice returns an empty result and a score of 0.
func (r *Reranker) Rerank(query string, candidates []model.Chunk, n int) ([]model.Chunk, float32) {
	if len(candidates) == 0 {
		return nil, 0
	}

	queryVec := r.embedder.Embed(query, embed.ModeQuery)
	queryTerms := termSet(query)

	scored := make([]model.Chunk, len(candidates))
	copy(scored, candidates)
	for i := range scored {
		docVec := r.embedder.Embed(scored[i].Text, embed.ModeDocument)
		sim := dot(queryVec, docVec)
		overlap := jaccard(queryTerms, termSet(scored[i].Text))
		scored[i].RerankScore = float32(embeddingWeight*float64(sim) + overlapWeight*overlap)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})

	if n > 0 && n < len(scored) {
		scored = scored[:n]
	}

	best := float32(0)
	if len(scored) > 0 {
		best = scored[0].RerankScore
	}
	return scored, best
}

func termSet(text string) map[string]struct{} {
	tokens := sparseindex.Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
