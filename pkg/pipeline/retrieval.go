package pipeline

import (
	"context"
	"fmt"

	"github.com/kadirpekel/docuquery/pkg/denseindex"
	"github.com/kadirpekel/docuquery/pkg/embed"
	"github.com/kadirpekel/docuquery/pkg/errs"
	"github.com/kadirpekel/docuquery/pkg/ingest"
	"github.com/kadirpekel/docuquery/pkg/model"
	"github.com/kadirpekel/docuquery/pkg/rerank"
	"github.com/kadirpekel/docuquery/pkg/sparseindex"
)

// retrieve is the Retrieval node: embed each rewritten query, search
// the session's (or, in web_mode, the library's) indexes, fuse
// dense+sparse scores, union and dedup across queries by
// (doc_id, chunk_idx), filter to the selected documents, then rerank
// the survivors against the original query.
func retrieve(ctx context.Context, corpus *ingest.Manager, embedder *embed.Embedder, reranker *rerank.Reranker, st *State, cfg Config, queries []string) error {
	var sessionDense *denseindex.Index
	var sessionSparse *sparseindex.Index
	var libraryDense *denseindex.Index

	if st.WebMode {
		d, release, err := corpus.LibraryDenseIndex()
		if err != nil {
			return fmt.Errorf("pipeline: retrieval: %w", err)
		}
		defer release()
		libraryDense = d
	} else {
		d, s, release, err := corpus.SessionIndexes(st.SessionID)
		if err != nil {
			return fmt.Errorf("pipeline: retrieval: %w", err)
		}
		defer release()
		sessionDense, sessionSparse = d, s
	}

	merged := make(map[string]model.Chunk)
	var order []string

	for _, q := range queries {
		qvec := embedder.Embed(q, embed.ModeQuery)

		var denseHits []denseindex.Result
		var sparseHits []sparseindex.Result
		var err error

		if st.WebMode {
			denseHits, err = libraryDense.Search(ctx, qvec, cfg.RetrieveTopK)
			if err != nil {
				return errs.NewRetrievalError("retrieval", "dense search", q, err)
			}
		} else {
			denseHits, err = sessionDense.Search(ctx, qvec, cfg.RetrieveTopK)
			if err != nil {
				return errs.NewRetrievalError("retrieval", "dense search", q, err)
			}
			sparseHits, err = sessionSparse.Search(ctx, q, cfg.RetrieveTopK)
			if err != nil {
				return errs.NewRetrievalError("retrieval", "sparse search", q, err)
			}
		}

		denseByKey := make(map[string]denseindex.Result, len(denseHits))
		for _, r := range denseHits {
			denseByKey[r.Chunk.Key()] = r
		}
		sparseByKey := make(map[string]sparseindex.Result, len(sparseHits))
		for _, r := range sparseHits {
			sparseByKey[r.Chunk.Key()] = r
		}

		seenKeys := make(map[string]bool, len(denseByKey)+len(sparseByKey))
		for k := range denseByKey {
			seenKeys[k] = true
		}
		for k := range sparseByKey {
			seenKeys[k] = true
		}

		for key := range seenKeys {
			d, hasDense := denseByKey[key]
			s, hasSparse := sparseByKey[key]

			var chunk model.Chunk
			var fused float32
			switch {
			case st.WebMode:
				chunk = d.Chunk
				fused = d.Score
			default:
				var denseScore, bm25Score float32
				if hasDense {
					chunk = d.Chunk
					denseScore = d.Score
				}
				if hasSparse {
					chunk = s.Chunk
					bm25Score = s.Score
				}
				fused = fuseScore(st.QueryType, denseScore, bm25Score)
			}
			chunk.Score = fused
			chunk.BM25Score = s.Score

			if _, exists := merged[key]; !exists {
				merged[key] = chunk
				order = append(order, key)
			}
		}
	}

	candidates := make([]model.Chunk, 0, len(order))
	for _, key := range order {
		c := merged[key]
		if c.Source == model.SourceSession && !contains(st.SelectedDocIDs, c.DocID) {
			continue
		}
		candidates = append(candidates, c)
	}

	top, best := reranker.Rerank(st.Query, candidates, cfg.RerankTopN)
	st.Chunks = top
	st.Found = len(top) > 0
	st.topRerankScore = best
	return nil
}

// fuseScore combines a chunk's dense and sparse scores with the weight
// pair for the query type. A chunk found by only one index contributes
// 0 from the missing side, so a BM25-only hit on a simple query fuses
// to 0.6*bm25 and a dense-only hit to 0.4*dense.
func fuseScore(qt QueryType, denseScore, bm25Score float32) float32 {
	denseWeight, bm25Weight := bm25Weights(qt)
	return denseWeight*denseScore + bm25Weight*bm25Score
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
