package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuseScore_SimpleLeansOnBM25(t *testing.T) {
	bm25Only := fuseScore(QueryTypeSimple, 0, 1.0)
	denseOnly := fuseScore(QueryTypeSimple, 1.0, 0)

	assert.InDelta(t, 0.6, bm25Only, 1e-6)
	assert.InDelta(t, 0.4, denseOnly, 1e-6)
	assert.Greater(t, bm25Only, denseOnly, "for simple queries a BM25-only hit must outrank a dense-only hit")
}

func TestFuseScore_NonSimpleLeansOnDense(t *testing.T) {
	bm25Only := fuseScore(QueryTypeMultiHop, 0, 1.0)
	denseOnly := fuseScore(QueryTypeMultiHop, 1.0, 0)

	assert.InDelta(t, 0.2, bm25Only, 1e-6)
	assert.InDelta(t, 0.8, denseOnly, 1e-6)
}

func TestFuseScore_BothSidesSum(t *testing.T) {
	assert.InDelta(t, 0.4*0.5+0.6*0.5, fuseScore(QueryTypeSimple, 0.5, 0.5), 1e-6)
}
