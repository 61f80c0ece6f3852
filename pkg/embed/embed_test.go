package embed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbed_UnitNorm(t *testing.T) {
	e := New()
	v := e.Embed("the quick brown fox jumps over the lazy dog", ModeDocument)

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-4)
	assert.Len(t, v, Dimensions)
}

func TestEmbed_Deterministic(t *testing.T) {
	e := New()
	a := e.Embed("machine learning pipelines", ModeDocument)
	b := e.Embed("machine learning pipelines", ModeDocument)
	assert.Equal(t, a, b)
}

func TestEmbed_QueryAndDocumentModesDiffer(t *testing.T) {
	e := New()
	asDoc := e.Embed("neural networks", ModeDocument)
	asQuery := e.Embed("neural networks", ModeQuery)
	assert.NotEqual(t, asDoc, asQuery)
}

func TestEmbed_EmptyInputIsZeroVector(t *testing.T) {
	e := New()
	v := e.Embed("   ", ModeDocument)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}

// TestEmbed_QueryModeStillMatchesItsOwnDocumentText exercises the
// dense-retrieval invariant at the embedder layer: a query embedding
// of a chunk's own text must be far more similar to that chunk's
// document-mode embedding than to an unrelated chunk's, even though
// the query mode prefixes the text before encoding.
func TestEmbed_QueryModeStillMatchesItsOwnDocumentText(t *testing.T) {
	e := New()
	passage := "Technology Readiness Level measures the maturity of a given technology."
	unrelated := "a recipe for baking sourdough bread at home"

	asDoc := e.Embed(passage, ModeDocument)
	asQueryOfPassage := e.Embed(passage, ModeQuery)
	asQueryOfUnrelated := e.Embed(unrelated, ModeQuery)

	simMatch := dot(asDoc, asQueryOfPassage)
	simMismatch := dot(asDoc, asQueryOfUnrelated)
	assert.Greater(t, simMatch, simMismatch)
	assert.Greater(t, simMatch, 0.5)
}

func TestEmbed_SimilarTextsAreCloserThanUnrelated(t *testing.T) {
	e := New()
	a := e.Embed("the stock market rallied today on strong earnings", ModeDocument)
	b := e.Embed("stocks rallied after strong quarterly earnings reports", ModeDocument)
	c := e.Embed("a recipe for baking sourdough bread at home", ModeDocument)

	simAB := dot(a, b)
	simAC := dot(a, c)
	assert.Greater(t, simAB, simAC)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
