package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/docuquery/pkg/tokencount"
)

func TestChunk_MonotonicIndicesAndPages(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)

	var sentences []string
	for i := 0; i < 200; i++ {
		sentences = append(sentences, "The quick brown fox jumps over the lazy dog number "+strings.Repeat("x", i%5)+".")
	}
	pages := []Page{
		{Text: strings.Join(sentences[:100], " "), Page: 1, Filename: "doc.pdf"},
		{Text: strings.Join(sentences[100:], " "), Page: 2, Filename: "doc.pdf"},
	}

	chunks, err := c.Chunk(pages)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	lastPage := 0
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIdx)
		assert.GreaterOrEqual(t, ch.Page, lastPage)
		lastPage = ch.Page
		assert.NotEmpty(t, ch.Text)
	}
}

func TestSplitSentences_ToleratesAbbreviations(t *testing.T) {
	text := "Smith et al. showed this in Fig. 3 of their paper. The result was surprising."
	sentences := splitSentences(text)
	require.Len(t, sentences, 2)
	assert.Contains(t, sentences[0], "Fig. 3")
	assert.Equal(t, "The result was surprising.", sentences[1])
}

func TestChunk_EmptyInput(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)

	chunks, err := c.Chunk(nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunk_OversizedSentenceHardSplit(t *testing.T) {
	c, err := New(Config{TargetTokens: 10, OverlapTokens: 2})
	require.NoError(t, err)

	// 200 words with no sentence boundary: must be hard-split on word
	// boundaries rather than emitted as one unbounded chunk.
	longSentence := strings.Repeat("word ", 200) + "."
	chunks, err := c.Chunk([]Page{{Text: longSentence, Page: 1, Filename: "big.pdf"}})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	counter, err := tokencount.Shared()
	require.NoError(t, err)
	for i, ch := range chunks {
		assert.NotEmpty(t, ch.Text)
		assert.Equal(t, i, ch.ChunkIdx)
		assert.LessOrEqual(t, counter.Count(ch.Text), 10,
			"every hard-split chunk must respect the token target")
	}
}
