package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	got, ok := ExtractJSON(`{"answer": "42"}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"answer": "42"}`, got)
}

func TestExtractJSON_MarkdownFenced(t *testing.T) {
	raw := "```json\n{\"answer\": \"42\"}\n```"
	got, ok := ExtractJSON(raw)
	require.True(t, ok)
	assert.JSONEq(t, `{"answer": "42"}`, got)
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw := "Sure, here's the result:\n{\"answer\": \"42\"}\nLet me know if you need anything else."
	got, ok := ExtractJSON(raw)
	require.True(t, ok)
	assert.JSONEq(t, `{"answer": "42"}`, got)
}

func TestExtractJSON_UnescapedNewlinesInStringField(t *testing.T) {
	raw := "{\"answer\": \"line one\nline two\", \"sources\": []}"
	got, ok := ExtractJSON(raw)
	require.True(t, ok)
	assert.Equal(t, "line one\nline two", Field(got, "answer").String())
}

func TestExtractJSON_NoObjectFound(t *testing.T) {
	_, ok := ExtractJSON("no json here at all")
	assert.False(t, ok)
}
