package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/docuquery/pkg/model"
)

func TestCache_SetGetHit(t *testing.T) {
	c := New(time.Minute, 0)
	resp := model.Response{Answer: "A1", Verdict: model.VerdictGood}
	c.Set("s1", "What is A?", resp)

	got, ok := c.Get("s1", "What is A?")
	require.True(t, ok)
	assert.Equal(t, resp, got)
}

func TestCache_NormalizesQueryForKey(t *testing.T) {
	c := New(time.Minute, 0)
	resp := model.Response{Answer: "A1"}
	c.Set("s1", "  What Is A?  ", resp)

	got, ok := c.Get("s1", "what is a?")
	require.True(t, ok)
	assert.Equal(t, resp, got)
}

func TestCache_MissOnDifferentSession(t *testing.T) {
	c := New(time.Minute, 0)
	c.Set("s1", "q", model.Response{Answer: "A1"})

	_, ok := c.Get("s2", "q")
	assert.False(t, ok)
}

func TestCache_InvalidateRemovesAllSessionEntries(t *testing.T) {
	c := New(time.Minute, 0)
	c.Set("s1", "q1", model.Response{Answer: "A1"})
	c.Set("s1", "q2", model.Response{Answer: "A2"})
	c.Set("s2", "q1", model.Response{Answer: "B1"})

	c.Invalidate("s1")

	_, ok1 := c.Get("s1", "q1")
	_, ok2 := c.Get("s1", "q2")
	_, ok3 := c.Get("s2", "q1")
	assert.False(t, ok1)
	assert.False(t, ok2)
	assert.True(t, ok3)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := New(10*time.Millisecond, 0)
	c.Set("s1", "q", model.Response{Answer: "A1"})

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("s1", "q")
	assert.False(t, ok)
}
