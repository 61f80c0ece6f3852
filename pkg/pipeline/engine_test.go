package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/docuquery/pkg/model"
)

func TestRoute(t *testing.T) {
	cases := []struct {
		name     string
		query    string
		selected []string
		webMode  bool
		want     Route
	}{
		{"no selection falls to chat", "what is the capital of france?", nil, false, RouteChat},
		{"selection with plain question is rag", "what does section 3 say?", []string{"d1"}, false, RouteRAG},
		{"selection with summarize keyword", "can you summarize this?", []string{"d1"}, false, RouteSummarize},
		{"selection with misspelled summarize keyword", "give me a summerize", []string{"d1"}, false, RouteSummarize},
		{"web mode always rag even without selection", "anything", nil, true, RouteRAG},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, route(tc.query, tc.selected, tc.webMode))
		})
	}
}

func TestSelfEvaluate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, model.VerdictGood, selfEvaluate(0.9, cfg))
	assert.Equal(t, model.VerdictUnsure, selfEvaluate(0.5, cfg))
	assert.Equal(t, model.VerdictBad, selfEvaluate(0.1, cfg))
}

func TestAfterGenerator_SimpleSufficientSkipsSelfEval(t *testing.T) {
	e := &Engine{Config: DefaultConfig()}
	st := &State{QueryType: QueryTypeSimple, ContextVerdict: model.ContextSufficient}

	node := e.afterGenerator(st)

	assert.Equal(t, NodeOutput, node)
	assert.True(t, st.Confident)
	assert.Equal(t, model.VerdictGood, st.Verdict)
}

func TestAfterGenerator_MultiHopSufficientGoesToSelfEval(t *testing.T) {
	e := &Engine{Config: DefaultConfig()}
	st := &State{QueryType: QueryTypeMultiHop, ContextVerdict: model.ContextSufficient}

	assert.Equal(t, NodeSelfEval, e.afterGenerator(st))
}

func TestAfterGenerator_GapRetriesUntilExhausted(t *testing.T) {
	e := &Engine{Config: DefaultConfig()}
	st := &State{ContextVerdict: model.ContextGap}

	node := e.afterGenerator(st)
	assert.Equal(t, NodeRewriter, node)
	assert.Equal(t, 1, st.RewriteCount)

	node = e.afterGenerator(st)
	assert.Equal(t, NodeRewriter, node)
	assert.Equal(t, 2, st.RewriteCount)

	// budget exhausted (rewrite_count == MaxRewrites): falls through to
	// self_eval with a caveat appended rather than retrying again.
	node = e.afterGenerator(st)
	assert.Equal(t, NodeSelfEval, node)
	assert.Equal(t, 2, st.RewriteCount)
	assert.Contains(t, st.MissingInfo, "exhausted")
}

func TestAfterGenerator_EmptyExhaustedTerminatesAtNotFound(t *testing.T) {
	e := &Engine{Config: DefaultConfig()}
	st := &State{ContextVerdict: model.ContextEmpty, RewriteCount: 2}

	assert.Equal(t, NodeNotFound, e.afterGenerator(st))
}

// stubLLM returns canned responses keyed by call order; it lets a test
// drive the full router->analyzer->rewriter->generator traversal
// without a live model endpoint.
type stubLLM struct {
	responses []string
	calls     int
}

func (s *stubLLM) Call(ctx context.Context, prompt string, smallCtx bool) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		return s.responses[len(s.responses)-1], nil
	}
	return s.responses[i], nil
}

func TestTraverse_ChatRouteSkipsRetrieval(t *testing.T) {
	llm := &stubLLM{responses: []string{"Paris is the capital of France."}}
	e := &Engine{LLM: llm, Config: DefaultConfig()}

	st := NewState("s1", "what is the capital of france?", nil, false)
	resp, err := e.traverse(context.Background(), st)

	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", resp.Answer)
	assert.True(t, resp.Confident)
	assert.Equal(t, 1, llm.calls)
}
