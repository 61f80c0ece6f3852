package pipeline

import (
	"context"
	"fmt"

	"github.com/kadirpekel/docuquery/pkg/embed"
	"github.com/kadirpekel/docuquery/pkg/ingest"
	"github.com/kadirpekel/docuquery/pkg/model"
	"github.com/kadirpekel/docuquery/pkg/rerank"
)

// Engine runs one query through the full pipeline graph. It holds no
// per-query state; Run builds a fresh State for every call.
type Engine struct {
	LLM      llmCaller
	Corpus   *ingest.Manager
	Embedder *embed.Embedder
	Reranker *rerank.Reranker
	Config   Config
}

// New creates an Engine with the default configuration.
func New(llm llmCaller, corpus *ingest.Manager, embedder *embed.Embedder, reranker *rerank.Reranker) *Engine {
	return &Engine{LLM: llm, Corpus: corpus, Embedder: embedder, Reranker: reranker, Config: DefaultConfig()}
}

// Run answers one query for a session, probing the query cache first
// and populating it with the final response on a miss.
func (e *Engine) Run(ctx context.Context, sessionID, query string) (model.Response, error) {
	if resp, ok := e.Corpus.Cache.Get(sessionID, query); ok {
		return resp, nil
	}

	selectedDocIDs, err := e.Corpus.Store.SelectedDocIDs(ctx, sessionID)
	if err != nil {
		return model.Response{}, fmt.Errorf("pipeline: load selected documents: %w", err)
	}
	webMode, err := e.Corpus.Store.WebMode(ctx, sessionID)
	if err != nil {
		return model.Response{}, fmt.Errorf("pipeline: load web mode: %w", err)
	}

	st := NewState(sessionID, query, selectedDocIDs, webMode)
	resp, err := e.traverse(ctx, st)
	if err != nil {
		return model.Response{}, err
	}

	e.Corpus.Cache.Set(sessionID, query, resp)
	return resp, nil
}

// traverse walks the graph from router to a terminal node as a plain
// switch over Node (see the package doc).
func (e *Engine) traverse(ctx context.Context, st *State) (model.Response, error) {
	node := NodeRouter

	for {
		switch node {

		case NodeRouter:
			st.Route = route(st.Query, st.SelectedDocIDs, st.WebMode)
			switch st.Route {
			case RouteRAG:
				node = NodeAnalyzer
			case RouteSummarize:
				node = NodeSummarizer
			case RouteChat:
				node = NodeGenerator
			default:
				node = NodeError
			}

		case NodeAnalyzer:
			st.QueryType, st.Strategy = analyze(ctx, e.LLM, st.Query)
			node = NodeRewriter

		case NodeRewriter:
			result := rewrite(ctx, e.LLM, st, e.Config)
			st.QueryType = result.QueryType
			st.Strategy = result.Strategy
			st.RewrittenQueries = result.RewrittenQueries
			node = NodeRetrieval

		case NodeRetrieval:
			if err := retrieve(ctx, e.Corpus, e.Embedder, e.Reranker, st, e.Config, st.RewrittenQueries); err != nil {
				return model.Response{}, err
			}
			node = NodeGenerator

		case NodeGenerator:
			if st.Route == RouteChat {
				if err := generateChat(ctx, e.LLM, st); err != nil {
					return model.Response{}, err
				}
				node = NodeOutput
				break
			}
			if !st.Found {
				generateNotFound(st)
			} else if err := generateRAG(ctx, e.LLM, st); err != nil {
				return model.Response{}, err
			}
			node = e.afterGenerator(st)

		case NodeSelfEval:
			st.Verdict = selfEvaluate(st.topRerankScore, e.Config)
			st.Confident = st.Verdict == model.VerdictGood
			switch {
			case st.Verdict == model.VerdictGood:
				node = NodeOutput
			case st.RewriteCount < e.Config.MaxRewrites:
				st.RewriteCount++
				node = NodeRewriter
			default:
				st.Confident = false
				node = NodeOutput
			}

		case NodeSummarizer:
			answer, err := summarize(ctx, e.LLM, e.Corpus, st.SessionID, st.SelectedDocIDs, e.Config)
			if err != nil {
				return model.Response{}, err
			}
			st.Answer = answer
			st.Sources = nil
			st.ContextVerdict = model.ContextSufficient
			st.Verdict = model.VerdictGood
			st.Confident = true
			node = NodeOutput

		case NodeOutput, NodeNotFound:
			return st.Response(), nil

		case NodeError:
			return model.Response{}, fmt.Errorf("pipeline: router could not classify the request")

		default:
			return model.Response{}, fmt.Errorf("pipeline: unreachable node %q", node)
		}
	}
}

// afterGenerator decides the edge out of the Generator node:
// SUFFICIENT goes to self-evaluation unless the query_type==simple
// fast path applies, GAP/EMPTY retry through the rewriter while budget
// remains, and exhaustion on EMPTY ends at the not_found terminal with
// the canned answer already in st.Answer.
//
// RewriteCount is only incremented here and in self_eval's retry edge,
// not inside rewrite() itself: the mandatory first analyzer->rewriter
// call that produces the initial query variants doesn't consume a
// retry, so MaxRewrites=2 bounds the number of extra rewriter calls:
// three generator invocations total (initial + 2 retries) before
// exhaustion.
func (e *Engine) afterGenerator(st *State) Node {
	exhausted := st.RewriteCount >= e.Config.MaxRewrites

	switch st.ContextVerdict {
	case model.ContextSufficient:
		if st.QueryType == QueryTypeSimple {
			st.Verdict = model.VerdictGood
			st.Confident = true
			return NodeOutput
		}
		return NodeSelfEval

	case model.ContextGap:
		if !exhausted {
			st.RewriteCount++
			return NodeRewriter
		}
		st.MissingInfo = withExhaustionCaveat(st.MissingInfo)
		return NodeSelfEval

	default: // EMPTY
		if !exhausted {
			st.RewriteCount++
			return NodeRewriter
		}
		return NodeNotFound
	}
}

func withExhaustionCaveat(missing string) string {
	const caveat = "Retries were exhausted without fully closing this gap; treat the answer as partial."
	if missing == "" {
		return caveat
	}
	return missing + " " + caveat
}
