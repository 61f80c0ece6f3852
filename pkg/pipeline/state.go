// Package pipeline is the agentic retrieval state machine: Router ->
// Analyzer -> Rewriter -> Retrieval -> Generator -> SelfEvaluator,
// with a bounded rewrite loop for queries the corpus can't satisfy on
// the first pass.
//
// All per-query state lives in one State struct with zero-value
// optional leaves, threaded node to node, rather than a bespoke struct
// per node. There is no graph-executor framework: Engine.traverse is a
// plain switch over a node name, each case computing the next node
// itself, so every edge in the graph is readable in one place.
package pipeline

import "github.com/kadirpekel/docuquery/pkg/model"

// Route is the Router's output: which path through the graph a query
// takes.
type Route string

const (
	RouteRAG       Route = "rag"
	RouteSummarize Route = "summarize"
	RouteChat      Route = "chat"
	RouteError     Route = "error"
)

// QueryType classifies the query's structural complexity, produced by
// the Analyzer and refined by the Rewriter.
type QueryType string

const (
	QueryTypeSimple     QueryType = "simple"
	QueryTypeMultiHop   QueryType = "multi_hop"
	QueryTypeMath       QueryType = "math"
	QueryTypeComparison QueryType = "comparison"
)

// Strategy is the retrieval strategy derived from QueryType.
type Strategy string

const (
	StrategySingle    Strategy = "single"
	StrategyDecompose Strategy = "decompose"
	StrategyStepBack  Strategy = "step_back"
)

// Node identifies one state in the pipeline graph.
type Node string

const (
	NodeRouter     Node = "router"
	NodeAnalyzer   Node = "analyzer"
	NodeRewriter   Node = "rewriter"
	NodeRetrieval  Node = "retrieval"
	NodeGenerator  Node = "generator"
	NodeSummarizer Node = "summarizer"
	NodeSelfEval   Node = "self_eval"
	NodeOutput     Node = "output"
	NodeNotFound   Node = "not_found"
	NodeError      Node = "error"
)

// State is the single transient record threaded through one query's
// traversal of the pipeline graph, reset fresh for every invocation.
type State struct {
	// Input, fixed for the whole traversal.
	Query          string
	SessionID      string
	SelectedDocIDs []string
	WebMode        bool

	// Routing/classification.
	Route     Route
	QueryType QueryType
	Strategy  Strategy

	// Rewrite loop. RewriteCount never exceeds Config.MaxRewrites.
	RewrittenQueries []string
	RewriteCount     int
	LastVerdict      model.ContextVerdict

	// Retrieval.
	Chunks []model.Chunk
	Found  bool

	// Generation.
	ContextVerdict model.ContextVerdict
	Reasoning      string
	Answer         string
	Sources        []model.SourceRef
	MissingInfo    string

	// Self-evaluation.
	Verdict   model.Verdict
	Confident bool

	// topRerankScore is carried from Retrieval to SelfEval as the
	// confidence signal the score-based evaluator thresholds.
	topRerankScore float32
}

// NewState creates a fresh State for one query invocation.
func NewState(sessionID, query string, selectedDocIDs []string, webMode bool) *State {
	return &State{
		Query:          query,
		SessionID:      sessionID,
		SelectedDocIDs: selectedDocIDs,
		WebMode:        webMode,
	}
}

// Response builds the terminal payload from the current state. Every
// terminal node yields a structured response, never an error, for
// normal operation.
func (s *State) Response() model.Response {
	return model.Response{
		Answer:         s.Answer,
		Sources:        s.Sources,
		Confident:      s.Confident,
		ContextVerdict: s.ContextVerdict,
		Verdict:        s.Verdict,
		MissingInfo:    s.MissingInfo,
	}
}
