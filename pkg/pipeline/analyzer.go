package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/docuquery/pkg/llm"
	"github.com/kadirpekel/docuquery/pkg/sanitize"
)

const analyzerPrompt = `Classify the following user query for a document question-answering system.

Query: %s

Respond with a JSON object only, no other text:
{"query_type": "simple|multi_hop|math|comparison", "strategy": "single|decompose|step_back"}

Guidance:
- "simple": a single factual lookup answerable from one passage.
- "multi_hop": requires combining facts from multiple passages.
- "math": requires a numeric computation over retrieved facts.
- "comparison": asks to compare two or more things.
- strategy "single" for simple queries, "decompose" for multi_hop, "step_back" for math/comparison.`

// analyze classifies the query into a QueryType and Strategy with a
// single LLM call. On parse failure or an invalid value it defaults to
// simple/single.
func analyze(ctx context.Context, caller llmCaller, query string) (QueryType, Strategy) {
	raw, err := caller.Call(ctx, fmt.Sprintf(analyzerPrompt, sanitize.Query(query)), true)
	if err != nil {
		return QueryTypeSimple, StrategySingle
	}
	obj, ok := llm.ExtractJSON(raw)
	if !ok {
		return QueryTypeSimple, StrategySingle
	}

	qt := QueryType(strings.ToLower(llm.Field(obj, "query_type").String()))
	if !validQueryType(qt) {
		qt = QueryTypeSimple
	}
	st := Strategy(strings.ToLower(llm.Field(obj, "strategy").String()))
	if !validStrategy(st) {
		st = StrategySingle
	}
	return qt, st
}

func validQueryType(qt QueryType) bool {
	switch qt {
	case QueryTypeSimple, QueryTypeMultiHop, QueryTypeMath, QueryTypeComparison:
		return true
	default:
		return false
	}
}

func validStrategy(st Strategy) bool {
	switch st {
	case StrategySingle, StrategyDecompose, StrategyStepBack:
		return true
	default:
		return false
	}
}
