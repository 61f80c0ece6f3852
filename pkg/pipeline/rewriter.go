package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kadirpekel/docuquery/pkg/llm"
	"github.com/kadirpekel/docuquery/pkg/sanitize"
)

const rewriterPrompt = `You are reformulating a user query against a document corpus to improve retrieval.

Original query: %s
%s
%s
Respond with a JSON object only, no other text:
{"query_type": "simple|multi_hop|math|comparison", "strategy": "single|decompose|step_back", "rewritten_queries": ["...", "..."]}

Produce 1 to 3 alternative phrasings of the query (not counting the original), each aimed at surfacing different relevant passages.`

var acronymRegex = regexp.MustCompile(`\b[A-Z]{2,}\b`)

// acronymHint gathers all-caps tokens of length >= 2 from the raw
// query so the LLM is nudged to expand acronyms in its rewrites.
func acronymHint(query string) string {
	found := acronymRegex.FindAllString(query, -1)
	if len(found) == 0 {
		return ""
	}
	seen := make(map[string]bool)
	var unique []string
	for _, a := range found {
		if !seen[a] {
			seen[a] = true
			unique = append(unique, a)
		}
	}
	return fmt.Sprintf("The query contains these acronyms/abbreviations: %s. At least one rewritten query must spell out what each likely stands for, alongside the acronym itself.", strings.Join(unique, ", "))
}

// retryHint instructs the LLM to take a different angle than previous
// rewrite attempts when this isn't the first rewrite of the query.
func retryHint(rewriteCount int, previous []string) string {
	if rewriteCount == 0 {
		return ""
	}
	return fmt.Sprintf("Previous attempt(s) did not surface sufficient evidence. Take a different angle this time: broader or narrower scope, different synonyms. Do not repeat any of these previously tried queries verbatim: %s", strings.Join(previous, " | "))
}

// rewriteResult is the Rewriter's LLM output.
type rewriteResult struct {
	QueryType        QueryType
	Strategy         Strategy
	RewrittenQueries []string
}

// rewrite produces the list of queries retrieval will run: the
// original query first, then up to MaxAltQueries alternatives from one
// LLM call. The engine increments st.RewriteCount at the edges that
// route back into this node as a retry (generator/self_eval on
// insufficient evidence); the mandatory first analyzer->rewriter call
// that produces the initial query variants does not consume a retry.
// rewrite reads st.RewriteCount to tell the two cases apart: 0 means
// this is that first call.
func rewrite(ctx context.Context, caller llmCaller, st *State, cfg Config) rewriteResult {
	prompt := fmt.Sprintf(rewriterPrompt, sanitize.Query(st.Query), acronymHint(st.Query), retryHint(st.RewriteCount, st.RewrittenQueries))
	raw, err := caller.Call(ctx, prompt, true)

	result := rewriteResult{QueryType: st.QueryType, Strategy: st.Strategy, RewrittenQueries: []string{st.Query}}
	if err != nil {
		return result
	}
	obj, ok := llm.ExtractJSON(raw)
	if !ok {
		return result
	}

	if qt := QueryType(strings.ToLower(llm.Field(obj, "query_type").String())); validQueryType(qt) {
		result.QueryType = qt
	}
	if strat := Strategy(strings.ToLower(llm.Field(obj, "strategy").String())); validStrategy(strat) {
		result.Strategy = strat
	}

	alts := llm.Field(obj, "rewritten_queries").Array()
	seen := map[string]bool{strings.ToLower(strings.TrimSpace(st.Query)): true}
	for _, a := range alts {
		q := strings.TrimSpace(a.String())
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		result.RewrittenQueries = append(result.RewrittenQueries, q)
		if len(result.RewrittenQueries) > cfg.MaxAltQueries {
			break
		}
	}
	return result
}
