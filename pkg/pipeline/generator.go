package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kadirpekel/docuquery/pkg/llm"
	"github.com/kadirpekel/docuquery/pkg/model"
	"github.com/kadirpekel/docuquery/pkg/sanitize"
)

// noInformationAnswer is the canned response for an EMPTY context with
// no rewrite attempts left.
const noInformationAnswer = "No information found in the selected sources."

const chatPrompt = `You are a helpful assistant. Answer the user's question directly and conversationally, using your own knowledge. Do not mention documents or sources.

Question: %s`

const ragPrompt = `Answer the user's question using ONLY the evidence in the context below. Cite which passages support your answer.

Context:
%s

Question: %s

Respond with a JSON object only, no other text:
{
  "context_verdict": "SUFFICIENT|GAP|EMPTY",
  "reasoning": "brief internal note on why the evidence is or isn't enough",
  "answer": "the answer to give the user",
  "missing_info": "what's missing, if context_verdict is GAP or EMPTY, else empty string",
  "sources": [{"filename": "...", "page": 1}]
}

Use EMPTY if the context has nothing relevant. Use GAP if the context is partially relevant but incomplete. Use SUFFICIENT if the context fully answers the question.`

// generateChat answers directly from model knowledge, without
// retrieval, for route=chat.
func generateChat(ctx context.Context, caller llmCaller, st *State) error {
	answer, err := caller.Call(ctx, fmt.Sprintf(chatPrompt, sanitize.Query(st.Query)), false)
	if err != nil {
		return fmt.Errorf("pipeline: chat generation: %w", err)
	}
	st.Answer = strings.TrimSpace(answer)
	st.ContextVerdict = model.ContextSufficient
	st.LastVerdict = model.ContextSufficient
	st.Confident = true
	return nil
}

// generateNotFound short-circuits generation with a canned empty
// response, and no LLM call, when retrieval found nothing.
func generateNotFound(st *State) {
	st.Answer = noInformationAnswer
	st.Sources = nil
	st.ContextVerdict = model.ContextEmpty
	st.LastVerdict = model.ContextEmpty
	st.Confident = false
}

// generateRAG issues the structured-JSON generation call for route=rag,
// back-mapping cited filenames to their originating chunks so sources
// carry the correct session/library origin.
func generateRAG(ctx context.Context, caller llmCaller, st *State) error {
	raw, err := caller.Call(ctx, fmt.Sprintf(ragPrompt, renderContext(st.Chunks), sanitize.Query(st.Query)), false)
	if err != nil {
		return fmt.Errorf("pipeline: rag generation: %w", err)
	}

	obj, ok := llm.ExtractJSON(raw)
	if !ok {
		// A JSON-parse failure falls back to treating the raw response
		// as the answer rather than surfacing an error.
		st.Answer = strings.TrimSpace(raw)
		st.ContextVerdict = model.ContextSufficient
		st.LastVerdict = model.ContextSufficient
		st.Sources = sourcesFromChunks(st.Chunks)
		return nil
	}

	verdict := model.ContextVerdict(strings.ToUpper(strings.TrimSpace(llm.Field(obj, "context_verdict").String())))
	switch verdict {
	case model.ContextSufficient, model.ContextGap, model.ContextEmpty:
	default:
		verdict = model.ContextSufficient
	}

	st.ContextVerdict = verdict
	st.LastVerdict = verdict
	st.Reasoning = llm.Field(obj, "reasoning").String()
	st.Answer = strings.TrimSpace(llm.Field(obj, "answer").String())
	st.MissingInfo = llm.Field(obj, "missing_info").String()
	st.Sources = backMapSources(llm.Field(obj, "sources").Array(), st.Chunks)
	return nil
}

func renderContext(chunks []model.Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "[%d] (%s, page %d)\n%s\n\n", i+1, c.Filename, c.Page, c.Text)
	}
	return b.String()
}

func sourcesFromChunks(chunks []model.Chunk) []model.SourceRef {
	var out []model.SourceRef
	seen := make(map[string]bool)
	for _, c := range chunks {
		key := c.Filename
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.SourceRef{Filename: c.Filename, Page: c.Page, Origin: c.Source})
	}
	return out
}

// backMapSources resolves the LLM's cited {filename, page} pairs back
// to the retrieved chunk set so each citation carries its Origin
// (session vs library).
func backMapSources(cited []gjson.Result, chunks []model.Chunk) []model.SourceRef {
	byFilename := make(map[string]model.Chunk, len(chunks))
	for _, c := range chunks {
		if _, ok := byFilename[c.Filename]; !ok {
			byFilename[c.Filename] = c
		}
	}

	var out []model.SourceRef
	seen := make(map[string]bool)
	for _, item := range cited {
		filename := item.Get("filename").String()
		page := int(item.Get("page").Int())
		c, ok := byFilename[filename]
		if !ok {
			continue
		}
		key := fmt.Sprintf("%s#%d", filename, page)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.SourceRef{Filename: filename, Page: page, Origin: c.Source})
	}
	if len(out) == 0 {
		return sourcesFromChunks(chunks)
	}
	return out
}
