package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kadirpekel/docuquery/pkg/ingest"
	"github.com/kadirpekel/docuquery/pkg/parse"
)

const summarizePrompt = `Summarize the following document(s) for the user.

%s

Produce a clear, well-organized summary covering the main points.`

// summarize loads the full text of the session's selected documents,
// bypassing retrieval entirely, truncates to a context-window budget,
// and issues one LLM call. Terminal node.
func summarize(ctx context.Context, caller llmCaller, corpus *ingest.Manager, sessionID string, selectedDocIDs []string, cfg Config) (string, error) {
	var b strings.Builder
	docsDir := corpus.Paths.DocsDir(&sessionID)

	for _, docID := range selectedDocIDs {
		doc, err := corpus.Store.GetDocument(ctx, docID)
		if err != nil {
			continue
		}
		path := filepath.Join(docsDir, docID+".pdf")
		pages, err := parse.PDF(ctx, path, doc.Filename)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "=== %s ===\n", doc.Filename)
		for _, p := range pages {
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	text := truncate(b.String(), cfg.SummaryCharBudget)
	answer, err := caller.Call(ctx, fmt.Sprintf(summarizePrompt, text), false)
	if err != nil {
		return "", fmt.Errorf("pipeline: summarize: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
