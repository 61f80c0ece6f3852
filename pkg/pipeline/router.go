package pipeline

import "strings"

// summaryKeywords are the fixed set of summarization trigger words the
// Router checks for, including two common misspellings.
var summaryKeywords = []string{
	"summarize", "summary", "summarise", "overview", "tldr", "tl;dr",
	"brief", "outline", "recap", "summerize", "summerise",
}

// route is the Router's pure decision function: it never calls the LLM
// or touches the indexes.
func route(query string, selectedDocIDs []string, webMode bool) Route {
	if webMode {
		return RouteRAG
	}
	hasSelection := len(selectedDocIDs) > 0
	if hasSelection && containsSummaryKeyword(query) {
		return RouteSummarize
	}
	if hasSelection {
		return RouteRAG
	}
	return RouteChat
}

func containsSummaryKeyword(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
