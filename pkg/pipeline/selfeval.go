package pipeline

import "github.com/kadirpekel/docuquery/pkg/model"

// selfEvaluate grades the answer by thresholding the top rerank score
// from Retrieval, at the cost of carrying that score across the
// rewriter loop. An LLM-judge grading call would work here too; the
// score-based variant answers the same question without a second model
// round-trip per query.
func selfEvaluate(topRerankScore float32, cfg Config) model.Verdict {
	switch {
	case topRerankScore >= cfg.ConfidenceThreshold:
		return model.VerdictGood
	case topRerankScore >= cfg.UnsureThreshold:
		return model.VerdictUnsure
	default:
		return model.VerdictBad
	}
}
