package pipeline

// Config enumerates the retrieval and rewrite-loop knobs.
type Config struct {
	RetrieveTopK        int
	RerankTopN          int
	MaxRewrites         int
	MaxAltQueries       int
	ConfidenceThreshold float32
	UnsureThreshold     float32
	SummaryCharBudget   int
}

// DefaultConfig returns the default knob values.
func DefaultConfig() Config {
	return Config{
		RetrieveTopK:        20,
		RerankTopN:          5,
		MaxRewrites:         2,
		MaxAltQueries:       3,
		ConfidenceThreshold: 0.7,
		UnsureThreshold:     0.4,
		SummaryCharBudget:   12000,
	}
}

// bm25Weights returns the (dense, bm25) fusion weights for a query
// type: simple queries lean on BM25 (exact keyword recall matters more
// for short factoid queries), everything else leans on dense
// similarity.
func bm25Weights(qt QueryType) (dense, bm25 float32) {
	if qt == QueryTypeSimple {
		return 0.4, 0.6
	}
	return 0.8, 0.2
}
