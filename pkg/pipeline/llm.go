package pipeline

import "context"

// llmCaller is the subset of pkg/llm.Client the pipeline needs,
// narrowed to an interface so nodes can be tested against a stub
// without a live model endpoint.
type llmCaller interface {
	Call(ctx context.Context, prompt string, smallCtx bool) (string, error)
}
