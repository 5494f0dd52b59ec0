package retry

import (
	"context"

	"grindhub/pkg/agent/llm"
)

// Middleware returns a middleware function that wraps an LLM client with retry logic.
// Completion-level callers use Do directly so that output validation shares the budget.
func Middleware(policy *Policy) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				return Do(ctx, policy, func(ctx context.Context) (llm.CompletionResponse, error) {
					return next.Complete(ctx, req)
				})
			},
			next.GetModelName,
		)
	}
}
