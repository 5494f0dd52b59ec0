// Package timeout provides timeout middleware for LLM clients.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/llmerrors"
)

// Middleware returns a middleware function that wraps an LLM client with per-request timeout logic.
// An expired request deadline surfaces as a transport error so the retry policy treats it like
// any other unreachable backend. Cancellation of the caller's own context passes through.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		if duration <= 0 {
			return next
		}
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()

				resp, err := next.Complete(timeoutCtx, req)
				if err != nil && ctx.Err() == nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
					return resp, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransport, err,
						fmt.Sprintf("request exceeded %s timeout", duration))
				}
				return resp, err
			},
			next.GetModelName,
		)
	}
}
