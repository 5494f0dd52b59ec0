// Package validation provides response validation middleware for LLM clients.
package validation

import (
	"context"
	"strings"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/llmerrors"
)

// EmptyResponseMiddleware turns a whitespace-only reply into an empty-response error,
// so retry treats it as a failed attempt.
func EmptyResponseMiddleware() llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				if err != nil {
					return resp, err //nolint:wrapcheck // pass through
				}
				if strings.TrimSpace(resp.Content) == "" {
					e := llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "model returned no content")
					if resp.StopReason != "" {
						e.Message += " (stop reason: " + resp.StopReason + ")"
					}
					return resp, e
				}
				return resp, nil
			},
			next.GetModelName,
		)
	}
}
