// Package logging provides logging middleware for LLM clients.
package logging

import (
	"context"
	"time"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/llmerrors"
	"grindhub/pkg/logx"
)

// promptPreviewChars bounds how much of a prompt reaches the log on failure.
const promptPreviewChars = 400

// Middleware returns a middleware function that logs each completion call.
// Successful calls are logged at debug; failures at warn with a sanitized prompt preview.
// Errors pass through unchanged.
func Middleware(logger *logx.Logger) llm.Middleware {
	if logger == nil {
		logger = logx.NewLogger("llm")
	}
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				log := logger.WithContext(ctx)

				if err == nil {
					log.Debug("%s completed in %dms (%d chars)", labelOf(req), time.Since(start).Milliseconds(), len(resp.Content))
					return resp, nil
				}

				log.Warn("%s failed after %dms: %s: %v", labelOf(req), time.Since(start).Milliseconds(),
					llmerrors.TypeOf(err), err)
				if llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse) || llmerrors.Is(err, llmerrors.ErrorTypeBadPrompt) {
					logRequest(log, req)
				}

				//nolint:wrapcheck // Middleware intentionally passes through errors unchanged
				return resp, err
			},
			next.GetModelName,
		)
	}
}

func labelOf(req llm.CompletionRequest) string {
	if req.Label == "" {
		return "completion"
	}
	return req.Label
}

// logRequest dumps the request shape for failures that depend on prompt content.
func logRequest(log *logx.Logger, req llm.CompletionRequest) {
	log.Warn("request: temperature=%.2f max_tokens=%d messages=%d", req.Temperature, req.MaxTokens, len(req.Messages))
	for i := range req.Messages {
		msg := &req.Messages[i]
		log.Warn("message[%d] %s: %s", i, msg.Role, llmerrors.SanitizePrompt(msg.Content, promptPreviewChars))
	}
}
