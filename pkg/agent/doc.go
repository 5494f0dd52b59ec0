// Package agent builds the LLM client used by every engine component.
//
// The factory selects a provider backend from configuration and wraps it in the
// middleware chain (logging, metrics, empty-response validation, per-request timeout).
// Retry is not part of the chain: callers in pkg/completion apply it so that output
// validation failures share the same attempt budget as transport failures.
//
// Provider implementations are kept private under internal/llmimpl.
package agent
