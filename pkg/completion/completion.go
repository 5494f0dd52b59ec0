// Package completion wraps an LLM client with free-text and schema-constrained calls.
//
// Every call runs through the retry policy. For structured calls, parsing and schema
// validation happen inside the retried attempt, so a malformed reply costs one attempt
// exactly like a transport failure.
package completion

import (
	"context"
	"fmt"
	"strings"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/llmerrors"
	"grindhub/pkg/agent/middleware/resilience/retry"
	"grindhub/pkg/logx"
)

// Options tune a single call. Zero values fall back to the client defaults.
type Options struct {
	System      string
	Temperature float32
	MaxTokens   int
	// Label names the call site for logs and metrics (llm.Label*).
	Label string
}

// Client issues completions through a retry policy.
type Client struct {
	llm      llm.LLMClient
	policy   *retry.Policy
	defaults Options
	logger   *logx.Logger
}

// New creates a completion client. A nil policy uses retry.DefaultConfig.
func New(client llm.LLMClient, policy *retry.Policy, defaults Options) *Client {
	if policy == nil {
		policy = retry.NewPolicy(retry.DefaultConfig, nil)
	}
	if defaults.Temperature == 0 {
		defaults.Temperature = llm.TemperatureFactual
	}
	if defaults.MaxTokens == 0 {
		defaults.MaxTokens = llm.DefaultMaxTokens
	}
	c := &Client{
		llm:      client,
		policy:   policy,
		defaults: defaults,
		logger:   logx.NewLogger("completion"),
	}
	return c
}

// Policy returns the retry policy shared by every call.
func (c *Client) Policy() *retry.Policy {
	return c.policy
}

// Model returns the backing model name.
func (c *Client) Model() string {
	return c.llm.GetModelName()
}

func (c *Client) request(prompt string, opts Options) llm.CompletionRequest {
	system := opts.System
	if system == "" {
		system = c.defaults.System
	}
	var messages []llm.CompletionMessage
	if system != "" {
		messages = append(messages, llm.NewSystemMessage(system))
	}
	messages = append(messages, llm.NewUserMessage(prompt))

	req := llm.NewCompletionRequest(messages)
	req.Temperature = c.defaults.Temperature
	if opts.Temperature != 0 {
		req.Temperature = opts.Temperature
	}
	req.MaxTokens = c.defaults.MaxTokens
	if opts.MaxTokens != 0 {
		req.MaxTokens = opts.MaxTokens
	}
	req.Label = opts.Label
	if req.Label == "" {
		req.Label = c.defaults.Label
	}
	return req
}

// retrying runs one attempt function through the policy, logging each retry.
func retrying[T any](ctx context.Context, c *Client, label string, attempt func(context.Context) (T, error)) (T, error) {
	p := *c.policy
	log := c.logger.WithContext(ctx)
	p.OnRetry = func(n int, err error) {
		log.Warn("%s attempt %d/%d after %s: %v", label, n, p.Config.MaxAttempts, llmerrors.TypeOf(err), err)
	}
	return retry.Do(ctx, &p, attempt)
}

// Text runs a free-text completion and returns the reply trimmed of whitespace and
// of a single wrapping code fence. An empty reply is a failed attempt.
func (c *Client) Text(ctx context.Context, prompt string, opts Options) (string, error) {
	req := c.request(prompt, opts)
	return retrying(ctx, c, req.Label, func(ctx context.Context) (string, error) {
		resp, err := c.llm.Complete(ctx, req)
		if err != nil {
			return "", fmt.Errorf("%s completion: %w", req.Label, err)
		}
		text := CleanText(resp.Content)
		if text == "" {
			return "", llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "model returned no content")
		}
		return text, nil
	})
}

// CleanText trims whitespace and unwraps a reply that is entirely one fenced block.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := s[3 : len(s)-3]
	// Drop an info string such as "json" or "markdown" on the opening line.
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 && !strings.ContainsAny(inner[:nl], " \t{[") {
		inner = inner[nl+1:]
	}
	if strings.Contains(inner, "```") {
		return s
	}
	return strings.TrimSpace(inner)
}
