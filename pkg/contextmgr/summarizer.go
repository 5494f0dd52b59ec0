// Package contextmgr maintains the running context: a rolling summary of the
// conversation that is fed to responders on the next turn.
package contextmgr

import (
	"context"
	"fmt"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/middleware/metrics"
	"grindhub/pkg/completion"
	"grindhub/pkg/logx"
)

const summaryPrompt = `Summarise the following conversation between a user and a chatbot AI Agent. Please make sure that current context is included in the summary.
context : %s
user_message : %s
chatbot response : %s`

// Summarizer folds a finished turn into the running context.
type Summarizer struct {
	completions *completion.Client
	logger      *logx.Logger
}

// NewSummarizer creates a summarizer.
func NewSummarizer(c *completion.Client) *Summarizer {
	return &Summarizer{
		completions: c,
		logger:      logx.NewLogger("contextmgr"),
	}
}

// Prompt renders the summary prompt.
func Prompt(prior, message, reply string) string {
	return fmt.Sprintf(summaryPrompt, prior, message, reply)
}

// Summarize returns the new running context. The summary is not length-capped; its
// token count is logged so growth is visible. On error the caller keeps prior.
func (s *Summarizer) Summarize(ctx context.Context, prior, message, reply string) (string, error) {
	summary, err := s.completions.Text(ctx, Prompt(prior, message, reply), completion.Options{
		Temperature: llm.TemperatureFactual,
		Label:       llm.LabelSummary,
	})
	if err != nil {
		return "", fmt.Errorf("summarize turn: %w", err)
	}
	logx.Debug(ctx, "contextmgr", "running context now %d tokens (was %d)",
		metrics.CountTokens(summary), metrics.CountTokens(prior))
	return summary, nil
}
