package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/llmerrors"
	"grindhub/pkg/completion"
	"grindhub/pkg/logx"
)

// label is the structured reply shape.
type label struct {
	Intent string `json:"intent" jsonschema:"Intent of the user message"`
}

const promptHeader = `You are an AI assistant that classifies user intents based on their messages.
Given the user message, classify the intent into one of the following categories:
`

const promptFooter = `
User Message: %s
Return the intent as a string. Please make sure that the string is exactly the same as the categories above.
`

// Classifier maps a user message onto the taxonomy with one structured completion.
type Classifier struct {
	completions *completion.Client
	schema      *completion.Schema
	logger      *logx.Logger
}

// NewClassifier creates a classifier. The reply schema restricts the label to the taxonomy,
// so an out-of-taxonomy answer fails validation and is retried.
func NewClassifier(c *completion.Client) (*Classifier, error) {
	schema, err := completion.SchemaFor[label](func(s *jsonschema.Schema) {
		labels := make([]any, 0, len(All()))
		for _, in := range All() {
			labels = append(labels, string(in))
		}
		s.Properties["intent"].Enum = labels
	})
	if err != nil {
		return nil, fmt.Errorf("intent schema: %w", err)
	}
	return &Classifier{
		completions: c,
		schema:      schema,
		logger:      logx.NewLogger("intent"),
	}, nil
}

// Prompt renders the classification prompt for message.
func Prompt(message string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for i, in := range All() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, in)
	}
	fmt.Fprintf(&b, promptFooter, message)
	return b.String()
}

// Classify returns the intent of message. The result is always one of All().
//
// When every attempt produced output outside the taxonomy the message is routed to Other.
// Exhaustion caused by anything else (transport, rate limit, auth) is returned as an error.
func (c *Classifier) Classify(ctx context.Context, message string) (Intent, error) {
	out, err := completion.StructuredWith[label](ctx, c.completions, c.schema, Prompt(message), completion.Options{
		Temperature: llm.TemperatureFactual,
		Label:       llm.LabelIntent,
	})
	if err != nil {
		if llmerrors.IsExhausted(err) && llmerrors.Is(llmerrors.LastCause(err), llmerrors.ErrorTypeSchemaValidation) {
			c.logger.WithContext(ctx).Warn("no valid intent after retries, routing to %q: %v", Other, err)
			return Other, nil
		}
		return "", fmt.Errorf("classify intent: %w", err)
	}

	in, ok := Parse(strings.TrimSpace(out.Intent))
	if !ok {
		// Unreachable while the schema enum holds.
		c.logger.WithContext(ctx).Warn("classifier returned %q, routing to %q", out.Intent, Other)
		return Other, nil
	}
	logx.Debug(ctx, "intent", "classified as %q", in)
	return in, nil
}
