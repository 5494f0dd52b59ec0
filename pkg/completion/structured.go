package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/tidwall/gjson"

	"grindhub/pkg/agent/llmerrors"
)

// formatPreamble opens every structured prompt.
const formatPreamble = "Answer the user query."

// Schema is a resolved JSON schema together with its prompt rendering.
type Schema struct {
	resolved     *jsonschema.Resolved
	instructions string
}

// SchemaFor derives the schema of T. refine, when non-nil, may tighten it (enums, descriptions)
// before resolution.
func SchemaFor[T any](refine func(*jsonschema.Schema)) (*Schema, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("derive schema: %w", err)
	}
	// Extra keys in a reply are ignored on decode, as long as the declared ones validate.
	s.AdditionalProperties = nil
	if refine != nil {
		refine(s)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render schema: %w", err)
	}
	return &Schema{
		resolved: resolved,
		instructions: "The output should be formatted as a JSON instance that conforms to the JSON schema below.\n" +
			"Reply with the JSON object only.\n\n```json\n" + string(raw) + "\n```",
	}, nil
}

// Instructions returns the format instructions rendered for the prompt.
func (s *Schema) Instructions() string {
	return s.instructions
}

// Decode extracts the JSON object from reply, validates it and decodes it into out.
// Any failure is a schema validation error.
func (s *Schema) Decode(reply string, out any) error {
	raw, ok := ExtractJSON(reply)
	if !ok {
		return llmerrors.NewSchemaError(errors.New("no JSON object in reply"), reply)
	}

	var instance map[string]any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return llmerrors.NewSchemaError(err, reply)
	}
	if err := s.resolved.Validate(instance); err != nil {
		return llmerrors.NewSchemaError(err, reply)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return llmerrors.NewSchemaError(err, reply)
	}
	return nil
}

// RenderPrompt joins the preamble, format instructions and the caller's prompt.
func (s *Schema) RenderPrompt(prompt string) string {
	return formatPreamble + "\n" + s.instructions + "\n" + prompt + "\n"
}

// Structured runs a schema-constrained completion and decodes the reply into T.
func Structured[T any](ctx context.Context, c *Client, prompt string, opts Options) (T, error) {
	var zero T
	schema, err := SchemaFor[T](nil)
	if err != nil {
		return zero, err
	}
	return StructuredWith[T](ctx, c, schema, prompt, opts)
}

// StructuredWith is Structured with a precomputed (possibly refined) schema.
func StructuredWith[T any](ctx context.Context, c *Client, schema *Schema, prompt string, opts Options) (T, error) {
	req := c.request(schema.RenderPrompt(prompt), opts)
	return retrying(ctx, c, req.Label, func(ctx context.Context) (T, error) {
		var out T
		resp, err := c.llm.Complete(ctx, req)
		if err != nil {
			return out, fmt.Errorf("%s completion: %w", req.Label, err)
		}
		if err := schema.Decode(resp.Content, &out); err != nil {
			return out, err
		}
		return out, nil
	})
}

// ExtractJSON finds the JSON object in a model reply: a fenced block, the bare reply,
// or the outermost braces embedded in prose.
func ExtractJSON(reply string) (string, bool) {
	s := strings.TrimSpace(reply)
	if cleaned := CleanText(s); cleaned != s {
		s = cleaned
	} else if start := strings.Index(s, "```"); start >= 0 {
		body := s[start+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			s = strings.TrimSpace(body[:end])
		}
	}

	if gjson.Valid(s) && gjson.Parse(s).IsObject() {
		return s, true
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	candidate := s[start : end+1]
	if !gjson.Valid(candidate) || !gjson.Parse(candidate).IsObject() {
		return "", false
	}
	return candidate, true
}
