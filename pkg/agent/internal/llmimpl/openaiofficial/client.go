// Package openaiofficial provides OpenAI client implementation using the official OpenAI Go package.
package openaiofficial

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/llmerrors"
	"grindhub/pkg/config"
)

// OfficialClient wraps the official OpenAI Go client to implement llm.LLMClient interface.
//
//nolint:govet // Simple struct, field alignment not critical
type OfficialClient struct {
	client openai.Client
	model  string
}

// NewOfficialClientWithModel creates a new OpenAI client with specific model using the official package (raw client, middleware applied at higher level).
func NewOfficialClientWithModel(apiKey, model string, opts ...option.RequestOption) llm.LLMClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OfficialClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// buildParams converts a completion request into Responses API parameters.
// System messages become instructions; the remaining turns are flattened into one input.
//
//nolint:gocritic // 80 bytes is reasonable for interface compliance
func (o *OfficialClient) buildParams(in llm.CompletionRequest) (responses.ResponseNewParams, error) {
	if len(in.Messages) == 0 {
		return responses.ResponseNewParams{}, fmt.Errorf("message list cannot be empty")
	}
	system, rest := llm.SplitSystem(in.Messages)

	var input strings.Builder
	for i := range rest {
		msg := &rest[i]
		switch msg.Role {
		case llm.RoleUser:
			if len(rest) > 1 {
				input.WriteString("User: ")
			}
			input.WriteString(msg.Content)
		case llm.RoleAssistant:
			input.WriteString("Assistant: ")
			input.WriteString(msg.Content)
		default:
			return responses.ResponseNewParams{}, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
		if i < len(rest)-1 {
			input.WriteString("\n\n")
		}
	}
	if input.Len() == 0 {
		return responses.ResponseNewParams{}, fmt.Errorf("must have at least one non-system message")
	}

	// Cap MaxTokens to model's actual limit to prevent API errors
	maxTokens := in.MaxTokens
	if modelInfo, exists := config.KnownModels[o.model]; exists && modelInfo.MaxOutputTokens > 0 && maxTokens > modelInfo.MaxOutputTokens {
		maxTokens = modelInfo.MaxOutputTokens
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Temperature:     openai.Float(float64(in.Temperature)),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(input.String())},
	}
	if system != "" {
		params.Instructions = openai.String(system)
	}
	return params, nil
}

// Complete implements the llm.LLMClient interface using the Responses API.
//
//nolint:gocritic // 80 bytes is reasonable for interface compliance
func (o *OfficialClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	params, err := o.buildParams(in)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(fmt.Errorf("openai responses: %w", err))
	}
	if resp == nil {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from OpenAI Responses API")
	}

	stop := "end_turn"
	if resp.IncompleteDetails.Reason != "" {
		stop = string(resp.IncompleteDetails.Reason)
	}

	return llm.CompletionResponse{
		Content:    resp.OutputText(),
		StopReason: stop,
		Usage: &llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// GetModelName returns the model name for this client.
func (o *OfficialClient) GetModelName() string {
	return o.model
}
