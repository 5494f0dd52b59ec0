package google

import (
	"strings"
	"testing"

	"google.golang.org/genai"

	"grindhub/pkg/agent/llm"
)

// TestNewGeminiClientWithModel tests client creation with custom model.
func TestNewGeminiClientWithModel(t *testing.T) {
	client := NewGeminiClientWithModel("test-api-key", "gemini-2.0-flash")
	if client == nil {
		t.Fatal("expected client, got nil")
	}
	if client.GetModelName() != "gemini-2.0-flash" {
		t.Errorf("expected model %q, got %q", "gemini-2.0-flash", client.GetModelName())
	}
}

// TestConvertMessagesToGemini tests message conversion logic.
func TestConvertMessagesToGemini(t *testing.T) {
	tests := []struct {
		name             string
		messages         []llm.CompletionMessage
		expectSystem     string
		expectContentLen int
		errContains      string
	}{
		{
			name:        "empty messages",
			messages:    []llm.CompletionMessage{},
			errContains: "message list cannot be empty",
		},
		{
			name: "system message extracted",
			messages: []llm.CompletionMessage{
				{Role: llm.RoleSystem, Content: "You are a friendly study assistant"},
				{Role: llm.RoleUser, Content: "hi there"},
			},
			expectSystem:     "You are a friendly study assistant",
			expectContentLen: 1,
		},
		{
			name: "multiple system messages joined",
			messages: []llm.CompletionMessage{
				{Role: llm.RoleSystem, Content: "one"},
				{Role: llm.RoleSystem, Content: "two"},
				{Role: llm.RoleUser, Content: "hello"},
				{Role: llm.RoleAssistant, Content: "hey"},
				{Role: llm.RoleUser, Content: "bye"},
			},
			expectSystem:     "one\n\ntwo",
			expectContentLen: 3,
		},
		{
			name:        "only system",
			messages:    []llm.CompletionMessage{{Role: llm.RoleSystem, Content: "x"}},
			errContains: "non-system",
		},
		{
			name:        "bad role",
			messages:    []llm.CompletionMessage{{Role: "tool", Content: "x"}},
			errContains: "unsupported message role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents, system, err := convertMessagesToGemini(tt.messages)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if system != tt.expectSystem {
				t.Errorf("system = %q, want %q", system, tt.expectSystem)
			}
			if len(contents) != tt.expectContentLen {
				t.Errorf("contents = %d, want %d", len(contents), tt.expectContentLen)
			}
		})
	}
}

// TestAssistantRoleMapsToModel checks Gemini's role naming.
func TestAssistantRoleMapsToModel(t *testing.T) {
	contents, _, err := convertMessagesToGemini([]llm.CompletionMessage{
		{Role: llm.RoleUser, Content: "a"},
		{Role: llm.RoleAssistant, Content: "b"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("assistant role = %q, want %q", contents[1].Role, genai.RoleModel)
	}
}

// TestGetStopReason maps finish reasons.
func TestGetStopReason(t *testing.T) {
	mk := func(r genai.FinishReason) *genai.GenerateContentResponse {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: r}}}
	}
	tests := []struct {
		resp *genai.GenerateContentResponse
		want string
	}{
		{nil, "unknown"},
		{mk(genai.FinishReasonStop), "end_turn"},
		{mk(genai.FinishReasonMaxTokens), "max_tokens"},
		{mk(genai.FinishReasonSafety), "safety"},
	}
	for _, tt := range tests {
		if got := getStopReason(tt.resp); got != tt.want {
			t.Errorf("getStopReason() = %q, want %q", got, tt.want)
		}
	}
}
