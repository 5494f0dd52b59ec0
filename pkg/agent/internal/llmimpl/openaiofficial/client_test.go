package openaiofficial

import (
	"math"
	"strings"
	"testing"

	"grindhub/pkg/agent/llm"
)

// TestNewOfficialClientWithModel tests client creation with custom model.
func TestNewOfficialClientWithModel(t *testing.T) {
	client := NewOfficialClientWithModel("test-api-key", "gpt-4o-mini")
	if client == nil {
		t.Fatal("expected client, got nil")
	}
	if client.GetModelName() != "gpt-4o-mini" {
		t.Errorf("expected model %q, got %q", "gpt-4o-mini", client.GetModelName())
	}
}

// TestBuildParamsSplitsSystem moves system messages into instructions.
func TestBuildParamsSplitsSystem(t *testing.T) {
	o := NewOfficialClientWithModel("k", "gpt-4o-mini").(*OfficialClient)

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage("You are a study assistant."),
		llm.NewUserMessage("how did I do on my last math quiz"),
	})
	params, err := o.buildParams(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Instructions.Value != "You are a study assistant." {
		t.Errorf("instructions = %q", params.Instructions.Value)
	}
	if params.Input.OfString.Value != "how did I do on my last math quiz" {
		t.Errorf("input = %q", params.Input.OfString.Value)
	}
	if math.Abs(params.Temperature.Value-float64(llm.TemperatureFactual)) > 1e-6 {
		t.Errorf("temperature = %v", params.Temperature.Value)
	}
}

// TestBuildParamsCapsMaxTokens clamps to the model's known limit.
func TestBuildParamsCapsMaxTokens(t *testing.T) {
	o := NewOfficialClientWithModel("k", "gpt-4o-mini").(*OfficialClient)
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("x")})
	req.MaxTokens = 1_000_000

	params, err := o.buildParams(req)
	if err != nil {
		t.Fatal(err)
	}
	if params.MaxOutputTokens.Value != 16384 {
		t.Errorf("max tokens = %d, want 16384", params.MaxOutputTokens.Value)
	}
}

// TestBuildParamsLabelsMultiTurn prefixes speakers when history is present.
func TestBuildParamsLabelsMultiTurn(t *testing.T) {
	o := NewOfficialClientWithModel("k", "gpt-4o-mini").(*OfficialClient)
	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewUserMessage("hello"),
		{Role: llm.RoleAssistant, Content: "hi!"},
		llm.NewUserMessage("bye"),
	})
	params, err := o.buildParams(req)
	if err != nil {
		t.Fatal(err)
	}
	want := "User: hello\n\nAssistant: hi!\n\nUser: bye"
	if params.Input.OfString.Value != want {
		t.Errorf("input = %q, want %q", params.Input.OfString.Value, want)
	}
}

// TestBuildParamsRejectsEmpty needs at least one non-system message.
func TestBuildParamsRejectsEmpty(t *testing.T) {
	o := NewOfficialClientWithModel("k", "gpt-4o-mini").(*OfficialClient)
	for _, msgs := range [][]llm.CompletionMessage{
		nil,
		{llm.NewSystemMessage("only system")},
	} {
		_, err := o.buildParams(llm.NewCompletionRequest(msgs))
		if err == nil || !strings.Contains(err.Error(), "message") {
			t.Errorf("expected conversion error for %v, got %v", msgs, err)
		}
	}
}
