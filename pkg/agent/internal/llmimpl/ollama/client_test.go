package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/llmerrors"
)

func TestNewOllamaClientWithModel(t *testing.T) {
	tests := []struct {
		name     string
		hostURL  string
		wantHost string
	}{
		{"valid host", "http://localhost:11434", "http://localhost:11434"},
		{"custom host", "http://gpu-box:11434", "http://gpu-box:11434"},
		{"invalid host falls back", "::not a url", DefaultHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewOllamaClientWithModel(tt.hostURL, "llama3.1")
			require.NotNil(t, client)
			assert.Equal(t, "llama3.1", client.GetModelName())
			assert.Equal(t, tt.wantHost, client.(*Client).hostURL)
		})
	}
}

func TestConvertMessagesToOllama(t *testing.T) {
	_, err := convertMessagesToOllama(nil)
	require.Error(t, err)

	msgs, err := convertMessagesToOllama([]llm.CompletionMessage{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "hi there"},
		{Role: llm.RoleAssistant, Content: "hello!"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)

	_, err = convertMessagesToOllama([]llm.CompletionMessage{{Role: "tool", Content: "x"}})
	assert.ErrorContains(t, err, "unsupported message role")
}

func TestGetStopReason(t *testing.T) {
	tests := []struct {
		resp api.ChatResponse
		want string
	}{
		{api.ChatResponse{Done: false}, "incomplete"},
		{api.ChatResponse{Done: true, DoneReason: "stop"}, "end_turn"},
		{api.ChatResponse{Done: true}, "end_turn"},
		{api.ChatResponse{Done: true, DoneReason: "length"}, "max_tokens"},
		{api.ChatResponse{Done: true, DoneReason: "load"}, "load"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getStopReason(&tt.resp))
	}
}

func TestClassifyError(t *testing.T) {
	assert.NoError(t, classifyError(nil))

	tests := []struct {
		msg  string
		want llmerrors.ErrorType
	}{
		{"dial tcp 127.0.0.1:11434: connect: connection refused", llmerrors.ErrorTypeTransport},
		{`model "llama9" not found, try pulling it first`, llmerrors.ErrorTypeBadPrompt},
		{"i/o timeout", llmerrors.ErrorTypeTransport},
		{"weird", llmerrors.ErrorTypeUnknown},
	}
	for _, tt := range tests {
		err := classifyError(errors.New(tt.msg))
		assert.Equal(t, tt.want, llmerrors.TypeOf(err), tt.msg)
	}
}

// TestCompleteAgainstServer drives a full chat round trip against a fake Ollama server.
func TestCompleteAgainstServer(t *testing.T) {
	var got api.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.ChatResponse{
			Model:      "llama3.1",
			Message:    api.Message{Role: "assistant", Content: "Hello! How can I help you study today?"},
			Done:       true,
			DoneReason: "stop",
			Metrics:    api.Metrics{PromptEvalCount: 21, EvalCount: 9},
		})
	}))
	defer srv.Close()

	client := NewOllamaClientWithModel(srv.URL, "llama3.1")
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("hi there")})
	req.Temperature = llm.TemperatureConversational

	resp, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you study today?", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 21, resp.Usage.PromptTokens)
	assert.Equal(t, 9, resp.Usage.CompletionTokens)

	assert.Equal(t, "llama3.1", got.Model)
	require.Len(t, got.Messages, 1)
	assert.InDelta(t, 0.7, got.Options["temperature"], 0.001)
}
