package agent

import (
	"context"
	"fmt"
	"sync"

	"grindhub/pkg/agent/llm"
)

// MockStep is one scripted outcome of a Complete call.
type MockStep struct {
	Content string
	Err     error
}

// Reply scripts a successful completion.
func Reply(content string) MockStep {
	return MockStep{Content: content}
}

// Fail scripts a failed completion.
func Fail(err error) MockStep {
	return MockStep{Err: err}
}

// MockLLMClient provides a controllable implementation of LLMClient for testing.
//
// Steps are scripted per request label (see llm.Label*). Each label's queue is consumed in
// order and its last step repeats once reached, so a single Fail step means "always fail".
// Requests whose label has no script use the default queue.
type MockLLMClient struct {
	mu       sync.Mutex
	model    string
	scripts  map[string][]MockStep
	fallback []MockStep
	handler  func(llm.CompletionRequest) (llm.CompletionResponse, error)
	requests []llm.CompletionRequest
}

// NewMockLLMClient creates a new mock client whose default queue holds steps.
func NewMockLLMClient(steps ...MockStep) *MockLLMClient {
	return &MockLLMClient{
		model:    "mock-model",
		scripts:  make(map[string][]MockStep),
		fallback: steps,
	}
}

// On scripts the steps for requests carrying label.
func (m *MockLLMClient) On(label string, steps ...MockStep) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[label] = steps
	return m
}

// WithHandler installs a function consulted before any script. Returning a nil
// response and nil error falls through to the scripts.
func (m *MockLLMClient) WithHandler(fn func(llm.CompletionRequest) (llm.CompletionResponse, error)) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
	return m
}

// Complete returns the next scripted response or error.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.CompletionResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.handler != nil {
		resp, err := m.handler(req)
		if err != nil || resp.Content != "" {
			return resp, err
		}
	}

	queue, ok := m.scripts[req.Label]
	if !ok {
		queue = m.fallback
	}
	if len(queue) == 0 {
		return llm.CompletionResponse{}, fmt.Errorf("mock client: no response scripted for label %q", req.Label)
	}

	step := queue[0]
	if len(queue) > 1 {
		queue = queue[1:]
	}
	if ok {
		m.scripts[req.Label] = queue
	} else {
		m.fallback = queue
	}

	if step.Err != nil {
		return llm.CompletionResponse{}, step.Err
	}
	return llm.CompletionResponse{Content: step.Content, StopReason: "end_turn"}, nil
}

// GetModelName returns the mock model name.
func (m *MockLLMClient) GetModelName() string {
	return m.model
}

// Calls returns the total number of Complete calls.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// CallsFor returns the number of Complete calls carrying label.
func (m *MockLLMClient) CallsFor(label string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.requests {
		if m.requests[i].Label == label {
			n++
		}
	}
	return n
}

// Requests returns a copy of every request received.
func (m *MockLLMClient) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request carrying label.
func (m *MockLLMClient) LastRequest(label string) (llm.CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.requests) - 1; i >= 0; i-- {
		if m.requests[i].Label == label {
			return m.requests[i], true
		}
	}
	return llm.CompletionRequest{}, false
}

// Prompt joins the message contents of req; tests use it to assert on prompt text.
func Prompt(req llm.CompletionRequest) string {
	var out string
	for i := range req.Messages {
		if i > 0 {
			out += "\n"
		}
		out += req.Messages[i].Content
	}
	return out
}
