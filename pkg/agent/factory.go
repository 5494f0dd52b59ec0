package agent

import (
	"fmt"

	"grindhub/pkg/agent/internal/llmimpl/anthropic"
	"grindhub/pkg/agent/internal/llmimpl/google"
	"grindhub/pkg/agent/internal/llmimpl/ollama"
	"grindhub/pkg/agent/internal/llmimpl/openaiofficial"
	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/middleware/logging"
	"grindhub/pkg/agent/middleware/metrics"
	"grindhub/pkg/agent/middleware/resilience/timeout"
	"grindhub/pkg/agent/middleware/validation"
	"grindhub/pkg/config"
	"grindhub/pkg/logx"
)

// LLMClient is re-exported so callers outside pkg/agent need only one import for wiring.
type LLMClient = llm.LLMClient

// LLMClientFactory creates LLM clients with properly configured middleware chains.
type LLMClientFactory struct {
	config   config.LLMConfig
	recorder metrics.Recorder
	logger   *logx.Logger
}

// NewLLMClientFactory creates a new LLM client factory. A nil recorder disables metrics.
func NewLLMClientFactory(cfg config.LLMConfig, recorder metrics.Recorder) *LLMClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &LLMClientFactory{
		config:   cfg,
		recorder: recorder,
		logger:   logx.NewLogger("llm"),
	}
}

// CreateClient creates the configured provider client with the full middleware chain.
func (f *LLMClientFactory) CreateClient() (LLMClient, error) {
	raw, err := f.newRawClient()
	if err != nil {
		return nil, err
	}
	return f.Wrap(raw), nil
}

// Wrap applies the middleware chain to an existing client.
//
// Chain order: Logging -> Metrics -> EmptyResponse -> Timeout -> RawClient.
func (f *LLMClientFactory) Wrap(raw LLMClient) LLMClient {
	return llm.Chain(raw,
		logging.Middleware(f.logger),
		metrics.Middleware(f.recorder, nil, f.logger),
		validation.EmptyResponseMiddleware(),
		timeout.Middleware(f.config.RequestTimeout),
	)
}

func (f *LLMClientFactory) newRawClient() (LLMClient, error) {
	model := f.config.Model
	if model == "" {
		model = config.DefaultModelFor(f.config.Provider)
	}

	if f.config.Provider != config.ProviderOllama && f.config.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %s", f.config.Provider)
	}

	switch f.config.Provider {
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(f.config.APIKey, model), nil
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClientWithModel(f.config.APIKey, model), nil
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(f.config.APIKey, model), nil
	case config.ProviderOllama:
		return ollama.NewOllamaClientWithModel(f.config.Host, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", f.config.Provider)
	}
}
