// Package config defines the explicit configuration object for the grindhub router.
//
// Configuration is loaded once at process start (YAML file, then environment overrides)
// and passed by value into constructors. Core packages never read the environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

// Supported LLM providers.
const (
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Default model per provider. Gemini 2.0 Flash is the model the assistant was tuned on.
const (
	ModelGeminiFlash  = "gemini-2.0-flash"
	ModelGPT4oMini    = "gpt-4o-mini"
	ModelClaudeSonnet = "claude-sonnet-4-5"
	ModelLlama        = "llama3.1"
)

const (
	// DefaultTemperature matches the low temperature used for structured calls.
	DefaultTemperature = 0.2
	// DefaultMaxTokens bounds replies meant for small screens.
	DefaultMaxTokens = 1024
	// DefaultIdleTimeout is how long a running context survives without a message.
	DefaultIdleTimeout = 30 * time.Minute
)

// ModelInfo contains static pricing and provider information for a known model.
type ModelInfo struct {
	Provider        string
	InputCPM        float64 // USD per million input tokens
	OutputCPM       float64 // USD per million output tokens
	MaxOutputTokens int     // zero means no known cap
}

// KnownModels is used for cost metrics. Unknown models cost zero.
//
//nolint:gochecknoglobals // static registry
var KnownModels = map[string]ModelInfo{
	ModelGeminiFlash:   {Provider: ProviderGoogle, InputCPM: 0.10, OutputCPM: 0.40, MaxOutputTokens: 8192},
	"gemini-2.5-flash": {Provider: ProviderGoogle, InputCPM: 0.30, OutputCPM: 2.50, MaxOutputTokens: 65536},
	ModelGPT4oMini:     {Provider: ProviderOpenAI, InputCPM: 0.15, OutputCPM: 0.60, MaxOutputTokens: 16384},
	"gpt-4o":           {Provider: ProviderOpenAI, InputCPM: 2.50, OutputCPM: 10.0, MaxOutputTokens: 16384},
	ModelClaudeSonnet:  {Provider: ProviderAnthropic, InputCPM: 3.0, OutputCPM: 15.0, MaxOutputTokens: 64000},
	ModelLlama:         {Provider: ProviderOllama},
}

// Config is the root configuration object.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Retry   RetryConfig   `yaml:"retry"`
	DataAPI DataAPIConfig `yaml:"data_api"`
	Session SessionConfig `yaml:"session"`
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig selects and tunes the completion backend.
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	Host           string        `yaml:"host"` // ollama only
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RetryConfig bounds retries around completion calls.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Jitter        bool          `yaml:"jitter"`
}

// DataAPIConfig locates the performance and study-plan data service.
type DataAPIConfig struct {
	BaseURL         string        `yaml:"base_url"`
	PerformancePath string        `yaml:"performance_path"`
	StudyPlanPath   string        `yaml:"study_plan_path"`
	UserPath        string        `yaml:"user_path"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
}

// SessionConfig configures caller-side running-context storage.
type SessionConfig struct {
	Store         string        `yaml:"store"`
	DBPath        string        `yaml:"db_path"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepSchedule string        `yaml:"sweep_schedule"`
	MaxSessions   int           `yaml:"max_sessions"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// MetricsConfig toggles Prometheus collection.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig configures pkg/logx.
type LoggingConfig struct {
	Level        string   `yaml:"level"`
	Format       string   `yaml:"format"`
	DebugDomains []string `yaml:"debug_domains"`
}

// DefaultDataAPIURL is the production data service.
const DefaultDataAPIURL = "https://grindhub-production.up.railway.app"

// Default returns a configuration with every field populated.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:       ProviderGoogle,
			Model:          ModelGeminiFlash,
			Temperature:    DefaultTemperature,
			MaxTokens:      DefaultMaxTokens,
			RequestTimeout: 60 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:   3,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
		},
		DataAPI: DataAPIConfig{
			BaseURL:         DefaultDataAPIURL,
			PerformancePath: "/api/auth/getPerformanceAssignmentQuery",
			StudyPlanPath:   "/api/auth/getStudyPlanRequest",
			UserPath:        "/api/auth/getUser",
			Timeout:         10 * time.Second,
			MaxAttempts:     1,
		},
		Session: SessionConfig{
			Store:         StoreMemory,
			DBPath:        "grindhub.db",
			IdleTimeout:   DefaultIdleTimeout,
			SweepSchedule: "@every 1m",
			MaxSessions:   10000,
		},
		Server:  ServerConfig{ListenAddr: ":8080"},
		Metrics: MetricsConfig{Enabled: true},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// DefaultModelFor returns the default model name for a provider.
func DefaultModelFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return ModelGPT4oMini
	case ProviderAnthropic:
		return ModelClaudeSonnet
	case ProviderOllama:
		return ModelLlama
	default:
		return ModelGeminiFlash
	}
}

// APIKeyEnv returns the environment variable conventionally holding a provider's key.
func APIKeyEnv(provider string) string {
	switch provider {
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// Validate checks the configuration for values the router cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGoogle, ProviderOpenAI, ProviderAnthropic:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %s (or set %s)", c.LLM.Provider, APIKeyEnv(c.LLM.Provider))
		}
	case ProviderOllama:
		if _, err := url.Parse(c.LLM.Host); err != nil {
			return fmt.Errorf("llm.host: %w", err)
		}
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model cannot be empty")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.LLM.Temperature < 0.0 || c.LLM.Temperature > 2.0 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0")
	}
	if c.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("llm.request_timeout must be positive")
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays cannot be negative")
	}

	if c.DataAPI.BaseURL != "" {
		u, err := url.Parse(c.DataAPI.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("data_api.base_url %q is not an absolute URL", c.DataAPI.BaseURL)
		}
	}
	if c.DataAPI.MaxAttempts < 1 {
		return fmt.Errorf("data_api.max_attempts must be at least 1")
	}
	if c.DataAPI.Timeout <= 0 {
		return fmt.Errorf("data_api.timeout must be positive")
	}

	switch c.Session.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.Session.DBPath == "" {
			return fmt.Errorf("session.db_path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown session.store %q", c.Session.Store)
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session.idle_timeout must be positive")
	}
	if _, err := cron.ParseStandard(c.Session.SweepSchedule); err != nil {
		return fmt.Errorf("session.sweep_schedule: %w", err)
	}
	return nil
}

// CalculateCost returns the USD cost of a request for a known model.
func CalculateCost(modelName string, promptTokens, completionTokens int) float64 {
	info, ok := KnownModels[modelName]
	if !ok {
		return 0
	}
	return (float64(promptTokens)*info.InputCPM + float64(completionTokens)*info.OutputCPM) / 1_000_000
}
