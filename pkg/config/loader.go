package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultOllamaHost is used when the ollama provider is selected without a host.
const DefaultOllamaHost = "http://localhost:11434"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads a YAML config file over the defaults. An empty path yields the defaults.
// The result is not validated; call Validate after ApplyEnv.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		cfg.finalize()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	// The model default depends on the provider the file picks.
	cfg.LLM.Model = ""
	if err := decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.finalize()
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err //nolint:wrapcheck // wrapped by caller
	}
	return nil
}

// ApplyEnv overlays environment overrides. Provider API keys are taken from the
// provider's conventional variable (GOOGLE_API_KEY etc.) when the file left them empty.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	providerBefore := c.LLM.Provider
	str("GRINDHUB_LLM_PROVIDER", &c.LLM.Provider)
	if c.LLM.Provider != providerBefore {
		// A provider switch invalidates a model inherited from defaults.
		if _, ok := lookup("GRINDHUB_LLM_MODEL"); !ok && c.LLM.Model == DefaultModelFor(providerBefore) {
			c.LLM.Model = DefaultModelFor(c.LLM.Provider)
		}
	}
	str("GRINDHUB_LLM_MODEL", &c.LLM.Model)
	str("GRINDHUB_LLM_API_KEY", &c.LLM.APIKey)
	str("GRINDHUB_DATA_API_URL", &c.DataAPI.BaseURL)
	str("GRINDHUB_SESSION_STORE", &c.Session.Store)
	str("GRINDHUB_SESSION_DB", &c.Session.DBPath)
	str("GRINDHUB_LISTEN_ADDR", &c.Server.ListenAddr)
	str("GRINDHUB_LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup("GRINDHUB_RETRY_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRINDHUB_RETRY_MAX_ATTEMPTS: %w", err)
		}
		c.Retry.MaxAttempts = n
	}
	if v, ok := lookup("GRINDHUB_SESSION_IDLE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GRINDHUB_SESSION_IDLE_TIMEOUT: %w", err)
		}
		c.Session.IdleTimeout = d
	}

	if c.LLM.APIKey == "" {
		if env := APIKeyEnv(c.LLM.Provider); env != "" {
			str(env, &c.LLM.APIKey)
		}
	}
	if c.LLM.Provider == ProviderOllama {
		str("OLLAMA_HOST", &c.LLM.Host)
	}

	c.finalize()
	return nil
}

// finalize fills values derived from other fields.
func (c *Config) finalize() {
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModelFor(c.LLM.Provider)
	}
	if c.LLM.Provider == ProviderOllama && c.LLM.Host == "" {
		c.LLM.Host = DefaultOllamaHost
	}
}

// Marshal renders the configuration as YAML with the API key redacted.
func (c Config) Marshal() ([]byte, error) {
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = "<redacted>"
	}
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}
