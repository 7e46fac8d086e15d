// Package config holds all aura configuration.
// Configuration lives at .aura/config.yaml inside the workspace; every
// section has a Default* constructor so a missing file means defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all aura configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Embedding engine configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Memory store and consolidation configuration
	Memory MemoryConfig `yaml:"memory"`

	// Rate budgets and circuit breaker tunables
	Limits LimitsConfig `yaml:"limits"`

	// Request gate tunables
	Gate GateConfig `yaml:"gate"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns a Config with sensible defaults for all sections.
func DefaultConfig() *Config {
	return &Config{
		Name:      "aura",
		Version:   "0.1.0",
		LLM:       DefaultLLMConfig(),
		Embedding: DefaultEmbeddingConfig(),
		Memory:    DefaultMemoryConfig(),
		Limits:    DefaultLimitsConfig(),
		Gate:      DefaultGateConfig(),
		Logging:   DefaultLoggingConfig(),
	}
}

// Path returns the canonical config path for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".aura", "config.yaml")
}

// Load reads the config from path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the config to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides applies environment variable overrides.
// Credentials are the main use: keys never need to live in the yaml file.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("AURA_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if url := os.Getenv("AURA_OLLAMA_URL"); url != "" {
		c.LLM.LocalEndpoint = url
		c.Embedding.OllamaEndpoint = url
	}
	if url := os.Getenv("AURA_EMBED_URL"); url != "" {
		c.Embedding.ServerEndpoint = url
	}
	if path := os.Getenv("AURA_DB"); path != "" {
		c.Memory.DatabasePath = path
	}
	if v := os.Getenv("AURA_FORCE_LOCAL"); v == "1" || v == "true" {
		c.LLM.ForceLocal = true
	}
}

// Validate performs basic sanity checks on the loaded config.
func (c *Config) Validate() error {
	if c.Limits.DailyCallLimit <= 0 {
		return fmt.Errorf("limits.daily_call_limit must be positive, got %d", c.Limits.DailyCallLimit)
	}
	if c.Limits.PerMinuteCallLimit <= 0 {
		return fmt.Errorf("limits.per_minute_call_limit must be positive, got %d", c.Limits.PerMinuteCallLimit)
	}
	if c.Memory.MergeThreshold >= c.Memory.DuplicateThreshold {
		return fmt.Errorf("memory.merge_threshold (%.2f) must be below memory.duplicate_threshold (%.2f)",
			c.Memory.MergeThreshold, c.Memory.DuplicateThreshold)
	}
	if c.Gate.DebounceWindowMs <= 0 {
		return fmt.Errorf("gate.debounce_window_ms must be positive, got %d", c.Gate.DebounceWindowMs)
	}
	return nil
}
