package config

// LLMConfig configures the remote and local LLM providers.
type LLMConfig struct {
	// Provider is the primary remote provider: "gemini"
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`

	// Local fallback provider (Ollama-compatible)
	LocalEndpoint string `yaml:"local_endpoint"`
	LocalModel    string `yaml:"local_model"`

	// ForceLocal routes everything to the local provider, never the remote one.
	ForceLocal bool `yaml:"force_local"`

	// Timeout is the per-request HTTP timeout (e.g. "30s").
	Timeout string `yaml:"timeout"`

	// MinRequestInterval paces outbound requests (e.g. "500ms").
	MinRequestInterval string `yaml:"min_request_interval"`
}

// DefaultLLMConfig returns sensible defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:           "gemini",
		Model:              "gemini-2.0-flash",
		BaseURL:            "https://generativelanguage.googleapis.com/v1beta",
		LocalEndpoint:      "http://localhost:11434",
		LocalModel:         "llama3.2",
		Timeout:            "30s",
		MinRequestInterval: "500ms",
	}
}
