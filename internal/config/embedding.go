package config

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	// Provider: "server" (local sidecar), "ollama" or "genai"
	Provider string `yaml:"provider"`

	// Sidecar embedding server (MiniLM, 384 dimensions)
	ServerEndpoint string `yaml:"server_endpoint"`

	// Ollama configuration
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	// GenAI configuration
	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"`
}

// DefaultEmbeddingConfig returns sensible defaults.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:       "server",
		ServerEndpoint: "http://localhost:5002",
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "embeddinggemma",
		GenAIModel:     "gemini-embedding-001",
	}
}
