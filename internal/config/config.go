package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Search: SearchConfig{
			Backend:  "memory",
			DefaultK: 5,
			MaxK:     50,
			Qdrant: QdrantConfig{
				URL:        "http://localhost:6333",
				Collection: "movie_overviews",
			},
		},
		Embedding: EmbeddingConfig{
			Provider: "noop",
		},
		LLM: LLMConfig{
			Primary:   "gemini",
			MaxTokens: 2048,
			Providers: map[string]LLMProviderConfig{
				"gemini": {
					Type:   "gemini",
					Model:  "gemini-2.0-flash",
					APIKey: "${GEMINI_API_KEY}",
				},
			},
		},
		Agent: AgentConfig{
			MaxIterations:      5,
			ToolTimeoutSeconds: 30,
			MaxResultRows:      25,
		},
		Memory: MemoryConfig{
			Store: "sqlite",
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8763",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "marquee",
		},
		Ingest: IngestConfig{
			Concurrency: 4,
		},
	}
}
