package config

// Config is the root configuration structure, loaded from
// ~/.marquee/config.yaml.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Store     StoreConfig     `yaml:"store"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Agent     AgentConfig     `yaml:"agent"`
	Memory    MemoryConfig    `yaml:"memory"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error|fatal|silent
	Format string `yaml:"format"` // console|json
}

// StoreConfig selects the relational movie store.
type StoreConfig struct {
	Backend string `yaml:"backend"` // sqlite|postgres
	Path    string `yaml:"path"`    // sqlite file; empty = <data dir>/marquee.db
	DSN     string `yaml:"dsn"`     // postgres connection string
}

// SearchConfig selects the vector index and retrieval bounds.
type SearchConfig struct {
	Backend         string       `yaml:"backend"` // memory|qdrant|pgvector
	DefaultK        int          `yaml:"defaultK"`
	MaxK            int          `yaml:"maxK"`
	SimilarityFloor float64      `yaml:"similarityFloor"` // 0 disables the floor
	Qdrant          QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds qdrant connection settings.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"apiKey"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // openai|ollama|noop
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	Endpoint string `yaml:"endpoint"` // base URL override; ollama host
}

// LLMConfig configures reasoning providers and the failover order.
type LLMConfig struct {
	Primary   string                       `yaml:"primary"`
	Fallbacks []string                     `yaml:"fallbacks"`
	MaxTokens int                          `yaml:"maxTokens"`
	Providers map[string]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig is one named provider entry.
type LLMProviderConfig struct {
	Type    string   `yaml:"type"` // gemini|openai|anthropic|ollama
	Model   string   `yaml:"model"`
	APIKey  string   `yaml:"apiKey"`
	BaseURL string   `yaml:"baseUrl"`
	Aliases []string `yaml:"aliases"`
}

// AgentConfig bounds the reasoning loop.
type AgentConfig struct {
	MaxIterations      int `yaml:"maxIterations"`
	ToolTimeoutSeconds int `yaml:"toolTimeoutSeconds"`
	MaxResultRows      int `yaml:"maxResultRows"`
}

// MemoryConfig selects conversation persistence.
type MemoryConfig struct {
	Store string `yaml:"store"` // memory|sqlite
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen    string `yaml:"listen"`
	AuthToken string `yaml:"authToken"`
}

// TelemetryConfig configures OpenTelemetry export. An empty endpoint
// disables export entirely.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"serviceName"`
}

// IngestConfig tunes dataset loading.
type IngestConfig struct {
	Concurrency int `yaml:"concurrency"` // parallel embedding requests
}
