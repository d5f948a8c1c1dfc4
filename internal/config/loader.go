package config

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so keys and tokens can be stored as ${ENV_VAR}.
// References to unset variables resolve to empty, which downstream code
// treats as "not configured".
func expandSensitiveFields(cfg *Config) {
	cfg.Store.DSN = expandSensitive(cfg.Store.DSN)
	cfg.Search.Qdrant.APIKey = expandSensitive(cfg.Search.Qdrant.APIKey)
	cfg.Embedding.APIKey = expandSensitive(cfg.Embedding.APIKey)
	cfg.Server.AuthToken = expandSensitive(cfg.Server.AuthToken)
	for name, provider := range cfg.LLM.Providers {
		provider.APIKey = expandSensitive(provider.APIKey)
		cfg.LLM.Providers[name] = provider
	}
}

func expandSensitive(s string) string {
	s = expandEnvVars(s)
	if envVarPattern.MatchString(s) {
		return ""
	}
	return s
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			expandSensitiveFields(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults. Needed
// after unmarshal since a partial yaml file zeroes missing sections.
func applyDefaults(cfg *Config) {
	def := Defaults()

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Store.Backend
	}
	if cfg.Search.Backend == "" {
		cfg.Search.Backend = def.Search.Backend
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = def.Search.DefaultK
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = def.Search.MaxK
	}
	if cfg.Search.Qdrant.URL == "" {
		cfg.Search.Qdrant.URL = def.Search.Qdrant.URL
	}
	if cfg.Search.Qdrant.Collection == "" {
		cfg.Search.Qdrant.Collection = def.Search.Qdrant.Collection
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = def.Embedding.Provider
	}
	if cfg.LLM.Primary == "" {
		cfg.LLM.Primary = def.LLM.Primary
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if len(cfg.LLM.Providers) == 0 {
		cfg.LLM.Providers = def.LLM.Providers
	}
	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = def.Agent.MaxIterations
	}
	if cfg.Agent.ToolTimeoutSeconds == 0 {
		cfg.Agent.ToolTimeoutSeconds = def.Agent.ToolTimeoutSeconds
	}
	if cfg.Agent.MaxResultRows == 0 {
		cfg.Agent.MaxResultRows = def.Agent.MaxResultRows
	}
	if cfg.Memory.Store == "" {
		cfg.Memory.Store = def.Memory.Store
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = def.Server.Listen
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = def.Telemetry.ServiceName
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = def.Ingest.Concurrency
	}
}

// applyEnvOverrides reads MARQUEE_* environment variables and overrides
// config values. Provider API keys left empty fall back to the usual env
// names so a bare .env is enough to get started.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARQUEE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MARQUEE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("MARQUEE_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("MARQUEE_AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		cfg.Search.Qdrant.URL = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.Endpoint = v
	}

	for name, provider := range cfg.LLM.Providers {
		if provider.APIKey != "" && !envVarPattern.MatchString(provider.APIKey) {
			continue
		}
		if key := providerKeyFromEnv(provider.Type); key != "" {
			provider.APIKey = key
			cfg.LLM.Providers[name] = provider
		}
	}
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func providerKeyFromEnv(providerType string) string {
	switch providerType {
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			return v
		}
		return os.Getenv("GOOGLE_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}
