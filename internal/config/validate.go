package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validLogFormats := []string{"console", "json"}
	if cfg.Logging.Format != "" && !slices.Contains(validLogFormats, cfg.Logging.Format) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.format",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogFormats, cfg.Logging.Format),
		})
	}

	validStoreBackends := []string{"sqlite", "postgres"}
	if !slices.Contains(validStoreBackends, cfg.Store.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "store.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validStoreBackends, cfg.Store.Backend),
		})
	}
	if cfg.Store.Backend == "postgres" && cfg.Store.DSN == "" {
		issues = append(issues, ValidationIssue{
			Path:    "store.dsn",
			Message: "required when store.backend is postgres",
		})
	}

	validSearchBackends := []string{"memory", "qdrant", "pgvector"}
	if !slices.Contains(validSearchBackends, cfg.Search.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "search.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validSearchBackends, cfg.Search.Backend),
		})
	}
	if cfg.Search.Backend == "pgvector" && cfg.Store.Backend != "postgres" {
		issues = append(issues, ValidationIssue{
			Path:    "search.backend",
			Message: "pgvector requires store.backend postgres",
		})
	}
	if cfg.Search.Backend == "qdrant" && cfg.Search.Qdrant.URL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "search.qdrant.url",
			Message: "required when search.backend is qdrant",
		})
	}
	if cfg.Search.DefaultK < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "search.defaultK",
			Message: fmt.Sprintf("must be >= 1, got %d", cfg.Search.DefaultK),
		})
	}
	if cfg.Search.MaxK < cfg.Search.DefaultK {
		issues = append(issues, ValidationIssue{
			Path:    "search.maxK",
			Message: fmt.Sprintf("must be >= defaultK (%d), got %d", cfg.Search.DefaultK, cfg.Search.MaxK),
		})
	}
	if cfg.Search.SimilarityFloor < 0 || cfg.Search.SimilarityFloor > 1 {
		issues = append(issues, ValidationIssue{
			Path:    "search.similarityFloor",
			Message: fmt.Sprintf("must be in [0, 1], got %g", cfg.Search.SimilarityFloor),
		})
	}

	validEmbedProviders := []string{"openai", "ollama", "noop"}
	if !slices.Contains(validEmbedProviders, cfg.Embedding.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "embedding.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validEmbedProviders, cfg.Embedding.Provider),
		})
	}

	if len(cfg.LLM.Providers) == 0 {
		issues = append(issues, ValidationIssue{
			Path:    "llm.providers",
			Message: "at least one provider is required",
		})
	}
	validProviderTypes := []string{"gemini", "openai", "anthropic", "ollama"}
	for name, p := range cfg.LLM.Providers {
		if !slices.Contains(validProviderTypes, p.Type) {
			issues = append(issues, ValidationIssue{
				Path:    "llm.providers." + name + ".type",
				Message: fmt.Sprintf("must be one of %v, got %q", validProviderTypes, p.Type),
			})
		}
		if p.Model == "" {
			issues = append(issues, ValidationIssue{
				Path:    "llm.providers." + name + ".model",
				Message: "model is required",
			})
		}
	}
	if cfg.LLM.Primary != "" {
		if _, ok := cfg.LLM.Providers[cfg.LLM.Primary]; !ok {
			issues = append(issues, ValidationIssue{
				Path:    "llm.primary",
				Message: fmt.Sprintf("no provider named %q", cfg.LLM.Primary),
			})
		}
	}
	for i, fb := range cfg.LLM.Fallbacks {
		if _, ok := cfg.LLM.Providers[fb]; !ok {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("llm.fallbacks[%d]", i),
				Message: fmt.Sprintf("no provider named %q", fb),
			})
		}
	}

	if cfg.Agent.MaxIterations < 1 || cfg.Agent.MaxIterations > 25 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxIterations",
			Message: fmt.Sprintf("must be 1-25, got %d", cfg.Agent.MaxIterations),
		})
	}
	if cfg.Agent.ToolTimeoutSeconds < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.toolTimeoutSeconds",
			Message: fmt.Sprintf("must be >= 1, got %d", cfg.Agent.ToolTimeoutSeconds),
		})
	}
	if cfg.Agent.MaxResultRows < 1 || cfg.Agent.MaxResultRows > 500 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxResultRows",
			Message: fmt.Sprintf("must be 1-500, got %d", cfg.Agent.MaxResultRows),
		})
	}

	validMemoryStores := []string{"memory", "sqlite"}
	if !slices.Contains(validMemoryStores, cfg.Memory.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "memory.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validMemoryStores, cfg.Memory.Store),
		})
	}

	return issues
}
