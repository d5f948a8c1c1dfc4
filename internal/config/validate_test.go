package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Defaults()
}

func issuePaths(issues []ValidationIssue) []string {
	paths := make([]string, len(issues))
	for i, iss := range issues {
		paths[i] = iss.Path
	}
	return paths
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateLogging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	cfg.Logging.Format = "xml"

	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "logging.level")
	assert.Contains(t, paths, "logging.format")
}

func TestValidateStore(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store.Backend = "dynamodb"
		assert.Contains(t, issuePaths(Validate(&cfg)), "store.backend")
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store.Backend = "postgres"
		assert.Contains(t, issuePaths(Validate(&cfg)), "store.dsn")
	})
}

func TestValidateSearch(t *testing.T) {
	t.Run("pgvector requires postgres store", func(t *testing.T) {
		cfg := validConfig()
		cfg.Search.Backend = "pgvector"
		assert.Contains(t, issuePaths(Validate(&cfg)), "search.backend")
	})

	t.Run("k bounds", func(t *testing.T) {
		cfg := validConfig()
		cfg.Search.DefaultK = 0
		cfg.Search.MaxK = 0
		paths := issuePaths(Validate(&cfg))
		assert.Contains(t, paths, "search.defaultK")
	})

	t.Run("similarity floor range", func(t *testing.T) {
		cfg := validConfig()
		cfg.Search.SimilarityFloor = 1.5
		assert.Contains(t, issuePaths(Validate(&cfg)), "search.similarityFloor")
	})
}

func TestValidateLLM(t *testing.T) {
	t.Run("no providers", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Providers = nil
		cfg.LLM.Primary = ""
		assert.Contains(t, issuePaths(Validate(&cfg)), "llm.providers")
	})

	t.Run("unknown primary", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Primary = "ghost"
		assert.Contains(t, issuePaths(Validate(&cfg)), "llm.primary")
	})

	t.Run("unknown fallback", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Fallbacks = []string{"ghost"}
		assert.Contains(t, issuePaths(Validate(&cfg)), "llm.fallbacks[0]")
	})

	t.Run("bad provider entry", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Providers["broken"] = LLMProviderConfig{Type: "carrier-pigeon"}
		paths := issuePaths(Validate(&cfg))
		assert.Contains(t, paths, "llm.providers.broken.type")
		assert.Contains(t, paths, "llm.providers.broken.model")
	})
}

func TestValidateAgentBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Agent.MaxIterations = 0
	cfg.Agent.ToolTimeoutSeconds = 0
	cfg.Agent.MaxResultRows = 10000

	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "agent.maxIterations")
	assert.Contains(t, paths, "agent.toolTimeoutSeconds")
	assert.Contains(t, paths, "agent.maxResultRows")
}

func TestValidateMemory(t *testing.T) {
	cfg := validConfig()
	cfg.Memory.Store = "redis"
	assert.Contains(t, issuePaths(Validate(&cfg)), "memory.store")
}
