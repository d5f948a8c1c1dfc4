package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// --- Load tests ---

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "memory", cfg.Search.Backend)
	assert.Equal(t, 5, cfg.Search.DefaultK)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, "gemini", cfg.LLM.Primary)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
search:
  backend: qdrant
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "qdrant", cfg.Search.Backend)
	// untouched sections keep defaults
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 5, cfg.Search.DefaultK)
	assert.Equal(t, "http://localhost:6333", cfg.Search.Qdrant.URL)
	assert.Equal(t, 30, cfg.Agent.ToolTimeoutSeconds)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "logging: [not: a: map")
	_, err := Load(path)
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadProviderConfig(t *testing.T) {
	path := writeConfig(t, `
llm:
  primary: gemini
  fallbacks: [local]
  providers:
    gemini:
      type: gemini
      model: gemini-2.0-flash
      apiKey: literal-key
    local:
      type: ollama
      model: llama3
      baseUrl: http://localhost:11434
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.LLM.Providers, 2)
	assert.Equal(t, "literal-key", cfg.LLM.Providers["gemini"].APIKey)
	assert.Equal(t, []string{"local"}, cfg.LLM.Fallbacks)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.Providers["local"].BaseURL)
}

// --- Env expansion tests ---

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MARQUEE_TEST_SECRET", "s3cret")

	assert.Equal(t, "s3cret", expandEnvVars("${MARQUEE_TEST_SECRET}"))
	assert.Equal(t, "pre-s3cret-post", expandEnvVars("pre-${MARQUEE_TEST_SECRET}-post"))
	assert.Equal(t, "${UNSET_VAR_XYZ}", expandEnvVars("${UNSET_VAR_XYZ}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestSensitiveFieldExpansion(t *testing.T) {
	t.Setenv("MARQUEE_TEST_TOKEN", "tok-123")

	path := writeConfig(t, `
server:
  authToken: ${MARQUEE_TEST_TOKEN}
llm:
  providers:
    gemini:
      type: gemini
      model: gemini-2.0-flash
      apiKey: ${MARQUEE_TEST_UNSET_KEY}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tok-123", cfg.Server.AuthToken)
	// unresolved references collapse to "not configured"
	assert.Empty(t, cfg.LLM.Providers["gemini"].APIKey)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARQUEE_LOG_LEVEL", "TRACE")
	t.Setenv("MARQUEE_LISTEN", "0.0.0.0:9000")
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, "from-env", cfg.LLM.Providers["gemini"].APIKey)
}

// --- Raw access tests ---

func TestLoadRawAndSaveRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	SetValueAtPath(raw, []string{"logging", "level"}, "debug")
	require.NoError(t, SaveRaw(path, raw))

	raw2, err := LoadRaw(path)
	require.NoError(t, err)
	val, ok := GetValueAtPath(raw2, []string{"logging", "level"})
	require.True(t, ok)
	assert.Equal(t, "debug", val)
}
