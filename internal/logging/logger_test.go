package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")
	log.Info().Str("key", "value").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "value", entry["key"])
	assert.NotEmpty(t, entry["time"])
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "console")
	log.Info().Msg("console line")

	assert.Contains(t, buf.String(), "console line")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestSubAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json").Sub("agent")
	log.Debug().Msg("scoped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "agent", entry["component"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")

	log.Debug().Msg("dropped")
	log.Info().Msg("dropped too")
	log.Warn().Msg("kept")

	lines := strings.TrimSpace(buf.String())
	assert.Equal(t, 1, len(strings.Split(lines, "\n")))
	assert.Contains(t, lines, "kept")
}

func TestSilent(t *testing.T) {
	log := Silent()
	log.Error().Msg("nothing")
	assert.Equal(t, zerolog.Disabled, log.Zerolog().GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"silent", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}
