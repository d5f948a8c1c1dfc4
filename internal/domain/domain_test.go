package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Turn tests ---

func TestTurnConstructors(t *testing.T) {
	t.Run("user message", func(t *testing.T) {
		turn := NewUserTurn("best thrillers?")
		assert.Equal(t, TurnUserMessage, turn.Kind)
		assert.Equal(t, "best thrillers?", turn.Text)
		assert.False(t, turn.Timestamp.IsZero())
		assert.NoError(t, turn.Validate())
	})

	t.Run("tool call", func(t *testing.T) {
		turn := NewToolCallTurn("movie_sql_query", json.RawMessage(`{"request":"top 5 by rating"}`))
		assert.Equal(t, TurnToolCall, turn.Kind)
		assert.Equal(t, "movie_sql_query", turn.Tool)
		assert.NoError(t, turn.Validate())
	})

	t.Run("tool result failure", func(t *testing.T) {
		turn := NewToolResultTurn("movie_sql_query", "query rejected: not a SELECT", false)
		assert.Equal(t, TurnToolResult, turn.Kind)
		assert.False(t, turn.OK)
		assert.NoError(t, turn.Validate())
	})

	t.Run("degraded final answer", func(t *testing.T) {
		turn := NewFinalTurn("best effort", true)
		assert.True(t, turn.Degraded)
		assert.NoError(t, turn.Validate())
	})
}

func TestTurnValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		turn Turn
	}{
		{"unknown kind", Turn{Kind: "telepathy", Text: "x"}},
		{"empty user text", Turn{Kind: TurnUserMessage}},
		{"empty thought", Turn{Kind: TurnAgentThought}},
		{"tool call without name", Turn{Kind: TurnToolCall}},
		{"tool result without name", Turn{Kind: TurnToolResult, Output: "x"}},
		{"empty final answer", Turn{Kind: TurnFinalAnswer}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.turn.Validate())
		})
	}
}

func TestTurnJSONRoundTrip(t *testing.T) {
	orig := NewToolCallTurn("movie_semantic_search", json.RawMessage(`{"query":"dream heist","k":5}`))
	orig.Seq = 3

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded Turn
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, orig.Seq, decoded.Seq)
	assert.Equal(t, orig.Kind, decoded.Kind)
	assert.Equal(t, orig.Tool, decoded.Tool)
	assert.JSONEq(t, string(orig.Args), string(decoded.Args))
}

// --- Session tests ---

func TestSessionSeqAndLastTurn(t *testing.T) {
	s := &Session{ID: "s1"}
	assert.Equal(t, 1, s.NextSeq())

	_, ok := s.LastTurn()
	assert.False(t, ok)

	s.Turns = append(s.Turns, NewUserTurn("hi"))
	assert.Equal(t, 2, s.NextSeq())

	last, ok := s.LastTurn()
	require.True(t, ok)
	assert.Equal(t, TurnUserMessage, last.Kind)
}

func TestSessionPendingToolCall(t *testing.T) {
	s := &Session{ID: "s1"}
	assert.False(t, s.PendingToolCall())

	s.Turns = append(s.Turns, NewToolCallTurn("movie_sql_query", nil))
	assert.True(t, s.PendingToolCall())

	s.Turns = append(s.Turns, NewToolResultTurn("movie_sql_query", "[]", true))
	assert.False(t, s.PendingToolCall())
}
