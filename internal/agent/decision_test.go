package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- parseDecision ---

func TestParseDecision_PlainTextIsFinal(t *testing.T) {
	d, err := parseDecision("Inception was released in 2010.")
	require.NoError(t, err)

	final, ok := d.(Final)
	require.True(t, ok)
	assert.Equal(t, "Inception was released in 2010.", final.Answer)
}

func TestParseDecision_FenceIsAction(t *testing.T) {
	raw := "```tool_call\n{\"tool\": \"movie_sql_query\", \"input\": {\"request\": \"films from 2010\"}}\n```"
	d, err := parseDecision(raw)
	require.NoError(t, err)

	action, ok := d.(Action)
	require.True(t, ok)
	assert.Equal(t, "movie_sql_query", action.Tool)
	assert.JSONEq(t, `{"request": "films from 2010"}`, string(action.Input))
	assert.Empty(t, action.Thought)
}

func TestParseDecision_ProseAroundFenceBecomesThought(t *testing.T) {
	raw := "I need the exact year first.\n\n```tool_call\n{\"tool\": \"movie_sql_query\", \"input\": {}}\n```\n\nThen I can check the plot."
	d, err := parseDecision(raw)
	require.NoError(t, err)

	action, ok := d.(Action)
	require.True(t, ok)
	assert.Contains(t, action.Thought, "exact year first")
	assert.Contains(t, action.Thought, "check the plot")
	assert.NotContains(t, action.Thought, "```")
}

func TestParseDecision_FirstFenceWins(t *testing.T) {
	raw := "```tool_call\n{\"tool\": \"first\", \"input\": {}}\n```\n" +
		"```tool_call\n{\"tool\": \"second\", \"input\": {}}\n```"
	d, err := parseDecision(raw)
	require.NoError(t, err)

	action, ok := d.(Action)
	require.True(t, ok)
	assert.Equal(t, "first", action.Tool)
}

func TestParseDecision_MissingInputDefaultsToEmptyObject(t *testing.T) {
	d, err := parseDecision("```tool_call\n{\"tool\": \"movie_semantic_search\"}\n```")
	require.NoError(t, err)

	action, ok := d.(Action)
	require.True(t, ok)
	assert.Equal(t, "{}", string(action.Input))
}

func TestParseDecision_EmptyOutput(t *testing.T) {
	_, err := parseDecision("   \n  ")
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestParseDecision_FenceWithBadJSON(t *testing.T) {
	_, err := parseDecision("```tool_call\nthis is not json\n```")
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestParseDecision_FenceWithUnknownField(t *testing.T) {
	_, err := parseDecision("```tool_call\n{\"tool\": \"x\", \"arguments\": {}}\n```")
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestParseDecision_FenceWithoutToolName(t *testing.T) {
	_, err := parseDecision("```tool_call\n{\"input\": {\"query\": \"x\"}}\n```")
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestParseDecision_FenceWithTrailingData(t *testing.T) {
	_, err := parseDecision("```tool_call\n{\"tool\": \"x\"} {\"tool\": \"y\"}\n```")
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

// --- stripToolCalls ---

func TestStripToolCalls(t *testing.T) {
	raw := "Checking the database.\n\n```tool_call\n{\"tool\": \"x\", \"input\": {}}\n```\n\nDone."
	assert.Equal(t, "Checking the database.\n\nDone.", stripToolCalls(raw))
}

func TestStripToolCalls_FenceOnly(t *testing.T) {
	assert.Empty(t, stripToolCalls("```tool_call\n{\"tool\": \"x\"}\n```"))
}

func TestStripToolCalls_NoFence(t *testing.T) {
	assert.Equal(t, "plain answer", stripToolCalls("plain answer"))
}

// --- renderToolCall ---

func TestRenderToolCall_RoundTripsThroughParse(t *testing.T) {
	fenced := renderToolCall("movie_sql_query", []byte(`{"request":"top rated"}`))
	d, err := parseDecision(fenced)
	require.NoError(t, err)

	action, ok := d.(Action)
	require.True(t, ok)
	assert.Equal(t, "movie_sql_query", action.Tool)
	assert.JSONEq(t, `{"request":"top rated"}`, string(action.Input))
}
