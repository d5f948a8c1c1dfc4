package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-ai/marquee/internal/domain"
)

func runTurns() []domain.Turn {
	return []domain.Turn{
		domain.NewUserTurn("best sci-fi of 2010?"),
		domain.NewThoughtTurn("I should query by year and genre."),
		domain.NewToolCallTurn("movie_sql_query", []byte(`{"request":"sci-fi from 2010"}`)),
		domain.NewToolResultTurn("movie_sql_query", `[{"Series_Title":"Inception"}]`, true),
		domain.NewThoughtTurn("Now check the plots."),
		domain.NewToolCallTurn("movie_semantic_search", []byte(`{"query":"dream heist"}`)),
		domain.NewToolResultTurn("movie_semantic_search", "retrieval failed during embed: timeout", false),
		domain.NewFinalTurn("Inception.", false),
	}
}

// --- BuildTrace ---

func TestBuildTrace_GroupsThoughtCallResult(t *testing.T) {
	steps := BuildTrace(runTurns())
	require.Len(t, steps, 2)

	assert.Equal(t, 1, steps[0].N)
	assert.Equal(t, "I should query by year and genre.", steps[0].Thought)
	assert.Equal(t, "movie_sql_query", steps[0].Tool)
	assert.Equal(t, `{"request":"sci-fi from 2010"}`, steps[0].Args)
	assert.True(t, steps[0].OK)

	assert.Equal(t, 2, steps[1].N)
	assert.Equal(t, "movie_semantic_search", steps[1].Tool)
	assert.False(t, steps[1].OK)
	assert.Contains(t, steps[1].Observation, "retrieval failed")
}

func TestBuildTrace_BareResultBecomesOwnStep(t *testing.T) {
	turns := []domain.Turn{
		domain.NewUserTurn("q"),
		domain.NewToolResultTurn("reasoner", "could not be processed", false),
		domain.NewFinalTurn("degraded", true),
	}
	steps := BuildTrace(turns)
	require.Len(t, steps, 1)
	assert.Equal(t, "reasoner", steps[0].Tool)
	assert.False(t, steps[0].OK)
}

func TestBuildTrace_CallWithoutThought(t *testing.T) {
	turns := []domain.Turn{
		domain.NewToolCallTurn("echo", []byte(`{}`)),
		domain.NewToolResultTurn("echo", "hi", true),
	}
	steps := BuildTrace(turns)
	require.Len(t, steps, 1)
	assert.Empty(t, steps[0].Thought)
	assert.Equal(t, "echo", steps[0].Tool)
}

func TestBuildTrace_Empty(t *testing.T) {
	assert.Empty(t, BuildTrace(nil))
}

// --- RenderTrace ---

func TestRenderTrace_NumbersSteps(t *testing.T) {
	out := RenderTrace(BuildTrace(runTurns()))

	assert.Contains(t, out, "Step 1:")
	assert.Contains(t, out, "Step 2:")
	assert.Contains(t, out, "thought: I should query by year and genre.")
	assert.Contains(t, out, "tool: movie_sql_query")
	assert.Contains(t, out, "result (ok):")
	assert.Contains(t, out, "result (error):")
}

func TestRenderTrace_Empty(t *testing.T) {
	assert.Empty(t, RenderTrace(nil))
}

// --- degradedAnswer ---

func TestDegradedAnswer_UsesSurvivingProse(t *testing.T) {
	raw := "I was about to check ratings.\n\n```tool_call\n{\"tool\":\"x\"}\n```"
	got := degradedAnswer(raw, nil)
	assert.Equal(t, "I was about to check ratings.", got)
}

func TestDegradedAnswer_SummarizesSuccessfulObservations(t *testing.T) {
	turns := []domain.Turn{
		domain.NewToolResultTurn("movie_sql_query", "[{\"Series_Title\":\"Alien\"}]\nsecond line", true),
		domain.NewToolResultTurn("movie_semantic_search", "failed", false),
	}
	got := degradedAnswer("```tool_call\n{\"tool\":\"x\"}\n```", turns)

	assert.Contains(t, got, "step limit")
	assert.Contains(t, got, "movie_sql_query: [{\"Series_Title\":\"Alien\"}]")
	assert.NotContains(t, got, "second line", "only the first line of each observation")
	assert.NotContains(t, got, "movie_semantic_search", "failed observations are not summarized")
}

func TestDegradedAnswer_NothingGathered(t *testing.T) {
	got := degradedAnswer("", nil)
	assert.Contains(t, got, "rephrasing")
}

// --- snippet ---

func TestSnippet_FirstLineOnly(t *testing.T) {
	assert.Equal(t, "first", snippet("first\nsecond\nthird"))
}

func TestSnippet_TruncatesLongLines(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := snippet(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 163)
}

func TestSnippet_Short(t *testing.T) {
	assert.Equal(t, "short", snippet("  short  "))
}
