package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/marquee-ai/marquee/internal/domain"
)

// Step is one think-act-observe round of a completed run, for traces.
type Step struct {
	N           int    `json:"n"`
	Thought     string `json:"thought,omitempty"`
	Tool        string `json:"tool,omitempty"`
	Args        string `json:"args,omitempty"`
	Observation string `json:"observation,omitempty"`
	OK          bool   `json:"ok"`
}

// BuildTrace groups the turns appended during one run into numbered
// steps. A thought opens a step; the tool call and its result complete
// it. Format-failure observations appear as their own steps so the
// trace stays a faithful record.
func BuildTrace(turns []domain.Turn) []Step {
	var steps []Step
	var cur *Step

	open := func() *Step {
		steps = append(steps, Step{N: len(steps) + 1, OK: true})
		return &steps[len(steps)-1]
	}

	for _, t := range turns {
		switch t.Kind {
		case domain.TurnAgentThought:
			cur = open()
			cur.Thought = t.Text
		case domain.TurnToolCall:
			if cur == nil || cur.Tool != "" {
				cur = open()
			}
			cur.Tool = t.Tool
			cur.Args = compactJSON(t.Args)
		case domain.TurnToolResult:
			if cur == nil {
				cur = open()
				cur.Tool = t.Tool
			}
			cur.Observation = t.Output
			cur.OK = t.OK
			cur = nil
		case domain.TurnUserMessage, domain.TurnFinalAnswer:
			cur = nil
		}
	}
	return steps
}

// RenderTrace prints steps as a numbered transcript for --trace output
// and session replay.
func RenderTrace(steps []Step) string {
	if len(steps) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range steps {
		fmt.Fprintf(&b, "Step %d:\n", s.N)
		if s.Thought != "" {
			fmt.Fprintf(&b, "  thought: %s\n", s.Thought)
		}
		if s.Tool != "" {
			fmt.Fprintf(&b, "  tool: %s", s.Tool)
			if s.Args != "" {
				fmt.Fprintf(&b, " %s", s.Args)
			}
			b.WriteByte('\n')
			status := "ok"
			if !s.OK {
				status = "error"
			}
			fmt.Fprintf(&b, "  result (%s): %s\n", status, snippet(s.Observation))
		}
	}
	return b.String()
}

// degradedAnswer builds the forced-stop answer: the last reasoner
// prose when any survives fence stripping, otherwise a deterministic
// summary of the successful observations gathered so far.
func degradedAnswer(lastRaw string, turns []domain.Turn) string {
	if prose := stripToolCalls(lastRaw); prose != "" {
		return prose
	}

	var lines []string
	for _, t := range turns {
		if t.Kind == domain.TurnToolResult && t.OK {
			lines = append(lines, fmt.Sprintf("- %s: %s", t.Tool, snippet(t.Output)))
		}
	}
	if len(lines) == 0 {
		return "I reached my step limit before finding an answer and no tool results were gathered. Please try rephrasing the question."
	}
	return "I reached my step limit before completing the answer. Here is what I found so far:\n" +
		strings.Join(lines, "\n")
}

// snippet returns the first line of s, truncated to a readable length.
func snippet(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	const max = 160
	if len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
