package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Decision is the closed set of outcomes of one reasoning step. Raw
// model text is converted exactly once, here; nothing downstream ever
// re-inspects it.
type Decision interface{ isDecision() }

// Final ends the loop; Answer is the reply shown to the user.
type Final struct {
	Answer string
}

// Action proposes exactly one tool invocation. Prose surrounding the
// tool_call fence becomes the Thought.
type Action struct {
	Thought string
	Tool    string
	Input   json.RawMessage
}

func (Final) isDecision()  {}
func (Action) isDecision() {}

// toolCallRe matches a ```tool_call fenced block. Only the first block
// in an output counts; the model is instructed to emit at most one.
var toolCallRe = regexp.MustCompile("(?s)```tool_call\\s*(.*?)```")

// blankRunRe collapses the blank-line runs left by fence removal.
var blankRunRe = regexp.MustCompile(`\n{3,}`)

// parseDecision converts raw reasoner output into a Decision. Output
// with no tool_call fence is a final answer; a fence must strict-decode
// to a named tool action or the whole output is a FormatError.
func parseDecision(raw string) (Decision, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &FormatError{Reason: "empty output"}
	}

	loc := toolCallRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return Final{Answer: text}, nil
	}

	payload := strings.TrimSpace(text[loc[2]:loc[3]])
	var call struct {
		Tool  string          `json:"tool"`
		Input json.RawMessage `json:"input"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&call); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("tool_call block is not valid JSON: %v", err)}
	}
	if dec.More() {
		return nil, &FormatError{Reason: "tool_call block has trailing data after the JSON object"}
	}
	if call.Tool == "" {
		return nil, &FormatError{Reason: "tool_call block names no tool"}
	}

	input := call.Input
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	thought := strings.TrimSpace(strings.TrimSpace(text[:loc[0]]) + "\n" + strings.TrimSpace(text[loc[1]:]))
	return Action{Thought: thought, Tool: call.Tool, Input: input}, nil
}

// stripToolCalls removes tool_call fences from reasoner output, leaving
// the surrounding prose.
func stripToolCalls(text string) string {
	cleaned := toolCallRe.ReplaceAllString(text, "\n\n")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// renderToolCall reconstructs the fenced form of a recorded tool call
// for replaying history to the reasoner.
func renderToolCall(tool string, args json.RawMessage) string {
	payload, err := json.Marshal(struct {
		Tool  string          `json:"tool"`
		Input json.RawMessage `json:"input"`
	}{Tool: tool, Input: args})
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"tool":%q}`, tool))
	}
	return fmt.Sprintf("```tool_call\n%s\n```", payload)
}
