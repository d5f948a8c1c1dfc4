package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TurnKind discriminates the closed set of turn variants. There are no
// other kinds; anything else fails validation at the append boundary.
type TurnKind string

const (
	TurnUserMessage  TurnKind = "user_message"
	TurnAgentThought TurnKind = "agent_thought"
	TurnToolCall     TurnKind = "tool_call"
	TurnToolResult   TurnKind = "tool_result"
	TurnFinalAnswer  TurnKind = "final_answer"
)

// Turn is one immutable unit of conversation history. Which fields are
// populated depends on Kind:
//
//	user_message   Text
//	agent_thought  Text
//	tool_call      Tool, Args
//	tool_result    Tool, Output, OK
//	final_answer   Text, Degraded
//
// Turns are only created through the NewXxxTurn constructors and are never
// modified after being appended to a Session.
type Turn struct {
	Seq       int             `json:"seq"`
	Kind      TurnKind        `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Text      string          `json:"text,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	Output    string          `json:"output,omitempty"`
	OK        bool            `json:"ok,omitempty"`
	Degraded  bool            `json:"degraded,omitempty"`
}

// NewUserTurn builds a user_message turn.
func NewUserTurn(text string) Turn {
	return Turn{Kind: TurnUserMessage, Timestamp: time.Now().UTC(), Text: text}
}

// NewThoughtTurn builds an agent_thought turn.
func NewThoughtTurn(text string) Turn {
	return Turn{Kind: TurnAgentThought, Timestamp: time.Now().UTC(), Text: text}
}

// NewToolCallTurn builds a tool_call turn with the raw argument JSON.
func NewToolCallTurn(tool string, args json.RawMessage) Turn {
	return Turn{Kind: TurnToolCall, Timestamp: time.Now().UTC(), Tool: tool, Args: args}
}

// NewToolResultTurn builds a tool_result turn. ok=false marks a recovered
// failure observation; output then carries the cause.
func NewToolResultTurn(tool, output string, ok bool) Turn {
	return Turn{Kind: TurnToolResult, Timestamp: time.Now().UTC(), Tool: tool, Output: output, OK: ok}
}

// NewFinalTurn builds a final_answer turn. degraded marks an answer
// produced by a forced stop rather than a clean reasoning exit.
func NewFinalTurn(text string, degraded bool) Turn {
	return Turn{Kind: TurnFinalAnswer, Timestamp: time.Now().UTC(), Text: text, Degraded: degraded}
}

// Validate checks the variant shape: the kind is known and the fields
// required by that kind are populated.
func (t Turn) Validate() error {
	switch t.Kind {
	case TurnUserMessage, TurnAgentThought:
		if t.Text == "" {
			return fmt.Errorf("turn %s: empty text", t.Kind)
		}
	case TurnToolCall:
		if t.Tool == "" {
			return fmt.Errorf("turn tool_call: empty tool name")
		}
	case TurnToolResult:
		if t.Tool == "" {
			return fmt.Errorf("turn tool_result: empty tool name")
		}
	case TurnFinalAnswer:
		if t.Text == "" {
			return fmt.Errorf("turn final_answer: empty text")
		}
	default:
		return fmt.Errorf("unknown turn kind %q", t.Kind)
	}
	return nil
}
