// Package agent drives the think-act-observe loop that turns user
// questions into tool invocations and a final answer. One Orchestrator
// serves many sessions; all conversation state lives in memory.Store.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/marquee-ai/marquee/internal/domain"
	"github.com/marquee-ai/marquee/internal/llm"
	"github.com/marquee-ai/marquee/internal/logging"
	"github.com/marquee-ai/marquee/internal/memory"
	"github.com/marquee-ai/marquee/internal/telemetry"
	"github.com/marquee-ai/marquee/internal/tools"
)

var tracer = otel.Tracer("marquee/agent")

// reasonerPseudoTool names the reasoner itself in failure observations,
// so format errors show up in traces like any other failed step.
const reasonerPseudoTool = "reasoner"

// usageAnswer is returned for empty input, without consuming an
// iteration or touching the session.
const usageAnswer = `Please ask a question about the movie dataset, for example "Which movies did Christopher Nolan direct?"`

// Config bounds the reasoning loop.
type Config struct {
	Model         string
	MaxTokens     int
	MaxIterations int
	ToolTimeout   time.Duration
}

// Result is the outcome of processing one user message.
type Result struct {
	SessionID string        `json:"sessionId"`
	Answer    string        `json:"answer"`
	Degraded  bool          `json:"degraded"`
	Turns     []domain.Turn `json:"turns,omitempty"`
	Steps     []Step        `json:"steps,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Event types emitted while a run progresses.
const (
	EventThought    = "thought"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventFinal      = "final"
	EventError      = "error"
)

// Event is one observable moment of a run, emitted as it happens.
type Event struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Tool     string          `json:"tool,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	OK       bool            `json:"ok"`
	Degraded bool            `json:"degraded,omitempty"`
}

// EventCallback receives loop events during RunStream.
type EventCallback func(Event)

func emit(cb EventCallback, ev Event) {
	if cb != nil {
		cb(ev)
	}
}

// Orchestrator drives the reasoning loop for one user turn at a time.
type Orchestrator struct {
	client   llm.Client
	registry *tools.Registry
	memory   memory.Store
	cfg      Config
	log      *logging.Logger

	iterations    metric.Int64Counter
	formatRetries metric.Int64Counter
}

// New creates an orchestrator. MaxIterations falls back to 5 when unset.
func New(client llm.Client, registry *tools.Registry, mem memory.Store, cfg Config, log *logging.Logger) *Orchestrator {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 5
	}
	meter := telemetry.Meter("marquee/agent")
	iterations, _ := meter.Int64Counter("marquee.agent.iterations",
		metric.WithDescription("Reasoner calls made across all runs"),
	)
	formatRetries, _ := meter.Int64Counter("marquee.agent.format_retries",
		metric.WithDescription("Unparseable reasoner outputs answered with a format reminder"),
	)
	return &Orchestrator{
		client:        client,
		registry:      registry,
		memory:        mem,
		cfg:           cfg,
		log:           log.Sub("agent"),
		iterations:    iterations,
		formatRetries: formatRetries,
	}
}

// Run processes one user message and returns the final result.
func (o *Orchestrator) Run(ctx context.Context, sessionID, message string) (*Result, error) {
	return o.RunStream(ctx, sessionID, message, nil)
}

// RunStream processes one user message, emitting an Event for each
// thought, tool call, tool result and the final answer. cb may be nil.
//
// The loop makes at most MaxIterations reasoner calls. Reaching the
// bound, or two consecutive unparseable reasoner outputs, force-stops
// the run into a degraded answer rather than an error. A reasoner or
// session-store failure is fatal for the turn; every turn appended
// before the failure stays persisted.
func (o *Orchestrator) RunStream(ctx context.Context, sessionID, message string, cb EventCallback) (*Result, error) {
	start := time.Now()

	message = strings.TrimSpace(message)
	if message == "" {
		return &Result{SessionID: sessionID, Answer: usageAnswer, Duration: time.Since(start)}, nil
	}

	ctx, span := tracer.Start(ctx, "agent.run")
	defer span.End()

	session, err := o.memory.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session load: %w", err)
	}
	span.SetAttributes(attribute.String("session.id", session.ID))

	o.log.Info().
		Str("sessionId", session.ID).
		Int("historyLen", len(session.Turns)).
		Msg("processing message")

	runStart := len(session.Turns)
	if err := o.appendTurn(ctx, session, domain.NewUserTurn(message)); err != nil {
		return nil, err
	}

	system := BuildSystemPrompt(o.registry.Specs())

	var (
		lastRaw        string
		formatFailures int
	)

	for iter := 1; iter <= o.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}
		o.iterations.Add(ctx, 1)

		thinkCtx, thinkSpan := tracer.Start(ctx, "agent.think",
			trace.WithAttributes(attribute.Int("iteration", iter)))
		resp, err := o.client.Complete(thinkCtx, llm.CompletionRequest{
			Model:       o.cfg.Model,
			System:      system,
			Messages:    renderHistory(session.Turns),
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: llm.Temp(0),
		})
		thinkSpan.End()
		if err != nil {
			return nil, fmt.Errorf("reasoner completion: %w", err)
		}
		lastRaw = resp.Content

		decision, err := parseDecision(resp.Content)
		if err != nil {
			formatFailures++
			o.formatRetries.Add(ctx, 1)
			o.log.Warn().Err(err).Int("consecutive", formatFailures).Msg("reasoner output unparseable")

			turn := domain.NewToolResultTurn(reasonerPseudoTool, formatReminder(err), false)
			if aerr := o.appendTurn(context.WithoutCancel(ctx), session, turn); aerr != nil {
				return nil, aerr
			}
			emit(cb, Event{Type: EventToolResult, Tool: reasonerPseudoTool, Text: turn.Output})

			if formatFailures >= 2 {
				break
			}
			continue
		}
		formatFailures = 0

		switch d := decision.(type) {
		case Final:
			if err := o.appendTurn(ctx, session, domain.NewFinalTurn(d.Answer, false)); err != nil {
				return nil, err
			}
			emit(cb, Event{Type: EventFinal, Text: d.Answer, OK: true})
			o.log.Info().
				Str("sessionId", session.ID).
				Int("iterations", iter).
				Dur("duration", time.Since(start)).
				Msg("answer ready")
			return o.result(session, runStart, d.Answer, false, start), nil

		case Action:
			// The call/result pair must land together even if ctx is
			// cancelled while the tool runs; only the tool itself is
			// interruptible.
			obsCtx := context.WithoutCancel(ctx)

			if d.Thought != "" {
				if err := o.appendTurn(obsCtx, session, domain.NewThoughtTurn(d.Thought)); err != nil {
					return nil, err
				}
				emit(cb, Event{Type: EventThought, Text: d.Thought, OK: true})
			}
			if err := o.appendTurn(obsCtx, session, domain.NewToolCallTurn(d.Tool, d.Input)); err != nil {
				return nil, err
			}
			emit(cb, Event{Type: EventToolCall, Tool: d.Tool, Args: d.Input, OK: true})

			res := o.registry.Invoke(ctx, d.Tool, d.Input, o.cfg.ToolTimeout)
			o.log.Debug().
				Str("tool", d.Tool).
				Bool("ok", res.OK).
				Dur("took", res.Duration).
				Msg("tool executed")

			if err := o.appendTurn(obsCtx, session, domain.NewToolResultTurn(res.Tool, res.Output, res.OK)); err != nil {
				return nil, err
			}
			emit(cb, Event{Type: EventToolResult, Tool: res.Tool, Text: res.Output, OK: res.OK})
		}
	}

	// Iteration bound or repeated format failures: synthesize instead
	// of failing the turn.
	answer := degradedAnswer(lastRaw, session.Turns[runStart:])
	if err := o.appendTurn(ctx, session, domain.NewFinalTurn(answer, true)); err != nil {
		return nil, err
	}
	emit(cb, Event{Type: EventFinal, Text: answer, OK: true, Degraded: true})
	o.log.Warn().
		Err(ErrLoopBound).
		Str("sessionId", session.ID).
		Msg("degraded answer synthesized")
	return o.result(session, runStart, answer, true, start), nil
}

// appendTurn assigns the next sequence number, persists the turn, and
// mirrors it onto the in-memory session.
func (o *Orchestrator) appendTurn(ctx context.Context, sess *domain.Session, turn domain.Turn) error {
	turn.Seq = sess.NextSeq()
	if err := o.memory.Append(ctx, sess.ID, turn); err != nil {
		return fmt.Errorf("append %s turn: %w", turn.Kind, err)
	}
	sess.Turns = append(sess.Turns, turn)
	return nil
}

func (o *Orchestrator) result(session *domain.Session, runStart int, answer string, degraded bool, start time.Time) *Result {
	turns := make([]domain.Turn, len(session.Turns)-runStart)
	copy(turns, session.Turns[runStart:])
	return &Result{
		SessionID: session.ID,
		Answer:    answer,
		Degraded:  degraded,
		Turns:     turns,
		Steps:     BuildTrace(turns),
		Duration:  time.Since(start),
	}
}

// renderHistory converts stored turns into the transcript the reasoner
// sees. Thoughts and tool calls replay as assistant text with the
// tool_call re-fenced; tool results come back as user-side
// observations. Consecutive same-role messages merge so providers that
// require strict alternation stay happy.
func renderHistory(turns []domain.Turn) []llm.Message {
	var msgs []llm.Message
	push := func(role, content string) {
		if content == "" {
			return
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content += "\n\n" + content
			return
		}
		msgs = append(msgs, llm.Message{Role: role, Content: content})
	}

	for _, t := range turns {
		switch t.Kind {
		case domain.TurnUserMessage:
			push(llm.RoleUser, t.Text)
		case domain.TurnAgentThought:
			push(llm.RoleAssistant, t.Text)
		case domain.TurnToolCall:
			push(llm.RoleAssistant, renderToolCall(t.Tool, t.Args))
		case domain.TurnToolResult:
			push(llm.RoleUser, renderToolResult(t))
		case domain.TurnFinalAnswer:
			push(llm.RoleAssistant, t.Text)
		}
	}
	return msgs
}

func renderToolResult(t domain.Turn) string {
	status := "ok"
	if !t.OK {
		status = "error"
	}
	return fmt.Sprintf("Tool result (%s, %s):\n%s", t.Tool, status, t.Output)
}

// formatReminder is fed back to the reasoner after unparseable output.
func formatReminder(err error) string {
	return fmt.Sprintf("Your previous output could not be processed: %v.\n"+
		"Reply with either a plain-text final answer, or exactly one tool call as a fenced block:\n"+
		"```tool_call\n{\"tool\": \"tool_name\", \"input\": {\"param\": \"value\"}}\n```", err)
}
