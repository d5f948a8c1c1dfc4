// Package tools defines the tool abstraction the reasoning loop invokes
// and the registry that holds the fixed tool set.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/marquee-ai/marquee/internal/telemetry"
)

var tracer = otel.Tracer("marquee/tools")

// Tool is a capability the agent can invoke during a conversation.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// InputSchema returns the JSON Schema for the tool's input, shown to
	// the LLM as documentation of the argument shape.
	InputSchema() string

	// Execute runs the tool with the given JSON arguments and returns its
	// output. Implementations decode their own arguments strictly and
	// return *ArgumentError before doing any work when they don't fit.
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Spec is a serializable tool definition for prompts and health output.
type Spec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema string `json:"inputSchema"`
}

// Result is the outcome of one tool invocation. OK=false carries the
// failure cause in Output; the invocation never raises past this type.
type Result struct {
	Tool     string        `json:"tool"`
	Output   string        `json:"output"`
	OK       bool          `json:"ok"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Registry holds the registered tools in registration order. The set is
// fixed at startup; there is no removal.
type Registry struct {
	order []string
	tools map[string]Tool

	invocations metric.Int64Counter
	failures    metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	meter := telemetry.Meter("marquee/tools")
	invocations, _ := meter.Int64Counter("marquee.tools.invocations",
		metric.WithDescription("Tool invocations by name and outcome"),
	)
	failures, _ := meter.Int64Counter("marquee.tools.failures",
		metric.WithDescription("Tool invocations that produced a failure observation"),
	)
	duration, _ := meter.Float64Histogram("marquee.tools.duration",
		metric.WithDescription("Tool execution time (ms)"),
		metric.WithUnit("ms"),
	)
	return &Registry{
		tools:       make(map[string]Tool),
		invocations: invocations,
		failures:    failures,
		duration:    duration,
	}
}

// Register adds a tool. Duplicate names are an error: the registered set
// must be unambiguous for the model.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tools: register: empty tool name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tools: register: duplicate tool %q", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Specs returns tool definitions in registration order. The order is
// stable so the model sees a consistent listing across calls.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, Spec{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return specs
}

// Invoke runs a named tool with a bounded wait and captures every
// failure mode as a Result with OK=false: unknown tool, argument
// rejection, timeout, execution error, even a panicking tool. The caller
// can append the Result to the conversation log unconditionally.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage, timeout time.Duration) Result {
	ctx, span := tracer.Start(ctx, "tools.invoke",
		trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	start := time.Now()
	res := Result{Tool: name}

	defer func() {
		span.SetAttributes(attribute.Bool("tool.ok", res.OK))
		nameAttr := metric.WithAttributes(attribute.String("tool.name", name))
		r.invocations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool.name", name),
			attribute.Bool("ok", res.OK),
		))
		if !res.OK {
			r.failures.Add(ctx, 1, nameAttr)
		}
		r.duration.Record(ctx, float64(res.Duration)/float64(time.Millisecond), nameAttr)
	}()

	tool, ok := r.tools[name]
	if !ok {
		res.Output = fmt.Sprintf("unknown tool %q; available: %s", name, joinNames(r.order))
		res.Duration = time.Since(start)
		return res
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := safeExecute(ctx, tool, args)
	res.Duration = time.Since(start)

	switch {
	case err == nil:
		res.Output = output
		res.OK = true
	case ctx.Err() == context.DeadlineExceeded:
		res.Output = fmt.Sprintf("tool %s timed out after %s", name, timeout)
	default:
		res.Output = err.Error()
	}
	return res
}

// safeExecute shields the loop from panicking tool implementations.
func safeExecute(ctx context.Context, tool Tool, args json.RawMessage) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, args)
}

// DecodeArgs strictly decodes tool arguments into v, rejecting unknown
// fields and trailing garbage. Tools use it at the top of Execute.
func DecodeArgs(args json.RawMessage, v any) error {
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after arguments object")
	}
	return nil
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}
