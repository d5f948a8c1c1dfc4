package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/marquee-ai/marquee/internal/logging"
	"github.com/marquee-ai/marquee/internal/telemetry"
)

var tracer = otel.Tracer("marquee/llm")

// FailoverClient wraps a registry to try fallback providers on failure.
// It implements Client, so callers can depend on one handle and stay
// unaware of the provider order behind it.
type FailoverClient struct {
	registry  *Registry
	primary   string
	fallbacks []string
	log       *logging.Logger
	duration  metric.Float64Histogram
}

// NewFailoverClient creates a client that tries the primary model first,
// then falls back through the list on retryable errors.
func NewFailoverClient(registry *Registry, primary string, fallbacks []string, log *logging.Logger) *FailoverClient {
	duration, _ := telemetry.Meter("marquee/llm").Float64Histogram("marquee.llm.duration",
		metric.WithDescription("Completion time of the provider that answered (ms)"),
		metric.WithUnit("ms"),
	)
	return &FailoverClient{
		registry:  registry,
		primary:   primary,
		fallbacks: fallbacks,
		log:       log.Sub("llm.failover"),
		duration:  duration,
	}
}

// Name returns the primary provider reference.
func (f *FailoverClient) Name() string { return f.primary }

// Complete tries the primary provider, falling back on retryable errors.
// When every candidate fails, the last error is returned; the caller
// treats that as the reasoning collaborator being unavailable.
func (f *FailoverClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, span := tracer.Start(ctx, "llm.complete",
		trace.WithAttributes(attribute.String("llm.primary", f.primary)))
	defer span.End()

	models := append([]string{f.primary}, f.fallbacks...)

	var lastErr error
	for _, model := range models {
		client, err := f.registry.Resolve(model)
		if err != nil {
			f.log.Debug().Str("model", model).Err(err).Msg("no provider for model, skipping")
			lastErr = err
			continue
		}

		req.Model = model
		attemptStart := time.Now()
		resp, err := client.Complete(ctx, req)
		if err == nil {
			span.SetAttributes(attribute.String("llm.model", model))
			f.duration.Record(ctx, float64(time.Since(attemptStart))/float64(time.Millisecond),
				metric.WithAttributes(attribute.String("llm.model", model)))
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, err
		}
		if isRetryable(err) {
			f.log.Warn().Str("model", model).Err(err).Msg("retryable error, trying next provider")
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isRetryable checks if the error suggests trying another provider.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case 0, 401, 403, 408, 429, 500, 502, 503, 529:
			return true
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "capacity") ||
		strings.Contains(msg, "timeout")
}
