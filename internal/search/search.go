// Package search provides the vector index behind semantic movie
// retrieval: an exact in-process index by default, with optional Qdrant
// and pgvector backends.
package search

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("marquee/search")

func startQuerySpan(ctx context.Context, backend string, k int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "search.query", trace.WithAttributes(
		attribute.String("index.backend", backend),
		attribute.Int("k", k),
	))
}

// RetrievalError marks an embedding or index failure during a semantic
// lookup. It is recoverable: the agent records it as a failed
// observation and may rephrase on its next step.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed during %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Document is one indexed movie overview embedding.
type Document struct {
	ID     int64
	Title  string
	Vector []float32
}

// Hit is a single search result. Score is cosine similarity in [-1, 1].
type Hit struct {
	DocID int64   `json:"docId"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Index is a vector similarity index. Implementations must be safe for
// concurrent use.
type Index interface {
	// Upsert inserts or replaces documents by ID.
	Upsert(ctx context.Context, docs []Document) error

	// Search returns up to k hits ordered by non-increasing similarity.
	// k <= 0 returns an empty result.
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)

	// Healthy returns nil if the index is usable.
	Healthy(ctx context.Context) error

	Close() error
}
