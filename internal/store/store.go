// Package store provides the relational movie dataset storage, with a
// pure-Go SQLite backend and an optional Postgres backend.
package store

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/marquee-ai/marquee/internal/domain"
)

var tracer = otel.Tracer("marquee/store")

// QueryError reports a rejected or failed dataset query. It carries the
// query text so the failure observation the agent sees includes what was
// attempted.
type QueryError struct {
	Query   string
	Message string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %s (query: %s)", e.Message, e.Query)
}

// VectorRow is one stored overview embedding.
type VectorRow struct {
	MovieID int64
	Title   string
	Vector  []float32
}

// MovieStore is the read-mostly interface over the movie dataset. Select
// and Titles serve the agent's tools; the Replace/Save pair serves ingest.
type MovieStore interface {
	// Select executes a read-only SELECT and returns generic rows. Any
	// statement that is not a single SELECT is rejected with a QueryError.
	Select(ctx context.Context, query string) ([]map[string]any, error)

	// Titles returns all distinct movie titles.
	Titles(ctx context.Context) ([]string, error)

	// ReplaceMovies atomically replaces the dataset.
	ReplaceMovies(ctx context.Context, movies []domain.Movie) error

	// SaveVectors stores overview embeddings keyed by movie id.
	SaveVectors(ctx context.Context, rows []VectorRow) error

	// LoadVectors returns all stored embeddings with their titles, in
	// movie id order.
	LoadVectors(ctx context.Context) ([]VectorRow, error)

	// Count returns the number of movies in the dataset.
	Count(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// checkSelectOnly rejects statements other than a single SELECT. The
// query guard upstream already filters harder; this is the storage
// layer's own line.
func checkSelectOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return &QueryError{Query: query, Message: "only SELECT statements are allowed"}
	}
	return nil
}

// normalizeValue converts driver-specific scan results into JSON-friendly
// values.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
