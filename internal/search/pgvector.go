package search

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/marquee-ai/marquee/internal/logging"
)

// PgvectorIndex is an Index over the postgres store's movie_vectors
// table, using the pgvector cosine-distance operator. It shares the
// store's pool, so it only works alongside the postgres backend.
type PgvectorIndex struct {
	pool  *pgxpool.Pool
	floor float64
	log   *logging.Logger
}

// NewPgvectorIndex wraps an existing pool.
func NewPgvectorIndex(pool *pgxpool.Pool, floor float64, log *logging.Logger) *PgvectorIndex {
	return &PgvectorIndex{pool: pool, floor: floor, log: log.Sub("search")}
}

// Upsert writes embeddings into movie_vectors.
func (p *PgvectorIndex) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("search: pgvector upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range docs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO movie_vectors (movie_id, embedding) VALUES ($1, $2)
			ON CONFLICT (movie_id) DO UPDATE SET embedding = EXCLUDED.embedding
		`, d.ID, pgvector.NewVector(d.Vector)); err != nil {
			return fmt.Errorf("search: pgvector upsert %d: %w", d.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// Search orders by cosine distance and converts to similarity.
func (p *PgvectorIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	ctx, span := startQuerySpan(ctx, "pgvector", k)
	defer span.End()

	rows, err := p.pool.Query(ctx, `
		SELECT v.movie_id, m."Series_Title", 1 - (v.embedding <=> $1) AS score
		FROM movie_vectors v
		JOIN movies m ON m.id = v.movie_id
		ORDER BY v.embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("search: pgvector query: %w", err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.DocID, &h.Title, &h.Score); err != nil {
			return nil, fmt.Errorf("search: pgvector scan: %w", err)
		}
		if p.floor > 0 && h.Score < p.floor {
			continue
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Count returns the number of stored embeddings.
func (p *PgvectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM movie_vectors").Scan(&n)
	return n, err
}

// Healthy pings the shared pool.
func (p *PgvectorIndex) Healthy(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close is a no-op: the pool belongs to the store.
func (p *PgvectorIndex) Close() error {
	return nil
}
