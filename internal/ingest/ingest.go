// Package ingest loads the IMDb CSV into the movie store and builds the
// overview embeddings for semantic search. Re-running replaces the
// dataset wholesale.
package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marquee-ai/marquee/internal/embedding"
	"github.com/marquee-ai/marquee/internal/logging"
	"github.com/marquee-ai/marquee/internal/search"
	"github.com/marquee-ai/marquee/internal/store"
)

const (
	defaultConcurrency = 4
	embedBatchSize     = 32
	upsertBatchSize    = 256
)

// Options control one ingest run.
type Options struct {
	CSVPath        string
	SkipEmbeddings bool
	Concurrency    int
}

// Summary reports what an ingest run loaded.
type Summary struct {
	Movies     int           `json:"movies"`
	Embedded   int           `json:"embedded"`
	Dimensions int           `json:"dimensions,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Ingestor wires the store, embedding provider and index together for
// dataset loading.
type Ingestor struct {
	store    store.MovieStore
	embedder embedding.Provider
	index    search.Index
	log      *logging.Logger
}

// New creates an ingestor.
func New(st store.MovieStore, embedder embedding.Provider, index search.Index, log *logging.Logger) *Ingestor {
	return &Ingestor{store: st, embedder: embedder, index: index, log: log.Sub("ingest")}
}

// Run loads the CSV, replaces the movie dataset, and (unless skipped)
// embeds every overview and upserts the vectors into the store and the
// index. A failure during embedding leaves the relational dataset
// loaded; re-running is always safe.
func (ing *Ingestor) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()

	f, err := os.Open(opts.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("ingest: open csv: %w", err)
	}
	defer f.Close()

	movies, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, fmt.Errorf("ingest: %s has no data rows", opts.CSVPath)
	}

	if err := ing.store.ReplaceMovies(ctx, movies); err != nil {
		return nil, fmt.Errorf("ingest: replace movies: %w", err)
	}
	ing.log.Info().Int("movies", len(movies)).Str("csv", opts.CSVPath).Msg("dataset loaded")

	summary := &Summary{Movies: len(movies)}
	if opts.SkipEmbeddings {
		summary.Duration = time.Since(start)
		return summary, nil
	}

	// Re-read ids from the store: row ids are assigned at insert and key
	// both the vector table and the index.
	rows, err := ing.store.Select(ctx, "SELECT id, Series_Title, Overview FROM movies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("ingest: load rows for embedding: %w", err)
	}

	ids := make([]int64, 0, len(rows))
	titles := make([]string, 0, len(rows))
	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		id, ok := asInt64(row["id"])
		if !ok {
			return nil, fmt.Errorf("ingest: unexpected id value %v", row["id"])
		}
		ids = append(ids, id)
		titles = append(titles, fmt.Sprint(row["Series_Title"]))
		texts = append(texts, fmt.Sprint(row["Overview"]))
	}

	vectors, err := ing.embedAll(ctx, texts, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	vecRows := make([]store.VectorRow, len(ids))
	docs := make([]search.Document, len(ids))
	for i, id := range ids {
		vecRows[i] = store.VectorRow{MovieID: id, Title: titles[i], Vector: vectors[i]}
		docs[i] = search.Document{ID: id, Title: titles[i], Vector: vectors[i]}
	}

	if err := ing.store.SaveVectors(ctx, vecRows); err != nil {
		return nil, fmt.Errorf("ingest: save vectors: %w", err)
	}
	for s := 0; s < len(docs); s += upsertBatchSize {
		e := min(s+upsertBatchSize, len(docs))
		if err := ing.index.Upsert(ctx, docs[s:e]); err != nil {
			return nil, fmt.Errorf("ingest: index upsert: %w", err)
		}
	}

	summary.Embedded = len(vectors)
	if len(vectors) > 0 {
		summary.Dimensions = len(vectors[0])
	}
	summary.Duration = time.Since(start)

	ing.log.Info().
		Int("embedded", summary.Embedded).
		Int("dimensions", summary.Dimensions).
		Dur("duration", summary.Duration).
		Msg("embeddings built")
	return summary, nil
}

// embedAll embeds every overview in bounded-concurrency batches.
func (ing *Ingestor) embedAll(ctx context.Context, texts []string, concurrency int) ([][]float32, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for s := 0; s < len(texts); s += embedBatchSize {
		e := min(s+embedBatchSize, len(texts))
		g.Go(func() error {
			batch, err := ing.embedder.EmbedBatch(gctx, texts[s:e])
			if err != nil {
				return fmt.Errorf("ingest: embed rows %d-%d: %w", s, e-1, err)
			}
			copy(vectors[s:e], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// asInt64 normalizes the id column across drivers.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
