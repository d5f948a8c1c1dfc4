package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/marquee-ai/marquee/internal/domain"
	"github.com/marquee-ai/marquee/internal/logging"
)

// PostgresStore is a MovieStore backed by PostgreSQL with the pgvector
// extension. It serves deployments where the dataset outgrows a single
// SQLite file or where pgvector-backed retrieval is configured.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logging.Logger
}

// OpenPostgres connects to Postgres, enables the vector extension and
// creates the schema if missing.
func OpenPostgres(ctx context.Context, dsn string, log *logging.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse postgres DSN: %w", err)
	}

	// Best-effort registration: the extension may not exist until
	// ensureSchema runs, later connections pick the types up.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if err := pgxvector.RegisterTypes(ctx, conn); err != nil {
			log.Debug().Err(err).Msg("pgvector types not registered yet")
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool, log: log.Sub("store")}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s.log.Info().Msg("postgres store ready")
	return s, nil
}

// Pool returns the underlying connection pool.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS movies (
			id BIGSERIAL PRIMARY KEY,
			"Poster_Link" TEXT NOT NULL DEFAULT '',
			"Series_Title" TEXT NOT NULL,
			"Released_Year" INTEGER NOT NULL,
			"Certificate" TEXT NOT NULL DEFAULT '',
			"Runtime" INTEGER NOT NULL,
			"Genre" TEXT NOT NULL DEFAULT '',
			"IMDB_Rating" REAL NOT NULL,
			"Overview" TEXT NOT NULL DEFAULT '',
			"Meta_score" INTEGER NOT NULL,
			"Director" TEXT NOT NULL DEFAULT '',
			"Star1" TEXT NOT NULL DEFAULT '',
			"Star2" TEXT NOT NULL DEFAULT '',
			"Star3" TEXT NOT NULL DEFAULT '',
			"Star4" TEXT NOT NULL DEFAULT '',
			"No_of_votes" BIGINT NOT NULL,
			"Gross" BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movies_title ON movies("Series_Title")`,
		`CREATE TABLE IF NOT EXISTS movie_vectors (
			movie_id BIGINT PRIMARY KEY REFERENCES movies(id) ON DELETE CASCADE,
			embedding vector
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: ensure schema: %w", err)
		}
	}
	return nil
}

// Select executes a read-only SELECT and returns generic rows.
func (s *PostgresStore) Select(ctx context.Context, query string) ([]map[string]any, error) {
	ctx, span := tracer.Start(ctx, "store.query")
	defer span.End()

	if err := checkSelectOnly(query); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, &QueryError{Query: query, Message: err.Error()}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &QueryError{Query: query, Message: err.Error()}
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[f.Name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: query, Message: err.Error()}
	}
	return out, nil
}

// Titles returns all distinct movie titles.
func (s *PostgresStore) Titles(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT "Series_Title" FROM movies ORDER BY "Series_Title"`)
	if err != nil {
		return nil, fmt.Errorf("store: titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("store: titles: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// Count returns the number of movies in the dataset.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM movies").Scan(&n)
	return n, err
}

// ReplaceMovies atomically replaces the dataset. Row ids are assigned
// 1..N in input order, matching the sqlite backend, so vector keys stay
// stable across re-ingests.
func (s *PostgresStore) ReplaceMovies(ctx context.Context, movies []domain.Movie) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: replace movies: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE movies, movie_vectors RESTART IDENTITY"); err != nil {
		return fmt.Errorf("store: truncate: %w", err)
	}

	for i, m := range movies {
		if _, err := tx.Exec(ctx, `
			INSERT INTO movies (
				id, "Poster_Link", "Series_Title", "Released_Year", "Certificate", "Runtime",
				"Genre", "IMDB_Rating", "Overview", "Meta_score", "Director",
				"Star1", "Star2", "Star3", "Star4", "No_of_votes", "Gross"
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`,
			int64(i+1),
			m.PosterLink, m.SeriesTitle, m.ReleasedYear, m.Certificate, m.RuntimeMin,
			m.Genre, m.IMDBRating, m.Overview, m.MetaScore, m.Director,
			m.Star1, m.Star2, m.Star3, m.Star4, m.NoOfVotes, m.Gross,
		); err != nil {
			return fmt.Errorf("store: insert %q: %w", m.SeriesTitle, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: replace movies commit: %w", err)
	}
	s.log.Info().Int("count", len(movies)).Msg("movie dataset replaced")
	return nil
}

// SaveVectors stores overview embeddings keyed by movie id.
func (s *PostgresStore) SaveVectors(ctx context.Context, rows []VectorRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: save vectors: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range rows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO movie_vectors (movie_id, embedding) VALUES ($1, $2)
			ON CONFLICT (movie_id) DO UPDATE SET embedding = EXCLUDED.embedding
		`, r.MovieID, pgvector.NewVector(r.Vector)); err != nil {
			return fmt.Errorf("store: upsert vector %d: %w", r.MovieID, err)
		}
	}
	return tx.Commit(ctx)
}

// LoadVectors returns all stored embeddings with their titles.
func (s *PostgresStore) LoadVectors(ctx context.Context) ([]VectorRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT v.movie_id, m."Series_Title", v.embedding
		FROM movie_vectors v
		JOIN movies m ON m.id = v.movie_id
		ORDER BY v.movie_id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: load vectors: %w", err)
	}
	defer rows.Close()

	var out []VectorRow
	for rows.Next() {
		var r VectorRow
		var vec pgvector.Vector
		if err := rows.Scan(&r.MovieID, &r.Title, &vec); err != nil {
			return nil, fmt.Errorf("store: load vectors: %w", err)
		}
		r.Vector = vec.Slice()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close shuts down the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
