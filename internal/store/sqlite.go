package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/marquee-ai/marquee/internal/domain"
	"github.com/marquee-ai/marquee/internal/logging"
)

// DB wraps a SQLite database connection with migration support. It backs
// both the movie dataset and conversation persistence.
type DB struct {
	sql *sql.DB
	log *logging.Logger
}

// Open opens (or creates) a SQLite database at the given path and runs
// migrations. Use ":memory:" for an in-memory database (useful for tests).
func Open(path string, log *logging.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	db := &DB{sql: sqlDB, log: log.Sub("store")}

	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	db.log.Info().Str("path", path).Msg("database opened")
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.log.Info().Msg("closing database")
	return db.sql.Close()
}

// SQL returns the underlying *sql.DB for direct queries.
func (db *DB) SQL() *sql.DB {
	return db.sql
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// migrate runs all pending migrations.
func (db *DB) migrate() error {
	if _, err := db.sql.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := db.isMigrationApplied(m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		db.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := db.sql.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (db *DB) isMigrationApplied(version int) (bool, error) {
	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return count > 0, nil
}

// --- MovieStore implementation ---

// Select executes a read-only SELECT and returns generic rows.
func (db *DB) Select(ctx context.Context, query string) ([]map[string]any, error) {
	ctx, span := tracer.Start(ctx, "store.query")
	defer span.End()

	if err := checkSelectOnly(query); err != nil {
		return nil, err
	}

	rows, err := db.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, &QueryError{Query: query, Message: err.Error()}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Query: query, Message: err.Error()}
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Query: query, Message: err.Error()}
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: query, Message: err.Error()}
	}
	return out, nil
}

// Titles returns all distinct movie titles.
func (db *DB) Titles(ctx context.Context) ([]string, error) {
	rows, err := db.sql.QueryContext(ctx, "SELECT DISTINCT Series_Title FROM movies ORDER BY Series_Title")
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
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies").Scan(&n)
	return n, err
}

// ReplaceMovies atomically replaces the dataset. Row ids are assigned
// 1..N in input order, so re-ingesting the same file rewrites the same
// keys in the vector table and any external index. Embeddings are
// cleared with the rows; re-ingesting rebuilds both.
func (db *DB) ReplaceMovies(ctx context.Context, movies []domain.Movie) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: replace movies: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM movie_vectors"); err != nil {
		return fmt.Errorf("store: clear vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM movies"); err != nil {
		return fmt.Errorf("store: clear movies: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movies (
			id, Poster_Link, Series_Title, Released_Year, Certificate, Runtime,
			Genre, IMDB_Rating, Overview, Meta_score, Director,
			Star1, Star2, Star3, Star4, No_of_votes, Gross
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range movies {
		if _, err := stmt.ExecContext(ctx,
			int64(i+1),
			m.PosterLink, m.SeriesTitle, m.ReleasedYear, m.Certificate, m.RuntimeMin,
			m.Genre, m.IMDBRating, m.Overview, m.MetaScore, m.Director,
			m.Star1, m.Star2, m.Star3, m.Star4, m.NoOfVotes, m.Gross,
		); err != nil {
			return fmt.Errorf("store: insert %q: %w", m.SeriesTitle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: replace movies commit: %w", err)
	}
	db.log.Info().Int("count", len(movies)).Msg("movie dataset replaced")
	return nil
}

// SaveVectors stores overview embeddings keyed by movie id.
func (db *DB) SaveVectors(ctx context.Context, rows []VectorRow) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: save vectors: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movie_vectors (movie_id, dim, embedding)
		VALUES (?, ?, ?)
		ON CONFLICT(movie_id) DO UPDATE SET dim = excluded.dim, embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("store: prepare vector upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.MovieID, len(r.Vector), encodeVector(r.Vector)); err != nil {
			return fmt.Errorf("store: upsert vector %d: %w", r.MovieID, err)
		}
	}
	return tx.Commit()
}

// LoadVectors returns all stored embeddings with their titles, in movie
// id order. The in-process index relies on this order being stable.
func (db *DB) LoadVectors(ctx context.Context) ([]VectorRow, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT v.movie_id, m.Series_Title, v.embedding
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
		var blob []byte
		if err := rows.Scan(&r.MovieID, &r.Title, &blob); err != nil {
			return nil, fmt.Errorf("store: load vectors: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("store: vector %d: %w", r.MovieID, err)
		}
		r.Vector = vec
		out = append(out, r)
	}
	return out, rows.Err()
}
