package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations are applied in order. Never modify an existing migration;
// add a new one instead.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create_movies",
		SQL: `
			CREATE TABLE movies (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				Poster_Link TEXT NOT NULL DEFAULT '',
				Series_Title TEXT NOT NULL,
				Released_Year INTEGER NOT NULL,
				Certificate TEXT NOT NULL DEFAULT '',
				Runtime INTEGER NOT NULL,
				Genre TEXT NOT NULL DEFAULT '',
				IMDB_Rating REAL NOT NULL,
				Overview TEXT NOT NULL DEFAULT '',
				Meta_score INTEGER NOT NULL,
				Director TEXT NOT NULL DEFAULT '',
				Star1 TEXT NOT NULL DEFAULT '',
				Star2 TEXT NOT NULL DEFAULT '',
				Star3 TEXT NOT NULL DEFAULT '',
				Star4 TEXT NOT NULL DEFAULT '',
				No_of_votes INTEGER NOT NULL,
				Gross INTEGER NOT NULL
			);
			CREATE INDEX idx_movies_title ON movies(Series_Title);
			CREATE INDEX idx_movies_year ON movies(Released_Year);
			CREATE INDEX idx_movies_rating ON movies(IMDB_Rating);
		`,
	},
	{
		Version: 2,
		Name:    "create_movie_vectors",
		SQL: `
			CREATE TABLE movie_vectors (
				movie_id INTEGER PRIMARY KEY REFERENCES movies(id) ON DELETE CASCADE,
				dim INTEGER NOT NULL,
				embedding BLOB NOT NULL
			);
		`,
	},
	{
		Version: 3,
		Name:    "create_sessions",
		SQL: `
			CREATE TABLE sessions (
				id TEXT PRIMARY KEY,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);

			CREATE TABLE turns (
				session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
				seq INTEGER NOT NULL,
				kind TEXT NOT NULL,
				created_at TEXT NOT NULL,
				text TEXT NOT NULL DEFAULT '',
				tool TEXT NOT NULL DEFAULT '',
				args TEXT NOT NULL DEFAULT '',
				output TEXT NOT NULL DEFAULT '',
				ok INTEGER NOT NULL DEFAULT 1,
				degraded INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (session_id, seq)
			);

			CREATE INDEX idx_turns_session ON turns(session_id, seq);
		`,
	},
}
