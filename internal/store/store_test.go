package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-ai/marquee/internal/domain"
	"github.com/marquee-ai/marquee/internal/logging"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.Silent())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleMovies() []domain.Movie {
	return []domain.Movie{
		{
			SeriesTitle: "Inception", ReleasedYear: 2010, Certificate: "UA",
			RuntimeMin: 148, Genre: "Action, Adventure, Sci-Fi", IMDBRating: 8.8,
			Overview:  "A thief who steals corporate secrets through the use of dream-sharing technology.",
			MetaScore: 74, Director: "Christopher Nolan",
			Star1: "Leonardo DiCaprio", Star2: "Joseph Gordon-Levitt",
			Star3: "Elliot Page", Star4: "Ken Watanabe",
			NoOfVotes: 2067042, Gross: 292576195,
		},
		{
			SeriesTitle: "The Matrix", ReleasedYear: 1999, Certificate: "A",
			RuntimeMin: 136, Genre: "Action, Sci-Fi", IMDBRating: 8.7,
			Overview:  "A computer hacker learns about the true nature of his reality.",
			MetaScore: 73, Director: "Lana Wachowski",
			Star1: "Keanu Reeves", Star2: "Laurence Fishburne",
			Star3: "Carrie-Anne Moss", Star4: "Hugo Weaving",
			NoOfVotes: 1676426, Gross: 171479930,
		},
		{
			SeriesTitle: "Drishyam", ReleasedYear: 2015, Certificate: "UA",
			RuntimeMin: 163, Genre: "Crime, Drama, Mystery", IMDBRating: 8.2,
			Overview:  "A man goes to extreme lengths to save his family from punishment.",
			MetaScore: domain.MissingNumber, Director: "Nishikant Kamat",
			Star1: "Ajay Devgn", Star2: "Shriya Saran",
			Star3: "Tabu", Star4: "Rajat Kapoor",
			NoOfVotes: 81458, Gross: domain.MissingNumber,
		},
	}
}

func seedDB(t *testing.T) *DB {
	t.Helper()
	db := testDB(t)
	require.NoError(t, db.ReplaceMovies(context.Background(), sampleMovies()))
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
	assert.NoError(t, db.Ping(context.Background()))
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"movies", "movie_vectors", "sessions", "turns"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Dataset tests ---

func TestReplaceMovies_And_Count(t *testing.T) {
	db := seedDB(t)

	n, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestReplaceMovies_Overwrites(t *testing.T) {
	db := seedDB(t)

	err := db.ReplaceMovies(context.Background(), sampleMovies()[:1])
	require.NoError(t, err)

	n, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReplaceMovies_IDsStableAcrossReloads(t *testing.T) {
	db := seedDB(t)

	require.NoError(t, db.ReplaceMovies(context.Background(), sampleMovies()))

	rows, err := db.Select(context.Background(), "SELECT id FROM movies ORDER BY id")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.EqualValues(t, i+1, row["id"], "ids restart at 1 on every reload")
	}
}

func TestTitles(t *testing.T) {
	db := seedDB(t)

	titles, err := db.Titles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Drishyam", "Inception", "The Matrix"}, titles)
}

// --- Select tests ---

func TestSelect_ExactTitle(t *testing.T) {
	db := seedDB(t)

	rows, err := db.Select(context.Background(),
		"SELECT Series_Title, Released_Year FROM movies WHERE Series_Title = 'Inception'")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Inception", rows[0]["Series_Title"])
	assert.EqualValues(t, 2010, rows[0]["Released_Year"])
}

func TestSelect_NoMatches_EmptyNotError(t *testing.T) {
	db := seedDB(t)

	rows, err := db.Select(context.Background(),
		"SELECT * FROM movies WHERE Released_Year = 9999")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestSelect_SentinelsPassThrough(t *testing.T) {
	db := seedDB(t)

	rows, err := db.Select(context.Background(),
		"SELECT Meta_score, Gross FROM movies WHERE Series_Title = 'Drishyam'")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, domain.MissingNumber, rows[0]["Meta_score"])
	assert.EqualValues(t, domain.MissingNumber, rows[0]["Gross"])
}

func TestSelect_RejectsNonSelect(t *testing.T) {
	db := seedDB(t)

	for _, q := range []string{
		"DELETE FROM movies",
		"UPDATE movies SET Gross = 0",
		"INSERT INTO movies (Series_Title) VALUES ('x')",
		"DROP TABLE movies",
	} {
		_, err := db.Select(context.Background(), q)
		var qe *QueryError
		require.ErrorAs(t, err, &qe, "query %q should be rejected", q)
		assert.Equal(t, q, qe.Query)
	}

	// Nothing was mutated
	n, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSelect_BadSQL_QueryError(t *testing.T) {
	db := seedDB(t)

	_, err := db.Select(context.Background(), "SELECT nosuchcolumn FROM movies")
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Contains(t, qe.Error(), "SELECT nosuchcolumn FROM movies")
}

func TestSelect_Aggregate(t *testing.T) {
	db := seedDB(t)

	rows, err := db.Select(context.Background(),
		"SELECT COUNT(*) AS n FROM movies WHERE Released_Year >= 2010")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0]["n"])
}

// --- Vector tests ---

func TestSaveVectors_Roundtrip(t *testing.T) {
	db := seedDB(t)
	ctx := context.Background()

	titles, err := db.Select(ctx, "SELECT id, Series_Title FROM movies ORDER BY id")
	require.NoError(t, err)
	require.Len(t, titles, 3)

	var in []VectorRow
	for i, row := range titles {
		in = append(in, VectorRow{
			MovieID: row["id"].(int64),
			Vector:  []float32{float32(i), 0.5, -1.25},
		})
	}
	require.NoError(t, db.SaveVectors(ctx, in))

	out, err := db.LoadVectors(ctx)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, r := range out {
		assert.Equal(t, in[i].MovieID, r.MovieID)
		assert.Equal(t, in[i].Vector, r.Vector)
		assert.NotEmpty(t, r.Title)
	}
	// id order is the load order
	assert.Less(t, out[0].MovieID, out[1].MovieID)
	assert.Less(t, out[1].MovieID, out[2].MovieID)
}

func TestSaveVectors_Upsert(t *testing.T) {
	db := seedDB(t)
	ctx := context.Background()

	rows, err := db.Select(ctx, "SELECT id FROM movies LIMIT 1")
	require.NoError(t, err)
	id := rows[0]["id"].(int64)

	require.NoError(t, db.SaveVectors(ctx, []VectorRow{{MovieID: id, Vector: []float32{1, 2}}}))
	require.NoError(t, db.SaveVectors(ctx, []VectorRow{{MovieID: id, Vector: []float32{3, 4}}}))

	out, err := db.LoadVectors(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []float32{3, 4}, out[0].Vector)
}

func TestReplaceMovies_ClearsVectors(t *testing.T) {
	db := seedDB(t)
	ctx := context.Background()

	rows, err := db.Select(ctx, "SELECT id FROM movies LIMIT 1")
	require.NoError(t, err)
	id := rows[0]["id"].(int64)
	require.NoError(t, db.SaveVectors(ctx, []VectorRow{{MovieID: id, Vector: []float32{1}}}))

	require.NoError(t, db.ReplaceMovies(ctx, sampleMovies()))

	out, err := db.LoadVectors(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
}

// --- Codec tests ---

func TestVectorCodec_Roundtrip(t *testing.T) {
	vec := []float32{0, 1, -1, 3.14159, -2.5e-3}
	decoded, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestVectorCodec_Empty(t *testing.T) {
	decoded, err := decodeVector(encodeVector(nil))
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestVectorCodec_Malformed(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

// --- Helper tests ---

func TestCheckSelectOnly(t *testing.T) {
	assert.NoError(t, checkSelectOnly("SELECT 1"))
	assert.NoError(t, checkSelectOnly("  select * from movies"))
	assert.Error(t, checkSelectOnly("PRAGMA journal_mode"))
	assert.Error(t, checkSelectOnly(""))
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "abc", normalizeValue([]byte("abc")))
	assert.Equal(t, int64(5), normalizeValue(int64(5)))
	assert.Nil(t, normalizeValue(nil))
}
