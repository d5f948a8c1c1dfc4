package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T, floor float64) *FlatIndex {
	t.Helper()
	idx := NewFlatIndex(floor)
	err := idx.Upsert(context.Background(), []Document{
		{ID: 1, Title: "Inception", Vector: []float32{1, 0, 0}},
		{ID: 2, Title: "The Matrix", Vector: []float32{0.9, 0.1, 0}},
		{ID: 3, Title: "Up", Vector: []float32{0, 1, 0}},
		{ID: 4, Title: "Seven", Vector: []float32{0, 0, 1}},
	})
	require.NoError(t, err)
	return idx
}

// --- Cosine tests ---

func TestCosine_Identical(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
}

func TestCosine_Orthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosine_Opposite(t *testing.T) {
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestCosine_ZeroVector(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
}

func TestCosine_MismatchedDims(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
}

// --- FlatIndex tests ---

func TestFlatIndex_Search_OrderedBySimilarity(t *testing.T) {
	idx := testIndex(t, 0)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	assert.Equal(t, "Inception", hits[0].Title)
	assert.Equal(t, "The Matrix", hits[1].Title)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score, "scores must be non-increasing")
	}
}

func TestFlatIndex_Search_TruncatesToK(t *testing.T) {
	idx := testIndex(t, 0)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestFlatIndex_Search_KZero(t *testing.T) {
	idx := testIndex(t, 0)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlatIndex_Search_TiesKeepInsertionOrder(t *testing.T) {
	idx := NewFlatIndex(0)
	require.NoError(t, idx.Upsert(context.Background(), []Document{
		{ID: 10, Title: "First", Vector: []float32{0, 1}},
		{ID: 11, Title: "Second", Vector: []float32{0, 1}},
		{ID: 12, Title: "Third", Vector: []float32{0, 1}},
	}))

	hits, err := idx.Search(context.Background(), []float32{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []int64{10, 11, 12}, []int64{hits[0].DocID, hits[1].DocID, hits[2].DocID})
}

func TestFlatIndex_Search_Floor(t *testing.T) {
	idx := testIndex(t, 0.5)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.5)
	}
}

func TestFlatIndex_Search_Empty(t *testing.T) {
	idx := NewFlatIndex(0)

	hits, err := idx.Search(context.Background(), []float32{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFlatIndex_Upsert_ReplacesInPlace(t *testing.T) {
	idx := testIndex(t, 0)

	require.NoError(t, idx.Upsert(context.Background(), []Document{
		{ID: 1, Title: "Inception", Vector: []float32{0, 0, 1}},
	}))

	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	hits, err := idx.Search(context.Background(), []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.EqualValues(t, 1, hits[0].DocID)
}

func TestFlatIndex_Healthy(t *testing.T) {
	idx := NewFlatIndex(0)
	assert.NoError(t, idx.Healthy(context.Background()))
	assert.NoError(t, idx.Close())
}

// --- Qdrant URL parsing tests ---

func TestParseQdrantURL_RESTPortMapsToGRPC(t *testing.T) {
	host, port, tls, err := parseQdrantURL("http://localhost:6333")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6334, port)
	assert.False(t, tls)
}

func TestParseQdrantURL_ExplicitGRPCPort(t *testing.T) {
	host, port, tls, err := parseQdrantURL("https://xyz.cloud.qdrant.io:6334")
	require.NoError(t, err)
	assert.Equal(t, "xyz.cloud.qdrant.io", host)
	assert.Equal(t, 6334, port)
	assert.True(t, tls)
}

func TestParseQdrantURL_NoPort(t *testing.T) {
	_, port, _, err := parseQdrantURL("http://qdrant.internal")
	require.NoError(t, err)
	assert.Equal(t, 6334, port)
}

func TestParseQdrantURL_Invalid(t *testing.T) {
	_, _, _, err := parseQdrantURL("not a url")
	assert.Error(t, err)
}
