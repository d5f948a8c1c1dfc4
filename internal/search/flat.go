package search

import (
	"context"
	"math"
	"sort"
	"sync"
)

// FlatIndex is an exact brute-force cosine index held in memory. It is
// the default backend: the dataset is small enough that a linear scan
// beats running an external service. Insertion order is preserved so
// equal-score results rank deterministically.
type FlatIndex struct {
	mu    sync.RWMutex
	docs  []Document
	byID  map[int64]int
	floor float64
}

// NewFlatIndex creates an empty index. floor filters hits scoring below
// it; 0 disables the filter.
func NewFlatIndex(floor float64) *FlatIndex {
	return &FlatIndex{byID: make(map[int64]int), floor: floor}
}

// Upsert inserts documents, replacing any with a matching ID in place so
// insertion order survives re-ingestion.
func (f *FlatIndex) Upsert(_ context.Context, docs []Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range docs {
		if i, ok := f.byID[d.ID]; ok {
			f.docs[i] = d
			continue
		}
		f.byID[d.ID] = len(f.docs)
		f.docs = append(f.docs, d)
	}
	return nil
}

// Search scans all documents and returns the top k by cosine similarity.
func (f *FlatIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	_, span := startQuerySpan(ctx, "flat", k)
	defer span.End()

	f.mu.RLock()
	defer f.mu.RUnlock()

	hits := make([]Hit, 0, len(f.docs))
	for _, d := range f.docs {
		score := Cosine(vector, d.Vector)
		if f.floor > 0 && score < f.floor {
			continue
		}
		hits = append(hits, Hit{DocID: d.ID, Title: d.Title, Score: score})
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (f *FlatIndex) Count(_ context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.docs), nil
}

// Healthy always succeeds: the index lives in this process.
func (f *FlatIndex) Healthy(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (f *FlatIndex) Close() error {
	return nil
}

// Cosine returns the cosine similarity of two vectors. Mismatched
// dimensions and zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
