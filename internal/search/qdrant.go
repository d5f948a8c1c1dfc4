package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/singleflight"

	"github.com/marquee-ai/marquee/internal/logging"
)

// QdrantConfig holds the connection settings for a Qdrant index.
type QdrantConfig struct {
	URL        string // e.g. "http://localhost:6333" or "https://xyz.cloud.qdrant.io:6333"
	APIKey     string
	Collection string
	Dims       uint64
	Floor      float64
}

// QdrantIndex is an Index backed by a Qdrant collection. Movie row ids
// become numeric point ids; the title travels as payload so hits render
// without a store lookup.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dims       uint64
	floor      float64
	log        *logging.Logger

	healthGroup singleflight.Group
	healthErr   atomic.Value // stores *error; inner error may be nil
	healthAt    atomic.Int64 // unix nanos of last check
}

// parseQdrantURL extracts host, port, and TLS flag from a Qdrant URL.
// The REST port 6333 is mapped to the gRPC port 6334.
func parseQdrantURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("search: invalid qdrant URL: %q", rawURL)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("search: invalid port in qdrant URL: %q", portStr)
		}
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}

	return host, port, useTLS, nil
}

// NewQdrantIndex connects to Qdrant over gRPC.
func NewQdrantIndex(cfg QdrantConfig, log *logging.Logger) (*QdrantIndex, error) {
	host, port, useTLS, err := parseQdrantURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("search: connect to qdrant at %s:%d: %w", host, port, err)
	}

	return &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		dims:       cfg.Dims,
		floor:      cfg.Floor,
		log:        log.Sub("search"),
	}, nil
}

// EnsureCollection creates the collection if it does not exist yet.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("search: check collection exists: %w", err)
	}
	if exists {
		q.log.Debug().Str("collection", q.collection).Msg("qdrant collection exists")
		return nil
	}

	m := uint64(16)
	efConstruct := uint64(100)
	if err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.dims,
			Distance: qdrant.Distance_Cosine,
			HnswConfig: &qdrant.HnswConfigDiff{
				M:           &m,
				EfConstruct: &efConstruct,
			},
		}),
	}); err != nil {
		return fmt.Errorf("search: create collection %q: %w", q.collection, err)
	}

	q.log.Info().Str("collection", q.collection).Uint64("dims", q.dims).Msg("qdrant collection created")
	return nil
}

// Upsert writes documents as points, waiting for commit.
func (q *QdrantIndex) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(d.ID)),
			Vectors: qdrant.NewVectorsDense(d.Vector),
			Payload: qdrant.NewValueMap(map[string]any{"title": d.Title}),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("search: qdrant upsert %d points: %w", len(docs), err)
	}
	return nil
}

// Search queries the collection for the k nearest points.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}
	ctx, span := startQuerySpan(ctx, "qdrant", k)
	defer span.End()

	limit := uint64(k)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search: qdrant query: %w", err)
	}

	hits := make([]Hit, 0, len(scored))
	for _, sp := range scored {
		score := float64(sp.Score)
		if q.floor > 0 && score < q.floor {
			continue
		}
		hit := Hit{DocID: int64(sp.Id.GetNum()), Score: score}
		if v, ok := sp.Payload["title"]; ok {
			hit.Title = v.GetStringValue()
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{CollectionName: q.collection})
	if err != nil {
		return 0, fmt.Errorf("search: qdrant count: %w", err)
	}
	return int(n), nil
}

// Healthy returns nil if Qdrant is reachable. Results are cached for
// 5 seconds; concurrent checks after expiry are deduplicated through
// singleflight so only one gRPC call is made.
func (q *QdrantIndex) Healthy(ctx context.Context) error {
	if time.Since(time.Unix(0, q.healthAt.Load())) < 5*time.Second {
		return q.loadHealthErr()
	}

	// context.Background() rather than the caller's ctx: singleflight
	// reuses the first caller's context, and its cancellation would
	// poison the shared result.
	result, _, _ := q.healthGroup.Do("health", func() (any, error) {
		checkCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if _, err := q.client.HealthCheck(checkCtx); err != nil {
			q.storeHealthErr(fmt.Errorf("search: qdrant unhealthy: %w", err))
		} else {
			q.storeHealthErr(nil)
		}
		q.healthAt.Store(time.Now().UnixNano())
		return q.loadHealthErr(), nil
	})
	if result == nil {
		return nil
	}
	return result.(error)
}

// atomic.Value cannot store nil directly, so the error is wrapped in a
// pointer.
func (q *QdrantIndex) storeHealthErr(err error) {
	q.healthErr.Store(&err)
}

func (q *QdrantIndex) loadHealthErr() error {
	v := q.healthErr.Load()
	if v == nil {
		return nil
	}
	return *v.(*error)
}

// Close shuts down the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
