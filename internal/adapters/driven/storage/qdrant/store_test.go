package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// fakeQdrant is a minimal in-process stand-in for the Qdrant REST API.
type fakeQdrant struct {
	mu       sync.Mutex
	exists   bool
	size     int
	distance string
	points   map[string]point
	apiKeys  []string
	searches []map[string]any
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{points: make(map[string]point)}
}

func (f *fakeQdrant) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, result any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "status": "ok"})
	}

	mux.HandleFunc("/collections/docs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

		switch r.Method {
		case http.MethodGet:
			if !f.exists {
				http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
				return
			}
			count := len(f.points)
			write(w, map[string]any{
				"points_count": count,
				"config": map[string]any{"params": map[string]any{
					"vectors": map[string]any{"size": f.size, "distance": f.distance},
				}},
			})
		case http.MethodPut:
			var body struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.exists = true
			f.size = body.Vectors.Size
			f.distance = body.Vectors.Distance
			write(w, true)
		}
	})

	mux.HandleFunc("/collections/docs/points", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))

		var body struct {
			Points []point `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, p := range body.Points {
			f.points[p.ID] = p
		}
		write(w, map[string]any{"status": "completed"})
	})

	mux.HandleFunc("/collections/docs/points/search", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.searches = append(f.searches, body)

		withVector, _ := body["with_vector"].(bool)
		var hits []map[string]any
		for _, id := range []string{"a", "b"} {
			p, ok := f.points[id]
			if !ok {
				continue
			}
			hit := map[string]any{"id": p.ID, "score": 0.5, "payload": p.Payload}
			if id == "a" {
				hit["score"] = 0.9
			}
			if withVector {
				hit["vector"] = p.Vector
			}
			hits = append(hits, hit)
		}
		write(w, hits)
	})

	return mux
}

func newTestStore(t *testing.T, fake *fakeQdrant) *Store {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	store, err := New(Config{Endpoint: server.URL, APIKey: "secret", Collection: "docs"})
	require.NoError(t, err)
	return store
}

func TestNew_RequiresEndpoint(t *testing.T) {
	_, err := New(Config{})
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNew_DefaultsToHTTPS(t *testing.T) {
	store, err := New(Config{Endpoint: "xyz.cloud.qdrant.io:6333/"})
	require.NoError(t, err)
	assert.Equal(t, "https://xyz.cloud.qdrant.io:6333", store.endpoint)
	assert.Equal(t, domain.DefaultIndexName, store.collection)
}

func TestDistance(t *testing.T) {
	assert.Equal(t, "Cosine", Distance(domain.MetricCosine))
	assert.Equal(t, "Dot", Distance(domain.MetricDot))
	assert.Equal(t, "Euclid", Distance(domain.MetricEuclidean))
	assert.Equal(t, domain.MetricEuclidean, metricFromDistance("Euclid"))
	assert.Equal(t, domain.MetricCosine, metricFromDistance(""))
}

func TestStore_QueryBeforeCollectionExists(t *testing.T) {
	store := newTestStore(t, newFakeQdrant())

	matches, err := store.Query(context.Background(), domain.VectorQuery{Vector: []float32{1, 0}, TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, matches)

	stats, err := store.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "docs", stats.Name)
	assert.Zero(t, stats.TotalRecordCount)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeQdrant()
	store := newTestStore(t, fake)

	require.NoError(t, store.EnsureIndex(ctx, domain.IndexSpec{Dimension: 2, Metric: domain.MetricDot}))
	assert.Equal(t, "Dot", fake.distance)
	assert.Equal(t, 2, fake.size)

	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{
		{ID: "a", Values: []float32{1, 0}, Metadata: map[string]string{domain.MetadataText: "alpha", domain.MetadataSource: "one.pdf"}},
		{ID: "b", Values: []float32{0, 1}, Metadata: map[string]string{domain.MetadataText: "beta", domain.MetadataSource: "two.pdf"}},
	}))

	matches, err := store.Query(ctx, domain.VectorQuery{Vector: []float32{1, 0}, TopK: 2, IncludeValues: true})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.InDelta(t, 0.9, matches[0].Score, 1e-9)
	assert.Equal(t, "alpha", matches[0].Metadata[domain.MetadataText])
	assert.Equal(t, []float32{1, 0}, matches[0].Values)

	require.Len(t, fake.searches, 1)
	assert.Equal(t, float64(2), fake.searches[0]["limit"])
	assert.Equal(t, true, fake.searches[0]["with_payload"])

	stats, err := store.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalRecordCount)
	assert.Equal(t, 2, stats.Dimension)
	assert.Equal(t, domain.MetricDot, stats.Metric)

	for _, key := range fake.apiKeys {
		assert.Equal(t, "secret", key)
	}
}

func TestStore_EnsureIndex_ExistingCollection(t *testing.T) {
	ctx := context.Background()
	fake := newFakeQdrant()
	fake.exists = true
	fake.size = 3
	fake.distance = "Cosine"
	store := newTestStore(t, fake)

	err := store.EnsureIndex(ctx, domain.IndexSpec{Dimension: 2})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	require.NoError(t, store.EnsureIndex(ctx, domain.IndexSpec{Dimension: 3}))
}

func TestStore_UpsertValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newFakeQdrant())

	err := store.Upsert(ctx, []domain.VectorRecord{{ID: "a", Values: []float32{1, 0}}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.EnsureIndex(ctx, domain.IndexSpec{Dimension: 2}))
	err = store.Upsert(ctx, []domain.VectorRecord{{ID: "a", Values: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStore_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	store, err := New(Config{Endpoint: server.URL, Collection: "docs"})
	require.NoError(t, err)

	_, err = store.Query(context.Background(), domain.VectorQuery{Vector: []float32{1}, TopK: 1})
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Contains(t, err.Error(), "500")
}

func TestStore_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	store, err := New(Config{Endpoint: url, Collection: "docs"})
	require.NoError(t, err)

	_, err = store.Describe(context.Background())
	assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
}
