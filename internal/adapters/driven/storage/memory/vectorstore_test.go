package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

func newIndexedStore(t *testing.T, dim int) *VectorStore {
	t.Helper()
	store := NewVectorStore()
	require.NoError(t, store.EnsureIndex(context.Background(), domain.IndexSpec{
		Name: "test", Dimension: dim, Metric: domain.MetricCosine,
	}))
	return store
}

func record(id string, values ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:       id,
		Values:   values,
		Metadata: map[string]string{domain.MetadataText: "text " + id, domain.MetadataSource: id + ".pdf"},
	}
}

func TestVectorStore_EnsureIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		store := newIndexedStore(t, 3)
		require.NoError(t, store.EnsureIndex(ctx, domain.IndexSpec{Name: "test", Dimension: 3}))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		store := newIndexedStore(t, 3)
		err := store.EnsureIndex(ctx, domain.IndexSpec{Name: "test", Dimension: 4})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("invalid dimension", func(t *testing.T) {
		var cfgErr *domain.ConfigurationError
		err := NewVectorStore().EnsureIndex(ctx, domain.IndexSpec{Name: "test"})
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestVectorStore_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("without index", func(t *testing.T) {
		err := NewVectorStore().Upsert(ctx, []domain.VectorRecord{record("a", 1, 0)})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("overwrites by id", func(t *testing.T) {
		store := newIndexedStore(t, 2)
		require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{record("a", 1, 0)}))
		require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{record("a", 0, 1)}))

		stats, err := store.Describe(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalRecordCount)

		matches, err := store.Query(ctx, domain.VectorQuery{Vector: []float32{0, 1}, TopK: 1, IncludeValues: true})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, []float32{0, 1}, matches[0].Values)
	})

	t.Run("rejects wrong dimension", func(t *testing.T) {
		store := newIndexedStore(t, 2)
		err := store.Upsert(ctx, []domain.VectorRecord{record("a", 1, 0, 0)})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})
}

func TestVectorStore_Query(t *testing.T) {
	ctx := context.Background()
	store := newIndexedStore(t, 2)
	require.NoError(t, store.Upsert(ctx, []domain.VectorRecord{
		record("east", 1, 0),
		record("north", 0, 1),
		record("northeast", 1, 1),
	}))

	t.Run("descending similarity", func(t *testing.T) {
		matches, err := store.Query(ctx, domain.VectorQuery{Vector: []float32{1, 0.1}, TopK: 3})
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "east", matches[0].ID)
		assert.Equal(t, "northeast", matches[1].ID)
		assert.Equal(t, "north", matches[2].ID)
		assert.Nil(t, matches[0].Values)
		assert.Equal(t, "text east", matches[0].Metadata[domain.MetadataText])
	})

	t.Run("fewer records than top k", func(t *testing.T) {
		matches, err := store.Query(ctx, domain.VectorQuery{Vector: []float32{1, 0}, TopK: 10})
		require.NoError(t, err)
		assert.Len(t, matches, 3)
	})

	t.Run("include values", func(t *testing.T) {
		matches, err := store.Query(ctx, domain.VectorQuery{Vector: []float32{1, 0}, TopK: 1, IncludeValues: true})
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0}, matches[0].Values)
	})

	t.Run("empty store", func(t *testing.T) {
		matches, err := NewVectorStore().Query(ctx, domain.VectorQuery{Vector: []float32{1, 0}, TopK: 5})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestVectorStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := newIndexedStore(t, 2)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Upsert(ctx, []domain.VectorRecord{record(string(rune('a'+i)), float32(i), 1)})
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Query(ctx, domain.VectorQuery{Vector: []float32{1, 1}, TopK: 3})
		}()
	}
	wg.Wait()

	stats, err := store.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.TotalRecordCount)
}
