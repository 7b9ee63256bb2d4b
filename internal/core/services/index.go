package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driving"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService creates and describes the configured vector index.
type IndexService struct {
	store    driven.VectorStore
	embedder *Embedder
	name     string
	metric   domain.Metric

	mu      sync.Mutex
	ensured *domain.IndexSpec
}

// NewIndexService creates an index service. The index dimension comes
// from the embedder.
func NewIndexService(store driven.VectorStore, embedder *Embedder, name string, metric domain.Metric) *IndexService {
	if name == "" {
		name = domain.DefaultIndexName
	}
	if !metric.IsValid() {
		metric = domain.MetricCosine
	}
	return &IndexService{
		store:    store,
		embedder: embedder,
		name:     name,
		metric:   metric,
	}
}

// EnsureIndex creates the index if it is absent.
// The store is asked at most once per process.
func (s *IndexService) EnsureIndex(ctx context.Context) (domain.IndexSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured != nil {
		return *s.ensured, nil
	}

	dim, err := s.embedder.Dimensions(ctx)
	if err != nil {
		return domain.IndexSpec{}, fmt.Errorf("resolve index dimension: %w", err)
	}

	spec := domain.IndexSpec{Name: s.name, Dimension: dim, Metric: s.metric}
	logger.Debug("Ensuring index %s (dimension=%d, metric=%s)", spec.Name, spec.Dimension, spec.Metric)

	if err := s.store.EnsureIndex(ctx, spec); err != nil {
		return domain.IndexSpec{}, domain.NewStoreError("ensure index", err)
	}

	s.ensured = &spec
	return spec, nil
}

// Stats describes the index.
func (s *IndexService) Stats(ctx context.Context) (domain.IndexStats, error) {
	stats, err := s.store.Describe(ctx)
	if err != nil {
		return domain.IndexStats{}, domain.NewStoreError("describe", err)
	}
	if stats.Name == "" {
		stats.Name = s.name
	}
	return stats, nil
}
