// Package memory provides an in-process vector store.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/custodia-labs/pdfqa/internal/similarity"
	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory brute-force implementation of driven.VectorStore.
// Records are not persisted.
type VectorStore struct {
	mu      sync.RWMutex
	spec    *domain.IndexSpec
	records map[string]domain.VectorRecord
	order   map[string]int
	next    int
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		records: make(map[string]domain.VectorRecord),
		order:   make(map[string]int),
	}
}

// EnsureIndex creates the index if absent. An existing index with a
// different dimension is an error.
func (s *VectorStore) EnsureIndex(_ context.Context, spec domain.IndexSpec) error {
	if spec.Dimension <= 0 {
		return domain.NewConfigurationError("dimension", fmt.Sprintf("must be positive, got %d", spec.Dimension))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spec != nil {
		if s.spec.Dimension != spec.Dimension {
			return fmt.Errorf("index %s has dimension %d, requested %d: %w",
				s.spec.Name, s.spec.Dimension, spec.Dimension, domain.ErrDimensionMismatch)
		}
		return nil
	}

	if !spec.Metric.IsValid() {
		spec.Metric = domain.MetricCosine
	}
	s.spec = &spec
	return nil
}

// Upsert inserts or overwrites records by id.
func (s *VectorStore) Upsert(_ context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spec == nil {
		return fmt.Errorf("index not created: %w", domain.ErrNotFound)
	}
	for _, r := range records {
		if len(r.Values) != s.spec.Dimension {
			return fmt.Errorf("record %s has %d values, index expects %d: %w",
				r.ID, len(r.Values), s.spec.Dimension, domain.ErrDimensionMismatch)
		}
	}

	for _, r := range records {
		if _, exists := s.order[r.ID]; !exists {
			s.order[r.ID] = s.next
			s.next++
		}
		s.records[r.ID] = domain.VectorRecord{
			ID:       r.ID,
			Values:   append([]float32(nil), r.Values...),
			Metadata: maps.Clone(r.Metadata),
		}
	}
	return nil
}

// Query returns up to TopK records by descending similarity.
func (s *VectorStore) Query(_ context.Context, req domain.VectorQuery) ([]domain.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.spec == nil || len(s.records) == 0 || req.TopK <= 0 {
		return []domain.VectorMatch{}, nil
	}
	if len(req.Vector) != s.spec.Dimension {
		return nil, fmt.Errorf("query has %d values, index expects %d: %w",
			len(req.Vector), s.spec.Dimension, domain.ErrDimensionMismatch)
	}

	candidates := make([]similarity.Scored, 0, len(s.records))
	for id, r := range s.records {
		match := domain.VectorMatch{
			ID:       id,
			Score:    similarity.Score(s.spec.Metric, req.Vector, r.Values),
			Metadata: maps.Clone(r.Metadata),
		}
		if req.IncludeValues {
			match.Values = append([]float32(nil), r.Values...)
		}
		candidates = append(candidates, similarity.Scored{Match: match, Order: s.order[id]})
	}

	return similarity.TopK(candidates, req.TopK), nil
}

// Describe returns index statistics.
func (s *VectorStore) Describe(_ context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.spec == nil {
		return domain.IndexStats{}, nil
	}
	return domain.IndexStats{
		Name:             s.spec.Name,
		TotalRecordCount: len(s.records),
		Dimension:        s.spec.Dimension,
		Metric:           s.spec.Metric,
	}, nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}
