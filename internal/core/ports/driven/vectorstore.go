package driven

import (
	"context"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// VectorStore persists vector records and answers nearest-neighbour queries.
// The store is an external collaborator; the core assumes only that an
// upserted record becomes visible to Query after a bounded delay.
//
// Errors should be wrapped with domain.NewStoreError so callers can tell a
// failure apart from an empty result.
type VectorStore interface {
	// EnsureIndex creates the index if it is absent. It is idempotent.
	// An existing index with a different dimension is an error.
	EnsureIndex(ctx context.Context, spec domain.IndexSpec) error

	// Upsert inserts or replaces records by id. A single call is atomic
	// from the caller's perspective.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query returns up to req.TopK matches ordered by descending score.
	// Fewer matches (possibly none) are returned when the store holds fewer records.
	Query(ctx context.Context, req domain.VectorQuery) ([]domain.VectorMatch, error)

	// Describe returns a snapshot of the index.
	Describe(ctx context.Context) (domain.IndexStats, error)

	// Close releases resources.
	Close() error
}
