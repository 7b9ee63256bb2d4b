package driving

import (
	"context"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// IndexService manages the vector index.
type IndexService interface {
	// EnsureIndex creates the configured index if it is absent.
	EnsureIndex(ctx context.Context) (domain.IndexSpec, error)

	// Stats describes the index.
	Stats(ctx context.Context) (domain.IndexStats, error)
}
