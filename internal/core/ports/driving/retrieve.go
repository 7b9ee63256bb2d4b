package driving

import (
	"context"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// RetrievalService finds the chunks most relevant to a query.
type RetrievalService interface {
	// Retrieve embeds the query and searches the store.
	// An empty store yields an empty slice and a nil error.
	Retrieve(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.RetrievalResult, error)

	// Search ranks stored records against a query vector with the given strategy.
	Search(ctx context.Context, vector []float32, opts domain.RetrievalOptions) ([]domain.RetrievalResult, error)
}
