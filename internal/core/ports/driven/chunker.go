package driven

import (
	"context"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// Chunker splits a document into overlapping chunks.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Split returns the chunks of doc in document order.
	// Each chunk carries the document's source and its ordinal.
	Split(ctx context.Context, doc domain.Document) ([]domain.Chunk, error)
}
