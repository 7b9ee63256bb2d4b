package driving

import (
	"context"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// IngestionService loads, chunks, embeds and stores documents.
type IngestionService interface {
	// Ingest chunks, embeds and upserts the given documents.
	// A failed upsert batch returns a *domain.IngestionError carrying the
	// number of records committed before it.
	Ingest(ctx context.Context, docs []domain.Document) (domain.IngestReport, error)

	// IngestDirectory loads every supported file in dir and ingests it.
	IngestDirectory(ctx context.Context, dir string) (domain.IngestReport, error)

	// IngestFiles loads and ingests the given files.
	IngestFiles(ctx context.Context, paths []string) (domain.IngestReport, error)
}
