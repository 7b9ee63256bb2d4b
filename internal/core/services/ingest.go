package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driving"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// Record metadata keys written alongside text and source.
const (
	metadataOrdinal = "ordinal"
	metadataStart   = "start"
)

// IngestionService splits, embeds and upserts documents.
type IngestionService struct {
	chunker   driven.Chunker
	embedder  *Embedder
	store     driven.VectorStore
	index     *IndexService
	loader    driven.DocumentLoader
	batchSize int
}

// NewIngestionService creates an ingestion service.
// The loader is optional; without it only in-memory documents can be ingested.
func NewIngestionService(
	chunker driven.Chunker,
	embedder *Embedder,
	store driven.VectorStore,
	index *IndexService,
	loader driven.DocumentLoader,
	batchSize int,
) *IngestionService {
	if batchSize <= 0 {
		batchSize = domain.DefaultUpsertBatchSize
	}
	return &IngestionService{
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		index:     index,
		loader:    loader,
		batchSize: batchSize,
	}
}

// Ingest chunks, embeds and upserts the given documents.
//
//nolint:gocyclo // Pipeline function with necessary sequential steps
func (s *IngestionService) Ingest(ctx context.Context, docs []domain.Document) (domain.IngestReport, error) {
	logger.Section("Ingestion")
	var report domain.IngestReport

	// 1. Split documents and apply the embedding input policy
	var pending []domain.Chunk
	for _, doc := range docs {
		chunks, err := s.chunker.Split(ctx, doc)
		if err != nil {
			return report, fmt.Errorf("split %s: %w", doc.Source, err)
		}
		report.DocumentsProcessed++
		logger.Debug("Split %s into %d chunks", doc.Source, len(chunks))

		for _, chunk := range chunks {
			if strings.TrimSpace(chunk.Content) == "" {
				logger.Debug("Skipping blank chunk %d of %s", chunk.Ordinal, doc.Source)
				report.ChunksSkipped++
				continue
			}

			text, err := s.embedder.Prepare(chunk.Ordinal, chunk.Content)
			if err != nil {
				var embErr *domain.EmbeddingError
				if errors.As(err, &embErr) {
					logger.Warn("Skipping chunk %d of %s: %v", chunk.Ordinal, doc.Source, err)
					report.ChunksSkipped++
					continue
				}
				return report, err
			}

			chunk.ID = ChunkID(chunk.Source, chunk.Ordinal, chunk.Content)
			chunk.Content = text
			pending = append(pending, chunk)
		}
	}

	if len(pending) == 0 {
		logger.Info("No chunks to upload")
		return report, nil
	}

	// 2. Make sure the index exists before the first upsert
	if _, err := s.index.EnsureIndex(ctx); err != nil {
		return report, err
	}

	// 3. Embed and upsert batch by batch
	for start := 0; start < len(pending); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return report, &domain.IngestionError{Committed: report.ChunksAdded, Err: err}
		}

		end := min(start+s.batchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return report, &domain.IngestionError{Committed: report.ChunksAdded, Err: fmt.Errorf("embed: %w", err)}
		}

		records := make([]domain.VectorRecord, len(batch))
		for i, c := range batch {
			records[i] = domain.VectorRecord{
				ID:     c.ID,
				Values: vectors[i],
				Metadata: map[string]string{
					domain.MetadataText:   c.Content,
					domain.MetadataSource: c.Source,
					metadataOrdinal:       strconv.Itoa(c.Ordinal),
					metadataStart:         strconv.Itoa(c.Start),
				},
			}
		}

		if err := s.store.Upsert(ctx, records); err != nil {
			logger.Warn("Upsert batch %d failed after %d records committed: %v", report.Batches+1, report.ChunksAdded, err)
			return report, &domain.IngestionError{
				Committed: report.ChunksAdded,
				Err:       domain.NewStoreError("upsert", err),
			}
		}

		report.Batches++
		report.ChunksAdded += len(records)
		logger.Debug("Upserted batch %d (%d records)", report.Batches, len(records))
	}

	logger.Info("Uploaded %d chunks from %d documents", report.ChunksAdded, report.DocumentsProcessed)
	return report, nil
}

// IngestDirectory loads every supported file in dir and ingests it.
// Files that fail to load are reported and skipped.
func (s *IngestionService) IngestDirectory(ctx context.Context, dir string) (domain.IngestReport, error) {
	if s.loader == nil {
		return domain.IngestReport{}, fmt.Errorf("document loader: %w", domain.ErrNotImplemented)
	}

	docs, failures, err := s.loader.Load(ctx, dir)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("load %s: %w", dir, err)
	}
	for _, f := range failures {
		logger.Warn("Skipping %s: %v", f.Path, f.Err)
	}
	logger.Info("Loaded %d documents from %s", len(docs), dir)

	report, err := s.Ingest(ctx, docs)
	report.Failed = append(report.Failed, failures...)
	return report, err
}

// IngestFiles loads and ingests the given files.
func (s *IngestionService) IngestFiles(ctx context.Context, paths []string) (domain.IngestReport, error) {
	if s.loader == nil {
		return domain.IngestReport{}, fmt.Errorf("document loader: %w", domain.ErrNotImplemented)
	}

	var docs []domain.Document
	var failures []domain.FileFailure
	for _, path := range paths {
		doc, err := s.loader.LoadFile(ctx, path)
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			failures = append(failures, domain.FileFailure{Path: path, Err: err})
			continue
		}
		docs = append(docs, *doc)
	}

	report, err := s.Ingest(ctx, docs)
	report.Failed = append(report.Failed, failures...)
	return report, err
}
