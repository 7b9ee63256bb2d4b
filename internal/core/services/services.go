package services

import (
	"errors"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
)

// Deps are the driven ports the pipeline is built from.
type Deps struct {
	// Required.
	Store     driven.VectorStore
	Embedding driven.EmbeddingService
	Chunker   driven.Chunker

	// Optional. Without an LLM only retrieval is available. Without a
	// loader only in-memory documents can be ingested.
	LLM     driven.LLMService
	Loader  driven.DocumentLoader
	Prompts driven.PromptStore

	Settings domain.AppSettings
}

// Services holds the pipeline components built once per process.
type Services struct {
	Embedder  *Embedder
	Index     *IndexService
	Ingestion *IngestionService
	Retriever *Retriever
	Composer  *Composer

	deps Deps
}

// New wires the pipeline from the given ports.
func New(deps Deps) (*Services, error) {
	if deps.Store == nil {
		return nil, &domain.ConfigurationError{Field: "store", Err: domain.ErrVectorStoreUnavailable}
	}
	if deps.Embedding == nil {
		return nil, &domain.ConfigurationError{Field: "embedding", Err: domain.ErrEmbeddingUnavailable}
	}
	if deps.Chunker == nil {
		return nil, domain.NewConfigurationError("chunker", "no chunker configured")
	}

	settings := deps.Settings

	embedder := NewEmbedder(deps.Embedding, EmbedderConfig{
		BatchSize:     settings.Embedding.BatchSize,
		MaxInputChars: settings.Embedding.MaxInputChars,
	})
	index := NewIndexService(deps.Store, embedder, settings.VectorStore.IndexName, settings.VectorStore.Metric)
	retriever := NewRetriever(embedder, deps.Store, settings.Retrieval)

	s := &Services{
		Embedder:  embedder,
		Index:     index,
		Ingestion: NewIngestionService(deps.Chunker, embedder, deps.Store, index, deps.Loader, settings.Ingest.BatchSize),
		Retriever: retriever,
		deps:      deps,
	}

	// Composer stays nil without a generation backend.
	if deps.LLM != nil {
		s.Composer = NewComposer(deps.LLM, retriever, deps.Prompts, ComposerConfig{
			ContextDocs:     settings.Answer.ContextDocs,
			MaxContextChars: settings.Answer.MaxContextChars,
			Separator:       settings.Answer.Separator,
			Models:          settings.LLM.Models,
			Temperature:     settings.LLM.Temperature,
			MaxTokens:       settings.LLM.MaxTokens,
			ContextWindow:   settings.LLM.ContextWindow,
			Timeout:         settings.LLM.Timeout,
		})
	}

	return s, nil
}

// Close releases the adapters.
func (s *Services) Close() error {
	var errs []error
	if s.deps.LLM != nil {
		errs = append(errs, s.deps.LLM.Close())
	}
	errs = append(errs, s.deps.Embedding.Close(), s.deps.Store.Close())
	return errors.Join(errs...)
}
