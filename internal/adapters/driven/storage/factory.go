// Package storage selects the vector store backend from settings.
package storage

import (
	"context"
	"fmt"

	"github.com/custodia-labs/pdfqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pdfqa/internal/adapters/driven/storage/milvus"
	"github.com/custodia-labs/pdfqa/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/pdfqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
)

// NewVectorStore creates the backend named in settings.
func NewVectorStore(ctx context.Context, settings domain.VectorStoreSettings) (driven.VectorStore, error) {
	index := settings.IndexName
	if index == "" {
		index = domain.DefaultIndexName
	}

	switch settings.Backend {
	case domain.StoreMemory:
		return memory.NewVectorStore(), nil

	case domain.StoreSQLite, "":
		store, err := sqlite.NewStore(settings.DataDir, index)
		if err != nil {
			return nil, domain.NewStoreError("open", fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err))
		}
		return store, nil

	case domain.StoreMilvus:
		if err := requireRemote(settings); err != nil {
			return nil, err
		}
		store, err := milvus.New(ctx, milvus.Config{
			Address:    settings.Endpoint,
			APIKey:     settings.APIKey,
			Collection: index,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	case domain.StoreQdrant:
		if err := requireRemote(settings); err != nil {
			return nil, err
		}
		store, err := qdrant.New(qdrant.Config{
			Endpoint:   settings.Endpoint,
			APIKey:     settings.APIKey,
			Collection: index,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, domain.NewConfigurationError("store.backend", fmt.Sprintf("unknown backend %q", settings.Backend))
	}
}

func requireRemote(settings domain.VectorStoreSettings) error {
	if settings.Endpoint == "" {
		return &domain.ConfigurationError{
			Field:  "VECTOR_STORE_ENV",
			Reason: fmt.Sprintf("required for the %s backend", settings.Backend),
			Err:    domain.ErrMissingEnvironment,
		}
	}
	if settings.APIKey == "" {
		return &domain.ConfigurationError{
			Field:  "VECTOR_STORE_API_KEY",
			Reason: fmt.Sprintf("required for the %s backend", settings.Backend),
			Err:    domain.ErrMissingEnvironment,
		}
	}
	return nil
}
