package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/pdfqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/pdfqa/internal/adapters/driven/config/env"
	"github.com/custodia-labs/pdfqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pdfqa/internal/adapters/driven/loader/filesystem"
	"github.com/custodia-labs/pdfqa/internal/adapters/driven/storage"
	"github.com/custodia-labs/pdfqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/services"
	"github.com/custodia-labs/pdfqa/internal/logger"
	"github.com/custodia-labs/pdfqa/internal/normalisers"
	"github.com/custodia-labs/pdfqa/internal/normalisers/pdf"
	"github.com/custodia-labs/pdfqa/internal/postprocessors/chunker"
)

// Directories under the config directory.
const (
	dataDirName    = "data"
	promptsDirName = "prompts"
)

// wire builds the driving ports for one command run.
func wire(ctx context.Context, opts cli.Options) (*cli.Ports, error) {
	if err := env.LoadDotEnv(); err != nil {
		return nil, err
	}

	configStore, err := openConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	configDir := filepath.Dir(configStore.Path())

	overlays := []services.SettingsOverlay{env.New(nil).Apply}
	if opts.Store != "" {
		overlays = append(overlays, func(s *domain.AppSettings) {
			s.VectorStore.Backend = opts.Store
		})
	}
	if opts.Overlay != nil {
		overlays = append(overlays, opts.Overlay)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator(), overlays...)

	ports := &cli.Ports{Settings: settingsService}
	if opts.SettingsOnly {
		return ports, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := settingsService.Validate(); err != nil {
		return nil, err
	}
	if err := env.Validate(settings); err != nil {
		return nil, err
	}
	if settings.VectorStore.DataDir == "" {
		settings.VectorStore.DataDir = filepath.Join(configDir, dataDirName)
	}

	return buildPipeline(ctx, ports, settings, configDir)
}

func openConfigStore(path string) (*file.ConfigStore, error) {
	if path != "" {
		return file.NewConfigStoreFile(path)
	}
	return file.NewConfigStore("")
}

// buildPipeline opens the adapters and wires the services onto ports.
// Adapters opened before a failure are closed.
func buildPipeline(
	ctx context.Context, ports *cli.Ports, settings *domain.AppSettings, configDir string,
) (*cli.Ports, error) {
	logger.Section("Startup")
	logger.Info("Vector store: %s, embeddings: %s/%s, generation: %s",
		settings.VectorStore.Backend, settings.Embedding.Provider, settings.Embedding.Model, settings.LLM.Provider)

	store, err := storage.NewVectorStore(ctx, settings.VectorStore)
	if err != nil {
		return nil, err
	}

	aiServices, err := ai.Initialise(ctx, settings, settings.VectorStore.DataDir)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	split, err := chunker.New(
		chunker.WithChunkSize(settings.Chunker.ChunkSize),
		chunker.WithOverlap(settings.Chunker.Overlap),
	)
	if err != nil {
		return nil, errors.Join(err, aiServices.Close(), store.Close())
	}

	prompts, err := file.NewPromptStore(filepath.Join(configDir, promptsDirName))
	if err != nil {
		return nil, errors.Join(err, aiServices.Close(), store.Close())
	}

	if err := pdf.CheckAvailable(); err != nil {
		logger.Debug("%v", err)
	}
	loader := filesystem.New(normalisers.NewDefaultRegistry(), filesystem.WithRecursive(settings.Ingest.Recursive))

	deps := services.Deps{
		Store:     store,
		Embedding: aiServices.EmbeddingService,
		Chunker:   split,
		Loader:    loader,
		Prompts:   prompts,
		Settings:  *settings,
	}
	if aiServices.LLMService != nil {
		deps.LLM = aiServices.LLMService
	}

	svc, err := services.New(deps)
	if err != nil {
		return nil, errors.Join(err, aiServices.Close(), store.Close(), loader.Close())
	}

	ports.Ingestion = svc.Ingestion
	ports.Retrieval = svc.Retriever
	ports.Index = svc.Index
	ports.Watcher = loader
	if svc.Composer != nil {
		ports.Answer = svc.Composer
	}
	ports.Close = func() error {
		return errors.Join(svc.Close(), loader.Close())
	}

	return ports, nil
}
