package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

var settingsOnly = map[string]string{annotationBootstrap: bootstrapSettings}

var (
	settingsEmbeddingModel string
	settingsLLMModels      []string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the vector store, embedding and generation providers.

Settings are stored in ~/.pdfqa/config.toml. API keys are never stored; they
are read from VECTOR_STORE_API_KEY and GENERATION_API_KEY (a .env file in the
working directory is loaded first).`,
	Annotations: settingsOnly,
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: settingsOnly,
	RunE:        runSettingsShow,
}

var settingsStoreCmd = &cobra.Command{
	Use:   "store [backend]",
	Short: "Set the vector store backend",
	Long: `Set the vector store backend.

Available backends:
  sqlite  - Local SQLite file (default)
  memory  - In-memory, not persisted
  milvus  - Milvus or Zilliz Cloud (needs VECTOR_STORE_ENV and VECTOR_STORE_API_KEY)
  qdrant  - Qdrant over REST (needs VECTOR_STORE_ENV and VECTOR_STORE_API_KEY)`,
	Args:        cobra.ExactArgs(1),
	Annotations: settingsOnly,
	RunE:        runSettingsStore,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:         "embedding [provider]",
	Short:       "Configure embedding provider",
	Long:        `Configure the embedding provider: ollama or openai.`,
	Args:        cobra.ExactArgs(1),
	Annotations: settingsOnly,
	RunE:        runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm [provider]",
	Short: "Configure LLM provider",
	Long: `Configure the generation provider: ollama, openai, groq or anthropic.
Repeat --model to set the candidate models in priority order.`,
	Args:        cobra.ExactArgs(1),
	Annotations: settingsOnly,
	RunE:        runSettingsLLM,
}

var settingsCheckCmd = &cobra.Command{
	Use:         "check",
	Short:       "Check the configured providers are reachable",
	Annotations: settingsOnly,
	RunE:        runSettingsCheck,
}

func init() {
	settingsEmbeddingCmd.Flags().StringVar(&settingsEmbeddingModel, "model", "", "embedding model (default for provider)")
	settingsLLMCmd.Flags().StringArrayVar(&settingsLLMModels, "model", nil, "candidate model, repeatable (defaults for provider)")

	for _, b := range domain.AllStoreBackends() {
		settingsStoreCmd.ValidArgs = append(settingsStoreCmd.ValidArgs, b.String())
	}
	settingsEmbeddingCmd.ValidArgs = providerNames(domain.AllEmbeddingProviders())
	settingsLLMCmd.ValidArgs = providerNames(domain.AllLLMProviders())

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsStoreCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Vector Store]")
	cmd.Printf("  Backend: %s\n", settings.VectorStore.Backend.Description())
	cmd.Printf("  Index: %s (%s)\n", settings.VectorStore.IndexName, settings.VectorStore.Metric)
	if settings.VectorStore.Backend.IsRemote() {
		cmd.Printf("  Endpoint: %s\n", valueOrUnset(settings.VectorStore.Endpoint))
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.VectorStore.APIKey))
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Cache: %s\n", yesNo(settings.Embedding.Cache))
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Models: %s\n", strings.Join(settings.LLM.Models, ", "))
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Temperature: %.2f, max tokens: %d, timeout: %s\n",
		settings.LLM.Temperature, settings.LLM.MaxTokens, settings.LLM.Timeout)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Chunk size: %d, overlap: %d\n", settings.Chunker.ChunkSize, settings.Chunker.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Strategy: %s, k: %d, fetch_k: %d, lambda: %.2f\n",
		settings.Retrieval.Strategy, settings.Retrieval.K, settings.Retrieval.FetchK, settings.Retrieval.LambdaMult)
	cmd.Printf("  Context documents: %d (max %d chars)\n", settings.Answer.ContextDocs, settings.Answer.MaxContextChars)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Edit the config file or use 'pdfqa settings' subcommands to fix it.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsStore(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	backend := domain.StoreBackend(strings.ToLower(args[0]))
	if err := settingsService.SetStoreBackend(backend); err != nil {
		return fmt.Errorf("failed to set vector store: %w", err)
	}

	cmd.Printf("Vector store set to: %s\n", backend.Description())
	if backend.IsRemote() {
		cmd.Println("Set VECTOR_STORE_ENV and VECTOR_STORE_API_KEY before running other commands.")
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	if err := settingsService.SetEmbeddingProvider(provider, settingsEmbeddingModel); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	model := settingsEmbeddingModel
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	cmd.Println("Changing the embedding model changes the vector dimension; re-ingest into a new index.")
	return nil
}

func runSettingsLLM(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	if err := settingsService.SetLLMProvider(provider, settingsLLMModels); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	models := settingsLLMModels
	if len(models) == 0 {
		models = domain.DefaultCandidateModels()[provider]
	}
	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), strings.Join(models, ", "))
	if provider.RequiresAPIKey() {
		cmd.Println("Set GENERATION_API_KEY before asking questions.")
	}
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	var failed bool

	cmd.Print("Embedding provider... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	cmd.Print("LLM provider... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	if failed {
		return errors.New("provider check failed")
	}
	return nil
}

// Helper functions.

func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func providerNames(providers []domain.AIProvider) []string {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.String())
	}
	return names
}
