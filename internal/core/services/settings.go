package services

import (
	"fmt"
	"slices"
	"time"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedBatchSize     = "embedding.batch_size"
	keyEmbedMaxInputChars = "embedding.max_input_chars"
	keyEmbedCache         = "embedding.cache"
	keyLLMProvider        = "llm.provider"
	keyLLMModels          = "llm.models"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMSystemPrompt    = "llm.system_prompt"
	keyLLMTemperature     = "llm.temperature"
	keyLLMMaxTokens       = "llm.max_tokens"
	keyLLMContextWindow   = "llm.context_window"
	keyLLMTimeout         = "llm.timeout"
	keyStoreBackend       = "store.backend"
	keyStoreIndex         = "store.index"
	keyStoreMetric        = "store.metric"
	keyStoreEndpoint      = "store.endpoint"
	keyStoreDataDir       = "store.data_dir"
	keyChunkSize          = "chunker.chunk_size"
	keyChunkOverlap       = "chunker.overlap"
	keyIngestDirectory    = "ingest.directory"
	keyIngestBatchSize    = "ingest.batch_size"
	keyIngestRecursive    = "ingest.recursive"
	keyRetrievalK         = "retrieval.k"
	keyRetrievalFetchK    = "retrieval.fetch_k"
	keyRetrievalLambda    = "retrieval.lambda"
	keyRetrievalStrategy  = "retrieval.strategy"
	keyAnswerContextDocs  = "answer.context_docs"
	keyAnswerMaxChars     = "answer.max_context_chars"
)

// defaultOllamaURL is used for local providers without a configured base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsOverlay adjusts loaded settings, e.g. from environment variables.
type SettingsOverlay func(*domain.AppSettings)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	overlays    []SettingsOverlay
}

// NewSettingsService creates a new settings service.
// Overlays run in order on every Get, after the config file is applied.
func NewSettingsService(
	configStore driven.ConfigStore,
	aiValidator driven.AIConfigValidator,
	overlays ...SettingsOverlay,
) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		overlays:    overlays,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:      s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:       s.configStore.GetString(keyEmbedBaseURL),
			BatchSize:     s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			MaxInputChars: s.getInt(keyEmbedMaxInputChars, defaults.Embedding.MaxInputChars),
			Cache:         s.getBool(keyEmbedCache, defaults.Embedding.Cache),
		},
		LLM: domain.LLMSettings{
			Provider:      s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:       s.configStore.GetString(keyLLMBaseURL),
			SystemPrompt:  s.configStore.GetString(keyLLMSystemPrompt),
			Temperature:   s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:     s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
			ContextWindow: s.getInt(keyLLMContextWindow, defaults.LLM.ContextWindow),
			Timeout:       s.getDuration(keyLLMTimeout, defaults.LLM.Timeout),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend:   s.getBackend(defaults.VectorStore.Backend),
			IndexName: s.getString(keyStoreIndex, defaults.VectorStore.IndexName),
			Metric:    s.getMetric(defaults.VectorStore.Metric),
			Endpoint:  s.configStore.GetString(keyStoreEndpoint),
			DataDir:   s.configStore.GetString(keyStoreDataDir),
		},
		Chunker: domain.ChunkerSettings{
			ChunkSize: s.getInt(keyChunkSize, defaults.Chunker.ChunkSize),
			Overlap:   s.getIntAllowZero(keyChunkOverlap, defaults.Chunker.Overlap),
		},
		Ingest: domain.IngestSettings{
			Directory: s.getString(keyIngestDirectory, defaults.Ingest.Directory),
			BatchSize: s.getInt(keyIngestBatchSize, defaults.Ingest.BatchSize),
			Recursive: s.getBool(keyIngestRecursive, defaults.Ingest.Recursive),
		},
		Retrieval: domain.RetrievalOptions{
			K:          s.getInt(keyRetrievalK, defaults.Retrieval.K),
			FetchK:     s.getInt(keyRetrievalFetchK, defaults.Retrieval.FetchK),
			LambdaMult: s.getFloat(keyRetrievalLambda, defaults.Retrieval.LambdaMult),
			LambdaSet:  true,
			Strategy:   s.getStrategy(defaults.Retrieval.Strategy),
		},
		Answer: domain.AnswerSettings{
			ContextDocs:     s.getInt(keyAnswerContextDocs, defaults.Answer.ContextDocs),
			MaxContextChars: s.getInt(keyAnswerMaxChars, defaults.Answer.MaxContextChars),
			Separator:       defaults.Answer.Separator,
		},
	}

	// Models follow the provider when not configured explicitly.
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Models = s.configStore.GetStringSlice(keyLLMModels)
	if len(settings.LLM.Models) == 0 {
		settings.LLM.Models = domain.DefaultCandidateModels()[settings.LLM.Provider]
	}

	for _, overlay := range s.overlays {
		overlay(settings)
	}

	// Local providers need a base URL.
	if settings.Embedding.Provider.IsLocal() && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = defaultOllamaURL
	}
	if settings.LLM.Provider.IsLocal() && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = defaultOllamaURL
	}

	return settings, nil
}

// Save persists application settings. API keys are not written.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedMaxInputChars, settings.Embedding.MaxInputChars},
		{keyEmbedCache, settings.Embedding.Cache},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModels, settings.LLM.Models},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyLLMContextWindow, settings.LLM.ContextWindow},
		{keyLLMTimeout, settings.LLM.Timeout.String()},
		{keyStoreBackend, settings.VectorStore.Backend.String()},
		{keyStoreIndex, settings.VectorStore.IndexName},
		{keyStoreMetric, settings.VectorStore.Metric.String()},
		{keyChunkSize, settings.Chunker.ChunkSize},
		{keyChunkOverlap, settings.Chunker.Overlap},
		{keyIngestDirectory, settings.Ingest.Directory},
		{keyIngestBatchSize, settings.Ingest.BatchSize},
		{keyIngestRecursive, settings.Ingest.Recursive},
		{keyRetrievalK, settings.Retrieval.K},
		{keyRetrievalFetchK, settings.Retrieval.FetchK},
		{keyRetrievalLambda, settings.Retrieval.LambdaMult},
		{keyRetrievalStrategy, settings.Retrieval.Strategy.String()},
		{keyAnswerContextDocs, settings.Answer.ContextDocs},
		{keyAnswerMaxChars, settings.Answer.MaxContextChars},
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	if settings.LLM.SystemPrompt != "" {
		if err := s.configStore.Set(keyLLMSystemPrompt, settings.LLM.SystemPrompt); err != nil {
			return fmt.Errorf("save %s: %w", keyLLMSystemPrompt, err)
		}
	}

	return nil
}

// SetStoreBackend selects the vector store backend.
func (s *SettingsService) SetStoreBackend(backend domain.StoreBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid vector store backend: %s", backend)
	}
	if err := s.configStore.Set(keyStoreBackend, backend.String()); err != nil {
		return fmt.Errorf("save %s: %w", keyStoreBackend, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate provider supports embeddings
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Set model - use provided or default
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	if err := s.configStore.Set(keyEmbedProvider, provider.String()); err != nil {
		return fmt.Errorf("save %s: %w", keyEmbedProvider, err)
	}
	if err := s.configStore.Set(keyEmbedModel, model); err != nil {
		return fmt.Errorf("save %s: %w", keyEmbedModel, err)
	}

	// Cloud providers don't need a custom base URL
	if !provider.IsLocal() {
		return s.configStore.Set(keyEmbedBaseURL, "")
	}
	return nil
}

// SetLLMProvider configures the generation provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, models []string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Set models - use provided or defaults
	if len(models) == 0 {
		models = domain.DefaultCandidateModels()[provider]
	}

	if err := s.configStore.Set(keyLLMProvider, provider.String()); err != nil {
		return fmt.Errorf("save %s: %w", keyLLMProvider, err)
	}
	if err := s.configStore.Set(keyLLMModels, models); err != nil {
		return fmt.Errorf("save %s: %w", keyLLMModels, err)
	}

	if !provider.IsLocal() {
		return s.configStore.Set(keyLLMBaseURL, "")
	}
	return nil
}

// Validate checks if current settings are consistent.
// Missing credentials are checked separately at startup.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.VectorStore.Backend.IsValid() {
		return domain.NewConfigurationError("store.backend", fmt.Sprintf("unknown backend %q", settings.VectorStore.Backend))
	}
	if !settings.VectorStore.Metric.IsValid() {
		return domain.NewConfigurationError("store.metric", fmt.Sprintf("unknown metric %q", settings.VectorStore.Metric))
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), settings.Embedding.Provider) {
		return domain.NewConfigurationError("embedding.provider",
			fmt.Sprintf("%q does not support embeddings", settings.Embedding.Provider))
	}
	if !settings.LLM.Provider.IsValid() {
		return domain.NewConfigurationError("llm.provider", fmt.Sprintf("unknown provider %q", settings.LLM.Provider))
	}
	if settings.Chunker.ChunkSize <= 0 {
		return domain.NewConfigurationError("chunker.chunk_size", "must be positive")
	}
	if settings.Chunker.Overlap < 0 || settings.Chunker.Overlap >= settings.Chunker.ChunkSize {
		return domain.NewConfigurationError("chunker.overlap",
			fmt.Sprintf("%d must be in [0, %d)", settings.Chunker.Overlap, settings.Chunker.ChunkSize))
	}
	if !settings.Retrieval.Strategy.IsValid() {
		return domain.NewConfigurationError("retrieval.strategy",
			fmt.Sprintf("unknown strategy %q", settings.Retrieval.Strategy))
	}
	if settings.Retrieval.LambdaMult < 0 || settings.Retrieval.LambdaMult > 1 {
		return domain.NewConfigurationError("retrieval.lambda", "must be in [0, 1]")
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StoreBackend) domain.StoreBackend {
	val := s.configStore.GetString(keyStoreBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.StoreBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getMetric(defaultVal domain.Metric) domain.Metric {
	val := s.configStore.GetString(keyStoreMetric)
	if val == "" {
		return defaultVal
	}
	metric := domain.Metric(val)
	if !metric.IsValid() {
		return defaultVal
	}
	return metric
}

func (s *SettingsService) getStrategy(defaultVal domain.SearchStrategy) domain.SearchStrategy {
	val := s.configStore.GetString(keyRetrievalStrategy)
	if val == "" {
		return defaultVal
	}
	strategy := domain.SearchStrategy(val)
	if !strategy.IsValid() {
		return defaultVal
	}
	return strategy
}
