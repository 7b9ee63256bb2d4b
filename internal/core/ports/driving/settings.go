package driving

import "github.com/custodia-labs/pdfqa/internal/core/domain"

// SettingsService manages persisted application settings.
// API keys are never persisted; they come from the environment.
type SettingsService interface {
	// Get returns the effective settings: defaults overlaid with the config file.
	Get() (*domain.AppSettings, error)

	// Save persists the settings.
	Save(settings *domain.AppSettings) error

	// SetStoreBackend selects the vector store backend.
	SetStoreBackend(backend domain.StoreBackend) error

	// SetEmbeddingProvider selects the embedding provider and model.
	// An empty model selects the provider default.
	SetEmbeddingProvider(provider domain.AIProvider, model string) error

	// SetLLMProvider selects the generation provider and candidate models.
	// No models selects the provider defaults.
	SetLLMProvider(provider domain.AIProvider, models []string) error

	// Validate checks the settings are internally consistent.
	Validate() error

	// GetDefaults returns the default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig pings the configured generation provider.
	ValidateLLMConfig() error
}
