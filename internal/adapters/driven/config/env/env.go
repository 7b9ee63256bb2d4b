// Package env reads credentials and backend overrides from the process
// environment and an optional .env file.
package env

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

// Recognised variables.
const (
	VectorStoreAPIKey = "VECTOR_STORE_API_KEY"
	VectorStoreEnv    = "VECTOR_STORE_ENV"
	GenerationAPIKey  = "GENERATION_API_KEY"
	// EmbeddingAPIKey is optional and falls back to GenerationAPIKey.
	EmbeddingAPIKey   = "EMBEDDING_API_KEY"
	Store             = "PDFQA_STORE"
	EmbeddingProvider = "PDFQA_EMBEDDING_PROVIDER"
	LLMProvider       = "PDFQA_LLM_PROVIDER"
)

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// LookupFunc reads one variable.
type LookupFunc func(key string) (string, bool)

// Environment resolves variables through a lookup function.
type Environment struct {
	lookup LookupFunc
}

// New creates an Environment over lookup. A nil lookup reads the process environment.
func New(lookup LookupFunc) *Environment {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Environment{lookup: lookup}
}

// FromMap creates an Environment over fixed values.
func FromMap(values map[string]string) *Environment {
	return New(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
}

// LoadDotEnv loads the given files into the process environment. Variables
// already set are kept. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DotEnvFile}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		logger.Debug("Loaded environment from %s", path)
	}
	return nil
}

// Get returns the trimmed value of key, or "".
func (e *Environment) Get(key string) string {
	v, ok := e.lookup(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// Apply overlays credentials and backend overrides onto settings. Its
// signature matches services.SettingsOverlay.
func (e *Environment) Apply(settings *domain.AppSettings) {
	if v := e.Get(Store); v != "" {
		settings.VectorStore.Backend = domain.StoreBackend(strings.ToLower(v))
	}
	if v := e.Get(EmbeddingProvider); v != "" {
		provider := domain.AIProvider(strings.ToLower(v))
		if provider != settings.Embedding.Provider {
			settings.Embedding.Provider = provider
			settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
			settings.Embedding.BaseURL = ""
		}
	}
	if v := e.Get(LLMProvider); v != "" {
		provider := domain.AIProvider(strings.ToLower(v))
		if provider != settings.LLM.Provider {
			settings.LLM.Provider = provider
			settings.LLM.Models = domain.DefaultCandidateModels()[provider]
			settings.LLM.BaseURL = ""
		}
	}

	if v := e.Get(VectorStoreEnv); v != "" {
		settings.VectorStore.Endpoint = v
	}
	settings.VectorStore.APIKey = e.Get(VectorStoreAPIKey)
	settings.LLM.APIKey = e.Get(GenerationAPIKey)
	settings.Embedding.APIKey = e.Get(EmbeddingAPIKey)
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = settings.LLM.APIKey
	}
}

// Validate reports every variable the selected backends need but which is
// unset. Each is a ConfigurationError wrapping domain.ErrMissingEnvironment.
func Validate(settings *domain.AppSettings) error {
	var errs []error
	missing := func(field, reason string) {
		errs = append(errs, &domain.ConfigurationError{
			Field:  field,
			Reason: reason,
			Err:    domain.ErrMissingEnvironment,
		})
	}

	if settings.VectorStore.Backend.IsRemote() {
		if settings.VectorStore.Endpoint == "" {
			missing(VectorStoreEnv, fmt.Sprintf("required by the %s store", settings.VectorStore.Backend))
		}
		if settings.VectorStore.APIKey == "" {
			missing(VectorStoreAPIKey, fmt.Sprintf("required by the %s store", settings.VectorStore.Backend))
		}
	}
	if settings.LLM.Provider.RequiresAPIKey() && settings.LLM.APIKey == "" {
		missing(GenerationAPIKey, fmt.Sprintf("required by the %s provider", settings.LLM.Provider))
	}
	if settings.Embedding.Provider.RequiresAPIKey() && settings.Embedding.APIKey == "" {
		missing(EmbeddingAPIKey, fmt.Sprintf("or %s, required by %s embeddings", GenerationAPIKey, settings.Embedding.Provider))
	}

	return errors.Join(errs...)
}
