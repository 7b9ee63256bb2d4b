package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	embedcache "github.com/custodia-labs/pdfqa/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// ollamaServer answers the endpoints used by ping.
func ollamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// deadURL returns the address of a server that is no longer listening.
func deadURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		if err := result.Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		wantErr     bool
		errContains string
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "openai without key is not configured",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantNil: true,
		},
		{
			name: "anthropic provider returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantNil:     true,
			wantErr:     true,
			errContains: "anthropic does not support embeddings",
		},
		{
			name: "groq provider returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderGroq,
				APIKey:   "test-key",
			},
			wantNil:     true,
			wantErr:     true,
			errContains: "groq does not support embeddings",
		},
		{
			name: "unknown provider returns nil (not configured)",
			settings: &domain.EmbeddingSettings{
				Provider: "unknown",
				APIKey:   "test-key",
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings, "")

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if tt.wantNil && svc != nil {
				t.Error("expected nil service, got non-nil")
			}
			if !tt.wantNil && svc == nil {
				t.Error("expected non-nil service, got nil")
			}
			if svc != nil {
				svc.Close()
			}
		})
	}
}

func TestCreateEmbeddingService_Cache(t *testing.T) {
	settings := &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  "http://localhost:11434",
		Model:    "nomic-embed-text",
		Cache:    true,
	}

	t.Run("wrapped when data dir set", func(t *testing.T) {
		svc, err := CreateEmbeddingService(settings, t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer svc.Close()

		if _, ok := svc.(*embedcache.EmbeddingService); !ok {
			t.Errorf("expected cached service, got %T", svc)
		}
		if svc.ModelName() != "nomic-embed-text" {
			t.Errorf("model = %q", svc.ModelName())
		}
	})

	t.Run("plain without data dir", func(t *testing.T) {
		svc, err := CreateEmbeddingService(settings, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer svc.Close()

		if _, ok := svc.(*embedcache.EmbeddingService); ok {
			t.Error("expected uncached service")
		}
	})
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantNil   bool
		wantErr   bool
		wantModel string
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.LLMSettings{},
			wantNil:  true,
		},
		{
			name: "ollama uses first candidate",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Models:   []string{"llama3.2:latest", "gemma3:4b"},
			},
			wantModel: "llama3.2:latest",
		},
		{
			name: "openai provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Models:   []string{"gpt-4o-mini"},
			},
			wantModel: "gpt-4o-mini",
		},
		{
			name: "groq defaults its model",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderGroq,
				APIKey:   "test-key",
			},
			wantModel: "llama-3.1-8b-instant",
		},
		{
			name: "anthropic provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
				Models:   []string{"claude-3-5-sonnet-latest"},
			},
			wantModel: "claude-3-5-sonnet-latest",
		},
		{
			name: "cloud provider without key is not configured",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderGroq,
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)

			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantNil && svc != nil {
				t.Error("expected nil service, got non-nil")
			}
			if !tt.wantNil && svc == nil {
				t.Fatal("expected non-nil service, got nil")
			}
			if svc != nil {
				if tt.wantModel != "" && svc.ModelName() != tt.wantModel {
					t.Errorf("model = %q, want %q", svc.ModelName(), tt.wantModel)
				}
				svc.Close()
			}
		})
	}
}

func TestValidateEmbeddingConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantErr  bool
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
		},
		{
			name: "anthropic returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantErr: true,
		},
		{
			name: "unreachable ollama returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  deadURL(),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbeddingConfig(tt.settings)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateEmbeddingConfig_ReachableOllama(t *testing.T) {
	srv := ollamaServer(t)

	err := ValidateEmbeddingConfig(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateLLMConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantErr  bool
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.LLMSettings{},
		},
		{
			name: "unknown provider returns nil (not configured)",
			settings: &domain.LLMSettings{
				Provider: "unknown",
				APIKey:   "test-key",
			},
		},
		{
			name: "unreachable ollama returns connection error",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  deadURL(),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLLMConfig(tt.settings)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	srv := ollamaServer(t)

	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantNil  bool
		wantErr  error
	}{
		{
			name:    "nil settings returns nil",
			wantNil: true,
		},
		{
			name: "anthropic returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantNil: true,
			wantErr: domain.ErrEmbeddingUnavailable,
		},
		{
			name: "unreachable returns unavailable",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  deadURL(),
			},
			wantNil: true,
			wantErr: domain.ErrEmbeddingUnavailable,
		},
		{
			name: "reachable ollama",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  srv.URL,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateAndValidateEmbeddingService(context.Background(), tt.settings, "")

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantNil && svc != nil {
				t.Error("expected nil service")
			}
			if svc != nil {
				svc.Close()
			}
		})
	}
}

func TestCreateAndValidateLLMService(t *testing.T) {
	svc, err := CreateAndValidateLLMService(context.Background(), &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  deadURL(),
		Models:   []string{"llama3.2"},
	})

	if !errors.Is(err, domain.ErrLLMUnavailable) {
		t.Errorf("error = %v, want ErrLLMUnavailable", err)
	}
	if !errors.Is(err, domain.ErrGenerationConnection) {
		t.Errorf("error = %v, want ErrGenerationConnection in chain", err)
	}
	if svc != nil {
		t.Error("expected nil service")
	}
}

func TestInitialise(t *testing.T) {
	srv := ollamaServer(t)

	t.Run("both services reachable", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding.BaseURL = srv.URL
		settings.LLM.BaseURL = srv.URL

		result, err := Initialise(context.Background(), &settings, t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer result.Close()

		if result.EmbeddingService == nil || result.LLMService == nil {
			t.Fatal("expected both services")
		}
		if len(result.Warnings) != 0 {
			t.Errorf("unexpected warnings: %v", result.Warnings)
		}
	})

	t.Run("unreachable llm is a warning", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding.BaseURL = srv.URL
		settings.LLM.BaseURL = deadURL()

		result, err := Initialise(context.Background(), &settings, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer result.Close()

		if result.LLMService == nil {
			t.Error("expected LLM service to be kept")
		}
		if len(result.Warnings) != 1 {
			t.Errorf("warnings = %v", result.Warnings)
		}
	})

	t.Run("unreachable embedding is fatal", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding.BaseURL = deadURL()

		_, err := Initialise(context.Background(), &settings, "")
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			t.Errorf("error = %v, want ErrEmbeddingUnavailable", err)
		}
	})

	t.Run("unconfigured embedding is a configuration error", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding.Provider = domain.AIProviderOpenAI

		_, err := Initialise(context.Background(), &settings, "")
		var cfgErr *domain.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("error = %v, want ConfigurationError", err)
		}
	})
}
