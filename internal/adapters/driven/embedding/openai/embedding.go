// Package openai provides an embedding service adapter using OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/logger"
	"github.com/custodia-labs/pdfqa/internal/ratelimit"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int

	// Limiter throttles requests. Nil uses the OpenAI defaults.
	Limiter *ratelimit.Limiter

	// MaxRetries bounds retries after a 429 response (default: 3).
	MaxRetries int

	// RetryBackoff is the pause recorded after a 429 (default: ratelimit.DefaultBackoff).
	RetryBackoff time.Duration
}

// EmbeddingService generates embeddings using OpenAI API.
type EmbeddingService struct {
	client       *goopenai.Client
	httpClient   *http.Client
	limiter      *ratelimit.Limiter
	model        string
	dimensions   int
	custom       bool
	maxRetries   int
	retryBackoff time.Duration
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{
			Field:  "GENERATION_API_KEY",
			Reason: "openai embeddings require an API key",
			Err:    domain.ErrMissingEnvironment,
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(domain.AIProviderOpenAI)
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	custom := cfg.Dimensions > 0
	if !custom {
		cfg.Dimensions = domain.EmbeddingDimensions()[cfg.Model]
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	clientConfig.HTTPClient = httpClient

	return &EmbeddingService{
		client:       goopenai.NewClientWithConfig(clientConfig),
		httpClient:   httpClient,
		limiter:      cfg.Limiter,
		model:        cfg.Model,
		dimensions:   cfg.Dimensions,
		custom:       custom,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in a single request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(s.model),
		Input: texts,
	}
	if s.custom && strings.HasPrefix(s.model, "text-embedding-3") {
		req.Dimensions = s.dimensions
	}

	resp, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, &domain.EmbeddingError{
			Index:  -1,
			Reason: fmt.Sprintf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts)),
		}
	}

	// Responses carry their input index and may arrive out of order.
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, &domain.EmbeddingError{Index: d.Index, Reason: "embedding index out of range"}
		}
		if len(d.Embedding) == 0 {
			return nil, &domain.EmbeddingError{Index: d.Index, Reason: "openai returned an empty embedding"}
		}
		embeddings[d.Index] = d.Embedding
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, &domain.EmbeddingError{Index: i, Reason: "missing embedding in response"}
		}
	}
	return embeddings, nil
}

// create sends the request through the limiter, retrying on 429.
func (s *EmbeddingService) create(ctx context.Context, req goopenai.EmbeddingRequest) (goopenai.EmbeddingResponse, error) {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return goopenai.EmbeddingResponse{}, err
		}

		resp, err := s.client.CreateEmbeddings(ctx, req)
		if err == nil {
			return resp, nil
		}

		status := StatusCode(err)
		if status == http.StatusTooManyRequests && attempt < s.maxRetries {
			logger.Debug("OpenAI embeddings rate limited, retry %d/%d", attempt+1, s.maxRetries)
			s.limiter.RecordRateLimitError(s.retryBackoff)
			continue
		}
		return goopenai.EmbeddingResponse{}, classify(err, status)
	}
}

func classify(err error, status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("openai embeddings: %w: %w", domain.ErrRateLimited, err)
	case status == 0:
		return fmt.Errorf("openai embeddings: %w: %w", domain.ErrEmbeddingUnavailable, err)
	default:
		return fmt.Errorf("openai embeddings (status %d): %w", status, err)
	}
}

// StatusCode extracts the HTTP status from a go-openai error, or 0 when the
// request never got a response.
func StatusCode(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// Dimensions returns the embedding vector size, or 0 if the model is unknown.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models.
// This is a lightweight check that validates connectivity without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", classify(err, StatusCode(err)))
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
