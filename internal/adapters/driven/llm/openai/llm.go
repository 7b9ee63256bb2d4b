// Package openai provides an LLM service adapter for OpenAI and
// OpenAI-compatible APIs such as Groq.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/pdfqa/internal/adapters/driven/llm"
	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/logger"
	"github.com/custodia-labs/pdfqa/internal/ratelimit"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultLLMModel    = "gpt-4o-mini"
	DefaultGroqModel   = "llama-3.1-8b-instant"
	DefaultLLMTimeout  = 120 * time.Second
	DefaultMaxRetries  = 2
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// Provider selects defaults and rate limits (openai or groq).
	Provider domain.AIProvider

	// APIKey is the API key (required).
	APIKey string

	// BaseURL is the API base URL (default depends on Provider).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default depends on Provider).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// Limiter throttles requests. Nil uses the provider defaults.
	Limiter *ratelimit.Limiter

	// MaxRetries bounds retries after a 429 response (default: 2).
	MaxRetries int

	// RetryBackoff is the pause recorded after a 429 (default: ratelimit.DefaultBackoff).
	RetryBackoff time.Duration
}

// LLMService provides LLM operations using the chat completions API.
type LLMService struct {
	client       *goopenai.Client
	httpClient   *http.Client
	limiter      *ratelimit.Limiter
	provider     string
	model        string
	maxRetries   int
	retryBackoff time.Duration
}

// NewLLMService creates a new OpenAI-compatible LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.Provider == "" {
		cfg.Provider = domain.AIProviderOpenAI
	}
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{
			Field:  "GENERATION_API_KEY",
			Reason: fmt.Sprintf("%s generation requires an API key", cfg.Provider),
			Err:    domain.ErrMissingEnvironment,
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
		if cfg.Provider == domain.AIProviderGroq {
			cfg.BaseURL = DefaultGroqBaseURL
		}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
		if cfg.Provider == domain.AIProviderGroq {
			cfg.Model = DefaultGroqModel
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(cfg.Provider)
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	clientConfig.HTTPClient = httpClient

	return &LLMService{
		client:       goopenai.NewClientWithConfig(clientConfig),
		httpClient:   httpClient,
		limiter:      cfg.Limiter,
		provider:     string(cfg.Provider),
		model:        cfg.Model,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
	}, nil
}

// Generate produces text completion from a prompt. A system prompt, when
// set, is sent as the first message.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var messages []goopenai.ChatCompletionMessage
	if opts.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: opts.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})

	return s.complete(ctx, goopenai.ChatCompletionRequest{
		Model:       s.resolve(opts.Model),
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
		Stop:        opts.StopWords,
	})
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	// Convert driven.ChatMessage to the client format
	chatMessages := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return s.complete(ctx, goopenai.ChatCompletionRequest{
		Model:       s.resolve(opts.Model),
		Messages:    chatMessages,
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	})
}

// complete sends the request through the limiter, retrying on 429.
func (s *LLMService) complete(ctx context.Context, req goopenai.ChatCompletionRequest) (string, error) {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", llm.TransportError(s.provider, err)
		}

		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("%s: no choices in response", s.provider)
			}
			return resp.Choices[0].Message.Content, nil
		}

		status, body, ok := apiFailure(err)
		if !ok {
			return "", llm.TransportError(s.provider, err)
		}
		if status == http.StatusTooManyRequests && attempt < s.maxRetries {
			logger.Debug("%s rate limited, retry %d/%d", s.provider, attempt+1, s.maxRetries)
			s.limiter.RecordRateLimitError(s.retryBackoff)
			continue
		}
		return "", llm.StatusError(s.provider, req.Model, status, body)
	}
}

func (s *LLMService) resolve(model string) string {
	if model == "" {
		return s.model
	}
	return model
}

// apiFailure extracts the status and a description from a go-openai error.
// ok is false when the server never answered.
func apiFailure(err error) (status int, body string, ok bool) {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		return apiErr.HTTPStatusCode, strings.TrimSpace(code + " " + apiErr.Type + " " + apiErr.Message), true
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, reqErr.Error(), true
	}
	return 0, "", false
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models.
// This is a lightweight check that validates connectivity without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		if status, body, ok := apiFailure(err); ok {
			return fmt.Errorf("%s: ping failed: %w", s.provider, llm.StatusError(s.provider, s.model, status, body))
		}
		return fmt.Errorf("%s: ping failed: %w", s.provider, llm.TransportError(s.provider, err))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
