package driven

import "github.com/custodia-labs/pdfqa/internal/core/domain"

// AIConfigValidator checks AI provider settings by reaching the provider.
type AIConfigValidator interface {
	// ValidateEmbedding creates an embedding service and pings it.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM creates a generation service and pings it.
	ValidateLLM(config *domain.LLMSettings) error
}
