package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests recognised providers
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{"ollama is valid", AIProviderOllama, true},
		{"openai is valid", AIProviderOpenAI, true},
		{"groq is valid", AIProviderGroq, true},
		{"anthropic is valid", AIProviderAnthropic, true},
		{"empty is invalid", AIProvider(""), false},
		{"unknown is invalid", AIProvider("cohere"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

// TestAIProvider_RequiresAPIKey tests which providers need a key
func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderGroq.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.True(t, AIProviderOllama.IsLocal())
}

// TestStoreBackend tests store backend helpers
func TestStoreBackend(t *testing.T) {
	for _, b := range AllStoreBackends() {
		assert.True(t, b.IsValid(), b.String())
		assert.NotEqual(t, unknownDescription, b.Description())
	}
	assert.False(t, StoreBackend("pinecone").IsValid())
	assert.True(t, StoreMilvus.IsRemote())
	assert.True(t, StoreQdrant.IsRemote())
	assert.False(t, StoreSQLite.IsRemote())
	assert.False(t, StoreMemory.IsRemote())
}

// TestEmbeddingSettings_IsConfigured tests embedding configuration checks
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.False(t, EmbeddingSettings{}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}.IsConfigured())
}

// TestLLMSettings_IsConfigured tests generation configuration checks
func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderGroq}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderGroq, APIKey: "gsk-test"}.IsConfigured())
}

// TestDefaultAppSettings tests the fully local defaults
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, AIProviderOllama, s.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", s.Embedding.Model)
	assert.Equal(t, AIProviderOllama, s.LLM.Provider)
	require.Len(t, s.LLM.Models, 4)
	assert.Equal(t, []string{"llama3.2:latest", "gemma3:4b", "llama3.2", "llama2"}, s.LLM.Models)
	assert.InDelta(t, 0.5, s.LLM.Temperature, 1e-9)
	assert.Equal(t, 256, s.LLM.MaxTokens)
	assert.Equal(t, 2048, s.LLM.ContextWindow)
	assert.Equal(t, 120*time.Second, s.LLM.Timeout)
	assert.Equal(t, StoreSQLite, s.VectorStore.Backend)
	assert.Equal(t, "rag-chatbot", s.VectorStore.IndexName)
	assert.Equal(t, MetricCosine, s.VectorStore.Metric)
	assert.Equal(t, 800, s.Chunker.ChunkSize)
	assert.Equal(t, 150, s.Chunker.Overlap)
	assert.Equal(t, 64, s.Ingest.BatchSize)
	assert.Equal(t, "data", s.Ingest.Directory)
	assert.Equal(t, 6, s.Retrieval.K)
	assert.Equal(t, 3, s.Answer.ContextDocs)
	assert.Equal(t, 2000, s.Answer.MaxContextChars)
}

// TestEmbeddingDimensions tests known model dimensions
func TestEmbeddingDimensions(t *testing.T) {
	dims := EmbeddingDimensions()

	assert.Equal(t, 768, dims["nomic-embed-text"])
	assert.Equal(t, 1536, dims["text-embedding-3-small"])
	assert.Zero(t, dims["unknown-model"])
}
