package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGroq is Groq's OpenAI-compatible cloud API.
	AIProviderGroq AIProvider = "groq"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGroq, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGroq || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGroq:
		return "Groq (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// StoreBackend identifies a vector store implementation.
type StoreBackend string

// Available vector store backends.
const (
	// StoreMemory keeps records in process memory.
	StoreMemory StoreBackend = "memory"

	// StoreSQLite keeps records in a local SQLite file.
	StoreSQLite StoreBackend = "sqlite"

	// StoreMilvus uses a Milvus or Zilliz Cloud collection.
	StoreMilvus StoreBackend = "milvus"

	// StoreQdrant uses a Qdrant collection over REST.
	StoreQdrant StoreBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreMemory, StoreSQLite, StoreMilvus, StoreQdrant:
		return true
	default:
		return false
	}
}

// IsRemote returns true if the backend is an external service that needs credentials.
func (b StoreBackend) IsRemote() bool {
	return b == StoreMilvus || b == StoreQdrant
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreMemory:
		return "In-memory (not persisted)"
	case StoreSQLite:
		return "SQLite (local file)"
	case StoreMilvus:
		return "Milvus (remote)"
	case StoreQdrant:
		return "Qdrant (remote)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize is the number of texts sent per provider call.
	BatchSize int

	// MaxInputChars is the per-text limit before the overflow policy applies.
	MaxInputChars int

	// Cache enables the on-disk embedding cache.
	Cache bool
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation backend configuration.
type LLMSettings struct {
	// Provider is the generation service provider.
	Provider AIProvider

	// Models is the candidate model list in priority order.
	Models []string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string

	// SystemPrompt is sent with chat-style providers when set.
	SystemPrompt string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens bounds the generated output.
	MaxTokens int

	// ContextWindow is the model context size requested from local backends.
	ContextWindow int

	// Timeout bounds each generation attempt.
	Timeout time.Duration
}

// IsConfigured returns true if the generation provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	// Backend selects the store implementation.
	Backend StoreBackend

	// IndexName is the index or collection name.
	IndexName string

	// Metric is the similarity function used when creating the index.
	Metric Metric

	// Endpoint is the remote store address (VECTOR_STORE_ENV).
	Endpoint string

	// APIKey authenticates against the remote store (VECTOR_STORE_API_KEY).
	APIKey string

	// DataDir holds local store files.
	DataDir string
}

// ChunkerSettings holds text splitting configuration.
type ChunkerSettings struct {
	ChunkSize int
	Overlap   int
}

// IngestSettings holds ingestion configuration.
type IngestSettings struct {
	// Directory is the default directory read by the ingest command.
	Directory string

	// BatchSize is the number of records per upsert call.
	BatchSize int

	// Recursive descends into subdirectories.
	Recursive bool
}

// AnswerSettings holds context assembly configuration.
type AnswerSettings struct {
	// ContextDocs is the number of top results used as context.
	ContextDocs int

	// MaxContextChars bounds the joined context before truncation.
	MaxContextChars int

	// Separator joins context chunks.
	Separator string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorStore VectorStoreSettings
	Chunker     ChunkerSettings
	Ingest      IngestSettings
	Retrieval   RetrievalOptions
	Answer      AnswerSettings
}

// Default index settings.
const (
	DefaultIndexName    = "rag-chatbot"
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 150
)

// DefaultAppSettings returns settings that run fully locally:
// Ollama for embeddings and generation, SQLite for vectors.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:      AIProviderOllama,
			Model:         DefaultEmbeddingModels()[AIProviderOllama],
			BatchSize:     32,
			MaxInputChars: 8000,
			Cache:         true,
		},
		LLM: LLMSettings{
			Provider:      AIProviderOllama,
			Models:        DefaultCandidateModels()[AIProviderOllama],
			Temperature:   DefaultTemperature,
			MaxTokens:     DefaultMaxTokens,
			ContextWindow: DefaultContextWindow,
			Timeout:       DefaultGenerateTimeout,
		},
		VectorStore: VectorStoreSettings{
			Backend:   StoreSQLite,
			IndexName: DefaultIndexName,
			Metric:    MetricCosine,
		},
		Chunker: ChunkerSettings{
			ChunkSize: DefaultChunkSize,
			Overlap:   DefaultChunkOverlap,
		},
		Ingest: IngestSettings{
			Directory: DefaultIngestDirectory,
			BatchSize: DefaultUpsertBatchSize,
		},
		Retrieval: DefaultRetrievalOptions(),
		Answer: AnswerSettings{
			ContextDocs:     DefaultContextDocs,
			MaxContextChars: DefaultMaxContextChars,
			Separator:       DefaultContextSep,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGroq,
		AIProviderAnthropic,
	}
}

// AllStoreBackends returns every vector store backend.
func AllStoreBackends() []StoreBackend {
	return []StoreBackend{
		StoreSQLite,
		StoreMemory,
		StoreMilvus,
		StoreQdrant,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultCandidateModels returns the candidate model list for each generation provider.
func DefaultCandidateModels() map[AIProvider][]string {
	return map[AIProvider][]string{
		AIProviderOllama:    {"llama3.2:latest", "gemma3:4b", "llama3.2", "llama2"},
		AIProviderOpenAI:    {"gpt-4o-mini"},
		AIProviderGroq:      {"llama-3.1-8b-instant"},
		AIProviderAnthropic: {"claude-3-5-sonnet-latest"},
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
