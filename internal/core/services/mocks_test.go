package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
)

// --- Mock implementations ---

// letterVector embeds text as its a-z letter counts.
// Texts sharing letters are similar, so ranking is predictable.
func letterVector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	mu         sync.Mutex
	dims       int
	embedErr   error
	batchSizes []int
	inputs     []string
	override   func(text string) []float32
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	if m.override != nil {
		return m.override(text)
	}
	return letterVector(text)
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.batchSizes = append(m.batchSizes, len(texts))
	m.inputs = append(m.inputs, texts...)

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vector(text)
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return m.dims
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// llmResult is the scripted response of one model.
type llmResult struct {
	text string
	err  error
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	mu       sync.Mutex
	results  map[string]llmResult
	calls    []string
	prompts  []string
	options  []driven.GenerateOptions
	block    bool
	closeErr error
}

func (m *mockLLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, opts.Model)
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	result, ok := m.results[opts.Model]
	if !ok {
		return "", domain.ErrModelNotFound
	}
	return result.text, result.err
}

func (m *mockLLMService) Chat(_ context.Context, _ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	return "", nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-default"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return m.closeErr
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPromptStore) Reload() {}

// mockVectorStore implements driven.VectorStore with scripted failures.
type mockVectorStore struct {
	ensureCalls  int
	upserts      [][]domain.VectorRecord
	failUpsertAt int // 1-based upsert call that fails, 0 for never
	matches      []domain.VectorMatch
	queryErr     error
	queries      []domain.VectorQuery
	closeErr     error
}

func (m *mockVectorStore) EnsureIndex(_ context.Context, _ domain.IndexSpec) error {
	m.ensureCalls++
	return nil
}

func (m *mockVectorStore) Upsert(_ context.Context, records []domain.VectorRecord) error {
	if m.failUpsertAt == len(m.upserts)+1 {
		return errors.New("connection reset")
	}
	m.upserts = append(m.upserts, records)
	return nil
}

func (m *mockVectorStore) Query(_ context.Context, req domain.VectorQuery) ([]domain.VectorMatch, error) {
	m.queries = append(m.queries, req)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if req.TopK < len(m.matches) {
		return m.matches[:req.TopK], nil
	}
	return m.matches, nil
}

func (m *mockVectorStore) Describe(_ context.Context) (domain.IndexStats, error) {
	count := 0
	for _, u := range m.upserts {
		count += len(u)
	}
	return domain.IndexStats{TotalRecordCount: count}, nil
}

func (m *mockVectorStore) Close() error {
	return m.closeErr
}

// mockLoader implements driven.DocumentLoader for testing.
type mockLoader struct {
	docs     []domain.Document
	failures []domain.FileFailure
	loadErr  error
	files    map[string]domain.Document
}

func (m *mockLoader) Load(_ context.Context, _ string) ([]domain.Document, []domain.FileFailure, error) {
	if m.loadErr != nil {
		return nil, nil, m.loadErr
	}
	return m.docs, m.failures, nil
}

func (m *mockLoader) LoadFile(_ context.Context, path string) (*domain.Document, error) {
	doc, ok := m.files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (m *mockLoader) Supports(_ string) bool {
	return true
}

// mockRetriever implements driving.RetrievalService for testing.
type mockRetriever struct {
	results []domain.RetrievalResult
	err     error
	opts    []domain.RetrievalOptions
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, opts domain.RetrievalOptions) ([]domain.RetrievalResult, error) {
	m.opts = append(m.opts, opts)
	return m.results, m.err
}

func (m *mockRetriever) Search(_ context.Context, _ []float32, opts domain.RetrievalOptions) ([]domain.RetrievalResult, error) {
	m.opts = append(m.opts, opts)
	return m.results, m.err
}

// mockConfigStore keeps settings in a map, typed the way the TOML store
// decodes them (int64 integers, []any lists).
type mockConfigStore struct {
	values map[string]any
}

var _ driven.ConfigStore = (*mockConfigStore)(nil)

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.values[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.values[key].(bool)
	return b
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	switch v := m.values[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return nil }
func (m *mockConfigStore) Load() error { return nil }
func (m *mockConfigStore) Path() string { return "" }
