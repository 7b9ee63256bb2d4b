package mcp

import (
	"context"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results  []domain.RetrievalResult
	err      error
	lastOpts domain.RetrievalOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockRetrievalService) Search(
	_ context.Context,
	_ []float32,
	opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer   *domain.Answer
	err      error
	lastOpts domain.AnswerOptions
}

func (m *mockAnswerService) Answer(
	_ context.Context,
	_ string,
	_ []domain.RetrievalResult,
	opts domain.AnswerOptions,
) (*domain.Answer, error) {
	m.lastOpts = opts
	return m.answer, m.err
}

func (m *mockAnswerService) Ask(_ context.Context, _ string, opts domain.AnswerOptions) (*domain.Answer, error) {
	m.lastOpts = opts
	return m.answer, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	stats domain.IndexStats
	err   error
}

func (m *mockIndexService) EnsureIndex(_ context.Context) (domain.IndexSpec, error) {
	return domain.IndexSpec{Name: m.stats.Name, Dimension: m.stats.Dimension, Metric: m.stats.Metric}, m.err
}

func (m *mockIndexService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}
