package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings      domain.AppSettings
	validateErr   error
	embeddingErr  error
	llmErr        error
	setErr        error
	lastBackend   domain.StoreBackend
	lastProvider  domain.AIProvider
	lastEmbedding string
	lastModels    []string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return m.setErr
}

func (m *mockSettingsService) SetStoreBackend(backend domain.StoreBackend) error {
	if m.setErr != nil {
		return m.setErr
	}
	if !backend.IsValid() {
		return errors.New("invalid vector store backend: " + backend.String())
	}
	m.lastBackend = backend
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model string) error {
	m.lastProvider = provider
	m.lastEmbedding = model
	return m.setErr
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, models []string) error {
	m.lastProvider = provider
	m.lastModels = models
	return m.setErr
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.embeddingErr
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.llmErr
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	report    domain.IngestReport
	err       error
	lastDir   string
	lastFiles []string
	fileCalls int
}

func (m *mockIngestionService) Ingest(_ context.Context, _ []domain.Document) (domain.IngestReport, error) {
	return m.report, m.err
}

func (m *mockIngestionService) IngestDirectory(_ context.Context, dir string) (domain.IngestReport, error) {
	m.lastDir = dir
	return m.report, m.err
}

func (m *mockIngestionService) IngestFiles(_ context.Context, paths []string) (domain.IngestReport, error) {
	m.fileCalls++
	m.lastFiles = append(m.lastFiles, paths...)
	return m.report, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results   []domain.RetrievalResult
	err       error
	lastQuery string
	lastOpts  domain.RetrievalOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	query string,
	opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	m.lastQuery = query
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
	answer    *domain.Answer
	err       error
	lastQuery string
	lastOpts  domain.AnswerOptions
}

func (m *mockAnswerService) Answer(
	_ context.Context,
	query string,
	_ []domain.RetrievalResult,
	opts domain.AnswerOptions,
) (*domain.Answer, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.answer, m.err
}

func (m *mockAnswerService) Ask(_ context.Context, query string, opts domain.AnswerOptions) (*domain.Answer, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.answer, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	spec  domain.IndexSpec
	stats domain.IndexStats
	err   error
}

func (m *mockIndexService) EnsureIndex(_ context.Context) (domain.IndexSpec, error) {
	return m.spec, m.err
}

func (m *mockIndexService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

// mockWatcher emits a fixed list of changes and closes the channel.
type mockWatcher struct {
	changes []domain.FileChange
	err     error
	lastDir string
}

func (m *mockWatcher) Watch(_ context.Context, dir string) (<-chan domain.FileChange, error) {
	m.lastDir = dir
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.FileChange, len(m.changes))
	for _, c := range m.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	settings  *mockSettingsService
	ingestion *mockIngestionService
	retrieval *mockRetrievalService
	answer    *mockAnswerService
	index     *mockIndexService
	watcher   *mockWatcher
}

// setupTestServices installs mock ports and returns them with a cleanup
// function restoring the previous state and resetting every flag.
func setupTestServices() (*testServices, func()) {
	mocks := &testServices{
		settings:  newMockSettingsService(),
		ingestion: &mockIngestionService{},
		retrieval: &mockRetrievalService{},
		answer:    &mockAnswerService{answer: &domain.Answer{}},
		index:     &mockIndexService{},
		watcher:   &mockWatcher{},
	}

	origBootstrap := bootstrap
	origSettings := settingsService
	origIngestion := ingestionService
	origRetrieval := retrievalService
	origAnswer := answerService
	origIndex := indexService
	origWatcher := directoryWatcher

	bootstrap = nil
	settingsService = mocks.settings
	ingestionService = mocks.ingestion
	retrievalService = mocks.retrieval
	answerService = mocks.answer
	indexService = mocks.index
	directoryWatcher = mocks.watcher

	cleanup := func() {
		bootstrap = origBootstrap
		settingsService = origSettings
		ingestionService = origIngestion
		retrievalService = origRetrieval
		answerService = origAnswer
		indexService = origIndex
		directoryWatcher = origWatcher
		closePorts = nil
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
	}
	return mocks, cleanup
}

// resetFlags restores every flag of cmd and its subcommands to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
