// Package qdrant stores vectors in a Qdrant collection through its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DefaultTimeout bounds each HTTP request.
const DefaultTimeout = 30 * time.Second

// Config holds connection settings.
type Config struct {
	// Endpoint is the REST base URL (VECTOR_STORE_ENV).
	Endpoint string

	// APIKey is sent as the api-key header (VECTOR_STORE_API_KEY).
	APIKey string

	// Collection is the collection name.
	Collection string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Store is a driven.VectorStore backed by a Qdrant collection.
type Store struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	collection string

	mu   sync.Mutex
	spec *domain.IndexSpec
}

// New creates a Qdrant store. No request is made until first use.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, domain.NewConfigurationError("store.endpoint", "qdrant endpoint is empty")
	}
	endpoint := cfg.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	if cfg.Collection == "" {
		cfg.Collection = domain.DefaultIndexName
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Store{
		client:     client,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
	}, nil
}

// Distance maps a domain metric onto a Qdrant distance name.
func Distance(m domain.Metric) string {
	switch m {
	case domain.MetricDot:
		return "Dot"
	case domain.MetricEuclidean:
		return "Euclid"
	default:
		return "Cosine"
	}
}

func metricFromDistance(d string) domain.Metric {
	switch d {
	case "Dot":
		return domain.MetricDot
	case "Euclid":
		return domain.MetricEuclidean
	default:
		return domain.MetricCosine
	}
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("qdrant returned %d: %s", e.Status, e.Body)
}

// do sends a JSON request and decodes the "result" field into out.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", domain.ErrNotFound, apiErr)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	envelope := struct {
		Result json.RawMessage `json:"result"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func (s *Store) collectionPath(suffix string) string {
	return "/collections/" + url.PathEscape(s.collection) + suffix
}

type collectionInfo struct {
	PointsCount *int `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

// info fetches the collection, returning nil when it does not exist.
func (s *Store) info(ctx context.Context) (*collectionInfo, error) {
	var info collectionInfo
	err := s.do(ctx, http.MethodGet, s.collectionPath(""), nil, &info)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

func (s *Store) specFrom(info *collectionInfo) *domain.IndexSpec {
	return &domain.IndexSpec{
		Name:      s.collection,
		Dimension: info.Config.Params.Vectors.Size,
		Metric:    metricFromDistance(info.Config.Params.Vectors.Distance),
	}
}

// EnsureIndex creates the collection when it does not exist.
func (s *Store) EnsureIndex(ctx context.Context, spec domain.IndexSpec) error {
	if spec.Dimension <= 0 {
		return domain.NewConfigurationError("dimension", fmt.Sprintf("must be positive, got %d", spec.Dimension))
	}
	if !spec.Metric.IsValid() {
		spec.Metric = domain.MetricCosine
	}
	spec.Name = s.collection

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spec != nil {
		return checkDimension(s.spec, spec.Dimension)
	}

	info, err := s.info(ctx)
	if err != nil {
		return domain.NewStoreError("get collection", err)
	}
	if info != nil {
		existing := s.specFrom(info)
		if err := checkDimension(existing, spec.Dimension); err != nil {
			return err
		}
		s.spec = existing
		return nil
	}

	logger.Info("Creating Qdrant collection %s (dimension %d, %s)", s.collection, spec.Dimension, spec.Metric)
	body := map[string]any{
		"vectors": map[string]any{
			"size":     spec.Dimension,
			"distance": Distance(spec.Metric),
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil); err != nil {
		return domain.NewStoreError("create collection", err)
	}
	s.spec = &spec
	return nil
}

func checkDimension(spec *domain.IndexSpec, dimension int) error {
	if spec.Dimension != dimension {
		return fmt.Errorf("collection %s has dimension %d, requested %d: %w",
			spec.Name, spec.Dimension, dimension, domain.ErrDimensionMismatch)
	}
	return nil
}

// current returns the known spec, fetching it from the server when needed.
// A nil spec means the collection does not exist.
func (s *Store) current(ctx context.Context) (*domain.IndexSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spec != nil {
		return s.spec, nil
	}
	info, err := s.info(ctx)
	if err != nil {
		return nil, domain.NewStoreError("get collection", err)
	}
	if info == nil {
		return nil, nil
	}
	s.spec = s.specFrom(info)
	return s.spec, nil
}

type point struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

// Upsert writes points and waits for them to be applied.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	spec, err := s.current(ctx)
	if err != nil {
		return err
	}
	if spec == nil {
		return fmt.Errorf("collection %s not created: %w", s.collection, domain.ErrNotFound)
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]point, 0, len(records))
	for _, r := range records {
		if len(r.Values) != spec.Dimension {
			return fmt.Errorf("record %s has %d values, collection expects %d: %w",
				r.ID, len(r.Values), spec.Dimension, domain.ErrDimensionMismatch)
		}
		points = append(points, point{ID: r.ID, Vector: r.Values, Payload: r.Metadata})
	}

	if err := s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"),
		map[string]any{"points": points}, nil); err != nil {
		return domain.NewStoreError("upsert", err)
	}
	return nil
}

type scoredPoint struct {
	ID      any               `json:"id"`
	Score   float64           `json:"score"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

// Query searches the collection and returns matches by descending score.
func (s *Store) Query(ctx context.Context, req domain.VectorQuery) ([]domain.VectorMatch, error) {
	spec, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if spec == nil || req.TopK <= 0 {
		return []domain.VectorMatch{}, nil
	}
	if len(req.Vector) != spec.Dimension {
		return nil, fmt.Errorf("query has %d values, collection expects %d: %w",
			len(req.Vector), spec.Dimension, domain.ErrDimensionMismatch)
	}

	body := map[string]any{
		"vector":       req.Vector,
		"limit":        req.TopK,
		"with_payload": true,
		"with_vector":  req.IncludeValues,
	}
	var hits []scoredPoint
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), body, &hits); err != nil {
		return nil, domain.NewStoreError("query", err)
	}

	matches := make([]domain.VectorMatch, 0, len(hits))
	for _, h := range hits {
		score := h.Score
		if spec.Metric == domain.MetricEuclidean {
			score = 1 / (1 + math.Max(score, 0))
		}
		match := domain.VectorMatch{
			ID:       fmt.Sprint(h.ID),
			Score:    score,
			Metadata: h.Payload,
		}
		if match.Metadata == nil {
			match.Metadata = map[string]string{}
		}
		if req.IncludeValues {
			match.Values = h.Vector
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Describe returns the point count and vector configuration.
func (s *Store) Describe(ctx context.Context) (domain.IndexStats, error) {
	info, err := s.info(ctx)
	if err != nil {
		return domain.IndexStats{}, domain.NewStoreError("get collection", err)
	}
	if info == nil {
		return domain.IndexStats{Name: s.collection}, nil
	}
	spec := s.specFrom(info)
	stats := domain.IndexStats{
		Name:      spec.Name,
		Dimension: spec.Dimension,
		Metric:    spec.Metric,
	}
	if info.PointsCount != nil {
		stats.TotalRecordCount = *info.PointsCount
	}
	return stats, nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
