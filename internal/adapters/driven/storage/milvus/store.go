// Package milvus stores vectors in a Milvus (or Zilliz Cloud) collection.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Field names of the collection schema.
const (
	FieldID       = "id"
	FieldVector   = "vector"
	FieldText     = "text"
	FieldSource   = "source"
	FieldMetadata = "metadata"
)

const (
	maxIDLength     = 64
	maxTextLength   = 65535
	maxSourceLength = 1024
)

// Config holds connection settings.
type Config struct {
	// Address is the Milvus endpoint (VECTOR_STORE_ENV).
	Address string

	// APIKey authenticates against Zilliz Cloud (VECTOR_STORE_API_KEY).
	APIKey string

	// Collection is the collection name.
	Collection string
}

// Store is a driven.VectorStore backed by a Milvus collection.
type Store struct {
	cli        mclient.Client
	collection string

	mu     sync.Mutex
	spec   *domain.IndexSpec
	loaded bool
}

// New connects to Milvus.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, domain.NewConfigurationError("store.endpoint", "milvus address is empty")
	}
	if cfg.Collection == "" {
		cfg.Collection = domain.DefaultIndexName
	}
	cli, err := mclient.NewClient(ctx, mclient.Config{
		Address: cfg.Address,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, domain.NewStoreError("connect", fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err))
	}
	return NewWithClient(cli, cfg.Collection), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(cli mclient.Client, collection string) *Store {
	return &Store{cli: cli, collection: CollectionName(collection)}
}

// CollectionName maps an index name to a valid Milvus collection name.
// Milvus accepts letters, digits and underscores only.
func CollectionName(index string) string {
	out := []rune(index)
	for i, r := range out {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '_' {
			out[i] = '_'
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		return "c_" + string(out)
	}
	return string(out)
}

// MetricType maps a domain metric onto the Milvus metric type.
func MetricType(m domain.Metric) entity.MetricType {
	switch m {
	case domain.MetricDot:
		return entity.IP
	case domain.MetricEuclidean:
		return entity.L2
	default:
		return entity.COSINE
	}
}

// BuildSchema returns the collection schema for spec.
func BuildSchema(collection string, spec domain.IndexSpec) *entity.Schema {
	return &entity.Schema{
		CollectionName: collection,
		Description:    "pdfqa document chunks",
		Fields: []*entity.Field{
			{
				Name:       FieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxIDLength)},
			},
			{
				Name:       FieldVector,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{entity.TypeParamDim: strconv.Itoa(spec.Dimension)},
			},
			{
				Name:       FieldText,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxTextLength)},
			},
			{
				Name:       FieldSource,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxSourceLength)},
			},
			{
				Name:     FieldMetadata,
				DataType: entity.FieldTypeJSON,
			},
		},
	}
}

// EnsureIndex creates and loads the collection if it does not exist.
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

	exists, err := s.cli.HasCollection(ctx, s.collection)
	if err != nil {
		return domain.NewStoreError("has collection", err)
	}

	if exists {
		existing, err := s.describe(ctx)
		if err != nil {
			return err
		}
		if err := checkDimension(existing, spec.Dimension); err != nil {
			return err
		}
		spec = *existing
	} else {
		logger.Info("Creating Milvus collection %s (dimension %d, %s)", s.collection, spec.Dimension, spec.Metric)
		if err := s.cli.CreateCollection(ctx, BuildSchema(s.collection, spec), entity.DefaultShardNumber); err != nil {
			return domain.NewStoreError("create collection", err)
		}
		idx, err := entity.NewIndexAUTOINDEX(MetricType(spec.Metric))
		if err != nil {
			return domain.NewStoreError("create index", err)
		}
		if err := s.cli.CreateIndex(ctx, s.collection, FieldVector, idx, false); err != nil {
			return domain.NewStoreError("create index", err)
		}
	}

	if err := s.cli.LoadCollection(ctx, s.collection, false); err != nil {
		return domain.NewStoreError("load collection", err)
	}
	s.spec = &spec
	s.loaded = true
	return nil
}

func checkDimension(spec *domain.IndexSpec, dimension int) error {
	if spec.Dimension != dimension {
		return fmt.Errorf("collection %s has dimension %d, requested %d: %w",
			spec.Name, spec.Dimension, dimension, domain.ErrDimensionMismatch)
	}
	return nil
}

// describe reads the dimension and metric of the existing collection.
func (s *Store) describe(ctx context.Context) (*domain.IndexSpec, error) {
	coll, err := s.cli.DescribeCollection(ctx, s.collection)
	if err != nil {
		return nil, domain.NewStoreError("describe collection", err)
	}
	spec := SpecFromSchema(coll.Schema)
	spec.Name = s.collection

	if indexes, err := s.cli.DescribeIndex(ctx, s.collection, FieldVector); err == nil {
		for _, idx := range indexes {
			spec.Metric = metricFromParams(idx.Params())
		}
	}
	return &spec, nil
}

// SpecFromSchema extracts the vector dimension from a collection schema.
func SpecFromSchema(schema *entity.Schema) domain.IndexSpec {
	spec := domain.IndexSpec{Metric: domain.MetricCosine}
	if schema == nil {
		return spec
	}
	spec.Name = schema.CollectionName
	for _, f := range schema.Fields {
		if f.DataType == entity.FieldTypeFloatVector {
			spec.Dimension, _ = strconv.Atoi(f.TypeParams[entity.TypeParamDim])
		}
	}
	return spec
}

func metricFromParams(params map[string]string) domain.Metric {
	switch entity.MetricType(params["metric_type"]) {
	case entity.IP:
		return domain.MetricDot
	case entity.L2:
		return domain.MetricEuclidean
	default:
		return domain.MetricCosine
	}
}

// ready reports whether the collection exists, loading it on first use.
func (s *Store) ready(ctx context.Context) (*domain.IndexSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.spec, nil
	}
	exists, err := s.cli.HasCollection(ctx, s.collection)
	if err != nil {
		return nil, domain.NewStoreError("has collection", err)
	}
	if !exists {
		return nil, nil
	}
	spec, err := s.describe(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cli.LoadCollection(ctx, s.collection, false); err != nil {
		return nil, domain.NewStoreError("load collection", err)
	}
	s.spec = spec
	s.loaded = true
	return spec, nil
}

// BuildColumns converts records into insert columns in schema order.
func BuildColumns(records []domain.VectorRecord, dimension int) ([]entity.Column, error) {
	ids := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))
	texts := make([]string, 0, len(records))
	sources := make([]string, 0, len(records))
	metas := make([][]byte, 0, len(records))

	for _, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: record without id", domain.ErrInvalidInput)
		}
		if len(r.Values) != dimension {
			return nil, fmt.Errorf("record %s has %d values, collection expects %d: %w",
				r.ID, len(r.Values), dimension, domain.ErrDimensionMismatch)
		}
		meta, err := json.Marshal(extraMetadata(r.Metadata))
		if err != nil {
			return nil, fmt.Errorf("marshalling metadata: %w", err)
		}
		ids = append(ids, r.ID)
		vectors = append(vectors, r.Values)
		texts = append(texts, r.Text())
		sources = append(sources, r.Source())
		metas = append(metas, meta)
	}

	return []entity.Column{
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnFloatVector(FieldVector, dimension, vectors),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnVarChar(FieldSource, sources),
		entity.NewColumnJSONBytes(FieldMetadata, metas),
	}, nil
}

// extraMetadata drops the keys stored in dedicated fields.
func extraMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if k == domain.MetadataText || k == domain.MetadataSource {
			continue
		}
		out[k] = v
	}
	return out
}

// Upsert inserts or replaces records by id.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	spec, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if spec == nil {
		return fmt.Errorf("collection %s not created: %w", s.collection, domain.ErrNotFound)
	}
	if len(records) == 0 {
		return nil
	}

	columns, err := BuildColumns(records, spec.Dimension)
	if err != nil {
		return err
	}
	if _, err := s.cli.Upsert(ctx, s.collection, "", columns...); err != nil {
		return domain.NewStoreError("upsert", err)
	}
	return nil
}

// Query runs a vector search and returns matches by descending score.
func (s *Store) Query(ctx context.Context, req domain.VectorQuery) ([]domain.VectorMatch, error) {
	spec, err := s.ready(ctx)
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

	outputFields := []string{FieldText, FieldSource, FieldMetadata}
	if req.IncludeValues {
		outputFields = append(outputFields, FieldVector)
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, domain.NewStoreError("query", err)
	}

	results, err := s.cli.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		outputFields,
		[]entity.Vector{entity.FloatVector(req.Vector)},
		FieldVector,
		MetricType(spec.Metric),
		req.TopK,
		sp,
	)
	if err != nil {
		return nil, domain.NewStoreError("query", err)
	}
	if len(results) == 0 {
		return []domain.VectorMatch{}, nil
	}
	matches, err := ParseSearchResult(results[0], spec.Metric)
	if err != nil {
		return nil, domain.NewStoreError("query", err)
	}
	return matches, nil
}

// ParseSearchResult converts one Milvus search result into matches.
// L2 distances are reported as 1/(1+d) so higher is always better.
func ParseSearchResult(sr mclient.SearchResult, metric domain.Metric) ([]domain.VectorMatch, error) {
	if sr.Err != nil {
		return nil, sr.Err
	}
	matches := make([]domain.VectorMatch, 0, sr.ResultCount)
	if sr.IDs == nil {
		return matches, nil
	}

	textCol := columnByName(sr.Fields, FieldText)
	sourceCol := columnByName(sr.Fields, FieldSource)
	metaCol := columnByName(sr.Fields, FieldMetadata)
	var vectors [][]float32
	if vc, ok := columnByName(sr.Fields, FieldVector).(*entity.ColumnFloatVector); ok {
		vectors = vc.Data()
	}

	for i := range sr.ResultCount {
		id, err := sr.IDs.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("read id %d: %w", i, err)
		}
		match := domain.VectorMatch{ID: id, Metadata: map[string]string{}}
		if i < len(sr.Scores) {
			match.Score = score(metric, sr.Scores[i])
		}
		if metaCol != nil {
			if raw, err := metaCol.Get(i); err == nil {
				if bs, ok := raw.([]byte); ok && len(bs) > 0 {
					_ = json.Unmarshal(bs, &match.Metadata)
				}
			}
		}
		if textCol != nil {
			match.Metadata[domain.MetadataText], _ = textCol.GetAsString(i)
		}
		if sourceCol != nil {
			match.Metadata[domain.MetadataSource], _ = sourceCol.GetAsString(i)
		}
		if i < len(vectors) {
			match.Values = vectors[i]
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func score(metric domain.Metric, raw float32) float64 {
	if metric == domain.MetricEuclidean {
		return 1 / (1 + math.Sqrt(math.Max(float64(raw), 0)))
	}
	return float64(raw)
}

func columnByName(cols mclient.ResultSet, name string) entity.Column {
	for _, c := range cols {
		if c != nil && c.Name() == name {
			return c
		}
	}
	return nil
}

// Describe returns the row count and schema of the collection.
func (s *Store) Describe(ctx context.Context) (domain.IndexStats, error) {
	spec, err := s.ready(ctx)
	if err != nil {
		return domain.IndexStats{}, err
	}
	if spec == nil {
		return domain.IndexStats{Name: s.collection}, nil
	}

	stats, err := s.cli.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return domain.IndexStats{}, domain.NewStoreError("collection statistics", err)
	}
	count, _ := strconv.Atoi(stats["row_count"])

	return domain.IndexStats{
		Name:             spec.Name,
		TotalRecordCount: count,
		Dimension:        spec.Dimension,
		Metric:           spec.Metric,
	}, nil
}

// Close closes the client connection.
func (s *Store) Close() error {
	return s.cli.Close()
}
