package domain

// Metadata keys every vector record carries.
const (
	MetadataText   = "text"
	MetadataSource = "source"
)

// Metric is the similarity function a vector index is built with.
type Metric string

// Supported metrics.
const (
	MetricCosine    Metric = "cosine"
	MetricDot       Metric = "dot"
	MetricEuclidean Metric = "euclidean"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	switch m {
	case MetricCosine, MetricDot, MetricEuclidean:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// IndexSpec describes the index a vector store must hold.
type IndexSpec struct {
	// Name is the index (collection) name.
	Name string

	// Dimension is the vector length.
	Dimension int

	// Metric is the similarity function.
	Metric Metric
}

// VectorRecord is a single (id, vector, metadata) entry in a vector store.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata map[string]string
}

// Text returns the chunk text held in the record metadata.
func (r VectorRecord) Text() string {
	return r.Metadata[MetadataText]
}

// Source returns the source identifier held in the record metadata.
func (r VectorRecord) Source() string {
	return r.Metadata[MetadataSource]
}

// VectorQuery is a nearest-neighbour request against a vector store.
type VectorQuery struct {
	// Vector is the query embedding.
	Vector []float32

	// TopK is the maximum number of matches to return.
	TopK int

	// IncludeValues asks the store to return each match's vector.
	IncludeValues bool
}

// VectorMatch is a single nearest-neighbour hit.
type VectorMatch struct {
	ID       string
	Score    float64
	Values   []float32
	Metadata map[string]string
}

// IndexStats is a read-only snapshot of a vector store.
type IndexStats struct {
	// Name is the index name.
	Name string

	// TotalRecordCount is the number of records in the index.
	TotalRecordCount int

	// Dimension is the configured vector length.
	Dimension int

	// Metric is the configured similarity function.
	Metric Metric

	// IndexFullness is the fill ratio in [0, 1], zero when the backend has no capacity limit.
	IndexFullness float64

	// Namespaces holds per-namespace record counts when the backend reports them.
	Namespaces map[string]int
}
