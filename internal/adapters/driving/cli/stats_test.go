package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

func TestStatsCmd_PrintsStats(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	mocks.index.stats = domain.IndexStats{
		Name:             "rag-chatbot",
		TotalRecordCount: 1234,
		Dimension:        768,
		Metric:           domain.MetricCosine,
		IndexFullness:    0.125,
		Namespaces:       map[string]int{"b": 4, "a": 1230},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"stats"})

	require.NoError(t, rootCmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "Index: rag-chatbot")
	assert.Contains(t, out, "Total vectors: 1234")
	assert.Contains(t, out, "Dimension: 768")
	assert.Contains(t, out, "Metric: cosine")
	assert.Contains(t, out, "Index fullness: 12.50%")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("a: 1230")), bytes.Index(buf.Bytes(), []byte("b: 4")))
}

func TestStatsCmd_Error(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	mocks.index.err = domain.ErrVectorStoreUnavailable

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"stats"})

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
}

func TestIndexCreateCmd(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	mocks.index.spec = domain.IndexSpec{Name: "rag-chatbot", Dimension: 1536, Metric: domain.MetricDot}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"index", "create"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Index rag-chatbot ready (dimension 1536, metric dot)")
}

func TestIndexCreateCmd_Mismatch(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	mocks.index.err = errors.Join(domain.ErrDimensionMismatch, errors.New("index has 768, embedder has 1536"))

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"index", "create"})

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndexCreateCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	indexService = nil

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"index", "create"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index service not configured")
}
