package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder returns len(text) as a one-element vector and records calls.
type countingEmbedder struct {
	model  string
	calls  [][]string
	err    error
	closed bool
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 0.5}
	}
	return out, nil
}

func (e *countingEmbedder) Dimensions() int { return 2 }
func (e *countingEmbedder) ModelName() string { return e.model }
func (e *countingEmbedder) Ping(_ context.Context) error { return nil }
func (e *countingEmbedder) Close() error {
	e.closed = true
	return nil
}

func TestOpen_NilInner(t *testing.T) {
	_, err := Open(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestEmbedBatch_OnlyMissesReachProvider(t *testing.T) {
	inner := &countingEmbedder{model: "m"}
	c, err := Open(t.TempDir(), inner)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.EmbedBatch(ctx, []string{"a", "bb"})
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{2, 0.5}, {3, 0.5}, {1, 0.5}}, vecs)
	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"ccc"}, inner.calls[1])
	assert.Equal(t, 3, c.Len())
}

func TestEmbedBatch_AllHitsSkipProvider(t *testing.T) {
	inner := &countingEmbedder{model: "m"}
	c, err := Open(t.TempDir(), inner)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.Embed(ctx, "hello")
	require.NoError(t, err)
	v, err := c.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{5, 0.5}, v)
	assert.Len(t, inner.calls, 1)
}

func TestEmbedBatch_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := &countingEmbedder{model: "m"}
	c, err := Open(dir, first)
	require.NoError(t, err)
	_, err = c.Embed(ctx, "persisted")
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.True(t, first.closed)

	second := &countingEmbedder{model: "m"}
	c, err = Open(dir, second)
	require.NoError(t, err)
	defer c.Close()

	v, err := c.Embed(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 0.5}, v)
	assert.Empty(t, second.calls)
}

func TestEmbedBatch_ModelsAreSeparate(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := Open(dir, &countingEmbedder{model: "a"})
	require.NoError(t, err)
	_, err = c.Embed(ctx, "text")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	other := &countingEmbedder{model: "b"}
	c, err = Open(dir, other)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Len(t, other.calls, 1)
}

func TestEmbedBatch_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	c, err := Open(t.TempDir(), &countingEmbedder{model: "m", err: boom})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.EmbedBatch(context.Background(), []string{"x"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestEncodeDecode(t *testing.T) {
	v := []float32{0, -1.5, 3.25, 1e-7}
	assert.Equal(t, v, decode(encode(v)))
}

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t, Key("abc"), Key("abc"))
	assert.NotEqual(t, Key("abc"), Key("abd"))
	assert.Len(t, Key(""), 32)
}
