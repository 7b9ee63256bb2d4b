package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	t.Run("stable", func(t *testing.T) {
		assert.Equal(t, ChunkID("a.pdf", 0, "hello"), ChunkID("a.pdf", 0, "hello"))
	})

	t.Run("valid uuid v5", func(t *testing.T) {
		id, err := uuid.Parse(ChunkID("a.pdf", 3, "text"))
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(5), id.Version())
	})

	tests := []struct {
		name string
		a, b string
	}{
		{"different source", ChunkID("a.pdf", 0, "x"), ChunkID("b.pdf", 0, "x")},
		{"different ordinal", ChunkID("a.pdf", 0, "x"), ChunkID("a.pdf", 1, "x")},
		{"different text", ChunkID("a.pdf", 0, "x"), ChunkID("a.pdf", 0, "y")},
		{"no field bleed", ChunkID("a1", 0, "x"), ChunkID("a", 10, "x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, tt.a, tt.b)
		})
	}
}
