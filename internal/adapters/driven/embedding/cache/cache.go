// Package cache provides an on-disk embedding cache backed by bbolt.
//
// The cache wraps another EmbeddingService. Vectors are keyed by model name
// and the SHA-256 of the input text, so re-ingesting unchanged documents
// does not call the provider again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DatabaseFile is the cache file name inside the data directory.
const DatabaseFile = "embeddings.db"

// EmbeddingService serves cached vectors and forwards misses to the wrapped service.
type EmbeddingService struct {
	db     *bbolt.DB
	inner  driven.EmbeddingService
	bucket []byte
}

// Open opens or creates the cache in dataDir and wraps inner.
func Open(dataDir string, inner driven.EmbeddingService) (*EmbeddingService, error) {
	if inner == nil {
		return nil, errors.New("embedding cache: nil embedding service")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dataDir, DatabaseFile), 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}

	bucket := []byte(inner.ModelName())
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	return &EmbeddingService{db: db, inner: inner, bucket: bucket}, nil
}

// Embed returns the cached vector for text or computes and stores it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch looks every text up in the cache and sends only the misses to
// the wrapped service, in one batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([][]byte, len(texts))
	for i, text := range texts {
		keys[i] = Key(text)
	}

	out := make([][]float32, len(texts))
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for i, key := range keys {
			if raw := b.Get(key); raw != nil {
				out[i] = decode(raw)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}

	var missing []int
	for i, v := range out {
		if v == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		logger.Debug("Embedding cache: %d/%d hits", len(texts), len(texts))
		return out, nil
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}
	vecs, err := s.inner.EmbedBatch(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(pending) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vecs), len(pending))
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for j, i := range missing {
			out[i] = vecs[j]
			if err := b.Put(keys[i], encode(vecs[j])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The vectors are still valid; only persistence failed.
		logger.Warn("Embedding cache write failed: %v", err)
	}

	logger.Debug("Embedding cache: %d/%d hits", len(texts)-len(missing), len(texts))
	return out, nil
}

// Len returns the number of vectors cached for the current model.
func (s *EmbeddingService) Len() int {
	n := 0
	_ = s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the cache file and the wrapped service.
func (s *EmbeddingService) Close() error {
	return errors.Join(s.db.Close(), s.inner.Close())
}

// Key returns the cache key for text.
func Key(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return sum[:]
}

func encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decode copies out of the bbolt page, which is only valid inside the transaction.
func decode(raw []byte) []float32 {
	v := make([]float32, len(raw)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v
}
