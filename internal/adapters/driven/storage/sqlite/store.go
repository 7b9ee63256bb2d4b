package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/pdfqa/internal/similarity"
	"github.com/custodia-labs/pdfqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DatabaseFile is the file name of the vector database inside the data directory.
const DatabaseFile = "vectors.db"

// Store is a SQLite-backed vector store bound to a single index.
type Store struct {
	db    *sql.DB
	path  string
	index string

	mu   sync.RWMutex
	spec *domain.IndexSpec
}

// NewStore opens the vector database in dataDir for the named index.
// If dataDir is empty, defaults to ~/.pdfqa/data.
func NewStore(dataDir, index string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".pdfqa", "data")
	}
	if index == "" {
		index = domain.DefaultIndexName
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:    db,
		path:  dbPath,
		index: index,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	spec, err := s.loadSpec(context.Background())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		db.Close()
		return nil, err
	}
	s.spec = spec

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_vectors.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(script); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) loadSpec(ctx context.Context) (*domain.IndexSpec, error) {
	var spec domain.IndexSpec
	var metric string
	err := s.db.QueryRowContext(ctx,
		"SELECT name, dimension, metric FROM indexes WHERE name = ?", s.index,
	).Scan(&spec.Name, &spec.Dimension, &metric)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStoreError("load index", err)
	}
	spec.Metric = domain.Metric(metric)
	return &spec, nil
}

func (s *Store) currentSpec() *domain.IndexSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spec
}

// EnsureIndex creates the index row if absent. The store's own index name
// wins over spec.Name so one database file can hold several indexes.
func (s *Store) EnsureIndex(ctx context.Context, spec domain.IndexSpec) error {
	if spec.Dimension <= 0 {
		return domain.NewConfigurationError("dimension", fmt.Sprintf("must be positive, got %d", spec.Dimension))
	}
	if !spec.Metric.IsValid() {
		spec.Metric = domain.MetricCosine
	}
	spec.Name = s.index

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spec != nil {
		return checkDimension(s.spec, spec.Dimension)
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO indexes (name, dimension, metric) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING",
		spec.Name, spec.Dimension, string(spec.Metric))
	if err != nil {
		return domain.NewStoreError("create index", err)
	}

	stored, err := s.loadSpec(ctx)
	if err != nil {
		return err
	}
	if err := checkDimension(stored, spec.Dimension); err != nil {
		return err
	}
	s.spec = stored
	return nil
}

func checkDimension(spec *domain.IndexSpec, dimension int) error {
	if spec.Dimension != dimension {
		return fmt.Errorf("index %s has dimension %d, requested %d: %w",
			spec.Name, spec.Dimension, dimension, domain.ErrDimensionMismatch)
	}
	return nil
}

// Upsert inserts or replaces records in a single transaction.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	spec := s.currentSpec()
	if spec == nil {
		return fmt.Errorf("index %s not created: %w", s.index, domain.ErrNotFound)
	}
	for _, r := range records {
		if len(r.Values) != spec.Dimension {
			return fmt.Errorf("record %s has %d values, index expects %d: %w",
				r.ID, len(r.Values), spec.Dimension, domain.ErrDimensionMismatch)
		}
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM records WHERE index_name = ?", s.index,
	).Scan(&seq); err != nil {
		return domain.NewStoreError("upsert", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, index_name, seq, vector, text, source, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(index_name, id) DO UPDATE SET
			vector = excluded.vector,
			text = excluded.text,
			source = excluded.source,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return domain.NewStoreError("upsert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		metadataJSON, err := encodeMetadata(r.Metadata)
		if err != nil {
			return domain.NewStoreError("upsert", err)
		}
		seq++
		if _, err := stmt.ExecContext(ctx,
			r.ID, s.index, seq, float32SliceToBytes(r.Values), r.Text(), r.Source(), metadataJSON,
		); err != nil {
			return domain.NewStoreError("upsert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("commit upsert", err)
	}
	return nil
}

// Query scans every record of the index and returns the top matches.
func (s *Store) Query(ctx context.Context, req domain.VectorQuery) ([]domain.VectorMatch, error) {
	spec := s.currentSpec()
	if spec == nil || req.TopK <= 0 {
		return []domain.VectorMatch{}, nil
	}
	if len(req.Vector) != spec.Dimension {
		return nil, fmt.Errorf("query has %d values, index expects %d: %w",
			len(req.Vector), spec.Dimension, domain.ErrDimensionMismatch)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, seq, vector, metadata FROM records WHERE index_name = ?", s.index)
	if err != nil {
		return nil, domain.NewStoreError("query", err)
	}
	defer rows.Close()

	var candidates []similarity.Scored //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			id           string
			seq          int
			blob         []byte
			metadataJSON string
		)
		if err := rows.Scan(&id, &seq, &blob, &metadataJSON); err != nil {
			return nil, domain.NewStoreError("scan record", err)
		}
		metadata, err := decodeMetadata(metadataJSON)
		if err != nil {
			return nil, domain.NewStoreError("decode metadata", err)
		}
		values := bytesToFloat32Slice(blob)
		match := domain.VectorMatch{
			ID:       id,
			Score:    similarity.Score(spec.Metric, req.Vector, values),
			Metadata: metadata,
		}
		if req.IncludeValues {
			match.Values = values
		}
		candidates = append(candidates, similarity.Scored{Match: match, Order: seq})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate records", err)
	}

	return similarity.TopK(candidates, req.TopK), nil
}

// Describe returns the record count, dimension and metric of the index.
func (s *Store) Describe(ctx context.Context) (domain.IndexStats, error) {
	spec := s.currentSpec()
	if spec == nil {
		return domain.IndexStats{Name: s.index}, nil
	}

	stats := domain.IndexStats{
		Name:      spec.Name,
		Dimension: spec.Dimension,
		Metric:    spec.Metric,
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE index_name = ?", s.index,
	).Scan(&stats.TotalRecordCount); err != nil {
		return domain.IndexStats{}, domain.NewStoreError("count records", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT source, COUNT(*) FROM records WHERE index_name = ? GROUP BY source ORDER BY source", s.index)
	if err != nil {
		return domain.IndexStats{}, domain.NewStoreError("count sources", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return domain.IndexStats{}, domain.NewStoreError("count sources", err)
		}
		if stats.Namespaces == nil {
			stats.Namespaces = make(map[string]int)
		}
		stats.Namespaces[source] = count
	}
	if err := rows.Err(); err != nil {
		return domain.IndexStats{}, domain.NewStoreError("count sources", err)
	}
	return stats, nil
}

// ==================== Helper Functions ====================

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(data), nil
}

func decodeMetadata(s string) (map[string]string, error) {
	m := make(map[string]string)
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
