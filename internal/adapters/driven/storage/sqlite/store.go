package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/refindex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
)

// DBName is the database file name inside the data directory.
const DBName = "embeddings.db"

// Store is the SQLite database behind the embedding cache.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.refindex/embeddings.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".refindex")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

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

// EmbeddingCache returns an EmbeddingCache backed by this store.
// Closing the cache closes the store.
func (s *Store) EmbeddingCache() driven.EmbeddingCache {
	return &embeddingCache{store: s, now: time.Now}
}

// migrate runs all pending migrations.
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
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_embeddings.up.sql" -> 1
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
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Embedding Cache ====================

// embeddingCache implements driven.EmbeddingCache.
type embeddingCache struct {
	store *Store
	now   func() time.Time
}

var _ driven.EmbeddingCache = (*embeddingCache)(nil)

// Get returns the cached entry for uri.
func (c *embeddingCache) Get(ctx context.Context, uri string) (domain.EmbeddingEntry, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT checksum, model, dimensions, vector FROM embeddings WHERE uri = ?
	`, uri)

	var entry domain.EmbeddingEntry
	var dims int
	var blob []byte
	if err := row.Scan(&entry.Checksum, &entry.Model, &dims, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EmbeddingEntry{}, domain.ErrNotFound
		}
		return domain.EmbeddingEntry{}, fmt.Errorf("scanning embedding: %w", err)
	}

	entry.Embedding = bytesToFloat32Slice(blob)
	if len(entry.Embedding) != dims {
		return domain.EmbeddingEntry{}, fmt.Errorf("%w: stored %d, decoded %d", domain.ErrDimensionMismatch, dims, len(entry.Embedding))
	}
	return entry, nil
}

// Has reports whether uri has a cached entry.
func (c *embeddingCache) Has(ctx context.Context, uri string) (bool, error) {
	var exists int
	err := c.store.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM embeddings WHERE uri = ?)
	`, uri).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking embedding: %w", err)
	}
	return exists == 1, nil
}

// Set stores or replaces the entry for uri.
func (c *embeddingCache) Set(ctx context.Context, uri string, entry domain.EmbeddingEntry) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (uri, checksum, model, dimensions, vector, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			checksum = excluded.checksum,
			model = excluded.model,
			dimensions = excluded.dimensions,
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`, uri, entry.Checksum, entry.Model, len(entry.Embedding), float32SliceToBytes(entry.Embedding), c.now().UTC())
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// Delete removes the entry for uri. Deleting a missing entry is not an error.
func (c *embeddingCache) Delete(ctx context.Context, uri string) error {
	if _, err := c.store.db.ExecContext(ctx, "DELETE FROM embeddings WHERE uri = ?", uri); err != nil {
		return fmt.Errorf("deleting embedding: %w", err)
	}
	return nil
}

// Clear removes every cached entry.
func (c *embeddingCache) Clear(ctx context.Context) error {
	if _, err := c.store.db.ExecContext(ctx, "DELETE FROM embeddings"); err != nil {
		return fmt.Errorf("clearing embeddings: %w", err)
	}
	return nil
}

// Close closes the underlying store.
func (c *embeddingCache) Close() error {
	return c.store.Close()
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
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
