package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
)

// Ensure EmbeddingCache implements the interface.
var _ driven.EmbeddingCache = (*EmbeddingCache)(nil)

// EmbeddingCache is an in-memory implementation of driven.EmbeddingCache.
// Entries live for the lifetime of the process.
type EmbeddingCache struct {
	mu      sync.RWMutex
	entries map[string]domain.EmbeddingEntry
}

// NewEmbeddingCache creates a new in-memory embedding cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{
		entries: make(map[string]domain.EmbeddingEntry),
	}
}

// Get retrieves the entry for uri.
func (c *EmbeddingCache) Get(_ context.Context, uri string) (domain.EmbeddingEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[uri]
	if !ok {
		return domain.EmbeddingEntry{}, domain.ErrNotFound
	}
	return copyEntry(entry), nil
}

// Has reports whether uri has an entry.
func (c *EmbeddingCache) Has(_ context.Context, uri string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[uri]
	return ok, nil
}

// Set stores or replaces the entry for uri.
func (c *EmbeddingCache) Set(_ context.Context, uri string, entry domain.EmbeddingEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[uri] = copyEntry(entry)
	return nil
}

// Delete removes the entry for uri.
func (c *EmbeddingCache) Delete(_ context.Context, uri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, uri)
	return nil
}

// Clear removes every entry.
func (c *EmbeddingCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]domain.EmbeddingEntry)
	return nil
}

// Close is a no-op for the memory cache.
func (c *EmbeddingCache) Close() error {
	return nil
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// copyEntry detaches the vector so callers cannot mutate cached state.
func copyEntry(e domain.EmbeddingEntry) domain.EmbeddingEntry {
	vec := make([]float32, len(e.Embedding))
	copy(vec, e.Embedding)
	return domain.EmbeddingEntry{Checksum: e.Checksum, Model: e.Model, Embedding: vec}
}
