package driven

import (
	"context"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// EmbeddingCache stores checksum-gated embeddings keyed by URI string.
// The similarity index decides validity by comparing checksums; the cache
// only stores and returns entries.
type EmbeddingCache interface {
	// Get returns the entry for uri, or domain.ErrNotFound.
	Get(ctx context.Context, uri string) (domain.EmbeddingEntry, error)

	// Has reports whether an entry exists for uri.
	Has(ctx context.Context, uri string) (bool, error)

	// Set stores or replaces the entry for uri.
	Set(ctx context.Context, uri string, entry domain.EmbeddingEntry) error

	// Delete removes the entry for uri. Deleting a missing entry is not an error.
	Delete(ctx context.Context, uri string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
