package driven

import (
	"context"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// Connector reads resources from a tree.
type Connector interface {
	// Root returns the tree root as a file URI.
	Root() domain.URI

	// Validate checks the root exists and is readable.
	Validate(ctx context.Context) error

	// Walk emits every resource under the root.
	// Both channels are closed when the walk ends.
	Walk(ctx context.Context) (<-chan domain.RawResource, <-chan error)

	// Watch emits changes until ctx is cancelled.
	// The returned channel is closed when watching stops.
	Watch(ctx context.Context) (<-chan domain.RawResourceChange, error)

	// Close releases resources.
	Close() error
}
