package driving

import (
	"context"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// IngestService feeds resources from a tree into the workspace.
type IngestService interface {
	// Load walks the tree and sets every resource. Returns the count loaded.
	Load(ctx context.Context) (int, error)

	// Apply maps one change onto the workspace.
	Apply(ctx context.Context, change domain.RawResourceChange) error

	// Watch applies changes until ctx is cancelled.
	Watch(ctx context.Context) error
}
