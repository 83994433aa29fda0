package driven

import (
	"context"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// Normaliser transforms raw bytes into a resource.
// Each normaliser handles specific file extensions (e.g., ".md").
type Normaliser interface {
	// SupportedExtensions returns the lower-case extensions this normaliser handles.
	// Empty slice means any extension.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms raw bytes into a resource.
	Normalise(ctx context.Context, raw *domain.RawResource) (*domain.Resource, error)
}
