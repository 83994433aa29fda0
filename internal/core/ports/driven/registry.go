package driven

import (
	"context"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a raw resource.
// It maintains a priority-ordered list of normalisers and dispatches
// based on file extension.
type NormaliserRegistry interface {
	// Normalise transforms raw bytes using the best matching normaliser.
	Normalise(ctx context.Context, raw *domain.RawResource) (*domain.Resource, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedExtensions returns every extension with a dedicated normaliser.
	SupportedExtensions() []string
}
