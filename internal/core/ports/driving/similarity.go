package driving

import (
	"context"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// SimilarityService answers "which resources are related to this one".
type SimilarityService interface {
	// GetSimilar returns up to topK resources ranked by cosine similarity.
	// topK <= 0 returns every ranked resource.
	GetSimilar(uri domain.URI, topK int) ([]domain.SimilarResource, error)

	// GetEmbedding returns the current vector for uri.
	GetEmbedding(uri domain.URI) ([]float32, bool)

	// HasEmbeddings reports whether any vector is indexed.
	HasEmbeddings() bool

	// UpdateResource refreshes the vector for one resource.
	UpdateResource(ctx context.Context, uri domain.URI) error

	// Update rebuilds every vector sequentially.
	Update(ctx context.Context) (domain.IndexStats, error)
}
