package mcp

import (
	"context"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/services"
)

// mockSimilarityService is a mock implementation of driving.SimilarityService.
type mockSimilarityService struct {
	results []domain.SimilarResource
	err     error

	gotURI  domain.URI
	gotTopK int
}

func (m *mockSimilarityService) GetSimilar(uri domain.URI, topK int) ([]domain.SimilarResource, error) {
	m.gotURI = uri
	m.gotTopK = topK
	return m.results, m.err
}

func (m *mockSimilarityService) GetEmbedding(_ domain.URI) ([]float32, bool) {
	return nil, false
}

func (m *mockSimilarityService) HasEmbeddings() bool {
	return len(m.results) > 0
}

func (m *mockSimilarityService) UpdateResource(_ context.Context, _ domain.URI) error {
	return m.err
}

func (m *mockSimilarityService) Update(_ context.Context) (domain.IndexStats, error) {
	return domain.IndexStats{}, m.err
}

// newTestWorkspace returns a workspace holding notes at the given paths.
func newTestWorkspace(paths ...string) *services.Workspace {
	ws := services.NewWorkspace(".md")
	for _, p := range paths {
		kind := domain.KindNote
		if domain.PathExtension(p) != ".md" {
			kind = domain.KindAttachment
		}
		_ = ws.Set(domain.Resource{
			URI:   domain.FileURI(p),
			Kind:  kind,
			Title: domain.FileURI(p).Name(),
			Text:  "text of " + p,
		})
	}
	return ws
}
