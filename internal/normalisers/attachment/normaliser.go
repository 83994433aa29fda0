// Package attachment provides the catch-all normaliser for files that are
// not notes, such as images and PDFs.
package attachment

import (
	"context"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser turns any file into an attachment resource.
type Normaliser struct{}

// New creates a new attachment normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns nil: attachments accept any extension.
func (n *Normaliser) SupportedExtensions() []string {
	return nil
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 1 // Last resort
}

// Normalise returns an attachment titled by the file's basename.
// The content is not read; attachments carry no text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawResource) (*domain.Resource, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	return &domain.Resource{
		URI:   raw.URI.WithoutFragment(),
		Kind:  domain.KindAttachment,
		Title: raw.URI.Basename(),
	}, nil
}
