// Package plaintext provides a normaliser for plain text notes.
package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text notes.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt", ".text"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 10
}

// Normalise converts a text file to a note. The whole file is the body
// and the title is derived from the file name.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawResource) (*domain.Resource, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")

	return &domain.Resource{
		URI:   raw.URI.WithoutFragment(),
		Kind:  domain.KindNote,
		Title: extractTitle(raw.URI),
		Text:  strings.TrimSpace(content),
	}, nil
}

// extractTitle extracts a human-readable title from a URI.
func extractTitle(uri domain.URI) string {
	name := uri.Name()

	// Replace underscores and dashes with spaces
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")

	return name
}
