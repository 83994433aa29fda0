package driving

import "github.com/custodia-labs/refindex/internal/core/domain"

// ResourceService reads the workspace and answers identifier questions.
type ResourceService interface {
	// Get returns the resource at uri, or an error wrapping domain.ErrNotFound.
	Get(uri domain.URI) (domain.Resource, error)

	// Find resolves an absolute path, identifier or relative reference.
	// base is used for relative references and may be the zero URI.
	Find(reference string, base domain.URI) (domain.Resource, bool)

	// List returns every resource sorted by path.
	List() []domain.Resource

	// Len returns the number of resources.
	Len() int

	// GetIdentifier returns the shortest unambiguous reference for uri.
	GetIdentifier(uri domain.URI, exclude ...domain.URI) string

	// ListByIdentifier returns every resource an identifier may refer to.
	ListByIdentifier(identifier string) []domain.Resource

	// Ambiguous reports whether identifier matches more than one resource.
	Ambiguous(identifier string) bool

	// ResolveLink returns the URI a link in from points at, or a
	// placeholder URI when nothing matches.
	ResolveLink(from domain.URI, reference string) domain.URI
}
