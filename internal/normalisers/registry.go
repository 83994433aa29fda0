package normalisers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
	"github.com/custodia-labs/refindex/internal/normalisers/attachment"
	"github.com/custodia-labs/refindex/internal/normalisers/markdown"
	"github.com/custodia-labs/refindex/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw resources to normalisers by extension.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry creates a registry with the built-in normalisers.
// defaultExtension is treated as a markdown extension when it is not one already.
func NewDefaultRegistry(defaultExtension string) *Registry {
	r := NewRegistry()
	r.Register(markdown.New(defaultExtension))
	r.Register(plaintext.New())
	r.Register(attachment.New())
	return r
}

// Register adds a normaliser. Normalisers are kept in descending priority;
// equal priorities keep registration order.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, n)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// Normalise transforms raw using the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawResource) (*domain.Resource, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	n := r.lookup(strings.ToLower(raw.URI.Extension()))
	if n == nil {
		return nil, fmt.Errorf("%w: no normaliser for %q", domain.ErrUnsupportedType, raw.URI.Basename())
	}
	return n.Normalise(ctx, raw)
}

// SupportedExtensions returns every extension with a dedicated normaliser, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var exts []string
	for _, n := range r.normalisers {
		for _, ext := range n.SupportedExtensions() {
			if !seen[ext] {
				seen[ext] = true
				exts = append(exts, ext)
			}
		}
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) lookup(ext string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.normalisers {
		supported := n.SupportedExtensions()
		if len(supported) == 0 {
			return n
		}
		for _, s := range supported {
			if s == ext {
				return n
			}
		}
	}
	return nil
}
