// Package index provides a URI-keyed store that can find entries by file
// name regardless of directory depth, and computes the shortest identifier
// that addresses an entry unambiguously.
package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/armon/go-radix"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// Entry is a value addressable by URI.
type Entry[T any] interface {
	// ResourceURI returns the entry's URI.
	ResourceURI() domain.URI

	// WithURI returns a copy of the entry addressed by u.
	WithURI(u domain.URI) T
}

// bucket holds the entries sharing one reverse key, by exact path.
// Paths that differ only by case share a key.
type bucket[T any] map[string]T

// Store maps URIs to entries.
//
// Entries live in a radix tree keyed by ReverseKey, so all entries with the
// same file name share a key prefix. Store is not safe for concurrent use.
type Store[T Entry[T]] struct {
	tree             *radix.Tree
	defaultExtension string
	size             int
}

// NewStore creates an empty store. defaultExtension (for example ".md") is
// tried when a reference omits its extension.
func NewStore[T Entry[T]](defaultExtension string) *Store[T] {
	return &Store[T]{
		tree:             radix.New(),
		defaultExtension: defaultExtension,
	}
}

// DefaultExtension returns the extension tried for extension-less references.
func (s *Store[T]) DefaultExtension() string {
	return s.defaultExtension
}

// Set stores v under its URI path and returns the entry it replaced, if any.
func (s *Store[T]) Set(v T) (T, bool) {
	p := v.ResourceURI().Path
	key := ReverseKey(p)

	b, ok := s.bucketAt(key)
	if !ok {
		b = make(bucket[T], 1)
		s.tree.Insert(key, b)
	}

	old, existed := b[p]
	b[p] = v
	if !existed {
		s.size++
	}
	return old, existed
}

// Delete removes the entry at exactly u's path.
func (s *Store[T]) Delete(u domain.URI) (T, bool) {
	var zero T
	key := ReverseKey(u.Path)

	b, ok := s.bucketAt(key)
	if !ok {
		return zero, false
	}
	old, ok := b[u.Path]
	if !ok {
		return zero, false
	}

	delete(b, u.Path)
	if len(b) == 0 {
		s.tree.Delete(key)
	}
	s.size--
	return old, true
}

// Has reports whether an entry exists at exactly u's path.
func (s *Store[T]) Has(u domain.URI) bool {
	b, ok := s.bucketAt(ReverseKey(u.Path))
	if !ok {
		return false
	}
	_, ok = b[u.Path]
	return ok
}

// Get returns the entry for u, or an error wrapping domain.ErrNotFound.
// Use Get when the entry is known to exist and FindURI otherwise.
func (s *Store[T]) Get(u domain.URI) (T, error) {
	v, ok := s.FindURI(u)
	if !ok {
		return v, fmt.Errorf("%w: %s", domain.ErrNotFound, u.String())
	}
	return v, nil
}

// FindURI returns the entry for u. An exact path match wins; otherwise a
// single entry whose path matches case-insensitively is returned. u's
// fragment is carried over to the result.
func (s *Store[T]) FindURI(u domain.URI) (T, bool) {
	v, ok := s.lookup(u.Path)
	if ok && u.Fragment != "" {
		v = v.WithURI(v.ResourceURI().WithFragment(u.Fragment))
	}
	return v, ok
}

// List returns every entry sorted by path.
func (s *Store[T]) List() []T {
	out := make([]T, 0, s.size)
	s.tree.Walk(func(_ string, v interface{}) bool {
		for _, entry := range v.(bucket[T]) {
			out = append(out, entry)
		}
		return false
	})
	sortByPath(out)
	return out
}

// Len returns the number of entries.
func (s *Store[T]) Len() int {
	return s.size
}

// Clear removes every entry and returns the removed entries sorted by path.
func (s *Store[T]) Clear() []T {
	removed := s.List()
	s.tree = radix.New()
	s.size = 0
	return removed
}

func (s *Store[T]) lookup(p string) (T, bool) {
	var zero T
	b, ok := s.bucketAt(ReverseKey(p))
	if !ok {
		return zero, false
	}
	if v, ok := b[p]; ok {
		return v, true
	}
	if len(b) == 1 {
		for _, v := range b {
			return v, true
		}
	}
	return zero, false
}

func (s *Store[T]) bucketAt(key string) (bucket[T], bool) {
	v, ok := s.tree.Get(key)
	if !ok {
		return nil, false
	}
	return v.(bucket[T]), true
}

func sortByPath[T Entry[T]](entries []T) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ResourceURI().Path < entries[j].ResourceURI().Path
	})
}

// hasSegmentSuffix reports whether p ends with suffix on a '/' boundary.
func hasSegmentSuffix(p, suffix string) bool {
	return p == suffix || strings.HasSuffix(p, "/"+suffix)
}
