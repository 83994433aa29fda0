package index

import (
	"strings"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// GetShortest returns the shortest trailing run of needle's path segments
// that no haystack path shares.
//
// Haystack paths equal to needle are ignored. When every suffix of needle is
// shared by some haystack path, needle's full path (without a leading '/') is
// returned as the closest available answer.
func GetShortest(needle string, haystack []string) string {
	tokens := reverseTokens(needle)

	candidates := make([][]string, 0, len(haystack))
	for _, p := range haystack {
		if p != needle {
			candidates = append(candidates, reverseTokens(p))
		}
	}

	for idx := range tokens {
		kept := candidates[:0]
		for _, c := range candidates {
			if idx < len(c) && c[idx] == tokens[idx] {
				kept = append(kept, c)
			}
		}
		candidates = kept

		if len(candidates) == 0 {
			return joinForward(tokens[:idx+1])
		}
	}
	return joinForward(tokens)
}

// ListByIdentifier returns the entries whose path ends with identifier,
// trying identifier with the default extension appended as well.
//
// Matching is case-insensitive. When more than one entry matches, only the
// entries whose path ends with identifier in exactly the given case are kept,
// so the result is empty if none do. Results are sorted by path.
func (s *Store[T]) ListByIdentifier(identifier string) []T {
	if identifier == "" {
		return nil
	}

	names := []string{identifier}
	if domain.PathExtension(identifier) != s.defaultExtension {
		names = append(names, identifier+s.defaultExtension)
	}

	seen := make(map[string]struct{})
	var matches []T
	for _, name := range names {
		s.tree.WalkPrefix(identifierPrefix(name), func(_ string, v interface{}) bool {
			for p, entry := range v.(bucket[T]) {
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}
				matches = append(matches, entry)
			}
			return false
		})
	}

	if len(matches) > 1 {
		exact := make([]T, 0, len(matches))
		for _, entry := range matches {
			p := entry.ResourceURI().Path
			for _, name := range names {
				if hasSegmentSuffix(p, name) {
					exact = append(exact, entry)
					break
				}
			}
		}
		matches = exact
	}

	sortByPath(matches)
	return matches
}

// IsAmbiguous reports whether identifier matches more than one entry.
func (s *Store[T]) IsAmbiguous(identifier string) bool {
	return len(s.ListByIdentifier(identifier)) > 1
}

// GetIdentifier returns the shortest reference that finds u in this store.
// Entries in exclude are not treated as collisions. The default extension
// is dropped and u's fragment, if any, is appended.
//
// When u is stored and nothing is excluded, the result is checked with Find.
// A suffix that would resolve elsewhere (a root-level file next to a nested
// file of the same name, or a path fully contained in a longer one) is
// replaced by u's absolute path.
func (s *Store[T]) GetIdentifier(u domain.URI, exclude ...domain.URI) string {
	var others []string
	for _, entry := range s.ListByIdentifier(u.Basename()) {
		p := entry.ResourceURI().Path
		if p == u.Path || excluded(p, exclude) {
			continue
		}
		others = append(others, p)
	}

	id := domain.ChangePathExtension(GetShortest(u.Path, others), s.defaultExtension, "")
	if len(exclude) == 0 && s.Has(u) {
		for _, candidate := range []string{
			id,
			domain.ChangePathExtension(u.Path, s.defaultExtension, ""),
			u.Path,
		} {
			if s.resolvesTo(candidate, u.Path) {
				id = candidate
				break
			}
		}
	}

	if u.Fragment != "" {
		id += "#" + u.Fragment
	}
	return id
}

func (s *Store[T]) resolvesTo(reference, p string) bool {
	v, ok := s.Find(reference, domain.URI{})
	return ok && v.ResourceURI().Path == p
}

// Find resolves a reference string to an entry.
//
// An absolute path is looked up directly. A bare identifier (no leading
// "/", "./" or "../") goes through ListByIdentifier and the first match
// wins. Any other relative path is resolved against base, trying the value
// as written and then with the default extension. A "#fragment" suffix is
// split off first and set on the returned entry's URI.
func (s *Store[T]) Find(reference string, base domain.URI) (T, bool) {
	var zero T

	ref, fragment, _ := strings.Cut(reference, "#")
	if ref == "" {
		if base.IsZero() {
			return zero, false
		}
		return s.FindURI(base.WithFragment(fragment))
	}

	found, ok := s.findPath(ref, base)
	if !ok {
		return zero, false
	}
	if fragment != "" {
		found = found.WithURI(found.ResourceURI().WithFragment(fragment))
	}
	return found, true
}

func (s *Store[T]) findPath(ref string, base domain.URI) (T, bool) {
	var zero T

	if isIdentifier(ref) {
		matches := s.ListByIdentifier(ref)
		if len(matches) == 0 {
			return zero, false
		}
		return matches[0], true
	}

	for _, candidate := range []string{ref, ref + s.defaultExtension} {
		var target string
		switch {
		case isAbsolutePath(candidate):
			target = domain.FileURI(candidate).Path
		case !base.IsZero():
			target = base.Resolve(candidate, false).Path
		default:
			continue
		}
		if target == "" {
			continue
		}
		if v, ok := s.lookup(target); ok {
			return v, true
		}
	}
	return zero, false
}

func isIdentifier(ref string) bool {
	return !strings.HasPrefix(ref, "./") &&
		!strings.HasPrefix(ref, "../") &&
		!isAbsolutePath(ref)
}

// isAbsolutePath accepts POSIX roots and drive-letter roots such as "C:/".
func isAbsolutePath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && p[2] == '/' &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

func excluded(p string, exclude []domain.URI) bool {
	for _, u := range exclude {
		if u.Path == p {
			return true
		}
	}
	return false
}
