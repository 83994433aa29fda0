package domain

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// URI schemes with workspace semantics.
const (
	// SchemeFile identifies a resource backed by a real file.
	SchemeFile = "file"

	// SchemePlaceholder identifies a referenced resource that does not exist yet.
	// The path holds the raw reference text.
	SchemePlaceholder = "placeholder"
)

// schemePrefix needs at least two characters so a drive letter is never read as a scheme.
var schemePrefix = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.\-]+):`)

// URI is an immutable resource locator.
//
// Path is always stored POSIX-style and unescaped. Percent-encoding is
// applied only by String and removed only by ParseURI. Two URIs are the
// same resource when IsEqual reports true; Query takes no part in that.
type URI struct {
	Scheme    string
	Authority string
	Path      string
	Query     string
	Fragment  string
}

// ParseURI parses a URI string. Input without a scheme is treated as a
// file reference, so "notes/a.md#intro" yields a relative file URI.
//
// Input that does not fit the grammar (for example a broken percent escape)
// yields the zero URI instead of an error; callers check IsZero.
func ParseURI(value string) URI {
	if value == "" {
		return URI{}
	}

	u := URI{Scheme: SchemeFile}
	rest := value
	if m := schemePrefix.FindStringSubmatch(rest); m != nil {
		u.Scheme = m[1]
		rest = rest[len(m[0]):]
	}

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		fragment, err := url.PathUnescape(rest[i+1:])
		if err != nil {
			return URI{}
		}
		u.Fragment = fragment
		rest = rest[:i]
	}

	if i := strings.IndexByte(rest, '?'); i >= 0 {
		query, err := url.PathUnescape(rest[i+1:])
		if err != nil {
			return URI{}
		}
		u.Query = query
		rest = rest[:i]
	}

	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		end := strings.IndexByte(rest, '/')
		if end < 0 {
			end = len(rest)
		}
		authority, err := url.PathUnescape(rest[:end])
		if err != nil {
			return URI{}
		}
		u.Authority = authority
		rest = rest[end:]
	}

	p, err := url.PathUnescape(rest)
	if err != nil {
		return URI{}
	}
	u.Path = normalizeDrive(p)
	return u
}

// FileURI builds a file URI from a platform path.
// Separators are converted to '/', UNC hosts become the authority and
// drive letters are upper-cased, so c:\x and C:\x produce equal URIs.
func FileURI(fsPath string) URI {
	p := filepath.ToSlash(fsPath)

	authority := ""
	if strings.HasPrefix(p, "//") {
		rest := p[2:]
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			authority, p = rest[:idx], rest[idx:]
		} else {
			authority, p = rest, "/"
		}
	}

	return URI{Scheme: SchemeFile, Authority: authority, Path: normalizeDrive(p)}
}

// PlaceholderURI returns the URI of a referenced-but-missing resource.
func PlaceholderURI(reference string) URI {
	return URI{Scheme: SchemePlaceholder, Path: reference}
}

// IsZero reports whether u is the empty URI returned for unparseable input.
func (u URI) IsZero() bool {
	return u.Scheme == "" && u.Path == ""
}

// IsAbsolute reports whether the path is rooted.
func (u URI) IsAbsolute() bool {
	return strings.HasPrefix(u.Path, "/")
}

// IsPlaceholder reports whether u points at a resource that does not exist yet.
func (u URI) IsPlaceholder() bool {
	return u.Scheme == SchemePlaceholder
}

// IsEqual compares scheme, authority, path and fragment. Query is ignored.
func (u URI) IsEqual(other URI) bool {
	return u.Scheme == other.Scheme &&
		u.Authority == other.Authority &&
		u.Path == other.Path &&
		u.Fragment == other.Fragment
}

// Basename returns the last path segment.
func (u URI) Basename() string {
	return PathBasename(u.Path)
}

// Extension returns the extension of the last path segment, including the dot.
func (u URI) Extension() string {
	return PathExtension(u.Path)
}

// Name returns the basename without its extension.
func (u URI) Name() string {
	base := u.Basename()
	return strings.TrimSuffix(base, PathExtension(base))
}

// Directory returns u with its last path segment removed.
func (u URI) Directory() URI {
	u.Path = path.Dir(u.Path)
	return u
}

// JoinPath appends segments to the path and cleans the result.
func (u URI) JoinPath(segments ...string) URI {
	u.Path = path.Join(append([]string{u.Path}, segments...)...)
	return u
}

// RelativeTo returns u with its path expressed relative to other's path.
// other is treated as a directory, so pass other.Directory() for files.
func (u URI) RelativeTo(other URI) URI {
	u.Path = relativePath(other.Path, u.Path)
	return u
}

// ChangeExtension swaps the extension from -> to. from may be "*" to
// replace any extension that is not already to.
func (u URI) ChangeExtension(from, to string) URI {
	u.Path = ChangePathExtension(u.Path, from, to)
	return u
}

// WithFragment returns u with its fragment replaced.
func (u URI) WithFragment(fragment string) URI {
	u.Fragment = fragment
	return u
}

// WithoutFragment returns u with its fragment cleared.
func (u URI) WithoutFragment() URI {
	u.Fragment = ""
	return u
}

// Resolve parses reference and resolves it against u.
func (u URI) Resolve(reference string, isDirectory bool) URI {
	return u.ResolveURI(ParseURI(reference), isDirectory)
}

// ResolveURI resolves a reference against u.
//
// Absolute references and schemes other than file/placeholder are returned
// unchanged. Otherwise the reference path is joined to u's directory (or u
// itself when isDirectory), gains u's extension when it has none, and the
// reference fragment is always carried over.
func (u URI) ResolveURI(ref URI, isDirectory bool) URI {
	if ref.IsAbsolute() {
		return ref
	}
	if ref.Scheme != SchemeFile && ref.Scheme != SchemePlaceholder {
		return ref
	}

	resolved := u.WithFragment(ref.Fragment)
	if ref.Path != "" {
		base := resolved
		if !isDirectory {
			base = resolved.Directory()
		}
		resolved = base.JoinPath(ref.Path).ChangeExtension("", u.Extension())
	}
	return resolved
}

// FsPath converts u back into a platform path.
func (u URI) FsPath() string {
	p := u.Path
	if hasDrivePrefix(p) {
		p = p[1:]
	}
	if u.Scheme == SchemeFile && u.Authority != "" {
		p = "//" + u.Authority + p
	}
	return filepath.FromSlash(p)
}

// String serialises u, percent-encoding each component.
func (u URI) String() string {
	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteByte(':')
	}
	if u.Authority != "" || (u.Scheme == SchemeFile && (u.Path == "" || u.IsAbsolute())) {
		b.WriteString("//")
		b.WriteString(url.PathEscape(u.Authority))
	}
	b.WriteString(escapePath(u.Path))
	if u.Query != "" {
		b.WriteByte('?')
		b.WriteString(url.PathEscape(u.Query))
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(url.PathEscape(u.Fragment))
	}
	return b.String()
}

// PathBasename returns the last segment of a POSIX path, or "" for the root.
func PathBasename(p string) string {
	if p == "" {
		return ""
	}
	base := path.Base(p)
	if base == "/" {
		return ""
	}
	return base
}

// PathExtension returns the extension of the last segment of a POSIX path.
func PathExtension(p string) string {
	return path.Ext(PathBasename(p))
}

// ChangePathExtension swaps the extension of p from -> to.
// With from == "*" any extension other than to is replaced.
func ChangePathExtension(p, from, to string) string {
	old := PathExtension(p)
	if (from == "*" && old != to) || from == old {
		return p[:len(p)-len(old)] + to
	}
	return p
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func normalizeDrive(p string) string {
	if hasDrivePrefix(p) {
		return "/" + strings.ToUpper(p[1:2]) + p[2:]
	}
	if len(p) >= 2 && isASCIILetter(p[0]) && p[1] == ':' && (len(p) == 2 || p[2] == '/') {
		return "/" + strings.ToUpper(p[:1]) + p[1:]
	}
	return p
}

func hasDrivePrefix(p string) bool {
	return len(p) >= 3 && p[0] == '/' && isASCIILetter(p[1]) && p[2] == ':' &&
		(len(p) == 3 || p[3] == '/')
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func relativePath(from, to string) string {
	fromParts := splitPath(from)
	toParts := splitPath(to)

	common := 0
	for common < len(fromParts) && common < len(toParts) && fromParts[common] == toParts[common] {
		common++
	}

	parts := make([]string, 0, len(fromParts)-common+len(toParts)-common)
	for range fromParts[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, toParts[common:]...)
	return strings.Join(parts, "/")
}

func splitPath(p string) []string {
	cleaned := strings.Trim(path.Clean("/"+p), "/")
	if cleaned == "" {
		return nil
	}
	return strings.Split(cleaned, "/")
}
