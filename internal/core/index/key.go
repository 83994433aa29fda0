package index

import (
	"slices"
	"strings"
)

// ReverseKey returns the radix key for a POSIX path: the lower-cased path
// segments in reverse order, joined by '/'. A key without any '/' gets a
// trailing one, so the key for "file" is not a prefix of the key for "file2".
func ReverseKey(p string) string {
	tokens := strings.Split(strings.ToLower(p), "/")
	slices.Reverse(tokens)
	key := strings.Join(tokens, "/")
	if !strings.Contains(key, "/") {
		key += "/"
	}
	return key
}

// identifierPrefix is the key prefix shared by every path ending in identifier.
// It always ends at a segment boundary so "car/todo" does not match "carpet/todo".
func identifierPrefix(identifier string) string {
	key := ReverseKey(identifier)
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return key
}

// reverseTokens splits p on '/' and reverses the result, so index 0 is the basename.
func reverseTokens(p string) []string {
	tokens := strings.Split(p, "/")
	slices.Reverse(tokens)
	return tokens
}

// joinForward reverses tokens back into path order and joins the non-empty ones.
func joinForward(tokens []string) string {
	forward := make([]string, 0, len(tokens))
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i] != "" {
			forward = append(forward, tokens[i])
		}
	}
	return strings.Join(forward, "/")
}
