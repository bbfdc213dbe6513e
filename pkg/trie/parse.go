package trie

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by Validate.
var (
	ErrEmptyPattern    = errors.New("route pattern is empty")
	ErrPatternPrefix   = errors.New("route pattern must begin with '/'")
	ErrWildcardNotLast = errors.New("wildcard segment must be the last segment")
	ErrEmptyParamName  = errors.New("parameter segment has an empty name")
	ErrDuplicateParam  = errors.New("parameter name used more than once")
)

// ParsePattern splits a pattern or request path into its segments.
// Empty segments are dropped, so "/a//b/" and "/a/b" parse the same.
// Parsing stops after the first segment starting with '*'; everything after it
// is covered by the wildcard.
func ParsePattern(pattern string) []string {
	vs := strings.Split(pattern, "/")
	parts := make([]string, 0, len(vs))
	for _, item := range vs {
		if item == "" {
			continue
		}
		parts = append(parts, item)
		if item[0] == '*' {
			break
		}
	}
	return parts
}

// Validate checks that a route pattern is well formed.
// The returned error wraps one of the sentinel errors of this package.
func Validate(pattern string) error {
	if pattern == "" {
		return ErrEmptyPattern
	}
	if pattern[0] != '/' {
		return fmt.Errorf("%w: %q", ErrPatternPrefix, pattern)
	}

	seen := make(map[string]struct{})
	segments := strings.Split(pattern, "/")
	wildcardAt := -1
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if wildcardAt >= 0 {
			return fmt.Errorf("%w: %q", ErrWildcardNotLast, pattern)
		}
		if seg[0] != ':' && seg[0] != '*' {
			continue
		}
		if seg[0] == '*' {
			wildcardAt = i
		}
		name := seg[1:]
		if name == "" {
			return fmt.Errorf("%w: %q", ErrEmptyParamName, pattern)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q in %q", ErrDuplicateParam, name, pattern)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// IsWild reports whether a segment is a parameter or a wildcard.
func IsWild(segment string) bool {
	return segment != "" && (segment[0] == ':' || segment[0] == '*')
}
