// Package pathutil validates request paths before they become WordPress
// URIs or cache keys.
package pathutil

import "strings"

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// maxURILen bounds URIs used as cache keys.
const maxURILen = 1024

// CleanURI normalizes a request path to the WordPress URI form, with a
// leading and a trailing slash and no repeated slashes. ok is false for
// paths that cannot name content: dot segments, backslashes, NUL or
// control bytes, or overlong input.
func CleanURI(p string) (uri string, ok bool) {
	if len(p) > maxURILen || HasDotSegments(p) {
		return "", false
	}
	for i := 0; i < len(p); i++ {
		if c := p[i]; c < 0x20 || c == 0x7f || c == '\\' {
			return "", false
		}
	}
	var b strings.Builder
	b.Grow(len(p) + 2)
	b.WriteByte('/')
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		b.WriteString(seg)
		b.WriteByte('/')
	}
	return b.String(), true
}
