// Package pathutil holds URL path checks shared by the site handler.
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

// Safe rejects paths with NUL bytes, backslashes, ".." anywhere or dot segments.
func Safe(p string) bool {
	if strings.ContainsAny(p, "\x00\\") || strings.Contains(p, "..") {
		return false
	}
	return !HasDotSegments(p)
}
