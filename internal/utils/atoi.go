// Package utils provides small helpers with no domain knowledge, shared
// across the HTTP and service layers.
package utils

import "strconv"

// AtoiDefault parses s as an integer and falls back to def when s is empty or
// malformed. The HTTP layer uses it for numeric route parameters, where a
// junk value and an absent value are handled the same way.
//
// No trimming is applied: " 42" is malformed on purpose, matching what
// strconv.Atoi accepts.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
