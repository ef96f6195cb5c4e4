// Package strings provides string slice utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  https://a ", "https://b", "https://a", "", "  "})
//	// Returns: []string{"https://a", "https://b"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// Union returns existing followed by the items of incoming not already present.
// Empty strings are dropped from both sides. Neither input is modified.
//
// Example:
//
//	Union([]string{"a", "b"}, []string{"b", "", "c"})
//	// Returns: []string{"a", "b", "c"}
func Union(existing, incoming []string) []string {
	result := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))

	for _, group := range [][]string{existing, incoming} {
		for _, v := range group {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}

	return result
}
