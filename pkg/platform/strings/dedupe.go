// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  a.jpg ", "b.jpg", "a.jpg", "", "  "})
//	// Returns: []string{"a.jpg", "b.jpg"}
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

// NormalizeSearch lowercases a free-text query and collapses runs of
// whitespace into single spaces.
//
// Example:
//
//	NormalizeSearch("  Fresh   BREAD ")
//	// Returns: "fresh bread"
func NormalizeSearch(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// ContainsFold reports whether substr is within s, ignoring case.
// An empty substr always matches.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
