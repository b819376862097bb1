// Package strings provides helpers for lists of short string tokens such as
// role names and status codes taken from request input.
package strings

import (
	"strings"
)

// DedupeAndTrimLower trims, lowercases and removes empty or duplicate
// elements. Order is preserved.
//
// Example:
//
//	DedupeAndTrimLower([]string{"  ADMIN ", "user", "Admin", ""})
//	// Returns: []string{"admin", "user"}
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.ToLower(strings.TrimSpace(v))
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

// WithinBounds reports whether the list has at most maxItems elements and
// every element is at most maxLen bytes long.
func WithinBounds(values []string, maxItems, maxLen int) bool {
	if len(values) > maxItems {
		return false
	}
	for _, v := range values {
		if len(v) > maxLen {
			return false
		}
	}
	return true
}

// SplitCSV splits a comma separated query value into normalized tokens.
func SplitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return DedupeAndTrimLower(strings.Split(raw, ","))
}
