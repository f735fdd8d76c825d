// Package normalize turns raw selector results into Article field values.
package normalize

import (
	"strings"

	"github.com/IshaanNene/harvestgoat/internal/selector"
)

// Text trims a scalar value. The bool is false when the value is absent.
func Text(v any) (string, bool) {
	s, ok := selector.String(v)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// Title trims and collapses runs of whitespace, including full-width spaces,
// into single spaces.
func Title(v any) (string, bool) {
	s, ok := selector.String(v)
	if !ok {
		return "", false
	}
	return strings.Join(strings.Fields(s), " "), true
}

// Optional returns a trimmed pointer, or nil when the value is absent or blank.
func Optional(v any) *string {
	s, ok := Text(v)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// FirstLine returns the first non-blank line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// LastLine returns the last non-blank line of s, trimmed.
func LastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
