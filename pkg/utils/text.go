// Package utils provides shared helpers for logging, vectors and text.
package utils

import "strings"

// Truncate returns s cut to at most maxLen runes, with "..." appended if it was cut.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

// OneLine collapses all runs of whitespace in s to single spaces.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
