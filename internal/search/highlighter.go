package search

import (
	"strings"
	"unicode/utf8"
)

// Highlight shortens content to at most maxLen runes, cutting at the last word
// boundary when there is one, and appends "...".
func Highlight(content string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(content) <= maxLen {
		return content
	}
	cut := string([]rune(content)[:maxLen])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
