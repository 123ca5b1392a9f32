package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxHeaderLength is the length above which a line is never treated as a header.
const maxHeaderLength = 100

var (
	numberedHeadingRe = regexp.MustCompile(`^(?:\d+\.)+\d*\s*\p{Lu}`)
	keywordHeadingRe  = regexp.MustCompile(`^(?:Chapter|Section|Part|Appendix)\s+(?:\d+(?:\.\d+)*|[IVXLC]+|[A-Z])\b`)
)

// IsSectionHeader reports whether line looks like a section heading: a numbered
// heading ("3.1 Introduction"), a keyword heading ("Chapter 4", "Appendix B"), or
// a short line that passes IsLikelyHeader.
//
// The predicates here are heuristics. They trade precision for recall and will
// misclassify some lines in both directions.
func IsSectionHeader(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if numberedHeadingRe.MatchString(line) || keywordHeadingRe.MatchString(line) {
		return true
	}
	return IsLikelyHeader(line)
}

// IsLikelyHeader reports whether a short line has the shape of a heading, a
// running header or a page label.
func IsLikelyHeader(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > maxHeaderLength {
		return false
	}
	words := len(strings.Fields(line))
	first, _ := utf8.DecodeRuneInString(line)
	startsWithDigit := unicode.IsDigit(first)

	if startsWithDigit && words <= 6 {
		return true
	}
	if words <= 5 && isUpperOrDigits(line) {
		return true
	}
	return startsWithDigit && strings.Contains(line, ":") && words <= 8
}

// IsGarbageFragment reports whether text is table-of-contents or page-number
// debris: many dots, almost no letters and at least one digit.
func IsGarbageFragment(text string) bool {
	if strings.Count(text, ".") <= 10 {
		return false
	}
	var letters, digits int
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return letters < 5 && digits >= 1
}

func isUpperOrDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsUpper(r) && !unicode.IsSpace(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
