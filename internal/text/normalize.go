// Package text cleans extracted page text and splits it into sentences.
package text

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// minLetterRatio is the share of letters among a line's non-space characters
	// below which the line is dropped as noise.
	minLetterRatio = 0.25
	// leaderRatio is the share of separators and digits above which a line with
	// enough separators is a table-of-contents row.
	leaderRatio  = 0.75
	minLeaderRun = 5
)

var (
	trailingLeaderRe = regexp.MustCompile(`(?:[.\x{00B7}\x{2026}\x{2024}\x{2025}]\s*){5,}\d+$`)

	invisibleReplacer = strings.NewReplacer(
		"\u200b", "", // zero-width space
		"\u200c", "",
		"\u200d", "",
		"\u2060", "",
		"\ufeff", "",
		"\u00ad", "", // soft hyphen
		"\u00a0", " ",
		"\u202f", " ",
		"\u2007", " ",
	)

	lineBreakReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Normalize cleans raw extracted page text into a single line of prose.
//
// Lines that look like headers (when removeHeaders is set), table-of-contents
// leader rows, or mostly non-letter noise are dropped. Hyphenated line breaks are
// joined, the remaining lines are merged, control characters are stripped,
// whitespace is collapsed, ligatures and invisible characters are mapped to plain
// text and runs of three or more identical punctuation marks are collapsed.
//
// Character-level cleanup runs before line classification so that the header and
// noise predicates see the same text on every pass; Normalize(Normalize(s)) is
// equal to Normalize(s) for ordinary prose.
func Normalize(raw string, removeHeaders bool) string {
	s := strings.ToValidUTF8(raw, "")
	s = lineBreakReplacer.Replace(s)
	s = canonicalChars(s)

	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			kept = append(kept, "")
			continue
		}
		if removeHeaders && IsSectionHeader(trimmed) {
			continue
		}
		if isLeaderRow(trimmed) {
			continue
		}
		if letterRatio(trimmed) < minLetterRatio {
			continue
		}
		kept = append(kept, trimmed)
	}

	s = joinLines(kept)
	s = strings.Join(strings.Fields(s), " ")
	s = collapsePunctuation(s)
	return strings.TrimSpace(s)
}

// canonicalChars maps ligatures and invisible characters to plain text and
// strips control characters other than newline and tab.
func canonicalChars(s string) string {
	s = invisibleReplacer.Replace(s)
	if strings.ContainsFunc(s, isLigature) {
		var b strings.Builder
		b.Grow(len(s))
		for _, r := range s {
			if isLigature(r) {
				b.WriteString(norm.NFKC.String(string(r)))
				continue
			}
			b.WriteRune(r)
		}
		s = b.String()
	}
	stripControl := runes.Remove(runes.Predicate(func(r rune) bool {
		return unicode.IsControl(r) && r != '\n' && r != '\t'
	}))
	out, _, err := transform.String(stripControl, s)
	if err != nil {
		return s
	}
	return out
}

func isLigature(r rune) bool {
	return r >= '\ufb00' && r <= '\ufb06'
}

func isLeaderRune(r rune) bool {
	switch r {
	case '.', '\u00b7', '\u2026', '\u2024', '\u2025':
		return true
	}
	return false
}

// isLeaderRow reports whether line is a table-of-contents row such as
// ". . . . . 42" or "Introduction ........ 3".
func isLeaderRow(line string) bool {
	var seps, digits, nonSpace int
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		nonSpace++
		switch {
		case isLeaderRune(r):
			seps++
		case unicode.IsDigit(r):
			digits++
		}
	}
	if seps < minLeaderRun {
		return false
	}
	if float64(seps+digits)/float64(nonSpace) > leaderRatio {
		return true
	}
	return trailingLeaderRe.MatchString(line)
}

func letterRatio(line string) float64 {
	var letters, nonSpace int
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		nonSpace++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if nonSpace == 0 {
		return 0
	}
	return float64(letters) / float64(nonSpace)
}

// joinLines merges lines into one stream. A trailing hyphen is a mid-word break
// and is removed together with the line break. A line ending in terminal
// punctuation keeps its break; other lines are joined with a space.
func joinLines(lines []string) string {
	buf := make([]byte, 0, 256)
	for i, line := range lines {
		if i > 0 {
			n := len(buf)
			switch {
			case n > 0 && buf[n-1] == '-':
				buf = buf[:n-1]
			case n > 0 && (buf[n-1] == '.' || buf[n-1] == '!' || buf[n-1] == '?'):
				buf = append(buf, '\n')
			default:
				buf = append(buf, ' ')
			}
		}
		buf = append(buf, line...)
	}
	return string(buf)
}

// collapsePunctuation reduces runs of three or more identical punctuation
// characters to a single instance.
func collapsePunctuation(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(rs); {
		r := rs[i]
		j := i + 1
		for j < len(rs) && rs[j] == r {
			j++
		}
		if j-i >= 3 && unicode.IsPunct(r) {
			b.WriteRune(r)
		} else {
			for k := i; k < j; k++ {
				b.WriteRune(r)
			}
		}
		i = j
	}
	return b.String()
}
