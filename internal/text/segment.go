package text

import (
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

// Segmenter splits text into an ordered sequence of sentences.
type Segmenter interface {
	Segment(text string) []string
}

// UnicodeSegmenter finds sentence boundaries with the Unicode text segmentation
// rules (UAX #29). It does not break inside decimals such as "3.14" or before a
// lowercase continuation ("e.g. this"). Abbreviations followed by a capitalized
// word ("Dr. Smith") still break.
type UnicodeSegmenter struct{}

// Segment returns the trimmed, non-empty sentences of text in source order.
func (UnicodeSegmenter) Segment(text string) []string {
	var sentences []string
	state := -1
	rest := text
	for len(rest) > 0 {
		var sentence string
		sentence, rest, state = uniseg.FirstSentenceInString(rest, state)
		if sentence = strings.TrimSpace(sentence); sentence != "" {
			sentences = append(sentences, sentence)
		}
	}
	return sentences
}

var terminalRe = regexp.MustCompile(`[.!?]+\s+`)

// SimpleSegmenter splits after '.', '!' or '?' followed by whitespace. It breaks
// on every abbreviation.
type SimpleSegmenter struct{}

// Segment returns the trimmed, non-empty sentences of text in source order.
func (SimpleSegmenter) Segment(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range terminalRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Segment splits text with the default UnicodeSegmenter.
func Segment(text string) []string {
	return UnicodeSegmenter{}.Segment(text)
}
