package indexer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/text"
)

const paragraphSep = "\n\n"

var paragraphBreakRe = regexp.MustCompile(`\n[ \t]*\n`)

// AssembleBySections splits raw page text on paragraph breaks, normalizes each
// paragraph and packs consecutive paragraphs into chunks whose estimated token
// count stays within the budget. Paragraph breaks are kept inside a chunk. A
// paragraph that alone exceeds the budget is split sentence by sentence.
func (c *Chunker) AssembleBySections(page uint32, raw string) []models.Chunk {
	raw = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(raw)
	var (
		chunks []models.Chunk
		cur    []string
	)
	flush := func() {
		if len(cur) > 0 {
			chunks = appendChunk(chunks, page, strings.Join(cur, paragraphSep))
			cur = nil
		}
	}
	for _, p := range paragraphBreakRe.Split(raw, -1) {
		para := text.Normalize(p, c.removeHeaders)
		if para == "" {
			continue
		}
		if EstimateTokens(para) > c.maxTokens {
			flush()
			chunks = append(chunks, c.splitSentences(page, para)...)
			continue
		}
		if len(cur) > 0 && estimateJoined(cur, para) > c.maxTokens {
			flush()
		}
		cur = append(cur, para)
	}
	flush()
	return chunks
}

// splitSentences packs the sentences of an oversize paragraph under the token
// budget. A single sentence over budget becomes its own chunk.
func (c *Chunker) splitSentences(page uint32, para string) []models.Chunk {
	var (
		chunks []models.Chunk
		cur    []string
		runes  int
	)
	for _, s := range c.segmenter.Segment(para) {
		if text.IsSectionHeader(s) {
			continue
		}
		n := utf8.RuneCountInString(s)
		if len(cur) > 0 && (runes+1+n+3)/4 > c.maxTokens {
			chunks = appendChunk(chunks, page, strings.Join(cur, " "))
			cur, runes = nil, 0
		}
		if len(cur) > 0 {
			runes++
		}
		cur = append(cur, s)
		runes += n
	}
	if len(cur) > 0 {
		chunks = appendChunk(chunks, page, strings.Join(cur, " "))
	}
	return chunks
}

func estimateJoined(cur []string, next string) int {
	n := joinedLength(cur, len(paragraphSep)) + len(paragraphSep) + utf8.RuneCountInString(next)
	return (n + 3) / 4
}
