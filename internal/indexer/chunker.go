// Package indexer turns document pages into chunks, embeds them and writes them
// to a vector collection.
package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/text"
)

// Strategy selects how page text is packed into chunks.
type Strategy string

const (
	// StrategySentences accumulates sentences up to a target size with sentence overlap.
	StrategySentences Strategy = "sentences"
	// StrategySections packs paragraphs under a token budget.
	StrategySections Strategy = "sections"
)

// ParseStrategy converts a config value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategySentences, "":
		return StrategySentences, nil
	case StrategySections:
		return StrategySections, nil
	default:
		return "", fmt.Errorf("unknown chunking strategy %q", s)
	}
}

// Chunker splits page text into bounded chunks. A chunk never spans two pages.
// Chunker is safe for concurrent use.
type Chunker struct {
	strategy      Strategy
	targetSize    int
	overlap       int
	maxTokens     int
	removeHeaders bool
	workers       int
	segmenter     text.Segmenter
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithStrategy sets the packing strategy.
func WithStrategy(s Strategy) ChunkerOption {
	return func(c *Chunker) { c.strategy = s }
}

// WithTargetSize sets the character length at which a sentence buffer is emitted.
func WithTargetSize(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.targetSize = n
		}
	}
}

// WithOverlap sets how many trailing sentences seed the next chunk.
func WithOverlap(n int) ChunkerOption {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// WithMaxTokens sets the token budget for the sections strategy.
func WithMaxTokens(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithRemoveHeaders toggles header line removal during normalization.
func WithRemoveHeaders(remove bool) ChunkerOption {
	return func(c *Chunker) { c.removeHeaders = remove }
}

// WithWorkers bounds the number of pages chunked concurrently.
func WithWorkers(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithSegmenter replaces the sentence segmenter.
func WithSegmenter(s text.Segmenter) ChunkerOption {
	return func(c *Chunker) {
		if s != nil {
			c.segmenter = s
		}
	}
}

// NewChunker creates a chunker. Defaults: sentences strategy, 200 character
// target, one sentence of overlap, 128 token budget, header removal on.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		strategy:      StrategySentences,
		targetSize:    200,
		overlap:       1,
		maxTokens:     128,
		removeHeaders: true,
		workers:       4,
		segmenter:     text.UnicodeSegmenter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkPage normalizes and chunks a single page with the configured strategy.
func (c *Chunker) ChunkPage(p models.Page) []models.Chunk {
	if c.strategy == StrategySections {
		return c.AssembleBySections(p.Number, p.Content)
	}
	return c.Assemble(p.Number, c.segmenter.Segment(text.Normalize(p.Content, c.removeHeaders)))
}

// Assemble packs sentences from one page into chunks. Header sentences are
// skipped. Once the buffer reaches the target size it is emitted and the next
// buffer starts with the last overlap sentences of the emitted one. A trailing
// buffer holding at least one new sentence is always emitted.
func (c *Chunker) Assemble(page uint32, sentences []string) []models.Chunk {
	var (
		chunks []models.Chunk
		buf    []string
		length int
		fresh  int
	)
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" || text.IsSectionHeader(s) {
			continue
		}
		if len(buf) > 0 {
			length++
		}
		buf = append(buf, s)
		length += utf8.RuneCountInString(s)
		fresh++
		if length >= c.targetSize {
			chunks = appendChunk(chunks, page, strings.Join(buf, " "))
			buf = tail(buf, c.overlap)
			length = joinedLength(buf, 1)
			fresh = 0
		}
	}
	if fresh > 0 {
		chunks = appendChunk(chunks, page, strings.Join(buf, " "))
	}
	return chunks
}

// EstimateTokens approximates a token count as one token per four characters,
// rounded up. It is not a tokenizer.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// appendChunk adds content as a chunk unless it is empty or garbage.
func appendChunk(chunks []models.Chunk, page uint32, content string) []models.Chunk {
	content = strings.TrimSpace(content)
	if content == "" || text.IsGarbageFragment(content) {
		return chunks
	}
	return append(chunks, models.Chunk{Content: content, Page: page})
}

func tail(buf []string, n int) []string {
	if n <= 0 || len(buf) == 0 {
		return nil
	}
	if n > len(buf) {
		n = len(buf)
	}
	out := make([]string, n)
	copy(out, buf[len(buf)-n:])
	return out
}

func joinedLength(parts []string, sep int) int {
	n := 0
	for i, p := range parts {
		if i > 0 {
			n += sep
		}
		n += utf8.RuneCountInString(p)
	}
	return n
}
