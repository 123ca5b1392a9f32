package embedding

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
// All three slices have length maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

const (
	clsTokenID = 101
	sepTokenID = 102
)

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs, used when no
// tokenizer file is available.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	words := SplitWords(text)
	ids := make([]int64, len(words))
	for i, word := range words {
		ids[i] = int64(HashString(word)%30000) + 1000
	}
	return frame(ids, maxTokens, clsTokenID, sepTokenID, 0)
}

// frame wraps ids in [CLS] ... [SEP], truncating and padding to maxTokens.
func frame(ids []int64, maxTokens int, cls, sep, pad int64) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	if len(ids) > maxTokens-2 {
		ids = ids[:maxTokens-2]
	}
	inputIDs[0] = cls
	copy(inputIDs[1:], ids)
	inputIDs[len(ids)+1] = sep
	for i := range len(ids) + 2 {
		attentionMask[i] = 1
	}
	for i := len(ids) + 2; i < maxTokens; i++ {
		inputIDs[i] = pad
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// WordPieceTokenizer implements BERT WordPiece tokenization from a Hugging Face
// tokenizer.json vocabulary.
type WordPieceTokenizer struct {
	vocab        map[string]int64
	prefix       string
	maxWordChars int
	lowercase    bool
	stripAccents bool
	unk          int64
	cls          int64
	sep          int64
	pad          int64
}

type tokenizerFile struct {
	Normalizer *struct {
		Lowercase    *bool `json:"lowercase"`
		StripAccents *bool `json:"strip_accents"`
	} `json:"normalizer"`
	Model struct {
		Type                    string           `json:"type"`
		Vocab                   map[string]int64 `json:"vocab"`
		UnkToken                string           `json:"unk_token"`
		ContinuingSubwordPrefix string           `json:"continuing_subword_prefix"`
		MaxInputCharsPerWord    int              `json:"max_input_chars_per_word"`
	} `json:"model"`
}

// LoadWordPieceTokenizer reads a tokenizer.json file with a WordPiece model.
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer: %w", err)
	}
	return ParseWordPieceTokenizer(data)
}

// ParseWordPieceTokenizer parses tokenizer.json content.
func ParseWordPieceTokenizer(data []byte) (*WordPieceTokenizer, error) {
	var f tokenizerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tokenizer: %w", err)
	}
	if f.Model.Type != "" && f.Model.Type != "WordPiece" {
		return nil, fmt.Errorf("unsupported tokenizer model %q", f.Model.Type)
	}
	if len(f.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer has an empty vocabulary")
	}

	t := &WordPieceTokenizer{
		vocab:        f.Model.Vocab,
		prefix:       f.Model.ContinuingSubwordPrefix,
		maxWordChars: f.Model.MaxInputCharsPerWord,
		lowercase:    true,
		stripAccents: true,
	}
	if t.prefix == "" {
		t.prefix = "##"
	}
	if t.maxWordChars <= 0 {
		t.maxWordChars = 100
	}
	if f.Normalizer != nil {
		if f.Normalizer.Lowercase != nil {
			t.lowercase = *f.Normalizer.Lowercase
		}
		if f.Normalizer.StripAccents != nil {
			t.stripAccents = *f.Normalizer.StripAccents
		} else {
			t.stripAccents = t.lowercase
		}
	}

	unk := f.Model.UnkToken
	if unk == "" {
		unk = "[UNK]"
	}
	var ok bool
	if t.unk, ok = t.vocab[unk]; !ok {
		return nil, fmt.Errorf("tokenizer vocabulary has no %s token", unk)
	}
	if t.cls, ok = t.vocab["[CLS]"]; !ok {
		t.cls = clsTokenID
	}
	if t.sep, ok = t.vocab["[SEP]"]; !ok {
		t.sep = sepTokenID
	}
	t.pad = t.vocab["[PAD]"]
	return t, nil
}

// Tokenize produces [CLS] wordpieces [SEP], truncated and padded to maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	var ids []int64
	for _, word := range t.preTokenize(text) {
		ids = append(ids, t.wordPiece(word)...)
		if maxTokens > 0 && len(ids) >= maxTokens {
			break
		}
	}
	return frame(ids, maxTokens, t.cls, t.sep, t.pad)
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func (t *WordPieceTokenizer) preTokenize(text string) []string {
	if t.lowercase {
		text = strings.ToLower(text)
	}
	if t.stripAccents {
		if stripped, _, err := transform.String(accentStripper, text); err == nil {
			text = stripped
		}
	}

	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush()
		case isSplitRune(r):
			flush()
			words = append(words, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func isSplitRune(r rune) bool {
	if r < 128 && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return true
	}
	return unicode.IsPunct(r) || unicode.Is(unicode.Han, r)
}

func (t *WordPieceTokenizer) wordPiece(word string) []int64 {
	chars := []rune(word)
	if len(chars) > t.maxWordChars {
		return []int64{t.unk}
	}
	var pieces []int64
	for start := 0; start < len(chars); {
		end := len(chars)
		found := false
		for ; end > start; end-- {
			sub := string(chars[start:end])
			if start > 0 {
				sub = t.prefix + sub
			}
			if id, ok := t.vocab[sub]; ok {
				pieces = append(pieces, id)
				found = true
				break
			}
		}
		if !found {
			return []int64{t.unk}
		}
		start = end
	}
	return pieces
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	var h uint32
	for _, c := range s {
		h = 31*h + uint32(c)
	}
	return int(h & 0x7fffffff)
}
