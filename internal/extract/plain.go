package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/folio/internal/models"
)

// extractPlain splits content into pages on form feeds. Invalid UTF-8 sequences
// are replaced with the replacement character.
func extractPlain(content []byte) []models.Page {
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	var pages []models.Page
	for i, part := range strings.Split(text, "\f") {
		pages = appendPage(pages, uint32(i+1), part)
	}
	return pages
}
