// Package extract reads document files and returns their text page by page.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hyperjump/folio/internal/models"
)

// PageError reports a page that could not be read. The page is skipped and the
// rest of the document is still returned.
type PageError struct {
	Page uint32
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Extractor extracts per-page text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

var supportedExtensions = []string{".pdf", ".txt", ".md", ".rst", ".docx", ".xlsx", ".pptx", ".odp", ".ods"}

// SupportedExtensions returns the file extensions with a dedicated reader.
func SupportedExtensions() []string {
	return slices.Clone(supportedExtensions)
}

// IsSupported reports whether ext (with leading dot, any case) has a dedicated reader.
func IsSupported(ext string) bool {
	return slices.Contains(supportedExtensions, strings.ToLower(ext))
}

// ExtractPages reads the file at path and returns its pages in order, plus the
// pages that were skipped. Pages with no text are omitted; numbering is kept.
func (e *Extractor) ExtractPages(path string) ([]models.Page, []*PageError, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractPagesBytes(content, ext)
}

// ExtractPagesBytes extracts pages from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read
// as plain text.
func (e *Extractor) ExtractPagesBytes(content []byte, ext string) ([]models.Page, []*PageError, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		pages, err := extractDOCX(content)
		return pages, nil, err
	case ".xlsx":
		pages, err := extractExcel(content)
		return pages, nil, err
	case ".pptx":
		pages, err := extractPPTX(content)
		return pages, nil, err
	case ".odp":
		pages, err := extractODP(content)
		return pages, nil, err
	case ".ods":
		pages, err := extractODS(content)
		return pages, nil, err
	default:
		return extractPlain(content), nil, nil
	}
}

// appendPage adds a page unless its text is blank.
func appendPage(pages []models.Page, number uint32, content string) []models.Page {
	if strings.TrimSpace(content) == "" {
		return pages
	}
	return append(pages, models.Page{Number: number, Content: content})
}
