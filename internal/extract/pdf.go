package extract

import (
	"bytes"
	"fmt"

	"github.com/hyperjump/folio/internal/models"
	"github.com/ledongthuc/pdf"
)

func extractPDF(content []byte) (pages []models.Page, skipped []*PageError, err error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			skipped = append(skipped, &PageError{Page: uint32(i), Err: err})
			continue
		}
		pages = appendPage(pages, uint32(i), text)
	}
	return pages, skipped, nil
}

// pageText reads one page. The PDF reader panics on some malformed content
// streams; that is reported as an error for the page alone.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page content: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}

// IsPDF reports whether content starts with the PDF header.
func IsPDF(content []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(content, "\x00\t\r\n "), []byte("%PDF-"))
}
