package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hyperjump/folio/internal/models"
	"github.com/xuri/excelize/v2"
)

// extractExcel returns one page per worksheet, rows tab-separated.
func extractExcel(content []byte) ([]models.Page, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var pages []models.Page
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var buf strings.Builder
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
		pages = appendPage(pages, uint32(i+1), strings.TrimSpace(buf.String()))
	}
	return pages, nil
}
