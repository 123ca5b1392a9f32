package extract

import (
	"fmt"
	"regexp"

	"github.com/hyperjump/folio/internal/models"
)

// odfContentPath is the main content entry of OpenDocument packages.
const odfContentPath = "content.xml"

var (
	odfText      = regexp.MustCompile(`<text:(?:p|h|span)[^>]*>([^<]*)</text:(?:p|h|span)>`)
	odpPageRe    = regexp.MustCompile(`(?s)<draw:page[ >].*?</draw:page>`)
	odsTableRe   = regexp.MustCompile(`(?s)<table:table[ >].*?</table:table>`)
	odsCellRe    = regexp.MustCompile(`(?s)<table:table-cell[^>]*>(.*?)</table:table-cell>`)
	odsRowCloses = regexp.MustCompile(`</table:table-row>`)
)

func readODFContent(content []byte, format string) (string, error) {
	zr, err := openZip(content, format)
	if err != nil {
		return "", err
	}
	data, err := readZipFile(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	if data == nil {
		return "", fmt.Errorf("extract %s: %s not found", format, odfContentPath)
	}
	return string(data), nil
}

// extractODP returns one page per draw:page element.
func extractODP(content []byte) ([]models.Page, error) {
	xml, err := readODFContent(content, "ODP")
	if err != nil {
		return nil, err
	}
	var pages []models.Page
	for i, page := range odpPageRe.FindAllString(xml, -1) {
		pages = appendPage(pages, uint32(i+1), joinText(odfText.FindAllStringSubmatch(page, -1), " "))
	}
	return pages, nil
}

// extractODS returns one page per table:table element; cells are tab-separated
// and rows newline-separated.
func extractODS(content []byte) ([]models.Page, error) {
	xml, err := readODFContent(content, "ODS")
	if err != nil {
		return nil, err
	}
	var pages []models.Page
	for i, table := range odsTableRe.FindAllString(xml, -1) {
		var text string
		for r, row := range odsRowCloses.Split(table, -1) {
			var line string
			for _, cell := range odsCellRe.FindAllStringSubmatch(row, -1) {
				v := joinText(odfText.FindAllStringSubmatch(cell[1], -1), " ")
				if v == "" {
					continue
				}
				if line != "" {
					line += "\t"
				}
				line += v
			}
			if line == "" {
				continue
			}
			if r > 0 && text != "" {
				text += "\n"
			}
			text += line
		}
		pages = appendPage(pages, uint32(i+1), text)
	}
	return pages, nil
}
