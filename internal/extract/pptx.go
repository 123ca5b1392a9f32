package extract

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/hyperjump/folio/internal/models"
)

// slidePathRe matches ppt/slides/slideN.xml and captures N.
var slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// atTag matches <a:t>text</a:t> or <a:t xml:space="preserve">text</a:t> (and any other attributes).
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// extractPPTX returns one page per slide, numbered by the slide file name.
func extractPPTX(content []byte) ([]models.Page, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return nil, err
	}

	type slide struct {
		number uint32
		name   string
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePathRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			continue
		}
		slides = append(slides, slide{number: uint32(n), name: f.Name})
	}
	slices.SortFunc(slides, func(a, b slide) int { return cmp.Compare(a.number, b.number) })

	var pages []models.Page
	for _, s := range slides {
		data, err := readZipFile(zr, s.name)
		if err != nil {
			return nil, fmt.Errorf("extract PPTX: %w", err)
		}
		pages = appendPage(pages, s.number, joinText(atTag.FindAllStringSubmatch(string(data), -1), " "))
	}
	return pages, nil
}
