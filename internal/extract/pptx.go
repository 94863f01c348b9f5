package extract

import (
	"fmt"
	"regexp"
)

const pptxSlidePathPrefix = "ppt/slides/slide"

// atTag matches <a:t>text</a:t> with any attributes.
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// extractPPTX returns one page per slide, in slide order.
func extractPPTX(content []byte) ([]string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return nil, err
	}
	slides := numberedEntries(zr, pptxSlidePathPrefix)
	pages := make([]string, 0, len(slides))
	for _, name := range slides {
		data, err := readZipFile(zr, name)
		if err != nil {
			return nil, fmt.Errorf("extract PPTX: %w", err)
		}
		pages = append(pages, joinMatches(atTag, string(data), "\n"))
	}
	return pages, nil
}
