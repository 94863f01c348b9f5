package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as pages split on form feeds, the page break
// written by pdftotext and similar tools. Invalid UTF-8 is replaced.
func extractPlain(content []byte) ([]string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	pages := strings.Split(s, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages, nil
}
