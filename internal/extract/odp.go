package extract

import (
	"fmt"
	"regexp"
)

// odfContentPath is the main content part of OpenDocument packages.
const odfContentPath = "content.xml"

var (
	// odfText matches text paragraphs and headings, with or without spans inside.
	odfText = regexp.MustCompile(`(?s)<text:(?:p|h)[^>]*>(.*?)</text:(?:p|h)>`)
	odfTag  = regexp.MustCompile(`<[^>]+>`)

	odpPage = regexp.MustCompile(`(?s)<draw:page[ >].*?</draw:page>`)
)

// readODFContent returns content.xml of an OpenDocument package.
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

// odfParagraphs returns the text of every paragraph in s, tags stripped.
func odfParagraphs(s string) []string {
	var out []string
	for _, m := range odfText.FindAllStringSubmatch(s, -1) {
		if t := xmlUnescape(odfTag.ReplaceAllString(m[1], "")); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// extractODP returns one page per presentation slide (draw:page).
func extractODP(content []byte) ([]string, error) {
	xml, err := readODFContent(content, "ODP")
	if err != nil {
		return nil, err
	}
	slides := odpPage.FindAllString(xml, -1)
	pages := make([]string, 0, len(slides))
	for _, slide := range slides {
		pages = append(pages, joinLines(odfParagraphs(slide)))
	}
	return pages, nil
}
