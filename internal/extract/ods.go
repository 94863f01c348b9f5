package extract

import (
	"regexp"
	"strings"
)

var (
	odsTable = regexp.MustCompile(`(?s)<table:table[ >].*?</table:table>`)
	odsRow   = regexp.MustCompile(`(?s)<table:table-row[^>]*>.*?</table:table-row>`)
)

// extractODS returns one page per sheet; cells of a row are tab separated.
func extractODS(content []byte) ([]string, error) {
	xml, err := readODFContent(content, "ODS")
	if err != nil {
		return nil, err
	}
	tables := odsTable.FindAllString(xml, -1)
	pages := make([]string, 0, len(tables))
	for _, table := range tables {
		var rows []string
		for _, row := range odsRow.FindAllString(table, -1) {
			if cells := odfParagraphs(row); len(cells) > 0 {
				rows = append(rows, strings.Join(cells, "\t"))
			}
		}
		pages = append(pages, joinLines(rows))
	}
	return pages, nil
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
