package e2e

import (
	"archive/zip"
	"bytes"
	"html"

	"github.com/xuri/excelize/v2"
)

// FileExtensions are the formats written by WriteFixture. PDF is covered by
// the extract package; a text-bearing PDF is not generated here.
var FileExtensions = []string{".txt", ".md", ".docx", ".xlsx", ".pptx", ".odp", ".ods"}

// WriteFixture returns the bytes of a minimal file of type ext holding text.
func WriteFixture(ext, text string) ([]byte, error) {
	escaped := html.EscapeString(text)
	switch ext {
	case ".docx":
		return zipFile("word/document.xml",
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t xml:space="preserve">`+escaped+`</w:t></w:r></w:p></w:body></w:document>`)
	case ".pptx":
		return zipFile("ppt/slides/slide1.xml",
			`<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>`+escaped+`</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
	case ".odp":
		return zipFile("content.xml",
			`<office:document><office:body><office:presentation><draw:page><text:p>`+escaped+`</text:p></draw:page></office:presentation></office:body></office:document>`)
	case ".ods":
		return zipFile("content.xml",
			`<office:document><office:body><office:spreadsheet><table:table><table:table-row><table:table-cell><text:p>`+escaped+`</text:p></table:table-cell></table:table-row></table:table></office:spreadsheet></office:body></office:document>`)
	case ".xlsx":
		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetCellValue("Sheet1", "A1", text); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if _, err := f.WriteTo(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return []byte(text), nil
	}
}

func zipFile(name, content string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
