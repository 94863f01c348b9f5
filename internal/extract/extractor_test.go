package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/askpdf/internal/models"
	"github.com/xuri/excelize/v2"
)

func TestExtractPages_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractPages([]byte("Hello world\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Hello world\nLine 2"}) {
		t.Errorf("got %q", got)
	}
}

func TestExtractPages_plainFormFeed(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractPages([]byte("page one\fpage two\f"), ".txt")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"page one", "page two"}) {
		t.Errorf("got %q", got)
	}
}

func TestExtractPages_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractPages([]byte("hello\x80world"), ".rst")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if got[0] != "hello\uFFFDworld" {
		t.Errorf("got %q", got[0])
	}
}

func TestExtractPages_unknownExtension(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractPages([]byte("raw content"), ".xyz")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(got) != 1 || got[0] != "raw content" {
		t.Errorf("got %q", got)
	}
}

func TestExtractPages_excelSheetsArePages(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	if _, err := f.NewSheet("Totals"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Totals", "A1", "Sum")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	e := NewExtractor()
	got, err := e.ExtractPages(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pages, got %d: %q", len(got), got)
	}
	if got[0] != "Title\nValue 1\tValue 2\n" || got[1] != "Sum\n" {
		t.Errorf("got %q", got)
	}
}

// minimalDocx returns a .docx zip whose body holds the given paragraph XML.
func minimalDocx(body string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func para(text string) string {
	return `<w:p w:rsidR="00A1"><w:pPr><w:jc w:val="left"/></w:pPr><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func TestExtractPages_docxParagraphs(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractPages(minimalDocx(para("First")+para("Second &amp; last")), ".docx")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"First\nSecond & last"}) {
		t.Errorf("got %q", got)
	}
}

func TestExtractPages_docxPageBreak(t *testing.T) {
	e := NewExtractor()
	breakPara := `<w:p><w:r><w:t>End of one</w:t><w:br w:type="page"/></w:r></w:p>`
	got, err := e.ExtractPages(minimalDocx(para("Start")+breakPara+para("Two")), ".docx")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Start\nEnd of one", "Two"}) {
		t.Errorf("got %q", got)
	}
}

func TestExtractPages_docxContentTypes(t *testing.T) {
	tests := []struct {
		name     string
		override string
	}{
		{"part name first", `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`},
		{"content type first", `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := zip.NewWriter(&buf)
			ct, _ := w.Create("[Content_Types].xml")
			_, _ = ct.Write([]byte(`<Types>` + tt.override + `</Types>`))
			fw, _ := w.Create("word/document2.xml")
			_, _ = fw.Write([]byte(`<w:document><w:body>` + para("From document2") + `</w:body></w:document>`))
			_ = w.Close()

			got, err := NewExtractor().ExtractPages(buf.Bytes(), ".docx")
			if err != nil {
				t.Fatalf("ExtractPages: %v", err)
			}
			if !reflect.DeepEqual(got, []string{"From document2"}) {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtractPages_docxMissingBody(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, _ = w.Create("other.xml")
	_ = w.Close()
	if _, err := NewExtractor().ExtractPages(buf.Bytes(), ".docx"); err == nil {
		t.Error("expected error when document.xml is missing")
	}
}

func slideXML(text string) string {
	return `<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
}

func TestExtractPages_pptxSlideOrder(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, s := range []struct{ name, text string }{
		{"ppt/slides/slide10.xml", "Tenth"},
		{"ppt/slides/slide2.xml", "Second"},
		{"ppt/slides/slide1.xml", "First"},
		{"ppt/slides/_rels/slide1.xml.rels", "ignored"},
	} {
		fw, _ := w.Create(s.name)
		_, _ = fw.Write([]byte(slideXML(s.text)))
	}
	_ = w.Close()

	got, err := NewExtractor().ExtractPages(buf.Bytes(), ".pptx")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"First", "Second", "Tenth"}) {
		t.Errorf("got %q", got)
	}
}

func TestExtractPages_pptxNotZip(t *testing.T) {
	if _, err := NewExtractor().ExtractPages([]byte("not a zip"), ".pptx"); err == nil {
		t.Error("expected error for invalid pptx")
	}
}

func odfPackage(contentXML string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("content.xml")
	_, _ = fw.Write([]byte(contentXML))
	_ = w.Close()
	return buf.Bytes()
}

func TestExtractPages_odpSlides(t *testing.T) {
	contentXML := `<office:document><office:body><office:presentation>` +
		`<draw:page draw:name="p1"><text:h>Slide title</text:h><text:p>Body <text:span>text</text:span></text:p></draw:page>` +
		`<draw:page draw:name="p2"><text:p>Second slide</text:p></draw:page>` +
		`</office:presentation></office:body></office:document>`
	got, err := NewExtractor().ExtractPages(odfPackage(contentXML), ".odp")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Slide title\nBody text", "Second slide"}) {
		t.Errorf("got %q", got)
	}
}

func TestExtractPages_odsSheets(t *testing.T) {
	contentXML := `<office:document><office:body><office:spreadsheet>` +
		`<table:table table:name="A"><table:table-row><table:table-cell><text:p>Cell A</text:p></table:table-cell><table:table-cell><text:p>Cell B</text:p></table:table-cell></table:table-row></table:table>` +
		`<table:table><table:table-row><table:table-cell><text:p>Other</text:p></table:table-cell></table:table-row></table:table>` +
		`</office:spreadsheet></office:body></office:document>`
	got, err := NewExtractor().ExtractPages(odfPackage(contentXML), ".ods")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Cell A\tCell B", "Other"}) {
		t.Errorf("got %q", got)
	}
}

func TestExtractPages_odfContentNotFound(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, _ = w.Create("other.xml")
	_ = w.Close()
	for _, ext := range []string{".odp", ".ods"} {
		if _, err := NewExtractor().ExtractPages(buf.Bytes(), ext); err == nil {
			t.Errorf("%s: expected error when content.xml missing", ext)
		}
	}
}

func TestExtractPages_markdownSections(t *testing.T) {
	md := "Intro with **bold** text.\n\n# Setup\n\nInstall it.\n\n```\ngo build\n```\n\n### Detail\n\nStill setup.\n\n## Usage\n\n- one\n- two\n"
	got, err := NewExtractor().ExtractPages([]byte(md), ".md")
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	want := []string{
		"Intro with bold text.",
		"Setup\n\nInstall it.\n\ngo build\n\nDetail\n\nStill setup.",
		"Usage\n\none\ntwo",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestExtractPages_pdfInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractPages([]byte("%PDF-1.4 garbage"), ".pdf"); err == nil {
		t.Error("expected error for corrupt PDF")
	}
}

func TestNewDocument(t *testing.T) {
	e := NewExtractor()
	doc, err := e.NewDocument("notes.txt", []byte("line  \r\nnext\x00 line\r\n"))
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	if doc.Name != "notes.txt" || doc.Size != int64(len("line  \r\nnext\x00 line\r\n")) {
		t.Errorf("unexpected document %+v", doc)
	}
	if !reflect.DeepEqual(doc.Pages, []string{"line\nnext line"}) {
		t.Errorf("pages not normalised: %q", doc.Pages)
	}
}

func TestNewDocument_extractionError(t *testing.T) {
	_, err := NewExtractor().NewDocument("broken.pdf", []byte("not a pdf"))
	var xe *models.ExtractionError
	if !errors.As(err, &xe) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if xe.Source != "broken.pdf" {
		t.Errorf("Source = %q", xe.Source)
	}
}

func TestNewDocument_noPages(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, _ = w.Create("docProps/core.xml")
	_ = w.Close()
	_, err := NewExtractor().NewDocument("empty.pptx", buf.Bytes())
	if !errors.Is(err, models.ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	doc, err := NewExtractor().LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if doc.Name != "test.txt" || doc.PageCount() != 1 || doc.Pages[0] != "File content" {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestLoadDocument_nonexistent(t *testing.T) {
	_, err := NewExtractor().LoadDocument("/nonexistent/path/file.txt")
	var xe *models.ExtractionError
	if !errors.As(err, &xe) {
		t.Errorf("expected ExtractionError, got %v", err)
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a\r\nb\rc", "a\nb\nc"},
		{"tab\tkept\x07", "tab\tkept"},
		{"trail   \nnext\t\n\n", "trail\nnext"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePage(tt.in); got != tt.want {
			t.Errorf("NormalizePage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSupported(t *testing.T) {
	if !Supported(".PDF") || !Supported(".md") {
		t.Error("expected pdf and md to be supported")
	}
	if Supported(".exe") {
		t.Error("exe should not be supported")
	}
}
