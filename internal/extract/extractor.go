// Package extract turns uploaded document bytes into ordered page texts.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/askpdf/internal/models"
)

// SupportedExtensions lists the file extensions ExtractPages understands.
var SupportedExtensions = []string{".pdf", ".docx", ".pptx", ".xlsx", ".odp", ".ods", ".md", ".markdown", ".txt", ".rst"}

// Extractor extracts per-page text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// LoadDocument reads the file at path and extracts its pages.
// The document name is the file's base name.
func (e *Extractor) LoadDocument(path string) (*models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ExtractionError{Source: filepath.Base(path), Err: fmt.Errorf("read file: %w", err)}
	}
	return e.NewDocument(filepath.Base(path), content)
}

// NewDocument extracts pages from content, choosing the format from name's extension.
// Pages are normalised with NormalizePage. Extraction failures and documents
// without any page are returned as *models.ExtractionError.
func (e *Extractor) NewDocument(name string, content []byte) (*models.Document, error) {
	pages, err := e.ExtractPages(content, strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return nil, &models.ExtractionError{Source: name, Err: err}
	}
	if len(pages) == 0 {
		return nil, &models.ExtractionError{Source: name, Err: models.ErrNoPages}
	}
	for i, p := range pages {
		pages[i] = NormalizePage(p)
	}
	return &models.Document{
		Name:    name,
		Size:    int64(len(content)),
		Content: content,
		Pages:   pages,
	}, nil
}

// ExtractPages extracts page texts from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as plain text.
func (e *Extractor) ExtractPages(content []byte, ext string) ([]string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".odp":
		return extractODP(content)
	case ".ods":
		return extractODS(content)
	case ".md", ".markdown":
		return extractMarkdown(content)
	default:
		return extractPlain(content)
	}
}

// Supported reports whether ext (with leading dot, any case) is a known format.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}
