// Package cli renders pipeline results for the askpdf command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/internal/rag"
	"github.com/hyperjump/askpdf/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// ParseFormat maps a flag value to an OutputFormat. Unknown values select text.
func ParseFormat(s string) OutputFormat {
	if strings.EqualFold(strings.TrimSpace(s), string(OutputJSON)) {
		return OutputJSON
	}
	return OutputText
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer and its supporting snippets to w.
// Snippets are derived from the supporting chunks when the response has none.
func WriteAnswer(w io.Writer, response *models.AnswerResponse, format OutputFormat) error {
	if response.AnswerResult != nil && len(response.Snippets) == 0 {
		response.Snippets = rag.Snippets(response.SupportingChunks)
	}
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	text := ""
	if response.AnswerResult != nil {
		text = response.Text
	}
	fmt.Fprintf(w, "\n%s\n\n", strings.TrimSpace(text))
	if len(response.Snippets) == 0 {
		return nil
	}
	fmt.Fprintf(w, "Sources (%dms):\n", response.QueryTime)
	for i, s := range response.Snippets {
		fmt.Fprintf(w, "%s\n", rule)
		fmt.Fprintf(w, "[%d] %s, page %d\n", i+1, s.Source, s.Page)
		fmt.Fprintf(w, "%s\n", s.Text)
	}
	fmt.Fprintln(w)
	return nil
}

// WritePassages writes literal passage matches to w.
func WritePassages(w io.Writer, response *models.PassagesResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d passages for %q\n\n", response.Total, response.Query)
	if response.Total == 0 && response.Suggestion != "" {
		fmt.Fprintf(w, "Did you mean: %s\n\n", response.Suggestion)
	}
	for i, p := range response.Passages {
		s := rag.Snippet(p.Chunk)
		fmt.Fprintf(w, "%s\n", rule)
		fmt.Fprintf(w, "[%d] %s, page %d | Score: %.4f\n", i+1, s.Source, s.Page, p.Score)
		fmt.Fprintf(w, "%s\n", s.Text)
	}
	if len(response.Passages) > 0 {
		fmt.Fprintln(w)
	}
	return nil
}

// WriteText writes a plain generated text, or {"text": ...} as JSON.
func WriteText(w io.Writer, text string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]string{"text": text})
	}
	_, err := fmt.Fprintln(w, strings.TrimSpace(text))
	return err
}

// WriteCorpus writes a short description of a built corpus.
func WriteCorpus(w io.Writer, info *models.CorpusInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, info)
	}
	fmt.Fprintf(w, "Corpus: %s\n", info.Key)
	fmt.Fprintf(w, "Documents: %s\n", strings.Join(info.Documents, ", "))
	fmt.Fprintf(w, "Chunks: %d (dimensions %d)\n", info.Chunks, info.Dimensions)
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

// Preview returns the first maxRunes of s on one line.
func Preview(s string, maxRunes int) string {
	return utils.Truncate(utils.OneLine(strings.TrimSpace(s)), maxRunes)
}
