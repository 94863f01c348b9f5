package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/askpdf/internal/keyword"
	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/pkg/utils"
)

// PassageOptions are the keyword settings used by Passages.
var PassageOptions = keyword.SearchOptions{
	SourceBoost:  1.0,
	PhraseBoost:  1.5,
	FuzzyEnabled: true,
	Fuzziness:    1,
}

// Passages looks query up literally in the keyword index of a corpus. When
// nothing matches, the response carries a respelled query if one exists.
func (p *Pipeline) Passages(ctx context.Context, passages *keyword.PassageIndex, query string, limit int) (*models.PassagesResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.ErrEmptyQuery
	}
	if limit <= 0 {
		limit = p.topK
	}
	opts := PassageOptions
	results, err := passages.Search(ctx, query, limit, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search passages: %w", err)
	}
	resp := &models.PassagesResponse{Query: query, Passages: results, Total: len(results)}
	if len(results) == 0 {
		checker := keyword.NewSpellChecker(passages)
		if suggested := checker.SuggestedQuery(query); suggested != query {
			resp.Suggestion = suggested
			p.logger.Debug("no passages, suggesting respelled query",
				zap.String("query", query),
				zap.String("suggestion", suggested),
			)
		}
	}
	return resp, nil
}

// Snippet is the display form of a chunk: line breaks flattened and the
// first SnippetLength runes kept.
func Snippet(c models.Chunk) models.Snippet {
	return models.Snippet{
		Source: c.Metadata.Source,
		Page:   c.Metadata.Page + 1,
		Text:   utils.Truncate(utils.OneLine(c.Content), SnippetLength),
	}
}

// Snippets returns one snippet per supporting chunk, in order.
func Snippets(chunks []models.ScoredChunk) []models.Snippet {
	out := make([]models.Snippet, len(chunks))
	for i, c := range chunks {
		out[i] = Snippet(c.Chunk)
	}
	return out
}
