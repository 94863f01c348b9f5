// Package keyword provides literal passage lookup over chunks and query spelling suggestions.
package keyword

// SearchOptions tune passage lookup. Nil means plain match scoring.
type SearchOptions struct {
	// SourceBoost multiplies the score contribution of matches in the document name.
	// Values > 1 rank passages from a matching file higher. Use 1.0 for no boost.
	SourceBoost float64
	// PhraseBoost multiplies the score when the query terms appear as a phrase.
	PhraseBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2). Default 2.
	Fuzziness int
}

// TermDictionary provides the indexed vocabulary for spell checking.
type TermDictionary interface {
	// GetAllTerms returns all unique terms in the index.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the number of passages containing term.
	GetTermFrequency(term string) (int, error)
}
