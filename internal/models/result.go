package models

// ScoredChunk is a retrieved chunk with its similarity (or relevance) score.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// AnswerResult is the outcome of one grounded question.
// SupportingChunks are ordered by descending score.
type AnswerResult struct {
	Text             string        `json:"text"`
	SupportingChunks []ScoredChunk `json:"supporting_chunks"`
}

// Snippet is the short display form of a supporting chunk. Page is one-based.
type Snippet struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

// AnswerResponse is the API shape of an answer.
type AnswerResponse struct {
	*AnswerResult
	Snippets  []Snippet `json:"snippets,omitempty"`
	QueryTime int64     `json:"query_time_ms"`
}

// PassagesResponse is the result of a literal passage lookup.
type PassagesResponse struct {
	Query    string        `json:"query"`
	Passages []ScoredChunk `json:"passages"`
	Total    int           `json:"total"`
	// Suggestion is a respelled query when the original found nothing.
	Suggestion string `json:"suggestion,omitempty"`
}
