// Package models defines core data structures for documents, chunks, and answers.
package models

// Document is an uploaded file decomposed into ordered pages of text.
// Pages are zero-indexed; a blank page is kept as an empty string so numbering matches the source.
type Document struct {
	Name    string   `json:"name"`
	Size    int64    `json:"size"`
	Content []byte   `json:"-"`
	Pages   []string `json:"pages,omitempty"`
}

// PageCount returns the number of extracted pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// ChunkMetadata records where a chunk came from.
// CharStart and CharEnd are byte offsets into the page text.
type ChunkMetadata struct {
	Source    string `json:"source"`
	Page      int    `json:"page"`
	CharStart int    `json:"char_start"`
	CharEnd   int    `json:"char_end"`
	// Approximate is set when the chunk text could not be located in the page
	// and the offsets were placed at the previous chunk's end instead.
	Approximate bool `json:"approximate,omitempty"`
}

// Chunk is the unit of retrieval.
type Chunk struct {
	ID       string        `json:"id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// CorpusInfo describes a built corpus held by the cache or storage.
type CorpusInfo struct {
	Key        string   `json:"key"`
	Documents  []string `json:"documents"`
	Chunks     int      `json:"chunks"`
	Dimensions int      `json:"dimensions"`
	Cached     bool     `json:"cached"`
}
