// Package vector provides the immutable chunk index used for retrieval.
package vector

import (
	"context"

	"github.com/hyperjump/askpdf/internal/models"
)

// Index is a read-only set of chunks with their embeddings. Implementations are
// safe for concurrent Search calls.
type Index interface {
	// Search returns up to k chunks ordered by descending cosine similarity to
	// query, ties broken by insertion order.
	Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error)
	// Chunks returns the indexed chunks in insertion order.
	Chunks() []models.Chunk
	// Entries returns chunks paired with their vectors in insertion order.
	Entries() []Entry
	Len() int
	Dimensions() int
	Type() string
	// SizeBytes approximates the memory held by the index.
	SizeBytes() int64
	Close() error
}

// Entry pairs a chunk with its embedding.
type Entry struct {
	Chunk  models.Chunk
	Vector []float32
}

func entrySize(e Entry) int64 {
	return int64(len(e.Chunk.Content)+len(e.Chunk.ID)+len(e.Chunk.Metadata.Source)) + int64(4*len(e.Vector)) + 64
}
