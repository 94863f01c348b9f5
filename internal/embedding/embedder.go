// Package embedding turns text into vectors for document chunks and queries.
package embedding

import (
	"context"
	"fmt"
)

// Mode distinguishes document embeddings from query embeddings. Some models
// expect a different prefix for each.
type Mode string

const (
	ModeDocument Mode = "document"
	ModeQuery    Mode = "query"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector length, or 0 if it is not known until the first call.
	Dimensions() int
	Close() error
}

// Embed dispatches to the document or query method of e.
func Embed(ctx context.Context, e Embedder, mode Mode, text string) ([]float32, error) {
	if mode == ModeQuery {
		return e.EmbedQuery(ctx, text)
	}
	return e.EmbedDocument(ctx, text)
}

// Describer is implemented by embedders that can name the model behind their vectors.
type Describer interface {
	Describe() string
}

// Describe names the model behind e. Vectors from embedders with different
// descriptions must not be compared.
func Describe(e Embedder) string {
	if d, ok := e.(Describer); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%T/%d", e, e.Dimensions())
}
