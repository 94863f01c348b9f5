package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/askpdf/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and offline use. Each term
// of the text is hashed into a bucket, so texts sharing words get similar vectors.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

func (e *MockEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	terms := Terms(text)
	if len(terms) == 0 {
		if t := strings.TrimSpace(text); t != "" {
			terms = []string{t}
		}
	}
	for _, term := range terms {
		emb[HashString(term)%e.dimensions]++
	}
	// keep empty input away from the zero vector
	emb[0] += 0.01
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedDocument returns the bag-of-words embedding of text.
func (e *MockEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text)
}

// EmbedQuery returns the same embedding as EmbedDocument.
func (e *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Describe identifies the embedder and its vector size.
func (e *MockEmbedder) Describe() string {
	return fmt.Sprintf("mock/%d", e.dimensions)
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
