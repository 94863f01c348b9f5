package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/hyperjump/askpdf/internal/embedding"
	"github.com/hyperjump/askpdf/internal/models"
	"github.com/philippgille/chromem-go"
)

const chromemCollection = "chunks"

var errPrecomputed = errors.New("chromem collection only accepts precomputed embeddings")

// ChromemIndex stores vectors in an in-memory chromem-go collection. Document
// IDs are insertion positions, which also break score ties.
type ChromemIndex struct {
	*MemoryIndex
	collection *chromem.Collection
}

// NewChromemIndex loads entries into a fresh chromem collection.
func NewChromemIndex(ctx context.Context, entries []Entry, concurrency int) (*ChromemIndex, error) {
	mem, err := NewMemoryIndex(entries)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	db := chromem.NewDB()
	noEmbed := func(context.Context, string) ([]float32, error) { return nil, errPrecomputed }
	coll, err := db.CreateCollection(chromemCollection, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	if len(entries) > 0 {
		docs := make([]chromem.Document, len(entries))
		for i, e := range entries {
			vec := make([]float32, len(e.Vector))
			copy(vec, e.Vector)
			docs[i] = chromem.Document{
				ID:        strconv.Itoa(i),
				Content:   e.Chunk.Content,
				Embedding: vec,
			}
		}
		if err := coll.AddDocuments(ctx, docs, concurrency); err != nil {
			return nil, fmt.Errorf("failed to add documents: %w", err)
		}
	}
	return &ChromemIndex{MemoryIndex: mem, collection: coll}, nil
}

// Type returns the index type identifier.
func (c *ChromemIndex) Type() string {
	return string(BackendChromem)
}

// Search queries the collection and returns chunks ordered by similarity, then position.
func (c *ChromemIndex) Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	n := c.collection.Count()
	if n == 0 {
		return nil, models.ErrEmptyIndex
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(query) != c.Dimensions() {
		return nil, models.NewEmbeddingError(string(embedding.ModeQuery),
			fmt.Errorf("%w: query has %d, index has %d", models.ErrDimensionMismatch, len(query), c.Dimensions()))
	}
	if k > n {
		k = n
	}
	q := make([]float32, len(query))
	copy(q, query)
	// all n are requested so that ties at the cut are resolved by position below
	res, err := c.collection.QueryEmbedding(ctx, q, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	type hit struct {
		pos   int
		score float64
	}
	hits := make([]hit, 0, len(res))
	for _, r := range res {
		pos, err := strconv.Atoi(r.ID)
		if err != nil || pos < 0 || pos >= len(c.entries) {
			return nil, fmt.Errorf("unexpected document id %q", r.ID)
		}
		hits = append(hits, hit{pos: pos, score: clamp(float64(r.Similarity))})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]models.ScoredChunk, len(hits))
	for i, h := range hits {
		out[i] = models.ScoredChunk{Chunk: c.entries[h.pos].Chunk, Score: h.score}
	}
	return out, nil
}

// Close is a no-op; the collection is garbage collected with the index.
func (c *ChromemIndex) Close() error {
	return nil
}
