package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/askpdf/internal/embedding"
	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/pkg/utils"
)

// MemoryIndex is an in-memory index using brute-force cosine search.
type MemoryIndex struct {
	dimensions int
	entries    []Entry
	norms      []float64
	size       int64
}

// NewMemoryIndex creates an index over entries. All vectors must share one length.
// The entries slice is owned by the index afterwards.
func NewMemoryIndex(entries []Entry) (*MemoryIndex, error) {
	m := &MemoryIndex{entries: entries, norms: make([]float64, len(entries))}
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return nil, models.NewEmbeddingError(string(embedding.ModeDocument), fmt.Errorf("chunk %d has an empty vector", i))
		}
		if i == 0 {
			m.dimensions = len(e.Vector)
		} else if len(e.Vector) != m.dimensions {
			return nil, models.NewEmbeddingError(string(embedding.ModeDocument),
				fmt.Errorf("%w: chunk %d has %d, expected %d", models.ErrDimensionMismatch, i, len(e.Vector), m.dimensions))
		}
		m.norms[i] = utils.Norm(e.Vector)
		m.size += entrySize(e)
	}
	return m, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(BackendMemory)
}

// Search returns the top-k chunks by cosine similarity.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	if len(m.entries) == 0 {
		return nil, models.ErrEmptyIndex
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(query) != m.dimensions {
		return nil, models.NewEmbeddingError(string(embedding.ModeQuery),
			fmt.Errorf("%w: query has %d, index has %d", models.ErrDimensionMismatch, len(query), m.dimensions))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qn := utils.Norm(query)
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(m.entries))
	for i, e := range m.entries {
		s := 0.0
		if qn > 0 && m.norms[i] > 0 {
			s = clamp(utils.Dot(query, e.Vector) / (qn * m.norms[i]))
		}
		scores[i] = scored{pos: i, score: s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]models.ScoredChunk, k)
	for i := 0; i < k; i++ {
		result[i] = models.ScoredChunk{Chunk: m.entries[scores[i].pos].Chunk, Score: scores[i].score}
	}
	return result, nil
}

// Chunks returns the indexed chunks in insertion order.
func (m *MemoryIndex) Chunks() []models.Chunk {
	out := make([]models.Chunk, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Chunk
	}
	return out
}

// Entries returns the chunk and vector pairs in insertion order. Callers must not modify them.
func (m *MemoryIndex) Entries() []Entry {
	return m.entries
}

// Len returns the number of chunks in the index.
func (m *MemoryIndex) Len() int {
	return len(m.entries)
}

// Dimensions returns the vector length, 0 for an empty index.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// SizeBytes approximates the memory held by chunks and vectors.
func (m *MemoryIndex) SizeBytes() int64 {
	return m.size
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
