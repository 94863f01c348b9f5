// Package storage persists built corpora so they can be reloaded without re-embedding.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/internal/vector"
)

// Corpus is a stored corpus: its chunks with their vectors in index order.
type Corpus struct {
	Key       string
	Documents []string
	Entries   []vector.Entry

	// Fingerprint names the embedder and chunking that produced Entries.
	Fingerprint string
	CreatedAt   time.Time
}

// Info returns the summary of c.
func (c *Corpus) Info() *models.CorpusInfo {
	info := &models.CorpusInfo{Key: c.Key, Documents: c.Documents, Chunks: len(c.Entries)}
	if len(c.Entries) > 0 {
		info.Dimensions = len(c.Entries[0].Vector)
	}
	return info
}

// Storage defines corpus persistence operations.
type Storage interface {
	// SaveCorpus stores or replaces the corpus under key.
	SaveCorpus(ctx context.Context, corpus *Corpus) error
	// LoadCorpus returns models.ErrCorpusNotFound when key is unknown.
	LoadCorpus(ctx context.Context, key string) (*Corpus, error)
	DeleteCorpus(ctx context.Context, key string) error
	ListCorpora(ctx context.Context, offset, limit int) ([]*models.CorpusInfo, error)

	// Stats
	CountCorpora(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
