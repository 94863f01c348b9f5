package watcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/askpdf/internal/cache"
	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/internal/rag"
	"github.com/hyperjump/askpdf/internal/vector"
)

// InboxAlias is the cache alias that always names the latest inbox corpus.
const InboxAlias = "inbox"

// InboxStatus describes the last inbox rebuild.
type InboxStatus struct {
	Key       string    `json:"key,omitempty"`
	Files     int       `json:"files"`
	Skipped   []string  `json:"skipped,omitempty"`
	Chunks    int       `json:"chunks"`
	Reused    bool      `json:"reused"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Inbox keeps one corpus built from every file in the watched directories.
type Inbox struct {
	pipeline *rag.Pipeline
	cache    *cache.IndexCache
	logger   *zap.Logger

	mu     sync.Mutex
	status InboxStatus
}

// NewInbox creates an inbox that builds through pipeline and stores in c.
func NewInbox(pipeline *rag.Pipeline, c *cache.IndexCache, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{pipeline: pipeline, cache: c, logger: logger}
}

// Rebuild loads files and points InboxAlias at their corpus. Unreadable files
// are skipped with a warning. It has the ChangeFunc signature.
func (i *Inbox) Rebuild(ctx context.Context, files []string) {
	status := InboxStatus{UpdatedAt: time.Now()}
	docs := make([]*models.Document, 0, len(files))
	for _, path := range files {
		loaded, err := i.pipeline.Indexer().LoadFiles([]string{path})
		if err != nil {
			i.logger.Warn("inbox skipped file", zap.String("path", path), zap.Error(err))
			status.Skipped = append(status.Skipped, path)
			continue
		}
		docs = append(docs, loaded...)
	}
	status.Files = len(docs)

	if len(docs) == 0 {
		i.cache.SetAlias(InboxAlias, "")
		i.setStatus(status)
		i.logger.Info("inbox is empty")
		return
	}

	corpus, reused, err := i.cache.GetOrBuild(ctx, docs, func(ctx context.Context) (vector.Index, error) {
		return i.pipeline.BuildDocuments(ctx, docs)
	})
	if err != nil {
		status.Error = err.Error()
		i.setStatus(status)
		i.logger.Error("inbox rebuild failed", zap.Int("files", len(docs)), zap.Error(err))
		return
	}
	i.cache.SetAlias(InboxAlias, corpus.Key)
	status.Key = corpus.Key
	status.Chunks = corpus.Index.Len()
	status.Reused = reused
	i.setStatus(status)
	i.logger.Info("inbox corpus ready",
		zap.String("key", corpus.Key),
		zap.Int("files", len(docs)),
		zap.Int("chunks", status.Chunks),
		zap.Bool("reused", reused),
	)
}

func (i *Inbox) setStatus(s InboxStatus) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = s
}

// Status returns the outcome of the last rebuild.
func (i *Inbox) Status() InboxStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}
