package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/askpdf/internal/embedding"
	"github.com/hyperjump/askpdf/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BuildOptions controls index construction.
type BuildOptions struct {
	// Concurrency bounds in-flight embedding calls; values below 1 mean sequential.
	Concurrency int
	Backend     Backend
	Logger      *zap.Logger
}

// Build embeds every chunk in document mode and returns an index over them.
// Vectors keep the input order regardless of Concurrency. Any embedding failure
// aborts the build with an EmbeddingError and no index is returned.
func Build(ctx context.Context, chunks []models.Chunk, e embedding.Embedder, opts BuildOptions) (Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	start := time.Now()

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := e.EmbedDocument(gctx, chunks[i].Content)
			if err != nil {
				return models.NewEmbeddingError(string(embedding.ModeDocument), fmt.Errorf("chunk %d: %w", i, err))
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	entries := make([]Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = Entry{Chunk: c, Vector: vectors[i]}
	}
	idx, err := FromEntries(ctx, entries, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("index built",
		zap.String("backend", idx.Type()),
		zap.Int("chunks", idx.Len()),
		zap.Int("dimensions", idx.Dimensions()),
		zap.Duration("elapsed", time.Since(start)))
	return idx, nil
}
