package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/askpdf/internal/extract"
	"github.com/hyperjump/askpdf/internal/models"
	"go.uber.org/zap"
)

// Indexer loads documents and turns them into the chunk collection an index is built from.
type Indexer struct {
	chunker   *Chunker
	extractor *extract.Extractor
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output and offset recovery warnings.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) IndexerOption {
	return func(idx *Indexer) {
		if e != nil {
			idx.extractor = e
		}
	}
}

// NewIndexer creates an indexer that chunks with the given size and overlap (in runes).
func NewIndexer(chunkSize, chunkOverlap int, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		extractor: extract.NewExtractor(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.chunker = NewChunker(chunkSize, chunkOverlap, WithChunkerLogger(idx.logger))
	return idx
}

// Chunker returns the chunker used by Prepare.
func (idx *Indexer) Chunker() *Chunker {
	return idx.chunker
}

// Prepare chunks every page of every document. Chunks are ordered by document,
// then page, then position within the page.
func (idx *Indexer) Prepare(docs []*models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		before := len(chunks)
		for page, text := range doc.Pages {
			chunks = append(chunks, idx.chunker.ChunkPage(doc.Name, page, text)...)
		}
		idx.logger.Debug("indexer prepared document",
			zap.String("name", doc.Name),
			zap.Int("pages", len(doc.Pages)),
			zap.Int("chunks", len(chunks)-before),
		)
	}
	return chunks
}

// LoadFiles extracts each path in order. The first failure is returned as is
// (an *models.ExtractionError for unreadable or corrupt files).
func (idx *Indexer) LoadFiles(paths []string) ([]*models.Document, error) {
	docs := make([]*models.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := idx.extractor.LoadDocument(p)
		if err != nil {
			return nil, err
		}
		idx.logger.Debug("indexer loaded file", zap.String("path", p), zap.Int("pages", doc.PageCount()))
		docs = append(docs, doc)
	}
	return docs, nil
}

// NewDocument extracts an uploaded document held in memory.
func (idx *Indexer) NewDocument(name string, content []byte) (*models.Document, error) {
	return idx.extractor.NewDocument(name, content)
}

// ListDirectory walks dir recursively and returns regular files whose extension is in
// allowedExts (all files when allowedExts is empty), in lexical order.
func (idx *Indexer) ListDirectory(ctx context.Context, dir string, allowedExts []string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	var paths []string
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !extensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are loaded
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// LoadDirectory extracts every matching file under dir.
func (idx *Indexer) LoadDirectory(ctx context.Context, dir string, allowedExts []string) ([]*models.Document, error) {
	paths, err := idx.ListDirectory(ctx, dir, allowedExts)
	if err != nil {
		return nil, err
	}
	return idx.LoadFiles(paths)
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
