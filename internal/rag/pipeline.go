// Package rag orchestrates chunking, indexing, retrieval and grounded generation.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hyperjump/askpdf/internal/embedding"
	"github.com/hyperjump/askpdf/internal/generation"
	"github.com/hyperjump/askpdf/internal/indexer"
	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/internal/vector"
	"github.com/hyperjump/askpdf/pkg/utils"
)

const (
	// DefaultSummaryPrefix bounds the corpus text sent to Summarize, in runes.
	DefaultSummaryPrefix = 12000
	// SnippetLength is the number of runes shown per source snippet.
	SnippetLength = 200
)

// Pipeline builds indexes over documents and answers questions against them.
// It keeps no state between calls.
type Pipeline struct {
	embedder      embedding.Embedder
	generator     generation.Generator
	indexer       *indexer.Indexer
	chunkSize     int
	chunkOverlap  int
	topK          int
	summaryPrefix int
	genOpts       generation.Options
	buildOpts     vector.BuildOptions
	logger        *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunking sets the chunk size and overlap in runes.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) {
		p.chunkSize, p.chunkOverlap = size, overlap
	}
}

// WithTopK sets how many chunks Answer retrieves.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithSummaryPrefix bounds the corpus prefix passed to Summarize.
func WithSummaryPrefix(runes int) Option {
	return func(p *Pipeline) {
		if runes > 0 {
			p.summaryPrefix = runes
		}
	}
}

// WithGenerationOptions sets temperature and max tokens for every generation call.
func WithGenerationOptions(opts generation.Options) Option {
	return func(p *Pipeline) {
		p.genOpts = opts
	}
}

// WithBuildOptions sets embedding concurrency and the index backend.
func WithBuildOptions(opts vector.BuildOptions) Option {
	return func(p *Pipeline) {
		p.buildOpts = opts
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline over the given providers.
func New(embedder embedding.Embedder, generator generation.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:      embedder,
		generator:     generator,
		chunkSize:     indexer.DefaultChunkSize,
		chunkOverlap:  indexer.DefaultChunkOverlap,
		topK:          models.DefaultTopK,
		summaryPrefix: DefaultSummaryPrefix,
		genOpts:       generation.DefaultOptions(),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buildOpts.Logger == nil {
		p.buildOpts.Logger = p.logger
	}
	p.indexer = indexer.NewIndexer(p.chunkSize, p.chunkOverlap, indexer.WithLogger(p.logger))
	return p
}

// Indexer returns the indexer used by Prepare, for loading files.
func (p *Pipeline) Indexer() *indexer.Indexer {
	return p.indexer
}

// TopK returns the default number of chunks retrieved per question.
func (p *Pipeline) TopK() int {
	return p.topK
}

// Fingerprint identifies the embedder and chunking behind indexes this
// pipeline builds. Indexes with different fingerprints are not interchangeable.
func (p *Pipeline) Fingerprint() string {
	return fmt.Sprintf("%s|chunk=%d/%d", embedding.Describe(p.embedder), p.chunkSize, p.chunkOverlap)
}

// Prepare chunks every page of every document, in document, page and chunk order.
func (p *Pipeline) Prepare(docs []*models.Document) []models.Chunk {
	return p.indexer.Prepare(docs)
}

// BuildIndex embeds chunks into an index. Embedding failures are not retried.
func (p *Pipeline) BuildIndex(ctx context.Context, chunks []models.Chunk) (vector.Index, error) {
	idx, err := vector.Build(ctx, chunks, p.embedder, p.buildOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	return idx, nil
}

// BuildDocuments runs Prepare then BuildIndex.
func (p *Pipeline) BuildDocuments(ctx context.Context, docs []*models.Document) (vector.Index, error) {
	return p.BuildIndex(ctx, p.Prepare(docs))
}

// Answer retrieves the top chunks for query and generates a grounded answer.
func (p *Pipeline) Answer(ctx context.Context, query string, index vector.Index) (*models.AnswerResult, error) {
	return p.Ask(ctx, &models.AskRequest{Query: query, TopK: p.topK}, index)
}

// Ask is Answer with a per-request TopK. The request is not modified.
func (p *Pipeline) Ask(ctx context.Context, in *models.AskRequest, index vector.Index) (*models.AnswerResult, error) {
	if in == nil {
		return nil, models.ErrEmptyQuery
	}
	req := *in
	if req.TopK <= 0 {
		req.TopK = p.topK
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if index == nil || index.Len() == 0 {
		return nil, models.ErrEmptyIndex
	}
	start := time.Now()

	q, err := p.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, models.NewEmbeddingError(string(embedding.ModeQuery), err)
	}
	retrieved, err := index.Search(ctx, q, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	text, err := p.generate(ctx, buildAnswerPrompt(req.Query, retrieved))
	if err != nil {
		return nil, err
	}
	p.logger.Debug("answered question",
		zap.Int("retrieved", len(retrieved)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &models.AnswerResult{Text: text, SupportingChunks: retrieved}, nil
}

// Summarize generates a summary of the corpus prefix. An empty corpus
// returns "" without calling the generator.
func (p *Pipeline) Summarize(ctx context.Context, chunks []models.Chunk) (string, error) {
	corpus := joinChunks(chunks, p.summaryPrefix)
	if strings.TrimSpace(corpus) == "" {
		return "", nil
	}
	return p.generate(ctx, buildSummaryPrompt(corpus))
}

// Simplify rewrites text in plain language. Blank text is returned unchanged.
func (p *Pipeline) Simplify(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	return p.generate(ctx, buildSimplifyPrompt(text))
}

// Translate translates text into language. Blank text or an English target
// returns text unchanged without calling the generator.
func (p *Pipeline) Translate(ctx context.Context, text, language string) (string, error) {
	if strings.TrimSpace(text) == "" || IsEnglish(language) {
		return text, nil
	}
	return p.generate(ctx, buildTranslatePrompt(text, strings.TrimSpace(language)))
}

// Chat generates a reply to message with history prepended verbatim. No
// retrieval is done and nothing is remembered.
func (p *Pipeline) Chat(ctx context.Context, message string, history []models.ChatTurn) (string, error) {
	req := &models.ChatRequest{Message: message, History: history}
	if err := req.Validate(); err != nil {
		return "", err
	}
	return p.generate(ctx, buildChatPrompt(message, history))
}

func (p *Pipeline) generate(ctx context.Context, prompt string) (string, error) {
	text, err := p.generator.Generate(ctx, prompt, p.genOpts)
	if err != nil {
		return "", models.NewGenerationError(err)
	}
	return text, nil
}

// IsEnglish reports whether language names English. Blank means English.
func IsEnglish(language string) bool {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "", "english", "en", "en-us", "en-gb":
		return true
	}
	return false
}

// joinChunks concatenates chunk contents and keeps the first limit runes.
func joinChunks(chunks []models.Chunk, limit int) string {
	var buf strings.Builder
	for i, c := range chunks {
		if i > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(c.Content)
		if limit > 0 && buf.Len() >= limit*utf8.UTFMax {
			break
		}
	}
	return utils.Prefix(buf.String(), limit)
}
