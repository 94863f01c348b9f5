package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hyperjump/askpdf/internal/models"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RemoteEmbedder calls an embedding service through a chromem embedding
// function. Requests can be throttled and each mode can carry a text prefix.
type RemoteEmbedder struct {
	embed          chromem.EmbeddingFunc
	name           string
	documentPrefix string
	queryPrefix    string
	limiter        *rate.Limiter
	dimensions     atomic.Int64
	logger         *zap.Logger
}

// RemoteOption configures a RemoteEmbedder.
type RemoteOption func(*RemoteEmbedder)

// WithPrefixes sets the text prefixes for document and query embeddings.
func WithPrefixes(document, query string) RemoteOption {
	return func(r *RemoteEmbedder) {
		r.documentPrefix = document
		r.queryPrefix = query
	}
}

// WithRateLimit limits requests per second; zero or less disables throttling.
func WithRateLimit(perSecond float64) RemoteOption {
	return func(r *RemoteEmbedder) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithRemoteLogger sets the logger.
func WithRemoteLogger(l *zap.Logger) RemoteOption {
	return func(r *RemoteEmbedder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithExpectedDimensions fixes the vector length up front. Vectors of any
// other length are rejected.
func WithExpectedDimensions(d int) RemoteOption {
	return func(r *RemoteEmbedder) {
		if d > 0 {
			r.dimensions.Store(int64(d))
		}
	}
}

// NewRemoteEmbedder wraps fn. name is used in logs.
func NewRemoteEmbedder(name string, fn chromem.EmbeddingFunc, opts ...RemoteOption) *RemoteEmbedder {
	r := &RemoteEmbedder{embed: fn, name: name, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewOllamaEmbedder embeds through an Ollama server's API at baseURL (e.g. http://localhost:11434/api).
func NewOllamaEmbedder(model, baseURL string, opts ...RemoteOption) *RemoteEmbedder {
	return NewRemoteEmbedder("ollama/"+model, chromem.NewEmbeddingFuncOllama(model, baseURL), opts...)
}

// NewOpenAIEmbedder embeds through any OpenAI-compatible /embeddings endpoint.
func NewOpenAIEmbedder(baseURL, apiKey, model string, opts ...RemoteOption) *RemoteEmbedder {
	return NewRemoteEmbedder("openai/"+model, chromem.NewEmbeddingFuncOpenAICompat(baseURL, apiKey, model, nil), opts...)
}

// EmbedDocument embeds a chunk with the document prefix.
func (r *RemoteEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return r.call(ctx, ModeDocument, r.documentPrefix+text)
}

// EmbedQuery embeds a question with the query prefix.
func (r *RemoteEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return r.call(ctx, ModeQuery, r.queryPrefix+text)
}

func (r *RemoteEmbedder) call(ctx context.Context, mode Mode, text string) ([]float32, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, models.NewEmbeddingError(string(mode), err)
		}
	}
	v, err := r.embed(ctx, text)
	if err != nil {
		r.logger.Debug("embedding request failed", zap.String("embedder", r.name), zap.String("mode", string(mode)), zap.Error(err))
		return nil, models.NewEmbeddingError(string(mode), err)
	}
	if len(v) == 0 {
		return nil, models.NewEmbeddingError(string(mode), errors.New("empty vector returned"))
	}
	want := r.dimensions.Load()
	if want == 0 && r.dimensions.CompareAndSwap(0, int64(len(v))) {
		r.logger.Debug("embedding dimensions detected", zap.String("embedder", r.name), zap.Int("dimensions", len(v)))
		return v, nil
	}
	if want = r.dimensions.Load(); int64(len(v)) != want {
		return nil, models.NewEmbeddingError(string(mode),
			fmt.Errorf("%w: got %d, want %d", models.ErrDimensionMismatch, len(v), want))
	}
	return v, nil
}

// Dimensions returns the vector length seen so far, or 0 before the first call.
func (r *RemoteEmbedder) Dimensions() int {
	return int(r.dimensions.Load())
}

// Describe identifies the service, model and prefixes.
func (r *RemoteEmbedder) Describe() string {
	return fmt.Sprintf("%s|%q|%q", r.name, r.documentPrefix, r.queryPrefix)
}

// Close is a no-op; the underlying HTTP client is shared.
func (r *RemoteEmbedder) Close() error {
	return nil
}
