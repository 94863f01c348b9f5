package embedding

import (
	"fmt"
	"strings"

	"github.com/hyperjump/askpdf/internal/config"
	"go.uber.org/zap"
)

// New creates the embedder selected by cfg.Provider, wrapped in a cache when
// cfg.CacheSize is positive.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var e Embedder
	switch cfg.Provider {
	case "mock":
		e = NewMockEmbedder(cfg.Dimensions)
	case "ollama", "openai":
		docPrefix, queryPrefix := cfg.DocumentPrefix, cfg.QueryPrefix
		if docPrefix == "" && queryPrefix == "" && strings.Contains(cfg.Model, "nomic-embed") {
			docPrefix, queryPrefix = "search_document: ", "search_query: "
		}
		opts := []RemoteOption{
			WithPrefixes(docPrefix, queryPrefix),
			WithRateLimit(cfg.RequestsPerSecond),
			WithRemoteLogger(logger),
		}
		if cfg.Provider == "ollama" {
			e = NewOllamaEmbedder(cfg.Model, cfg.BaseURL, opts...)
		} else {
			e = NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, opts...)
		}
	case "onnx":
		onnxEmbedder, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			logger.Warn("failed to load ONNX embedder, falling back to mock",
				zap.String("model_path", cfg.ModelPath),
				zap.Error(err))
			e = NewMockEmbedder(cfg.Dimensions)
		} else {
			e = onnxEmbedder
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}
