package generation

import (
	"fmt"
	"time"

	"github.com/hyperjump/askpdf/internal/config"
	"go.uber.org/zap"
)

// New creates the generator selected by cfg.Provider.
func New(cfg config.GenerationConfig, logger *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewClient(cfg.BaseURL, cfg.APIKey, cfg.Model,
			WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
			WithLogger(logger),
		), nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
}

// OptionsFrom returns the sampling options configured in cfg.
func OptionsFrom(cfg config.GenerationConfig) Options {
	opts := Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return opts
}
