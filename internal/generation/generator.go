// Package generation provides text generation clients for answers and transforms.
package generation

import "context"

const (
	// DefaultTemperature keeps answers deterministic.
	DefaultTemperature = 0.0
	// DefaultMaxTokens bounds the length of a generated reply.
	DefaultMaxTokens = 1024
)

// Options are per-call sampling settings.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultOptions returns temperature 0 and 1024 max tokens.
func DefaultOptions() Options {
	return Options{Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens}
}

// Generator produces a completion for a prompt. Implementations return a
// GenerationError for transport or provider failures.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
