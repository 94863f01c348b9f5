package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyIndex is returned when searching an index that holds no chunks.
	ErrEmptyIndex = errors.New("index holds no chunks")
	// ErrNoPages is the cause of an ExtractionError for documents without pages.
	ErrNoPages = errors.New("no pages extracted")
	// ErrDimensionMismatch is the cause of an EmbeddingError for inconsistent vectors.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrCorpusNotFound is returned when a corpus key is neither cached nor stored.
	ErrCorpusNotFound = errors.New("corpus not found")
	// ErrEmptyQuery rejects blank questions and passage lookups.
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrEmptyMessage rejects blank chat turns.
	ErrEmptyMessage = errors.New("message cannot be empty")
)

// ExtractionError means page text could not be extracted from a document.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError means an embedding call failed or returned an unusable vector.
// Op is "document" or "query".
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("embedding failed: %v", e.Err)
	}
	return fmt.Sprintf("embedding failed (%s): %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError means the generation provider call failed.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewEmbeddingError wraps err unless it already carries an EmbeddingError.
func NewEmbeddingError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *EmbeddingError
	if errors.As(err, &ee) {
		return err
	}
	return &EmbeddingError{Op: op, Err: err}
}

// NewGenerationError wraps err unless it already carries a GenerationError.
func NewGenerationError(err error) error {
	if err == nil {
		return nil
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &GenerationError{Err: err}
}

// IsEmptyIndex reports whether err is an empty index failure.
func IsEmptyIndex(err error) bool {
	return errors.Is(err, ErrEmptyIndex)
}
