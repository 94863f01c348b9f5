// Package indexer turns extracted documents into chunks with provenance.
package indexer

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/askpdf/internal/corpusid"
	"github.com/hyperjump/askpdf/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the number of runes carried between consecutive chunks.
	DefaultChunkOverlap = 100
)

// DefaultSeparators are tried in order: paragraphs, lines, words, then single runes.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits page text into overlapping chunks along natural boundaries,
// falling back to hard rune cuts.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
	logger       *zap.Logger
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithSeparators replaces the separator list. The list should end with "" so
// oversized pieces can always be cut.
func WithSeparators(separators ...string) ChunkerOption {
	return func(c *Chunker) {
		if len(separators) > 0 {
			c.separators = separators
		}
	}
}

// WithChunkerLogger sets the logger that receives offset recovery warnings.
func WithChunkerLogger(l *zap.Logger) ChunkerOption {
	return func(c *Chunker) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChunker creates a chunker with the given size and overlap (in runes).
// A non-positive size selects DefaultChunkSize; overlap is clamped to [0, size).
func NewChunker(chunkSize, chunkOverlap int, opts ...ChunkerOption) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	c := &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.chunkSize }

// Overlap returns the configured chunk overlap.
func (c *Chunker) Overlap() int { return c.chunkOverlap }

// ChunkPage splits one page into chunks and records where each one sits in text.
// Empty or blank pages produce no chunks.
func (c *Chunker) ChunkPage(source string, page int, text string) []models.Chunk {
	spans := c.spans(text)
	if len(spans) == 0 {
		return nil
	}
	chunks := make([]models.Chunk, 0, len(spans))
	prevStart, prevEnd := -1, 0
	for i, sp := range spans {
		piece := text[sp.start:sp.end]
		// the search begins after the previous chunk's start and never before
		// the point where the splitter cut this chunk
		from := sp.start
		if prevStart >= 0 {
			_, size := utf8.DecodeRuneInString(text[prevStart:])
			from = max(from, prevStart+size)
		}
		start, end, exact := locate(text, piece, from, prevEnd)
		if !exact {
			c.logger.Warn("chunk offset recovery fell back to previous chunk end",
				zap.String("source", source),
				zap.Int("page", page),
				zap.Int("chunk", i),
				zap.Int("char_start", start),
			)
		}
		chunks = append(chunks, models.Chunk{
			ID:      corpusid.ChunkID(source, page, i, start),
			Content: piece,
			Metadata: models.ChunkMetadata{
				Source:      source,
				Page:        page,
				CharStart:   start,
				CharEnd:     end,
				Approximate: !exact,
			},
		})
		prevStart, prevEnd = start, end
	}
	return chunks
}

// locate finds piece in text at or after from. When it is not there the piece
// is placed at fallback and exact is false.
func locate(text, piece string, from, fallback int) (start, end int, exact bool) {
	if from <= len(text) {
		if i := strings.Index(text[from:], piece); i >= 0 {
			return from + i, from + i + len(piece), true
		}
	}
	start = fallback
	end = start + len(piece)
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		start = end - len(piece)
		if start < 0 {
			start = 0
		}
	}
	return start, end, false
}

// span is a byte range of the page text.
type span struct {
	start, end int
}

// Split returns the chunk strings for text in order. Whitespace is kept inside
// chunks so that together they cover the text; whitespace-only chunks are dropped.
func (c *Chunker) Split(text string) []string {
	spans := c.spans(text)
	if len(spans) == 0 {
		return nil
	}
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = text[sp.start:sp.end]
	}
	return out
}

func (c *Chunker) spans(text string) []span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []span
	for _, sp := range c.splitRecursive(text, span{0, len(text)}, c.separators) {
		if strings.TrimSpace(text[sp.start:sp.end]) != "" {
			out = append(out, sp)
		}
	}
	return out
}

func (c *Chunker) splitRecursive(text string, seg span, separators []string) []span {
	segment := text[seg.start:seg.end]
	separator := separators[len(separators)-1]
	var next []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(segment, s) {
			separator = s
			next = separators[i+1:]
			break
		}
	}

	var final, good []span
	offset := seg.start
	for _, s := range splitKeepSeparator(segment, separator) {
		piece := span{offset, offset + len(s)}
		offset += len(s)
		if utf8.RuneCountInString(s) < c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(text, good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, c.splitRecursive(text, piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.merge(text, good)...)
	}
	return final
}

// merge packs consecutive pieces into chunks of at most chunkSize runes,
// starting each new chunk with up to chunkOverlap runes of the previous one.
// Pieces are adjacent, so a chunk spans from its first piece to its last.
func (c *Chunker) merge(text string, pieces []span) []span {
	runes := func(sp span) int { return utf8.RuneCountInString(text[sp.start:sp.end]) }
	var docs, current []span
	total := 0
	for _, p := range pieces {
		n := runes(p)
		if total+n > c.chunkSize && len(current) > 0 {
			docs = appendJoined(docs, current)
			for total > c.chunkOverlap || (total+n > c.chunkSize && total > 0) {
				total -= runes(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	return appendJoined(docs, current)
}

func appendJoined(docs, current []span) []span {
	if len(current) == 0 {
		return docs
	}
	joined := span{current[0].start, current[len(current)-1].end}
	if joined.end > joined.start {
		docs = append(docs, joined)
	}
	return docs
}

// splitKeepSeparator splits text on sep and keeps sep at the start of each
// following piece, so the pieces concatenate back to text.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for len(text) > 0 {
			_, size := utf8.DecodeRuneInString(text)
			out = append(out, text[:size])
			text = text[size:]
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}
