package vector

import (
	"context"
	"fmt"
)

// Backend selects the search implementation behind an Index.
type Backend string

const (
	// BackendMemory uses in-process brute-force search.
	BackendMemory Backend = "memory"
	// BackendChromem answers searches from a chromem-go collection.
	BackendChromem Backend = "chromem"
)

// FromEntries creates an index of the configured backend over already embedded
// chunks, e.g. when loading a stored corpus.
func FromEntries(ctx context.Context, entries []Entry, opts BuildOptions) (Index, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryIndex(entries)
	case BackendChromem:
		return NewChromemIndex(ctx, entries, opts.Concurrency)
	default:
		return nil, fmt.Errorf("unknown index backend: %s (supported: memory, chromem)", opts.Backend)
	}
}
