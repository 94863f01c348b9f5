// Package corpusid derives content-addressed corpus keys and deterministic chunk IDs.
package corpusid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hyperjump/askpdf/internal/models"
)

const prefix = "corpus:"

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("askpdf/chunk"))

// Key returns the cache key for a set of documents.
// Documents are sorted by name first, so upload order does not matter.
// Each document contributes its name, size and content, length-prefixed.
func Key(docs []*models.Document) string {
	sorted := make([]*models.Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			sorted = append(sorted, d)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := sha256.New()
	var buf [8]byte
	for _, d := range sorted {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(d.Name)))
		h.Write(buf[:])
		h.Write([]byte(d.Name))
		binary.LittleEndian.PutUint64(buf[:], uint64(d.Size))
		h.Write(buf[:])
		h.Write(d.Content)
	}
	return prefix + hex.EncodeToString(h.Sum(nil))
}

// Valid reports whether key has the shape produced by Key.
func Valid(key string) bool {
	if len(key) != len(prefix)+sha256.Size*2 || key[:len(prefix)] != prefix {
		return false
	}
	_, err := hex.DecodeString(key[len(prefix):])
	return err == nil
}

// ChunkID returns a stable ID for the ordinal-th chunk of a page.
func ChunkID(source string, page, ordinal, charStart int) string {
	name := fmt.Sprintf("%s\x00%d\x00%d\x00%d", source, page, ordinal, charStart)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
