package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hyperjump/askpdf/internal/models"
)

// WriteTo writes the index vectors with WriteEntries.
func (m *MemoryIndex) WriteTo(w io.Writer) (int64, error) {
	return WriteEntries(w, m.entries)
}

// WriteEntries writes entry vectors in a little-endian layout: dimension (4),
// count (4), then per entry: id length (4), id bytes, vector (dimension*4 bytes).
// Chunk text and metadata are not included. All vectors must have the length of the first.
func WriteEntries(w io.Writer, entries []Entry) (int64, error) {
	dim := 0
	if len(entries) > 0 {
		dim = len(entries[0].Vector)
	}
	cw := &countingWriter{w: w}
	if err := binary.Write(cw, binary.LittleEndian, uint32(dim)); err != nil {
		return cw.n, fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(cw, binary.LittleEndian, uint32(len(entries))); err != nil {
		return cw.n, fmt.Errorf("write count: %w", err)
	}
	for i, e := range entries {
		if len(e.Vector) != dim {
			return cw.n, fmt.Errorf("entry %d: %w", i, models.ErrDimensionMismatch)
		}
		id := []byte(e.Chunk.ID)
		if err := binary.Write(cw, binary.LittleEndian, uint32(len(id))); err != nil {
			return cw.n, fmt.Errorf("write id len: %w", err)
		}
		if _, err := cw.Write(id); err != nil {
			return cw.n, fmt.Errorf("write id: %w", err)
		}
		if _, err := cw.Write(EncodeVector(e.Vector)); err != nil {
			return cw.n, fmt.Errorf("write vector: %w", err)
		}
	}
	return cw.n, nil
}

// ReadEntries decodes what WriteEntries wrote. It returns chunk IDs and vectors in
// write order; the caller supplies the chunks.
func ReadEntries(r io.Reader) (ids []string, vectors [][]float32, err error) {
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, nil, fmt.Errorf("read count: %w", err)
	}
	ids = make([]string, 0, n)
	vectors = make([][]float32, 0, n)
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return nil, nil, fmt.Errorf("read id len: %w", err)
		}
		id := make([]byte, idLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return nil, nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, nil, fmt.Errorf("read vector: %w", err)
		}
		ids = append(ids, string(id))
		vectors = append(vectors, DecodeVector(buf))
	}
	return ids, vectors, nil
}

// EncodeVector returns the little-endian float32 bytes of v.
func EncodeVector(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(x))
	}
	return out
}

// DecodeVector is the inverse of EncodeVector. Trailing bytes are ignored.
func DecodeVector(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
