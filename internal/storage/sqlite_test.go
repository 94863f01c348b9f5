package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/internal/vector"
)

func testCorpus(key string) *Corpus {
	return &Corpus{
		Key:       key,
		Documents: []string{"a.pdf", "b.pdf"},
		Entries: []vector.Entry{
			{
				Chunk: models.Chunk{ID: "c0", Content: "first chunk", Metadata: models.ChunkMetadata{Source: "a.pdf", Page: 0, CharStart: 0, CharEnd: 11}},
				Vector: []float32{1, 0, 0},
			},
			{
				Chunk: models.Chunk{ID: "c1", Content: "second chunk", Metadata: models.ChunkMetadata{Source: "b.pdf", Page: 2, CharStart: 5, CharEnd: 17, Approximate: true}},
				Vector: []float32{0, 0.5, 0.5},
			},
		},
	}
}

func openStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStorage_SaveLoad(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	in := testCorpus("corpus:1")
	if err := store.SaveCorpus(ctx, in); err != nil {
		t.Fatal(err)
	}
	if in.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.LoadCorpus(ctx, "corpus:1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Documents) != 2 || got.Documents[1] != "b.pdf" {
		t.Errorf("documents = %v", got.Documents)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got.Entries))
	}
	for i, e := range got.Entries {
		want := in.Entries[i]
		if e.Chunk != want.Chunk {
			t.Errorf("entry %d chunk = %+v, want %+v", i, e.Chunk, want.Chunk)
		}
		for j := range want.Vector {
			if e.Vector[j] != want.Vector[j] {
				t.Errorf("entry %d vector = %v, want %v", i, e.Vector, want.Vector)
				break
			}
		}
	}

	info := got.Info()
	if info.Chunks != 2 || info.Dimensions != 3 {
		t.Errorf("info = %+v", info)
	}
}

func TestSQLiteStorage_SaveReplaces(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.SaveCorpus(ctx, testCorpus("k")); err != nil {
		t.Fatal(err)
	}
	smaller := testCorpus("k")
	smaller.Entries = smaller.Entries[:1]
	if err := store.SaveCorpus(ctx, smaller); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadCorpus(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 1 {
		t.Errorf("expected 1 entry after replace, got %d", len(got.Entries))
	}
	if n, _ := store.CountChunks(ctx); n != 1 {
		t.Errorf("CountChunks = %d, want 1", n)
	}
}

func TestSQLiteStorage_NotFound(t *testing.T) {
	store := openStore(t)
	_, err := store.LoadCorpus(context.Background(), "missing")
	if !errors.Is(err, models.ErrCorpusNotFound) {
		t.Errorf("expected ErrCorpusNotFound, got %v", err)
	}
}

func TestSQLiteStorage_ListCountDelete(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, k := range []string{"k1", "k2"} {
		if err := store.SaveCorpus(ctx, testCorpus(k)); err != nil {
			t.Fatal(err)
		}
	}
	list, err := store.ListCorpora(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 corpora, got %d", len(list))
	}
	if list[0].Chunks != 2 || len(list[0].Documents) != 2 {
		t.Errorf("list entry = %+v", list[0])
	}
	if page, _ := store.ListCorpora(ctx, 1, 10); len(page) != 1 {
		t.Errorf("offset 1 should leave 1 corpus, got %d", len(page))
	}

	if n, _ := store.CountCorpora(ctx); n != 2 {
		t.Errorf("CountCorpora = %d, want 2", n)
	}
	if n, _ := store.CountChunks(ctx); n != 4 {
		t.Errorf("CountChunks = %d, want 4", n)
	}

	if err := store.DeleteCorpus(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteCorpus(ctx, "unknown"); err != nil {
		t.Errorf("deleting unknown key should not fail: %v", err)
	}
	if _, err := store.LoadCorpus(ctx, "k1"); !errors.Is(err, models.ErrCorpusNotFound) {
		t.Errorf("expected k1 gone, got %v", err)
	}
	if n, _ := store.CountChunks(ctx); n != 2 {
		t.Errorf("CountChunks after delete = %d, want 2", n)
	}
}

func TestSQLiteStorage_EmptyCorpus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.SaveCorpus(ctx, &Corpus{Key: "empty"}); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadCorpus(ctx, "empty")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 0 || got.Info().Dimensions != 0 {
		t.Errorf("expected empty corpus, got %+v", got.Info())
	}
}

func TestSQLiteStorage_RejectsMixedDimensions(t *testing.T) {
	store := openStore(t)
	c := testCorpus("bad")
	c.Entries[1].Vector = []float32{1}
	if err := store.SaveCorpus(context.Background(), c); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestSQLiteStorage_Fingerprint(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	in := testCorpus("corpus:fp")
	in.Fingerprint = "mock/3|chunk=500/100"
	if err := store.SaveCorpus(ctx, in); err != nil {
		t.Fatal(err)
	}
	got, err := store.LoadCorpus(ctx, "corpus:fp")
	if err != nil {
		t.Fatal(err)
	}
	if got.Fingerprint != in.Fingerprint {
		t.Errorf("Fingerprint = %q, want %q", got.Fingerprint, in.Fingerprint)
	}
}

func TestSQLiteStorage_AddsFingerprintToOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`CREATE TABLE corpora (
		key TEXT PRIMARY KEY,
		documents TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		vectors BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() on old schema error = %v", err)
	}
	defer store.Close()

	in := testCorpus("corpus:old")
	in.Fingerprint = "mock/3"
	if err := store.SaveCorpus(context.Background(), in); err != nil {
		t.Fatal(err)
	}

	// reopening must not try to add the column twice
	again, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	_ = again.Close()
}
