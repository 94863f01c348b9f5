package corpusid

import (
	"testing"

	"github.com/hyperjump/askpdf/internal/models"
)

func doc(name, content string) *models.Document {
	return &models.Document{Name: name, Size: int64(len(content)), Content: []byte(content)}
}

func TestKey(t *testing.T) {
	k1 := Key([]*models.Document{doc("a.pdf", "alpha"), doc("b.pdf", "beta")})
	k2 := Key([]*models.Document{doc("a.pdf", "alpha"), doc("b.pdf", "beta")})
	if k1 != k2 {
		t.Errorf("same documents should give same key: %q vs %q", k1, k2)
	}
	if k1[:len(prefix)] != prefix {
		t.Errorf("key should have prefix %q: got %q", prefix, k1)
	}
	if !Valid(k1) {
		t.Errorf("Key output should be valid: %q", k1)
	}
}

func TestKey_orderIndependent(t *testing.T) {
	k1 := Key([]*models.Document{doc("a.pdf", "alpha"), doc("b.pdf", "beta")})
	k2 := Key([]*models.Document{doc("b.pdf", "beta"), doc("a.pdf", "alpha")})
	if k1 != k2 {
		t.Errorf("upload order should not change key: %q vs %q", k1, k2)
	}
}

func TestKey_contentSensitive(t *testing.T) {
	base := Key([]*models.Document{doc("a.pdf", "alpha")})
	tests := []struct {
		name string
		docs []*models.Document
	}{
		{"different content", []*models.Document{doc("a.pdf", "alphA")}},
		{"different name", []*models.Document{doc("c.pdf", "alpha")}},
		{"extra document", []*models.Document{doc("a.pdf", "alpha"), doc("b.pdf", "")}},
		{"name content boundary", []*models.Document{doc("a.pdfa", "lpha")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Key(tt.docs) == base {
				t.Errorf("expected a different key for %s", tt.name)
			}
		})
	}
}

func TestValid(t *testing.T) {
	if Valid("corpus:xyz") {
		t.Error("short key should be invalid")
	}
	if Valid("inbox") {
		t.Error("alias should not be a valid key")
	}
}

func TestChunkID(t *testing.T) {
	id1 := ChunkID("a.pdf", 0, 1, 10)
	if id1 != ChunkID("a.pdf", 0, 1, 10) {
		t.Error("chunk id should be deterministic")
	}
	if id1 == ChunkID("a.pdf", 1, 1, 10) {
		t.Error("different page should give a different id")
	}
	if len(id1) != 36 {
		t.Errorf("expected uuid string, got %q", id1)
	}
}
