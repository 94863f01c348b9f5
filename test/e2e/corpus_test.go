package e2e

import (
	"strings"
	"testing"
)

func TestBuildCorpus_Size(t *testing.T) {
	c := BuildCorpus(20, FileExtensions)
	if len(c.Topics) != 20 || len(c.Questions) != 20 {
		t.Errorf("expected 20 topics and questions, got %d and %d", len(c.Topics), len(c.Questions))
	}
	if got := BuildCorpus(1000, FileExtensions); len(got.Topics) != len(topics) {
		t.Errorf("corpus should be capped at %d topics, got %d", len(topics), len(got.Topics))
	}
}

func TestBuildCorpus_SignaturesAreUnique(t *testing.T) {
	c := BuildCorpus(len(topics), FileExtensions)
	for _, q := range c.Topics {
		for _, other := range c.Topics {
			if other.Name != q.Name && strings.Contains(strings.ToLower(other.Text()), q.Signature) {
				t.Errorf("signature %q of %s also appears in %s", q.Signature, q.Name, other.Name)
			}
		}
		if !strings.Contains(strings.ToLower(q.Body), q.Signature) {
			t.Errorf("%s body does not contain its signature %q", q.Name, q.Signature)
		}
	}
}

func TestBuildCorpus_ExtensionsRotate(t *testing.T) {
	c := BuildCorpus(len(FileExtensions)+1, FileExtensions)
	if !strings.HasSuffix(c.Topics[0].Name, FileExtensions[0]) || !strings.HasSuffix(c.Topics[len(FileExtensions)].Name, FileExtensions[0]) {
		t.Errorf("extensions should rotate: %s, %s", c.Topics[0].Name, c.Topics[len(FileExtensions)].Name)
	}
}
