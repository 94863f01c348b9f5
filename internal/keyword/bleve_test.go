package keyword

import (
	"context"
	"testing"

	"github.com/hyperjump/askpdf/internal/models"
)

func passages() []models.Chunk {
	mk := func(id, source string, page int, content string) models.Chunk {
		return models.Chunk{ID: id, Content: content, Metadata: models.ChunkMetadata{Source: source, Page: page}}
	}
	return []models.Chunk{
		mk("a", "report.pdf", 0, "This report mentions Omnisyan and other findings."),
		mk("b", "report.pdf", 1, "The Bayes app is also referenced in the appendix."),
		mk("c", "manual.pdf", 0, "Solar panel efficiency depends on the angle of light."),
		mk("d", "manual.pdf", 3, "Panel cleaning improves solar output."),
	}
}

func newTestIndex(t *testing.T) *PassageIndex {
	t.Helper()
	idx, err := NewPassageIndex(passages())
	if err != nil {
		t.Fatalf("NewPassageIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestPassageIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	results, err := idx.Search(ctx, "Omnisyan", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("expected chunk a, got %+v", results)
	}
	if results[0].Metadata.Source != "report.pdf" {
		t.Errorf("metadata not carried: %+v", results[0].Metadata)
	}

	// no stemming, so "bayes" matches "Bayes"
	results, err = idx.Search(ctx, "bayes", 10, nil)
	if err != nil {
		t.Fatalf("Search bayes: %v", err)
	}
	if len(results) == 0 || results[0].ID != "b" {
		t.Fatalf("expected chunk b, got %+v", results)
	}
}

func TestPassageIndex_Limit(t *testing.T) {
	idx := newTestIndex(t)
	results, err := idx.Search(context.Background(), "solar panel", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
	if none, _ := idx.Search(context.Background(), "solar", 0, nil); none != nil {
		t.Error("limit 0 should return nothing")
	}
}

func TestPassageIndex_NoMatch(t *testing.T) {
	idx := newTestIndex(t)
	results, err := idx.Search(context.Background(), "zebra", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestPassageIndex_Boosts(t *testing.T) {
	idx := newTestIndex(t)
	results, err := idx.Search(context.Background(), "solar panel efficiency", 10, &SearchOptions{SourceBoost: 2, PhraseBoost: 1.5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) < 2 {
		t.Fatalf("expected both solar passages, got %d", len(results))
	}
	if results[0].ID != "c" {
		t.Errorf("passage matching every term should rank first, got %s", results[0].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Error("scores should be descending")
		}
	}
}

func TestPassageIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	results, err := idx.Search(context.Background(), "omnisian", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].ID != "a" {
		t.Errorf("fuzzy search should find chunk a, got %+v", results)
	}
}

func TestPassageIndex_DuplicateChunkIDs(t *testing.T) {
	chunks := []models.Chunk{
		{ID: "same", Content: "first copy of lighthouse"},
		{ID: "same", Content: "second copy of lighthouse"},
	}
	idx, err := NewPassageIndex(chunks)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	results, err := idx.Search(context.Background(), "lighthouse", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected both passages, got %d", len(results))
	}
}

func TestPassageIndex_Vocabulary(t *testing.T) {
	idx := newTestIndex(t)
	if n, _ := idx.GetTermFrequency("solar"); n != 2 {
		t.Errorf("frequency of solar = %d, want 2", n)
	}
	if n, _ := idx.GetTermFrequency("Bayes"); n != 1 {
		t.Errorf("frequency of bayes = %d, want 1", n)
	}
	terms, _ := idx.GetAllTerms()
	if len(terms) == 0 {
		t.Error("vocabulary should not be empty")
	}
}

func TestPassageIndex_Empty(t *testing.T) {
	idx, err := NewPassageIndex(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	results, err := idx.Search(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
