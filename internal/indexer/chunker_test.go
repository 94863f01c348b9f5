package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/askpdf/internal/models"
)

// checkOffsets asserts every chunk maps back onto its page text.
func checkOffsets(t *testing.T, text string, chunks []models.Chunk, size int) {
	t.Helper()
	prevStart := -1
	for i, ch := range chunks {
		m := ch.Metadata
		if m.CharStart >= m.CharEnd || m.CharEnd > len(text) {
			t.Fatalf("chunk %d: bad range [%d,%d) for len %d", i, m.CharStart, m.CharEnd, len(text))
		}
		if m.Approximate {
			t.Errorf("chunk %d unexpectedly approximate", i)
		}
		if got := text[m.CharStart:m.CharEnd]; got != ch.Content {
			t.Errorf("chunk %d: text[%d:%d] = %q, content %q", i, m.CharStart, m.CharEnd, got, ch.Content)
		}
		if n := utf8.RuneCountInString(ch.Content); n > size {
			t.Errorf("chunk %d: %d runes exceeds size %d", i, n, size)
		}
		if m.CharStart < prevStart {
			t.Errorf("chunk %d: start %d before previous start %d", i, m.CharStart, prevStart)
		}
		prevStart = m.CharStart
	}
}

func TestChunker_ChunkPageScenario(t *testing.T) {
	text := "A. B. C."
	c := NewChunker(4, 1)
	chunks := c.ChunkPage("doc.pdf", 0, text)
	checkOffsets(t, text, chunks, 4)

	want := []struct {
		content    string
		start, end int
	}{
		{"A.", 0, 2},
		{" B.", 2, 5},
		{" C.", 5, 8},
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %+v", len(want), len(chunks), chunks)
	}
	for i, w := range want {
		if chunks[i].Content != w.content || chunks[i].Metadata.CharStart != w.start || chunks[i].Metadata.CharEnd != w.end {
			t.Errorf("chunk %d = %q [%d,%d), want %q [%d,%d)", i, chunks[i].Content,
				chunks[i].Metadata.CharStart, chunks[i].Metadata.CharEnd, w.content, w.start, w.end)
		}
	}
	// full coverage: first starts at 0, each starts no later than the previous end, last ends at len
	if chunks[0].Metadata.CharStart != 0 || chunks[len(chunks)-1].Metadata.CharEnd != len(text) {
		t.Error("chunks do not cover the page")
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Metadata.CharStart > chunks[i-1].Metadata.CharEnd {
			t.Errorf("gap between chunk %d and %d", i-1, i)
		}
	}
}

func TestChunker_Metadata(t *testing.T) {
	c := NewChunker(10, 2)
	chunks := c.ChunkPage("report.pdf", 3, "one two three four five six")
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	seen := map[string]bool{}
	for i, ch := range chunks {
		if ch.Metadata.Source != "report.pdf" || ch.Metadata.Page != 3 {
			t.Errorf("chunk %d metadata = %+v", i, ch.Metadata)
		}
		if ch.ID == "" || seen[ch.ID] {
			t.Errorf("chunk %d: id %q empty or duplicated", i, ch.ID)
		}
		seen[ch.ID] = true
	}
	again := c.ChunkPage("report.pdf", 3, "one two three four five six")
	for i := range chunks {
		if chunks[i].ID != again[i].ID {
			t.Error("chunk ids should be deterministic")
		}
	}
}

func TestChunker_OverlapBound(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu nu xi omicron pi rho"
	tests := []struct {
		size, overlap int
	}{
		{20, 8},
		{20, 0},
		{15, 5},
		{30, 12},
	}
	for _, tt := range tests {
		c := NewChunker(tt.size, tt.overlap)
		chunks := c.ChunkPage("d", 0, text)
		checkOffsets(t, text, chunks, tt.size)
		if chunks[0].Metadata.CharStart != 0 || chunks[len(chunks)-1].Metadata.CharEnd != len(text) {
			t.Errorf("size=%d overlap=%d: chunks do not cover the page", tt.size, tt.overlap)
		}
		for i := 1; i < len(chunks); i++ {
			shared := chunks[i-1].Metadata.CharEnd - chunks[i].Metadata.CharStart
			if shared < 0 || shared > tt.overlap {
				t.Errorf("size=%d overlap=%d: chunks %d,%d share %d", tt.size, tt.overlap, i-1, i, shared)
			}
		}
	}
}

func TestChunker_PrefersParagraphs(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here."
	c := NewChunker(30, 0)
	chunks := c.ChunkPage("d", 0, text)
	checkOffsets(t, text, chunks, 30)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Content != "First paragraph here." {
		t.Errorf("chunk 0 = %q", chunks[0].Content)
	}
	if strings.TrimSpace(chunks[1].Content) != "Second paragraph here." {
		t.Errorf("chunk 1 = %q", chunks[1].Content)
	}
}

func TestChunker_HardCut(t *testing.T) {
	c := NewChunker(4, 1)
	got := c.Split("abcdefghij")
	want := []string{"abcd", "defg", "ghij"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Split = %q, want %q", got, want)
	}
}

func TestChunker_DuplicateText(t *testing.T) {
	text := "echo echo echo echo"
	c := NewChunker(5, 0)
	chunks := c.ChunkPage("d", 0, text)
	checkOffsets(t, text, chunks, 5)
	wantStarts := []int{0, 4, 9, 14}
	if len(chunks) != len(wantStarts) {
		t.Fatalf("expected %d chunks, got %d", len(wantStarts), len(chunks))
	}
	for i, s := range wantStarts {
		if chunks[i].Metadata.CharStart != s {
			t.Errorf("chunk %d start = %d, want %d", i, chunks[i].Metadata.CharStart, s)
		}
	}
}

func TestChunker_RepeatedTextOverlap(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		size, overlap int
	}{
		{"dot leaders", "Introduction" + strings.Repeat(".", 60) + "5", 20, 5},
		{"rule lines", "Summary\n" + strings.Repeat("-", 40) + "\nTotals\n" + strings.Repeat("-", 40), 16, 6},
		{"repeated words", strings.Repeat("la ", 40) + "fin", 12, 6},
		{"repeated lines", strings.Repeat("ab\na\n\n", 12), 4, 3},
		{"multibyte", strings.Repeat("ééé ", 20), 9, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := NewChunker(tt.size, tt.overlap).ChunkPage("d", 0, tt.text)
			checkOffsets(t, tt.text, chunks, tt.size)
			for i := 1; i < len(chunks); i++ {
				prev, cur := chunks[i-1].Metadata, chunks[i].Metadata
				if cur.CharStart <= prev.CharStart {
					t.Errorf("chunk %d: start %d not after previous start %d", i, cur.CharStart, prev.CharStart)
				}
				if cur.CharStart > prev.CharEnd {
					if gap := tt.text[prev.CharEnd:cur.CharStart]; strings.TrimSpace(gap) != "" {
						t.Errorf("chunks %d,%d leave text %q uncovered", i-1, i, gap)
					}
					continue
				}
				if shared := utf8.RuneCountInString(tt.text[cur.CharStart:prev.CharEnd]); shared > tt.overlap {
					t.Errorf("chunks %d,%d share %d runes, overlap is %d", i-1, i, shared, tt.overlap)
				}
			}
		})
	}

	chunks := NewChunker(20, 5).ChunkPage("toc", 0, "Introduction"+strings.Repeat(".", 60)+"5")
	wantStarts := []int{0, 15, 30, 45, 60}
	if len(chunks) != len(wantStarts) {
		t.Fatalf("expected %d chunks, got %d", len(wantStarts), len(chunks))
	}
	for i, s := range wantStarts {
		if chunks[i].Metadata.CharStart != s {
			t.Errorf("chunk %d start = %d, want %d", i, chunks[i].Metadata.CharStart, s)
		}
	}
}

func TestChunker_Unicode(t *testing.T) {
	text := "héllo wörld"
	c := NewChunker(5, 0)
	chunks := c.ChunkPage("d", 0, text)
	checkOffsets(t, text, chunks, 5)
	var joined strings.Builder
	for _, ch := range chunks {
		joined.WriteString(ch.Content)
	}
	if joined.String() != text {
		t.Errorf("chunks should tile the text, got %q", joined.String())
	}
}

func TestChunker_Empty(t *testing.T) {
	c := NewChunker(5, 1)
	for _, text := range []string{"", "   \n\t  "} {
		if chunks := c.ChunkPage("d", 0, text); chunks != nil {
			t.Errorf("blank text %q should return nil, got %v", text, chunks)
		}
	}
}

func TestNewChunker_Clamps(t *testing.T) {
	tests := []struct {
		size, overlap         int
		wantSize, wantOverlap int
	}{
		{0, 0, DefaultChunkSize, 0},
		{10, -3, 10, 0},
		{10, 10, 10, 9},
		{500, 100, 500, 100},
	}
	for _, tt := range tests {
		c := NewChunker(tt.size, tt.overlap)
		if c.Size() != tt.wantSize || c.Overlap() != tt.wantOverlap {
			t.Errorf("NewChunker(%d, %d) = (%d, %d), want (%d, %d)",
				tt.size, tt.overlap, c.Size(), c.Overlap(), tt.wantSize, tt.wantOverlap)
		}
	}
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name           string
		text, piece    string
		from, fallback int
		start, end     int
		exact          bool
	}{
		{"found at start", "abcabc", "abc", 0, 0, 0, 3, true},
		{"leftmost after from", "abcabc", "abc", 1, 3, 3, 6, true},
		{"missing uses fallback", "abcdef", "xy", 1, 2, 2, 4, false},
		{"fallback clamped to text end", "abcdef", "xyz", 2, 6, 3, 6, false},
		{"from past end", "abc", "c", 4, 3, 2, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, exact := locate(tt.text, tt.piece, tt.from, tt.fallback)
			if start != tt.start || end != tt.end || exact != tt.exact {
				t.Errorf("locate = (%d, %d, %v), want (%d, %d, %v)", start, end, exact, tt.start, tt.end, tt.exact)
			}
			if start >= end || end > len(tt.text) {
				t.Errorf("invalid range [%d,%d)", start, end)
			}
		})
	}
}

func TestSplitKeepSeparator(t *testing.T) {
	got := splitKeepSeparator("a\n\nb\n\nc", "\n\n")
	if strings.Join(got, "|") != "a|\n\nb|\n\nc" {
		t.Errorf("got %q", got)
	}
	if strings.Join(splitKeepSeparator("\n\nx", "\n\n"), "|") != "\n\nx" {
		t.Error("leading separator should stay on the first piece")
	}
	if len(splitKeepSeparator("añb", "")) != 3 {
		t.Error("empty separator should split into runes")
	}
}
