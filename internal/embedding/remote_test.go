package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hyperjump/askpdf/internal/config"
	"github.com/hyperjump/askpdf/internal/models"
)

func TestRemoteEmbedder_Prefixes(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	fn := func(_ context.Context, text string) ([]float32, error) {
		mu.Lock()
		seen = append(seen, text)
		mu.Unlock()
		return []float32{1, 0}, nil
	}
	r := NewRemoteEmbedder("test", fn, WithPrefixes("search_document: ", "search_query: "))
	ctx := context.Background()
	if _, err := r.EmbedDocument(ctx, "chunk"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.EmbedQuery(ctx, "question"); err != nil {
		t.Fatal(err)
	}
	if seen[0] != "search_document: chunk" || seen[1] != "search_query: question" {
		t.Errorf("unexpected inputs %q", seen)
	}
	if r.Dimensions() != 2 {
		t.Errorf("Dimensions = %d, want 2", r.Dimensions())
	}
}

func TestRemoteEmbedder_ErrorsAreEmbeddingErrors(t *testing.T) {
	cause := errors.New("connection refused")
	r := NewRemoteEmbedder("test", func(context.Context, string) ([]float32, error) { return nil, cause })
	_, err := r.EmbedQuery(context.Background(), "q")
	var ee *models.EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}
	if ee.Op != "query" || !errors.Is(err, cause) {
		t.Errorf("unexpected error %+v", ee)
	}
}

func TestRemoteEmbedder_DimensionMismatch(t *testing.T) {
	n := 0
	fn := func(context.Context, string) ([]float32, error) {
		n++
		if n == 1 {
			return []float32{1, 0, 0}, nil
		}
		return []float32{1, 0}, nil
	}
	r := NewRemoteEmbedder("test", fn)
	ctx := context.Background()
	if _, err := r.EmbedDocument(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	_, err := r.EmbedDocument(ctx, "b")
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestRemoteEmbedder_ExpectedDimensions(t *testing.T) {
	r := NewRemoteEmbedder("test", func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}, WithExpectedDimensions(3))
	if _, err := r.EmbedDocument(context.Background(), "a"); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestRemoteEmbedder_EmptyVector(t *testing.T) {
	r := NewRemoteEmbedder("test", func(context.Context, string) ([]float32, error) { return nil, nil })
	var ee *models.EmbeddingError
	if _, err := r.EmbedDocument(context.Background(), "a"); !errors.As(err, &ee) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}
}

func TestRemoteEmbedder_RateLimitHonoursContext(t *testing.T) {
	r := NewRemoteEmbedder("test", func(context.Context, string) ([]float32, error) {
		return []float32{1}, nil
	}, WithRateLimit(0.001))
	ctx := context.Background()
	if _, err := r.EmbedDocument(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := r.EmbedDocument(cancelled, "second"); err == nil {
		t.Fatal("expected error waiting on limiter with cancelled context")
	}
}

func TestOpenAIEmbedder_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.6, 0.8}}},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL+"/v1", "secret", "text-embedding-3-small")
	v, err := e.EmbedDocument(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 2 {
		t.Errorf("len = %d, want 2", len(v))
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbeddingConfig
		wantErr bool
	}{
		{"mock", config.EmbeddingConfig{Provider: "mock", Dimensions: 32}, false},
		{"ollama", config.EmbeddingConfig{Provider: "ollama", Model: "nomic-embed-text", BaseURL: "http://localhost:11434/api"}, false},
		{"openai", config.EmbeddingConfig{Provider: "openai", Model: "m", BaseURL: "http://localhost/v1"}, false},
		{"onnx falls back", config.EmbeddingConfig{Provider: "onnx", ModelPath: "/nonexistent/model.onnx", Dimensions: 32, MaxTokens: 16}, false},
		{"cached", config.EmbeddingConfig{Provider: "mock", CacheSize: 10}, false},
		{"unknown", config.EmbeddingConfig{Provider: "word2vec"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if e != nil {
				_ = e.Close()
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	nomic := NewOllamaEmbedder("nomic-embed-text", "http://localhost:11434/api",
		WithPrefixes("search_document: ", "search_query: "))
	plain := NewOllamaEmbedder("nomic-embed-text", "http://localhost:11434/api")
	other := NewOllamaEmbedder("mxbai-embed-large", "http://localhost:11434/api")

	seen := map[string]string{}
	for name, e := range map[string]Embedder{
		"mock8":  NewMockEmbedder(8),
		"mock16": NewMockEmbedder(16),
		"nomic":  nomic,
		"plain":  plain,
		"other":  other,
	} {
		d := Describe(e)
		if prev, ok := seen[d]; ok {
			t.Errorf("%s and %s share description %q", prev, name, d)
		}
		seen[d] = name
	}

	if got, want := Describe(NewCachedEmbedder(NewMockEmbedder(8), 4)), Describe(NewMockEmbedder(8)); got != want {
		t.Errorf("cached Describe = %q, want %q", got, want)
	}
	if got := Describe(NewMockEmbedder(8)); got != "mock/8" {
		t.Errorf("Describe = %q, want mock/8", got)
	}
}
