package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/askpdf/internal/cache"
	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/internal/rag"
	"github.com/hyperjump/askpdf/internal/vector"
)

const defaultMaxUploadMB = 200

type uploadResponse struct {
	Key       string   `json:"key"`
	Documents []string `json:"documents"`
	Chunks    int      `json:"chunks"`
	Reused    bool     `json:"reused"`
}

func (s *Server) maxUploadBytes() int64 {
	mb := defaultMaxUploadMB
	if s.config != nil && s.config.Server.MaxUploadMB > 0 {
		mb = s.config.Server.MaxUploadMB
	}
	return int64(mb) << 20
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", limit))
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one file is required in field \"files\"")
		return
	}

	docs := make([]*models.Document, 0, len(files))
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "cannot read upload "+name)
			return
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "cannot read upload "+name)
			return
		}
		s.saveUpload(name, content)
		doc, err := s.pipeline.Indexer().NewDocument(name, content)
		if err != nil {
			s.respondFailure(w, "upload", err)
			return
		}
		docs = append(docs, doc)
	}
	s.logger.Debug("upload request", zap.Int("files", len(docs)))

	corpus, reused, err := s.cache.GetOrBuild(r.Context(), docs, func(ctx context.Context) (vector.Index, error) {
		return s.pipeline.BuildDocuments(ctx, docs)
	})
	if err != nil {
		s.respondFailure(w, "build index", err)
		return
	}
	status := http.StatusCreated
	if reused {
		status = http.StatusOK
	}
	s.respondJSON(w, status, uploadResponse{
		Key:       corpus.Key,
		Documents: corpus.Documents,
		Chunks:    corpus.Index.Len(),
		Reused:    reused,
	})
}

// saveUpload keeps a copy of an upload under the upload directory. Failures are logged.
func (s *Server) saveUpload(name string, content []byte) {
	if s.config == nil || s.config.Storage.UploadDir == "" {
		return
	}
	dir := s.config.Storage.UploadDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Warn("failed to create upload directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	path := filepath.Join(dir, uuid.NewString()+"-"+name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		s.logger.Warn("failed to save upload", zap.String("path", path), zap.Error(err))
	}
}

func (s *Server) corpus(w http.ResponseWriter, r *http.Request) (*cache.Corpus, bool) {
	key := chi.URLParam(r, "key")
	corpus, err := s.cache.Get(r.Context(), key)
	if err != nil {
		s.respondFailure(w, "load corpus", err)
		return nil, false
	}
	return corpus, true
}

func (s *Server) handleListCorpora(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"corpora": s.cache.List()})
		return
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	list, err := s.storage.ListCorpora(r.Context(), offset, limit)
	if err != nil {
		s.respondFailure(w, "list corpora", err)
		return
	}
	for _, info := range list {
		info.Cached = s.cache.Contains(info.Key)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"corpora": list})
}

func (s *Server) handleGetCorpus(w http.ResponseWriter, r *http.Request) {
	corpus, ok := s.corpus(w, r)
	if !ok {
		return
	}
	info := corpus.Info()
	info.Cached = s.cache.Contains(corpus.Key)
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteCorpus(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge"))
	s.logger.Debug("delete corpus request", zap.String("key", key), zap.Bool("purge", purge))
	if err := s.cache.Evict(r.Context(), key, purge); err != nil {
		s.respondFailure(w, "delete corpus", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "evicted"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	corpus, ok := s.corpus(w, r)
	if !ok {
		return
	}
	s.logger.Debug("ask request", zap.String("key", corpus.Key), zap.Int("top_k", req.TopK))

	start := time.Now()
	result, err := s.pipeline.Ask(r.Context(), &req, corpus.Index)
	if err != nil {
		s.respondFailure(w, "ask", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.AnswerResponse{
		AnswerResult: result,
		Snippets:     rag.Snippets(result.SupportingChunks),
		QueryTime:    time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	corpus, ok := s.corpus(w, r)
	if !ok {
		return
	}
	summary, err := s.pipeline.Summarize(r.Context(), corpus.Index.Chunks())
	if err != nil {
		s.respondFailure(w, "summarize", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handlePassages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	corpus, ok := s.corpus(w, r)
	if !ok {
		return
	}
	passages, err := corpus.Passages()
	if err != nil {
		s.respondFailure(w, "passages", err)
		return
	}
	resp, err := s.pipeline.Passages(r.Context(), passages, query, limit)
	if err != nil {
		s.respondFailure(w, "passages", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSimplify(w http.ResponseWriter, r *http.Request) {
	var req models.TransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := s.pipeline.Simplify(r.Context(), req.Text)
	if err != nil {
		s.respondFailure(w, "simplify", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.TransformResponse{Text: out, Changed: out != req.Text})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req models.TransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := s.pipeline.Translate(r.Context(), req.Text, req.Language)
	if err != nil {
		s.respondFailure(w, "translate", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.TransformResponse{Text: out, Changed: out != req.Text})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	reply, err := s.pipeline.Chat(r.Context(), req.Message, req.History)
	if err != nil {
		s.respondFailure(w, "chat", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
