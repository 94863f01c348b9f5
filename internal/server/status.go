package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/askpdf/internal/storage"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]interface{}{
		"cache":          s.cache.Stats(),
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	}

	if s.storage != nil {
		corpora, err := s.storage.CountCorpora(ctx)
		if err != nil {
			s.logger.Error("status: count corpora failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		chunks, err := s.storage.CountChunks(ctx)
		if err != nil {
			s.logger.Error("status: count chunks failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["stored_corpora"] = corpora
		resp["stored_chunks"] = chunks
	}

	if s.config != nil {
		cfg := s.config
		resp["config"] = map[string]interface{}{
			"embedding_provider":  cfg.Embedding.Provider,
			"embedding_model":     cfg.Embedding.Model,
			"generation_provider": cfg.Generation.Provider,
			"generation_model":    cfg.Generation.Model,
			"index_backend":       cfg.Index.Backend,
			"chunk_size":          cfg.Chunking.ChunkSize,
			"chunk_overlap":       cfg.Chunking.OverlapOrDefault(),
			"top_k":               cfg.Retrieval.TopK,
			"database_path":       cfg.Storage.DatabasePath,
			"upload_dir":          cfg.Storage.UploadDir,
		}
		usage, err := storage.MeasureDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.UploadDir)
		if err == nil {
			resp["disk_usage_bytes"] = usage.Total()
			resp["disk_usage"] = usage
		}
	}

	if s.inbox != nil {
		resp["inbox"] = s.inbox.Status()
	}
	s.respondJSON(w, http.StatusOK, resp)
}
