// Package server provides the HTTP API over the question-answering pipeline.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/askpdf/internal/cache"
	"github.com/hyperjump/askpdf/internal/config"
	"github.com/hyperjump/askpdf/internal/rag"
	"github.com/hyperjump/askpdf/internal/storage"
	"github.com/hyperjump/askpdf/internal/watcher"
)

// WatchService manages watched directories.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, rescan bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the askpdf API.
type Server struct {
	pipeline *rag.Pipeline
	cache    *cache.IndexCache
	storage  storage.Storage
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server

	watch      WatchService
	inbox      *watcher.Inbox
	configPath string
	configMu   sync.Mutex
	startedAt  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithStorage exposes stored corpora in listings and status.
func WithStorage(s storage.Storage) Option {
	return func(srv *Server) {
		srv.storage = s
	}
}

// WithWatch enables the watch directory endpoints. When configPath is set,
// directory changes are saved back to the config file.
func WithWatch(w WatchService, inbox *watcher.Inbox, configPath string) Option {
	return func(srv *Server) {
		srv.watch = w
		srv.inbox = inbox
		srv.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(pipeline *rag.Pipeline, c *cache.IndexCache, cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline:  pipeline,
		cache:     c,
		config:    cfg,
		logger:    logger,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Get("/corpora", s.handleListCorpora)
		r.Post("/corpora", s.handleUpload)
		r.Route("/corpora/{key}", func(r chi.Router) {
			r.Get("/", s.handleGetCorpus)
			r.Delete("/", s.handleDeleteCorpus)
			r.Post("/ask", s.handleAsk)
			r.Post("/summarize", s.handleSummarize)
			r.Get("/passages", s.handlePassages)
		})

		r.Post("/simplify", s.handleSimplify)
		r.Post("/translate", s.handleTranslate)
		r.Post("/chat", s.handleChat)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
		r.Get("/watch/inbox", s.handleInboxStatus)
	})
	return r
}

func (s *Server) requestTimeout() time.Duration {
	if s.config != nil && s.config.Server.RequestTimeoutSeconds > 0 {
		return time.Duration(s.config.Server.RequestTimeoutSeconds) * time.Second
	}
	return 180 * time.Second
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
