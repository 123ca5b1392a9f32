// Package server provides the HTTP API for folio.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/search"
	"github.com/hyperjump/folio/internal/storage"
	"go.uber.org/zap"
)

// Server is the HTTP server for the folio API.
type Server struct {
	engine   *search.Engine
	indexer  *indexer.Indexer
	registry storage.Registry
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server

	// ingestCtx outlives requests; it is cancelled only when Stop runs out of time.
	ingestCtx    context.Context
	cancelIngest context.CancelFunc
	ingests      sync.WaitGroup
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	registry storage.Registry,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		engine:       engine,
		indexer:      idx,
		registry:     registry,
		config:       cfg,
		logger:       logger,
		ingestCtx:    ctx,
		cancelIngest: cancel,
	}
}

// Handler returns the router serving every API route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/upload", s.handleUpload)
	r.Get("/api/search", s.handleSearch)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/uploads", s.handleUpload)
		r.Get("/uploads", s.handleListUploads)
		r.Get("/uploads/{id}", s.handleGetUpload)
		r.Get("/collections", s.handleListCollections)
		r.Delete("/collections/{name}", s.handleDeleteCollection)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server, then waits for background ingestions
// until ctx is done. Ingestions still running at that point are cancelled.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if !s.waitIngests(ctx) {
		s.logger.Warn("cancelling in-flight ingestions")
		s.cancelIngest()
		s.ingests.Wait()
	}
	s.cancelIngest()
	return err
}

func (s *Server) waitIngests(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		s.ingests.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
