// Package api exposes the HTTP surface: batch control, on-demand
// shredding and the media endpoints that resolve zim:// locators to
// bytes straight out of the archive.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/zimshred/internal/archive"
	"github.com/dgallion1/zimshred/internal/config"
	"github.com/dgallion1/zimshred/internal/pipeline"
)

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	reader       archive.Reader
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, reader archive.Reader, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		reader:       reader,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/media/{filename}", s.handleMedia)
	r.Get("/commons-link/{filename}", s.handleCommonsLink)

	// Authenticated control endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/batches", s.handleStartBatch)
		r.Get("/api/batches/{runID}", s.handleBatchStatus)
		r.Get("/api/articles/{articleID}/shred", s.handleShredArticle)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
