// Package server exposes the editing pipeline over HTTP: manuscript upsert
// and inspection, pipeline runs, and reference search.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inkhouse/copydesk/internal/history"
	"github.com/inkhouse/copydesk/internal/manuscript"
	"github.com/inkhouse/copydesk/internal/pipeline"
	"github.com/inkhouse/copydesk/internal/retrieval"
)

// Config holds server configuration.
type Config struct {
	Addr     string
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server is the copydesk HTTP server.
type Server struct {
	cfg          Config
	repo         manuscript.Repository
	orchestrator *pipeline.Orchestrator
	retriever    *retrieval.Retriever
	history      *history.Store
	router       chi.Router
	httpServer   *http.Server
}

// New creates a server. retriever may be nil, which disables reference
// search.
func New(cfg Config, repo manuscript.Repository, orchestrator *pipeline.Orchestrator, retriever *retrieval.Retriever) *Server {
	s := &Server{
		cfg:          cfg,
		repo:         repo,
		orchestrator: orchestrator,
		retriever:    retriever,
	}
	s.router = s.buildRouter()
	return s
}

// SetHistory enables the run history endpoint. Without it the endpoint
// reports history as unconfigured.
func (s *Server) SetHistory(store *history.Store) {
	s.history = store
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.registerRoutes(r)
	return r
}

// Router returns the chi router, for tests and for mounting extra routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("copydesk server listening on %s", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
