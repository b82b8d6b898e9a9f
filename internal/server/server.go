package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"media-rag/internal/config"
	"media-rag/internal/session"
)

// requestTimeout bounds a request, including ingestion of uploaded media.
const requestTimeout = 10 * time.Minute

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.ServerConfig, store *session.Store) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, store),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func NewRouter(cfg *config.ServerConfig, store *session.Store) http.Handler {
	h := &Handler{store: store}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api/sessions", func(api chi.Router) {
		api.Post("/", h.CreateSession)
		api.Route("/{id}", func(s chi.Router) {
			s.Post("/sources", h.AddSources)
			s.Get("/sources", h.ListSources)
			s.Post("/ask", h.Ask)
			s.Get("/history", h.History)
		})
	})
	return r
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
