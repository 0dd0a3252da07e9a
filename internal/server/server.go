package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"MarketPulse/internal/snapshot"

	"github.com/rs/zerolog"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
}

// Server is the HTTP surface over the snapshot service and the scanner.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// NewServer creates a Server with all routes registered.
func NewServer(cfg Config, svc *snapshot.Service, movers MoversSource, logger zerolog.Logger) *Server {
	lg := logger.With().Str("component", "http").Logger()
	h := &handlers{svc: svc, movers: movers, log: lg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.health)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /analyze", h.analyze)
	mux.HandleFunc("GET /quote/{symbol}", h.quote)
	mux.HandleFunc("GET /movers", h.listMovers)

	var handler http.Handler = mux
	handler = requestLogging(lg)(handler)
	handler = cors(cfg.CORSOrigins)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: lg,
	}
}

// Handler exposes the routed handler chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. It blocks until the server fails or is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
