package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"eventstream/internal/ledger"
	"eventstream/internal/storage"
)

// StreamState reports what the event streamer is doing
type StreamState interface {
	State() ledger.Mode
}

// Server represents the HTTP API server
// Provides endpoints for Prometheus metrics, health checks and stored events
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	repository storage.Repository // nil when no database is configured
	stream     StreamState
	port       int
}

// NewServer creates a new API server instance
func NewServer(port int, repository storage.Repository, stream StreamState) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:        mux,
		repository: repository,
		stream:     stream,
		port:       port,
	}

	// Register all HTTP routes
	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	s.mux.HandleFunc("/events", s.handleListEvents)
}

// Handler exposes the route table
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server in a goroutine
// Returns immediately after starting the server
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/events"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server
// Waits for active connections to close or context to timeout
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
