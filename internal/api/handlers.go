package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"eventstream/internal/ledger"
	"eventstream/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "Stellar Event Stream",
		"version":     "1.0.0",
		"description": "Contract event streamer for Stellar",
		"endpoints": map[string]string{
			"GET /":        "This page - Service information",
			"GET /health":  "Health check endpoint",
			"GET /metrics": "Prometheus metrics for monitoring",
			"GET /events":  "List stored events (supports ?contract_id=, ?limit=, ?offset=)",
		},
	}

	s.sendJSON(w, http.StatusOK, info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK

	database := "disabled"
	if s.repository != nil {
		database = "ok"
		if err := s.repository.Ping(r.Context()); err != nil {
			slog.Error("Database ping failed", "error", err)
			database = "unreachable"
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	mode := ledger.ModeIdle
	if s.stream != nil {
		mode = s.stream.State()
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"service":   "stellar-eventstream",
		"database":  database,
		"stream":    mode.String(),
	}

	s.sendJSON(w, code, health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// handleListEvents lists stored events in id order
// GET /events?contract_id=CXXX...&limit=50&offset=0
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.repository == nil {
		s.sendError(w, "Event storage is not configured", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()

	// Pagination
	limit := defaultPageSize
	if limitStr := query.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= maxPageSize {
			limit = parsed
		}
	}

	offset := 0
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	contractID := query.Get("contract_id")
	if contractID != "" {
		if err := models.ValidateContractID(contractID); err != nil {
			s.sendError(w, "Invalid contract_id", http.StatusBadRequest)
			return
		}
	}

	events, err := s.repository.ListEvents(r.Context(), contractID, limit, offset)
	if err != nil {
		slog.Error("Failed to list events", "contract_id", contractID, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []models.EventRecord{}
	}

	s.sendJSON(w, http.StatusOK, models.EventListResponse{
		Events: events,
		Count:  len(events),
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
