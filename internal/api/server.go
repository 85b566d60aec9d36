// Package api provides the versioned REST API for watchdog unit state and
// audit history. All endpoints are under /watchdog/api/v1/.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"watchdogd/internal/config"
	"watchdogd/internal/history"
	"watchdogd/internal/watchdogserver"
)

// APIPrefix is the base path for all API endpoints.
const APIPrefix = "/watchdog/api/v1"

// UnitSnapshotProvider is the subset of *watchdogserver.Server the API needs.
// It exists so handlers can be tested against a fake without a real server.
type UnitSnapshotProvider interface {
	Snapshot() []watchdogserver.UnitSnapshot
}

// Server handles API requests for live unit state and audit history.
type Server struct {
	units   UnitSnapshotProvider
	history history.Store
	cfg     config.Config
	logger  *slog.Logger
}

// NewServer creates a new API server. history may be nil if history
// tracking is disabled; requests to /history then return 503.
func NewServer(units UnitSnapshotProvider, hist history.Store, cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		units:   units,
		history: hist,
		cfg:     cfg,
		logger:  logger,
	}
}

// ServeHTTP handles API requests. It expects paths starting with
// /watchdog/api/v1/.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, APIPrefix)
	if path == r.URL.Path {
		http.NotFound(w, r)
		return
	}

	switch {
	case path == "/units" && r.Method == http.MethodGet:
		s.handleListUnits(w, r)
	case path == "/history" && r.Method == http.MethodGet:
		s.handleListHistory(w, r)
	case path == "/config" && r.Method == http.MethodGet:
		s.handleConfig(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Handles reports whether path falls under this API's prefix.
func (s *Server) Handles(path string) bool {
	return strings.HasPrefix(path, APIPrefix)
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	var n int
	for _, c := range s {
		if c >= '0' && c <= '9' {
			n = n*10 + int(c-'0')
		} else {
			return def
		}
	}
	return n
}
