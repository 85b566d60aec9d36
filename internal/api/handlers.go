package api

import (
	"net/http"

	"watchdogd/internal/history"
)

// UnitResponse is the wire shape of a single unit's live state.
type UnitResponse struct {
	Name      string `json:"name"`
	PID       int    `json:"pid"`
	BaseTTL   uint   `json:"base_ttl"`
	TimeoutMS uint   `json:"timeout_ms"`
	TTL       int    `json:"ttl"`
	OnFailure string `json:"on_failure"`
}

// UnitListResponse contains the full live unit table.
type UnitListResponse struct {
	Units []UnitResponse `json:"units"`
}

// handleListUnits returns a snapshot of every registered unit.
// GET /watchdog/api/v1/units
func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	if s.units == nil {
		s.writeError(w, http.StatusServiceUnavailable, "watchdog server not available")
		return
	}

	snaps := s.units.Snapshot()
	items := make([]UnitResponse, len(snaps))
	for i, u := range snaps {
		items[i] = UnitResponse{
			Name:      u.Name,
			PID:       u.PID,
			BaseTTL:   u.Settings.BaseTTL,
			TimeoutMS: u.Settings.TimeoutMS,
			TTL:       u.TTL,
			OnFailure: u.OnFailure.String(),
		}
	}

	s.writeJSON(w, UnitListResponse{Units: items})
}

// HistoryListResponse contains a page of audit events, most recent first.
type HistoryListResponse struct {
	Events []history.Event `json:"events"`
}

// handleListHistory returns recorded audit events.
// GET /watchdog/api/v1/history?unit=&limit=100
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history store not available")
		return
	}

	q := r.URL.Query()
	opts := history.ListOptions{
		UnitName: q.Get("unit"),
		Limit:    parseInt(q.Get("limit"), 100),
	}

	events, err := s.history.List(opts)
	if err != nil {
		s.logger.Error("failed to list history", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	s.writeJSON(w, HistoryListResponse{Events: events})
}

// ConfigResponse reports a subset of the running configuration useful to a
// dashboard client.
type ConfigResponse struct {
	ServerName      string `json:"server_name"`
	ScanPeriodMS    int    `json:"scan_period_ms"`
	HistoryBackend  string `json:"history_backend"`
	MetricsEnabled  bool   `json:"metrics_enabled"`
	MetricsPath     string `json:"metrics_path"`
	RecoveryMaxHour int    `json:"recovery_max_per_hour"`
}

// handleConfig returns the current configuration.
// GET /watchdog/api/v1/config
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, ConfigResponse{
		ServerName:      s.cfg.ServerName,
		ScanPeriodMS:    s.cfg.ScanPeriodMS,
		HistoryBackend:  string(s.cfg.HistoryBackend),
		MetricsEnabled:  s.cfg.MetricsEnabled,
		MetricsPath:     s.cfg.MetricsPath,
		RecoveryMaxHour: s.cfg.RecoveryMaxPerHour,
	})
}
