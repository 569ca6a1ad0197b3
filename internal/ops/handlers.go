package ops

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	stats := s.source.Stats()

	resp := HealthzResponse{
		Status:                  "ok",
		UptimeSeconds:           int64(time.Since(s.startedAt).Seconds()),
		DeliveriesReceived:      stats.Received,
		DeliveriesFailed:        stats.Failed,
		VerificationEnabled:     s.source.VerificationEnabled(),
		SuppressUpstreamRetries: s.source.RetrySuppressionEnabled(),
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleStatus handles GET /status (auth required).
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Service:                 s.config.Service,
		Version:                 s.config.Version,
		UptimeSeconds:           int64(time.Since(s.startedAt).Seconds()),
		VerificationEnabled:     s.source.VerificationEnabled(),
		SuppressUpstreamRetries: s.source.RetrySuppressionEnabled(),
		Deliveries:              s.source.Stats(),
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
