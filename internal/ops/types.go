package ops

import (
	"github.com/relayworks/talkrelay/internal/webhook"
)

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status                  string `json:"status"`
	UptimeSeconds           int64  `json:"uptime_seconds"`
	DeliveriesReceived      int64  `json:"deliveries_received"`
	DeliveriesFailed        int64  `json:"deliveries_failed"`
	VerificationEnabled     bool   `json:"verification_enabled"`
	SuppressUpstreamRetries bool   `json:"suppress_upstream_retries"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Service                 string        `json:"service"`
	Version                 string        `json:"version,omitempty"`
	UptimeSeconds           int64         `json:"uptime_seconds"`
	VerificationEnabled     bool          `json:"verification_enabled"`
	SuppressUpstreamRetries bool          `json:"suppress_upstream_retries"`
	Deliveries              webhook.Stats `json:"deliveries"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}
