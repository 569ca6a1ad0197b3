// Package metrics holds the Prometheus collectors for the relay.
// They are registered on the default registry and exposed by the ops
// server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveriesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkrelay_deliveries_received_total",
			Help: "Total webhook deliveries accepted for processing",
		},
	)

	DeliveriesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkrelay_deliveries_rejected_total",
			Help: "Total webhook deliveries rejected before dispatch",
		},
		[]string{"reason"},
	)

	DeliveriesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkrelay_deliveries_skipped_total",
			Help: "Total webhook deliveries skipped by the event type gate",
		},
	)

	ProfileUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkrelay_profile_updates_total",
			Help: "Total outbound profile updates by outcome",
		},
		[]string{"outcome"},
	)

	ProfileUpdateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "talkrelay_profile_update_duration_seconds",
			Help: "Duration of outbound profile update calls in seconds",
		},
	)

	MaskedErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkrelay_masked_errors_total",
			Help: "Handler failures answered 200 to suppress upstream retries",
		},
	)
)
