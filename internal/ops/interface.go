package ops

import (
	"github.com/relayworks/talkrelay/internal/webhook"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks github.com/relayworks/talkrelay/internal/ops DeliverySource

// DeliverySource exposes the webhook server state read by the ops API.
type DeliverySource interface {
	Stats() webhook.Stats
	VerificationEnabled() bool
	RetrySuppressionEnabled() bool
}
