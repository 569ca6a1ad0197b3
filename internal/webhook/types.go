package webhook

import (
	"context"
	"encoding/json"

	"github.com/relayworks/talkrelay/internal/klaviyo"
)

// ProfileUpdater is the outbound side of a delivery: writing call
// completion properties onto a customer profile.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, profileID string, completion klaviyo.CallCompletion) (json.RawMessage, error)
}

// EventTypeCompleted is the only inbound event type that is relayed.
const EventTypeCompleted = "conversation_completed"

// Event is the inbound post-call payload. The sender's schema is loose,
// so every field is optional and unknown fields are ignored.
type Event struct {
	Type           string           `json:"type,omitempty"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Metadata       *Metadata        `json:"metadata,omitempty"`
	Transcript     []TranscriptTurn `json:"transcript,omitempty"`
}

// Metadata carries the correlation fields set by the calling platform.
// customer_id may live at the top level or inside dynamicVariables,
// depending on how the call was initiated.
type Metadata struct {
	CustomerID       string            `json:"customer_id,omitempty"`
	DynamicVariables *DynamicVariables `json:"dynamicVariables,omitempty"`
}

// DynamicVariables is the per-call variable bag passed to the voice agent.
type DynamicVariables struct {
	CustomerID string `json:"customer_id,omitempty"`
}

// TranscriptTurn is a single utterance in the conversation.
type TranscriptTurn struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Config holds webhook server configuration.
type Config struct {
	// Listen is the address for the inbound HTTP server.
	Listen string

	// Path is the URL path receiving post-call webhooks.
	Path string

	// Secret is the HMAC secret for signature verification. Empty
	// disables verification entirely (development only).
	Secret string

	// SignatureHeader is the HTTP header carrying the HMAC signature.
	SignatureHeader string

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64

	// SuppressUpstreamRetries answers handler failures with HTTP 200 so
	// the sending platform does not re-fire the webhook.
	SuppressUpstreamRetries bool
}

// SuccessResponse is the JSON response for relayed deliveries.
// Profile carries the profile API's response document when it sent one.
type SuccessResponse struct {
	Success    bool            `json:"success"`
	CustomerID string          `json:"customer_id"`
	Profile    json.RawMessage `json:"profile,omitempty"`
}

// SkippedResponse is the JSON response for events filtered by the type gate.
type SkippedResponse struct {
	Skipped bool   `json:"skipped"`
	Type    string `json:"type"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Stats is a snapshot of delivery counters since process start.
type Stats struct {
	Received  int64 `json:"received"`
	Rejected  int64 `json:"rejected"`
	Skipped   int64 `json:"skipped"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Default values
const (
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultPath            = "/api/talkback-complete"
	DefaultSignatureHeader = "x-elevenlabs-signature"
)
