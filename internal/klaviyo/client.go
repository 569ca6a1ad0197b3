// Package klaviyo implements the outbound profile update client.
//
// The relay writes call-completion properties onto a Klaviyo profile via
// the JSON:API PATCH endpoint. Authentication is a static private API key;
// the API revision is pinned per client so Klaviyo-side schema changes
// never surprise a running relay.
package klaviyo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relayworks/talkrelay/internal/log"
)

const (
	DefaultBaseURL  = "https://a.klaviyo.com"
	DefaultRevision = "2024-07-15"
	DefaultTimeout  = 10 * time.Second

	// Response bodies are capped; the profile API answers are small.
	maxResponseBody = 1 << 20
)

// Config carries the client settings, usually from config.KlaviyoConfig.
type Config struct {
	BaseURL  string
	APIKey   string
	Revision string
	Timeout  time.Duration
}

// Client talks to the Klaviyo profile API. One attempt per call, no
// retries: retry orchestration belongs to the caller's policy, not here.
type Client struct {
	baseURL    string
	apiKey     string
	revision   string
	httpClient *http.Client
	logger     *slog.Logger

	// now stamps completedAt; swapped out in tests.
	now func() time.Time
}

// CallCompletion carries the per-call properties recorded on the profile.
// Nil fields serialize as JSON null.
type CallCompletion struct {
	ConversationID *string
	TranscriptText *string
}

// APIError describes a non-success response from the profile API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Klaviyo API error %d: %s", e.StatusCode, e.Body)
}

func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	revision := cfg.Revision
	if revision == "" {
		revision = DefaultRevision
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   cfg.APIKey,
		revision: revision,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.WithComponent("klaviyo"),
		now:    time.Now,
	}
}

// Wire shape of the PATCH body.
type profilePatch struct {
	Data profileData `json:"data"`
}

type profileData struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Attributes profileAttributes `json:"attributes"`
}

type profileAttributes struct {
	Properties profileProperties `json:"properties"`
}

type profileProperties struct {
	Status         string  `json:"status"`
	CompletedAt    string  `json:"completedAt"`
	ConversationID *string `json:"conversationId"`
	TranscriptText *string `json:"transcriptText"`
}

// UpdateProfile PATCHes completion properties onto a profile.
// A 204 returns (nil, nil). Any other 2xx returns the response document.
// Non-2xx statuses return an *APIError embedding status and body text.
func (c *Client) UpdateProfile(ctx context.Context, profileID string, completion CallCompletion) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/api/profiles/%s/", c.baseURL, url.PathEscape(profileID))

	patch := profilePatch{
		Data: profileData{
			Type: "profile",
			ID:   profileID,
			Attributes: profileAttributes{
				Properties: profileProperties{
					Status:         "completed",
					CompletedAt:    c.now().UTC().Format(time.RFC3339),
					ConversationID: completion.ConversationID,
					TranscriptText: completion.TranscriptText,
				},
			},
		},
	}

	jsonData, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Klaviyo-API-Key "+c.apiKey)
	req.Header.Set("revision", c.revision)
	req.Header.Set("Content-Type", "application/vnd.api+json")
	req.Header.Set("Accept", "application/vnd.api+json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("profile update response",
		"profile_id", profileID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("profile API returned invalid JSON (status %d)", resp.StatusCode)
	}

	return json.RawMessage(body), nil
}
