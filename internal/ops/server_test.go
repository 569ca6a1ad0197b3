package ops

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/relayworks/talkrelay/internal/events"
	"github.com/relayworks/talkrelay/internal/ops/mocks"
	"github.com/relayworks/talkrelay/internal/webhook"
)

// TestLogBuffer is a bytes.Buffer that can be used to capture log output.
type TestLogBuffer struct {
	bytes.Buffer
}

// NewTestSlogger creates a new *slog.Logger that writes to a TestLogBuffer.
func NewTestSlogger() (*slog.Logger, *TestLogBuffer) {
	var buf TestLogBuffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), &buf
}

func testServer(source DeliverySource) *Server {
	slogger, _ := NewTestSlogger()
	cfg := Config{
		Listen:  "127.0.0.1:0",
		Token:   "ops-token",
		Service: "talkrelay",
		Version: "test",
	}
	return New(cfg, source, events.NewHub(16), slogger)
}

func TestHandleHealthz(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockDeliverySource(ctrl)
	source.EXPECT().Stats().Return(webhook.Stats{Received: 5, Failed: 1})
	source.EXPECT().VerificationEnabled().Return(true)
	source.EXPECT().RetrySuppressionEnabled().Return(true)

	s := testServer(source)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthzResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(5), resp.DeliveriesReceived)
	assert.Equal(t, int64(1), resp.DeliveriesFailed)
	assert.True(t, resp.VerificationEnabled)
	assert.True(t, resp.SuppressUpstreamRetries)
}

func TestHandleStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockDeliverySource(ctrl)
	s := testServer(source)
	router := s.Routes()

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp ErrorResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "missing Authorization header", resp.Error)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		source.EXPECT().Stats().Return(webhook.Stats{Received: 3, Completed: 2, Rejected: 1})
		source.EXPECT().VerificationEnabled().Return(false)
		source.EXPECT().RetrySuppressionEnabled().Return(false)

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set("Authorization", "Bearer ops-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp StatusResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "talkrelay", resp.Service)
		assert.Equal(t, int64(3), resp.Deliveries.Received)
		assert.Equal(t, int64(2), resp.Deliveries.Completed)
		assert.Equal(t, int64(1), resp.Deliveries.Rejected)
		assert.False(t, resp.VerificationEnabled)
		assert.False(t, resp.SuppressUpstreamRetries)
	})
}

func TestEventsRequiresAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := testServer(mocks.NewMockDeliverySource(ctrl))

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := testServer(mocks.NewMockDeliverySource(ctrl))

	// No auth: the ops listener is loopback-only and Prometheus scrapers
	// don't carry bearer tokens.
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "talkrelay_deliveries_received_total")
}

func TestEventsStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockDeliverySource(ctrl)
	slogger, _ := NewTestSlogger()
	hub := events.NewHub(16)

	hub.Publish(events.DeliveryReceived, events.DeliveryEvent{DeliveryID: "d-1"})
	hub.Publish(events.DeliveryCompleted, events.DeliveryEvent{DeliveryID: "d-1", CustomerID: "cust-7"})

	s := New(Config{Listen: "127.0.0.1:0", Token: "ops-token", Service: "talkrelay"}, source, hub, slogger)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer ops-token")
	// Resume after the first event; only the second should replay.
	req.Header.Set("Last-Event-ID", "1")

	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	lines := make([]string, 0, 3)
	for range 3 {
		line, err := reader.ReadString('\n')
		assert.NoError(t, err)
		lines = append(lines, strings.TrimRight(line, "\n"))
	}

	assert.Equal(t, "id: 2", lines[0])
	assert.Equal(t, "event: "+events.DeliveryCompleted, lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "data: "))
	assert.Contains(t, lines[2], `"customer_id":"cust-7"`)

	cancel()
}
