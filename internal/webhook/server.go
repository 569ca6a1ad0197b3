package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/relayworks/talkrelay/internal/events"
	"github.com/relayworks/talkrelay/internal/klaviyo"
	"github.com/relayworks/talkrelay/internal/metrics"
)

// Server represents the webhook HTTP server.
type Server struct {
	config  Config
	updater ProfileUpdater
	hub     *events.Hub
	logger  *slog.Logger
	server  *http.Server

	stats struct {
		received  atomic.Int64
		rejected  atomic.Int64
		skipped   atomic.Int64
		completed atomic.Int64
		failed    atomic.Int64
	}
}

// New creates a new webhook server instance. hub may be nil when no
// event stream is wanted (tests, one-shot tools).
func New(config Config, updater ProfileUpdater, hub *events.Hub, logger *slog.Logger) *Server {
	// Apply defaults
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}

	return &Server{
		config:  config,
		updater: updater,
		hub:     hub,
		logger:  logger,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "path", s.config.Path)
	if s.config.Secret == "" {
		s.logger.Warn("signature verification disabled: no webhook secret configured, do not run this outside development")
	}

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Routes returns the configured router. Tests mount it on httptest.
func (s *Server) Routes() http.Handler {
	return s.setupRoutes()
}

// Stats returns a snapshot of delivery counters since process start.
func (s *Server) Stats() Stats {
	return Stats{
		Received:  s.stats.received.Load(),
		Rejected:  s.stats.rejected.Load(),
		Skipped:   s.stats.skipped.Load(),
		Completed: s.stats.completed.Load(),
		Failed:    s.stats.failed.Load(),
	}
}

// VerificationEnabled reports whether inbound signatures are checked.
func (s *Server) VerificationEnabled() bool {
	return s.config.Secret != ""
}

// RetrySuppressionEnabled reports whether handler failures are answered
// 200 instead of 500.
func (s *Server) RetrySuppressionEnabled() bool {
	return s.config.SuppressUpstreamRetries
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Non-POST methods on the webhook path get a structured error, not
	// chi's bare text default.
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "not found")
	})

	r.Post(s.config.Path, s.handleTalkback)

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Log request (no body content for security)
		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleTalkback processes a post-call webhook delivery end to end:
// read, parse, verify, gate, resolve the customer, flatten the
// transcript, update the profile. The first failing step answers.
func (s *Server) handleTalkback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deliveryID := uuid.NewString()
	logger := s.logger.With("delivery_id", deliveryID, "request_id", middleware.GetReqID(ctx))

	s.stats.received.Add(1)
	metrics.DeliveriesReceived.Inc()
	s.publish(events.DeliveryReceived, events.DeliveryEvent{DeliveryID: deliveryID})

	// Enforce body size limit
	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		logger.Warn("failed to read request body", "error", err)
		s.reject(w, deliveryID, http.StatusInternalServerError, "failed to read request body", "read_error")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		logger.Warn("payload too large", "max_body_size", s.config.MaxBodySize)
		s.reject(w, deliveryID, http.StatusRequestEntityTooLarge, "payload too large", "too_large")
		return
	}

	// Parse. A body that is not JSON is an unexpected failure, handled
	// by the same boundary as dispatch errors.
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		s.fail(w, logger, deliveryID, "", fmt.Errorf("invalid JSON payload: %w", err))
		return
	}

	// Verify the HMAC signature over the exact raw body bytes. An empty
	// secret skips verification entirely.
	if s.config.Secret != "" {
		signature := r.Header.Get(s.config.SignatureHeader)
		if signature == "" {
			logger.Warn("webhook signature missing", "header", s.config.SignatureHeader)
			s.reject(w, deliveryID, http.StatusUnauthorized, "invalid signature", "bad_signature")
			return
		}
		if err := verifyHMACSignature(body, signature, s.config.Secret); err != nil {
			logger.Warn("webhook signature verification failed", "error", err)
			s.reject(w, deliveryID, http.StatusUnauthorized, "invalid signature", "bad_signature")
			return
		}
	}

	// Event type gate: relay only completed conversations. An absent
	// type is treated as completed.
	if ev.Type != "" && ev.Type != EventTypeCompleted {
		s.stats.skipped.Add(1)
		metrics.DeliveriesSkipped.Inc()
		logger.Info("skipping event", "type", ev.Type)
		s.publish(events.DeliverySkipped, events.DeliveryEvent{DeliveryID: deliveryID, EventType: ev.Type})
		s.respondJSON(w, http.StatusOK, SkippedResponse{Skipped: true, Type: ev.Type})
		return
	}

	custID := customerID(&ev)
	if custID == "" {
		// Full payload logged so the unroutable call can be traced.
		logger.Error("missing customer_id in webhook payload", "payload", string(body))
		s.reject(w, deliveryID, http.StatusBadRequest, "Missing customer_id in metadata", "missing_customer_id")
		return
	}

	var completion klaviyo.CallCompletion
	if ev.ConversationID != "" {
		completion.ConversationID = &ev.ConversationID
	}
	if text := flattenTranscript(ev.Transcript); text != "" {
		completion.TranscriptText = &text
	}

	start := time.Now()
	profile, err := s.updater.UpdateProfile(ctx, custID, completion)
	duration := time.Since(start)
	metrics.ProfileUpdateDuration.Observe(duration.Seconds())
	if err != nil {
		metrics.ProfileUpdates.WithLabelValues("error").Inc()
		s.fail(w, logger, deliveryID, custID, err)
		return
	}
	metrics.ProfileUpdates.WithLabelValues("success").Inc()

	s.stats.completed.Add(1)
	logger.Info("delivery completed",
		"customer_id", custID,
		"conversation_id", ev.ConversationID,
		"duration_ms", duration.Milliseconds(),
	)
	s.publish(events.DeliveryCompleted, events.DeliveryEvent{
		DeliveryID:     deliveryID,
		CustomerID:     custID,
		ConversationID: ev.ConversationID,
		DurationMS:     duration.Milliseconds(),
	})

	s.respondJSON(w, http.StatusOK, SuccessResponse{Success: true, CustomerID: custID, Profile: profile})
}

// reject answers a delivery that failed an explicit gate (signature,
// size, correlation). These statuses are part of the wire contract.
func (s *Server) reject(w http.ResponseWriter, deliveryID string, status int, message, reason string) {
	s.stats.rejected.Add(1)
	metrics.DeliveriesRejected.WithLabelValues(reason).Inc()
	s.publish(events.DeliveryRejected, events.DeliveryEvent{DeliveryID: deliveryID, Reason: reason, Status: status})
	s.respondError(w, status, message)
}

// fail is the top-level error boundary for unexpected failures: parse
// errors and outbound dispatch errors. With retry suppression on, the
// error is logged and answered 200 so the platform does not re-send a
// delivery that will fail the same way again.
func (s *Server) fail(w http.ResponseWriter, logger *slog.Logger, deliveryID, custID string, err error) {
	s.stats.failed.Add(1)
	logger.Error("delivery failed", "customer_id", custID, "error", err)
	s.publish(events.DeliveryFailed, events.DeliveryEvent{DeliveryID: deliveryID, CustomerID: custID, Reason: err.Error()})

	if s.config.SuppressUpstreamRetries {
		metrics.MaskedErrors.Inc()
		s.respondJSON(w, http.StatusOK, ErrorResponse{Error: err.Error()})
		return
	}
	s.respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func (s *Server) publish(eventType string, ev events.DeliveryEvent) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(eventType, ev)
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
