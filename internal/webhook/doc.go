// Package webhook implements the inbound post-call webhook endpoint.
//
// The relay accepts conversation-completed events from the voice platform,
// verifies their HMAC-SHA256 signature, and forwards a profile update to
// the marketing platform. One endpoint, one hop, no queue: a delivery is
// fully processed within its own HTTP request.
//
// # Security Model
//
// - HMAC-SHA256 signatures verified using crypto/subtle (constant-time comparison)
// - Signature computed over the exact raw body bytes, header form "sha256=<hex>"
// - Body size limits enforced to prevent DoS attacks
// - No signature details leaked in error responses (always generic 401)
// - An empty secret disables verification; intended for development only
// - Request logging excludes payload content except on correlation failures
//
// # Configuration
//
// The webhook listener is configured in config.yaml:
//
//	webhook:
//	  listen: "127.0.0.1:8085"
//	  path: /api/talkback-complete
//	  secret: ${ELEVENLABS_WEBHOOK_SECRET}
//	  signature_header: x-elevenlabs-signature
//	  max_body_size: 1MB
//	policy:
//	  suppress_upstream_retries: true
//
// # Request Flow
//
//  1. HTTP POST arrives at the configured path (other methods get 405)
//  2. Body size checked (reject with 413 if too large)
//  3. Body parsed as JSON (failures go to the error boundary)
//  4. HMAC-SHA256 verified over the raw body (reject with 401 if mismatch)
//  5. Event type gated: only conversation_completed is relayed (200 skipped)
//  6. customer_id resolved from metadata, dynamicVariables as fallback (400 if absent)
//  7. Transcript flattened to speaker-labelled lines
//  8. Profile PATCHed with completion properties
//  9. 200 returned with {"success": true, "customer_id": ...}
//
// # Error Responses
//
// - 401 Unauthorized: Invalid or missing signature (no details)
// - 400 Bad Request: No customer_id in the payload
// - 405 Method Not Allowed: Non-POST request
// - 413 Payload Too Large: Body exceeds max_body_size
// - 200 with {"error": ...}: Parse or dispatch failure while retry
//   suppression is enabled; 500 with the same body otherwise
//
// # Example Usage
//
//	cfg := webhook.Config{
//		Listen:                  "127.0.0.1:8085",
//		Path:                    "/api/talkback-complete",
//		Secret:                  os.Getenv("ELEVENLABS_WEBHOOK_SECRET"),
//		SignatureHeader:         "x-elevenlabs-signature",
//		MaxBodySize:             1048576,
//		SuppressUpstreamRetries: true,
//	}
//
//	server := webhook.New(cfg, klaviyoClient, hub, logger)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
