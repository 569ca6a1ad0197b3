package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// verifyHMACSignature verifies an HMAC-SHA256 signature against the request body.
//
// The signature header value must be "sha256=<hex>", the digest computed
// over the exact raw body bytes. Comparison uses crypto/subtle so timing
// does not leak how much of a guessed signature matched.
//
// Returns nil if signature is valid, error otherwise.
// All errors are generic to prevent information leakage.
func verifyHMACSignature(body []byte, signature, secret string) error {
	if secret == "" {
		return fmt.Errorf("webhook verification failed")
	}

	if signature == "" {
		return fmt.Errorf("webhook verification failed")
	}

	// Compute HMAC-SHA256 of request body
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedMAC := mac.Sum(nil)

	// Parse signature from header
	actualMAC, err := parseSignature(signature)
	if err != nil {
		// Generic error - don't leak format details
		return fmt.Errorf("webhook verification failed")
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare(expectedMAC, actualMAC) != 1 {
		return fmt.Errorf("webhook verification failed")
	}

	return nil
}

// parseSignature extracts and decodes the HMAC signature from the header value.
// Only the "sha256=<hex>" form is accepted; anything else is malformed.
func parseSignature(signature string) ([]byte, error) {
	if !strings.HasPrefix(signature, "sha256=") {
		return nil, fmt.Errorf("missing sha256= prefix")
	}

	hexSig := strings.TrimPrefix(signature, "sha256=")
	return hex.DecodeString(hexSig)
}

// computeExpectedSignature computes the HMAC-SHA256 signature for a body.
// Used for testing and validation. Returns hex-encoded signature.
func computeExpectedSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// formatSignatureHeader formats a hex signature as a header value.
func formatSignatureHeader(hexSig string) string {
	return "sha256=" + hexSig
}
