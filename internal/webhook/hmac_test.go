package webhook

import (
	"encoding/hex"
	"testing"
)

func TestVerifyHMACSignature(t *testing.T) {
	secret := "test-secret-key"
	body := []byte(`{"type":"conversation_completed","conversation_id":"conv-1"}`)

	// Compute expected signature
	expectedSig := formatSignatureHeader(computeExpectedSignature(body, secret))

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		wantErr   bool
	}{
		{
			name:      "valid signature",
			body:      body,
			signature: expectedSig,
			secret:    secret,
			wantErr:   false,
		},
		{
			name:      "invalid signature - wrong signature",
			body:      body,
			signature: "sha256=0000000000000000000000000000000000000000000000000000000000000000",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - tampered body",
			body:      []byte(`{"type":"conversation_completed","conversation_id":"conv-2"}`),
			signature: expectedSig,
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - wrong secret",
			body:      body,
			signature: expectedSig,
			secret:    "wrong-secret",
			wantErr:   true,
		},
		{
			name:      "invalid signature - empty signature",
			body:      body,
			signature: "",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - empty secret",
			body:      body,
			signature: expectedSig,
			secret:    "",
			wantErr:   true,
		},
		{
			name:      "invalid signature - missing sha256= prefix",
			body:      body,
			signature: computeExpectedSignature(body, secret),
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - malformed hex",
			body:      body,
			signature: "sha256=not-valid-hex",
			secret:    secret,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyHMACSignature(tt.body, tt.signature, tt.secret)
			if (err != nil) != tt.wantErr {
				t.Errorf("verifyHMACSignature() error = %v, wantErr %v", err, tt.wantErr)
			}

			// All errors should be generic (no information leakage)
			if err != nil && err.Error() != "webhook verification failed" {
				t.Errorf("error should be generic, got: %v", err)
			}
		})
	}
}

func TestParseSignature(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		want      string // hex representation of expected bytes
		wantErr   bool
	}{
		{
			name:      "sha256 prefix",
			signature: "sha256=3a8f7b2c1d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a",
			want:      "3a8f7b2c1d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a",
			wantErr:   false,
		},
		{
			name:      "plain hex without prefix is malformed",
			signature: "3a8f7b2c1d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a9b0c1d2e3f4a5b6c7d8e9f0a",
			wantErr:   true,
		},
		{
			name:      "invalid hex after prefix",
			signature: "sha256=not-valid-hex",
			wantErr:   true,
		},
		{
			name:      "wrong hash prefix",
			signature: "sha1=3a8f7b2c1d4e5f6a",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSignature(tt.signature)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseSignature() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if gotHex := hex.EncodeToString(got); gotHex != tt.want {
					t.Errorf("parseSignature() = %v, want %v", gotHex, tt.want)
				}
			}
		})
	}
}

func TestComputeExpectedSignature(t *testing.T) {
	body := []byte("test payload")
	secret := "test-secret"

	sig := computeExpectedSignature(body, secret)

	// Should return lowercase hex string
	if len(sig) != 64 { // SHA256 = 32 bytes = 64 hex chars
		t.Errorf("signature length = %d, want 64", len(sig))
	}

	// Should be deterministic
	sig2 := computeExpectedSignature(body, secret)
	if sig != sig2 {
		t.Error("signature should be deterministic")
	}

	// Different body should produce different signature
	sig3 := computeExpectedSignature([]byte("different"), secret)
	if sig == sig3 {
		t.Error("different body should produce different signature")
	}

	// Known answer: HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	known := computeExpectedSignature([]byte("The quick brown fox jumps over the lazy dog"), "key")
	if known != "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8" {
		t.Errorf("known-answer mismatch: got %s", known)
	}
}

func TestFormatSignatureHeader(t *testing.T) {
	if got := formatSignatureHeader("abc123"); got != "sha256=abc123" {
		t.Errorf("formatSignatureHeader() = %q, want %q", got, "sha256=abc123")
	}
}
