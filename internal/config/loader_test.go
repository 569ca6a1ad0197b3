package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr bool
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "minimal valid config",
			yaml: `
klaviyo:
  api_key: pk_test123
`,
			wantErr: false,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Service.Name != "talkrelay" {
					t.Error("service.name default not applied")
				}
				if cfg.Webhook.Listen != "127.0.0.1:8085" {
					t.Error("webhook.listen default not applied")
				}
				if cfg.Webhook.Path != "/api/talkback-complete" {
					t.Error("webhook.path default not applied")
				}
				if cfg.Webhook.SignatureHeader != "x-elevenlabs-signature" {
					t.Error("webhook.signature_header default not applied")
				}
				if cfg.Klaviyo.BaseURL != "https://a.klaviyo.com" {
					t.Error("klaviyo.base_url default not applied")
				}
				if cfg.Klaviyo.Timeout != 10*time.Second {
					t.Error("klaviyo.timeout default not applied")
				}
				if !cfg.Policy.SuppressRetries() {
					t.Error("policy.suppress_upstream_retries should default to true")
				}
				if cfg.Ops.Enabled {
					t.Error("ops should be disabled by default")
				}
			},
		},
		{
			name: "env var interpolation",
			yaml: `
webhook:
  secret: ${WEBHOOK_SECRET}
klaviyo:
  api_key: ${KLAVIYO_API_KEY}
`,
			env: map[string]string{
				"WEBHOOK_SECRET":  "whsec_abc",
				"KLAVIYO_API_KEY": "pk_live456",
			},
			wantErr: false,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Webhook.Secret != "whsec_abc" {
					t.Errorf("env var not interpolated in webhook.secret: %s", cfg.Webhook.Secret)
				}
				if cfg.Klaviyo.APIKey != "pk_live456" {
					t.Errorf("env var not interpolated in klaviyo.api_key: %s", cfg.Klaviyo.APIKey)
				}
			},
		},
		{
			name: "missing env var fails validation",
			yaml: `
klaviyo:
  api_key: ${MISSING_VAR}
`,
			env:     map[string]string{}, // MISSING_VAR not set
			wantErr: true,
		},
		{
			name: "missing api key fails",
			yaml: `
webhook:
  listen: 127.0.0.1:9000
`,
			wantErr: true,
		},
		{
			name: "invalid log level",
			yaml: `
service:
  log_level: invalid
klaviyo:
  api_key: pk_test123
`,
			wantErr: true,
		},
		{
			name: "webhook path must be absolute",
			yaml: `
webhook:
  path: api/talkback-complete
klaviyo:
  api_key: pk_test123
`,
			wantErr: true,
		},
		{
			name: "explicit suppress false survives defaulting",
			yaml: `
klaviyo:
  api_key: pk_test123
policy:
  suppress_upstream_retries: false
`,
			wantErr: false,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Policy.SuppressRetries() {
					t.Error("explicit suppress_upstream_retries: false was lost")
				}
			},
		},
		{
			name: "ops enabled with unresolved token fails",
			yaml: `
klaviyo:
  api_key: pk_test123
ops:
  enabled: true
  token: ${OPS_TOKEN}
`,
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "non-http base url fails",
			yaml: `
klaviyo:
  api_key: pk_test123
  base_url: a.klaviyo.com
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Set up environment
			for k, v := range tt.env {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			// Create temp config file
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg, err := Load(configPath)

			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && tt.checkFn != nil {
				tt.checkFn(t, cfg)
			}
		})
	}
}

func TestLoadAcceptsDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("klaviyo:\n  api_key: pk_test123\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load(dir) failed: %v", err)
	}
	if cfg.SourcePath != configPath {
		t.Errorf("SourcePath = %q, want %q", cfg.SourcePath, configPath)
	}
}

func TestLoadVerifiesChecksums(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("klaviyo:\n  api_key: pk_test123\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := GenerateChecksums(tmpDir, []string{"config.yaml"}); err != nil {
		t.Fatalf("GenerateChecksums() failed: %v", err)
	}

	// Locked config loads cleanly
	if _, err := Load(configPath); err != nil {
		t.Fatalf("Load() of locked config failed: %v", err)
	}

	// Tampered config is rejected
	if err := os.WriteFile(configPath, []byte("klaviyo:\n  api_key: pk_tampered\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Fatal("Load() should reject a config that no longer matches .checksums")
	}
}

func TestInterpolateEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "simple replacement",
			input: "secret: ${SECRET}",
			env:   map[string]string{"SECRET": "whsec_123"},
			want:  "secret: whsec_123",
		},
		{
			name:  "multiple vars",
			input: "${USER}:${PASS}@${HOST}",
			env: map[string]string{
				"USER": "admin",
				"PASS": "secret",
				"HOST": "localhost",
			},
			want: "admin:secret@localhost",
		},
		{
			name:  "undefined var unchanged",
			input: "key: ${UNDEFINED}",
			env:   map[string]string{},
			want:  "key: ${UNDEFINED}",
		},
		{
			name:  "no vars",
			input: "plain: value",
			env:   map[string]string{},
			want:  "plain: value",
		},
		{
			name:  "malformed pattern untouched",
			input: "key: $NOT_BRACED and ${unfinished",
			env:   map[string]string{"NOT_BRACED": "x"},
			want:  "key: $NOT_BRACED and ${unfinished",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			got := interpolateEnv(tt.input)
			if got != tt.want {
				t.Errorf("interpolateEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}
