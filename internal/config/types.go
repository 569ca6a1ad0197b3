package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete talkrelay configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Webhook WebhookConfig `yaml:"webhook"`
	Klaviyo KlaviyoConfig `yaml:"klaviyo"`
	Policy  PolicyConfig  `yaml:"policy"`
	Ops     OpsConfig     `yaml:"ops,omitempty"`

	// Source retains the parsed YAML document of the loaded file so
	// `config set` can edit values without clobbering comments.
	Source     *yaml.Node `yaml:"-"`
	SourcePath string     `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	DataDir   string `yaml:"data_dir"`
}

// WebhookConfig defines the inbound webhook listener.
type WebhookConfig struct {
	Listen          string `yaml:"listen"`
	Path            string `yaml:"path"`
	Secret          string `yaml:"secret"`
	SignatureHeader string `yaml:"signature_header"`
	MaxBodySize     string `yaml:"max_body_size"`
}

// KlaviyoConfig defines the outbound profile API client.
type KlaviyoConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Revision string        `yaml:"revision"`
	Timeout  time.Duration `yaml:"timeout"`
}

// PolicyConfig defines how handler failures are reported upstream.
type PolicyConfig struct {
	// SuppressUpstreamRetries answers failed deliveries with HTTP 200 so
	// the sending platform does not re-fire the webhook. Pointer so an
	// explicit `false` survives defaulting; nil means the default (true).
	SuppressUpstreamRetries *bool `yaml:"suppress_upstream_retries"`
}

// SuppressRetries reports the effective policy value.
func (p PolicyConfig) SuppressRetries() bool {
	if p.SuppressUpstreamRetries == nil {
		return true
	}
	return *p.SuppressUpstreamRetries
}

// OpsConfig defines the loopback operations API server.
type OpsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Token   string `yaml:"token"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	suppress := true
	return &Config{
		Service: ServiceConfig{
			Name:      "talkrelay",
			LogLevel:  "info",
			LogFormat: "json",
			DataDir:   "./data",
		},
		Webhook: WebhookConfig{
			Listen:          "127.0.0.1:8085",
			Path:            "/api/talkback-complete",
			SignatureHeader: "x-elevenlabs-signature",
			MaxBodySize:     "1MB",
		},
		Klaviyo: KlaviyoConfig{
			BaseURL:  "https://a.klaviyo.com",
			Revision: "2024-07-15",
			Timeout:  10 * time.Second,
		},
		Policy: PolicyConfig{
			SuppressUpstreamRetries: &suppress,
		},
		Ops: OpsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8086",
		},
	}
}
