// Package doctor validates talkrelay configuration beyond what config.Load
// enforces: it re-checks the hard requirements (so it can vet configs built
// in code) and adds operational warnings a strict loader has no business
// failing on.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/relayworks/talkrelay/internal/config"
	"github.com/relayworks/talkrelay/internal/webhook"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded relay configuration.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateService(r)
	d.validateWebhook(r)
	d.validateKlaviyo(r)
	d.validateOps(r)
	d.warnPolicy(r)
	d.warnMissingChecksums(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateService checks logging settings.
func (d *Doctor) validateService(r *Result) {
	switch d.cfg.Service.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		d.addError(r, "service", "service.log_level",
			fmt.Sprintf("log_level must be one of: debug, info, warn, error (got %q)", d.cfg.Service.LogLevel))
	}
	switch d.cfg.Service.LogFormat {
	case "", "json", "text":
	default:
		d.addError(r, "service", "service.log_format",
			fmt.Sprintf("log_format must be json or text (got %q)", d.cfg.Service.LogFormat))
	}
	if d.cfg.Service.DataDir == "" {
		d.addWarning(r, "service", "service.data_dir",
			"data_dir is empty; the PID lock falls back to the system temp directory")
	}
}

// validateWebhook checks the inbound listener settings.
func (d *Doctor) validateWebhook(r *Result) {
	if d.cfg.Webhook.Listen == "" {
		d.addError(r, "webhook", "webhook.listen", "webhook.listen is required")
	}
	if !strings.HasPrefix(d.cfg.Webhook.Path, "/") {
		d.addError(r, "webhook", "webhook.path",
			fmt.Sprintf("webhook.path must start with / (got %q)", d.cfg.Webhook.Path))
	}

	// The real converter catches max_body_size parse problems.
	if _, err := webhook.FromGlobalConfig(d.cfg); err != nil {
		d.addError(r, "webhook", "webhook.max_body_size", err.Error())
	}

	d.checkResolved(r, "webhook", "webhook.secret", d.cfg.Webhook.Secret)
	if d.cfg.Webhook.Secret == "" {
		d.addWarning(r, "webhook", "webhook.secret",
			"no webhook secret: signature verification is disabled; any sender can post deliveries (development only)")
	}
}

// validateKlaviyo checks the outbound profile API settings.
func (d *Doctor) validateKlaviyo(r *Result) {
	if d.cfg.Klaviyo.APIKey == "" {
		d.addError(r, "klaviyo", "klaviyo.api_key", "klaviyo.api_key is required")
	}
	d.checkResolved(r, "klaviyo", "klaviyo.api_key", d.cfg.Klaviyo.APIKey)

	if !strings.HasPrefix(d.cfg.Klaviyo.BaseURL, "http://") && !strings.HasPrefix(d.cfg.Klaviyo.BaseURL, "https://") {
		d.addError(r, "klaviyo", "klaviyo.base_url",
			fmt.Sprintf("base_url must be an http(s) URL (got %q)", d.cfg.Klaviyo.BaseURL))
	}
	if d.cfg.Klaviyo.Timeout <= 0 {
		d.addError(r, "klaviyo", "klaviyo.timeout", "timeout must be positive")
	}
	if d.cfg.Klaviyo.Revision == "" {
		d.addWarning(r, "klaviyo", "klaviyo.revision",
			"revision is empty; the API default drifts over time, pin one")
	}
}

// validateOps checks the ops API settings.
func (d *Doctor) validateOps(r *Result) {
	if !d.cfg.Ops.Enabled {
		return
	}
	if d.cfg.Ops.Listen == "" {
		d.addError(r, "ops", "ops.listen", "ops.listen is required when ops is enabled")
	}
	if d.cfg.Ops.Token == "" {
		d.addError(r, "ops", "ops.token", "ops.token is required when ops is enabled")
	}
	d.checkResolved(r, "ops", "ops.token", d.cfg.Ops.Token)

	if d.cfg.Ops.Listen != "" && !isLoopback(d.cfg.Ops.Listen) {
		d.addWarning(r, "ops", "ops.listen",
			fmt.Sprintf("ops API listening on non-loopback address %q; the status and event endpoints are bearer-token only", d.cfg.Ops.Listen))
	}
}

// warnPolicy flags the retry suppression trade-off.
func (d *Doctor) warnPolicy(r *Result) {
	if d.cfg.Policy.SuppressRetries() {
		d.addWarning(r, "policy", "policy.suppress_upstream_retries",
			"handler failures are answered 200; the sending platform will not retry failed deliveries")
	}
}

// warnMissingChecksums warns when the loaded config has no integrity manifest.
func (d *Doctor) warnMissingChecksums(r *Result) {
	if d.cfg.SourcePath == "" {
		return
	}
	manifest := filepath.Join(filepath.Dir(d.cfg.SourcePath), ".checksums")
	if _, err := os.Stat(manifest); err != nil {
		d.addWarning(r, "integrity", "",
			fmt.Sprintf("no .checksums manifest next to %s; run: talkrelay config lock", d.cfg.SourcePath))
	}
}

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// checkResolved flags values still carrying a ${VAR} placeholder.
func (d *Doctor) checkResolved(r *Result, category, field, value string) {
	m := envVarRe.FindStringSubmatch(value)
	if m == nil {
		return
	}
	d.addError(r, category, field,
		fmt.Sprintf("environment variable ${%s} is not set", m[1]))
}

// isLoopback reports whether a listen address binds a loopback interface.
func isLoopback(listen string) bool {
	host, _, err := net.SplitHostPort(listen)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
