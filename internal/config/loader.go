package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file.
// A directory path is accepted too and resolves to config.yaml inside it.
func Load(configPath string) (*Config, error) {
	// Resolve to absolute path for consistent relative path resolution
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}
	cfg.SourcePath = absPath

	// Retain the raw document so `config set` can edit it in place.
	rootData, _ := os.ReadFile(absPath)
	var rootNode yaml.Node
	if err := yaml.Unmarshal(rootData, &rootNode); err == nil {
		cfg.Source = &rootNode
	}

	// Apply config defaults before validation
	cfg = applyConfigDefaults(cfg)

	// Hash-verify the config file when a .checksums manifest exists
	if err := verifyConfigHash(absPath); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DiscoverConfigPath finds the config file by checking standard locations.
// Priority order: $TALKRELAY_CONFIG, ~/.config/talkrelay/config.yaml,
// /etc/talkrelay/config.yaml, ./config.yaml
func DiscoverConfigPath() (string, error) {
	// 1. Check environment variable
	if path := os.Getenv("TALKRELAY_CONFIG"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	// 2. Check user config directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(homeDir, ".config", "talkrelay", "config.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig, nil
		}
	}

	// 3. Check system config directory
	systemConfig := "/etc/talkrelay/config.yaml"
	if _, err := os.Stat(systemConfig); err == nil {
		return systemConfig, nil
	}

	// 4. Fallback to config in current directory
	localConfig := "./config.yaml"
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	return "", fmt.Errorf("no config found (checked: $TALKRELAY_CONFIG, ~/.config/talkrelay, /etc/talkrelay, ./config.yaml)")
}

// loadConfigFile loads and parses a single config file.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Apply environment variable interpolation
	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// verifyConfigHash checks the config file against the .checksums manifest
// in its directory. A missing manifest skips verification.
func verifyConfigHash(path string) error {
	dir := filepath.Dir(path)

	checksums, err := LoadChecksums(dir)
	if err != nil {
		// No .checksums means the config was never locked.
		return nil
	}

	basename := filepath.Base(path)
	expectedHash, ok := checksums.Hashes[basename]
	if !ok {
		return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
			"Run: talkrelay config lock --config %s", basename, dir, path)
	}

	if err := VerifyFileHash(path, expectedHash); err != nil {
		return fmt.Errorf("config verification failed for %s: %w\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: talkrelay config lock --config %s", path, err, path)
	}

	return nil
}

// applyConfigDefaults merges default values into config where not explicitly set.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	if cfg.Service.DataDir == "" {
		cfg.Service.DataDir = defaults.Service.DataDir
	}

	if cfg.Webhook.Listen == "" {
		cfg.Webhook.Listen = defaults.Webhook.Listen
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = defaults.Webhook.Path
	}
	if cfg.Webhook.SignatureHeader == "" {
		cfg.Webhook.SignatureHeader = defaults.Webhook.SignatureHeader
	}
	if cfg.Webhook.MaxBodySize == "" {
		cfg.Webhook.MaxBodySize = defaults.Webhook.MaxBodySize
	}

	if cfg.Klaviyo.BaseURL == "" {
		cfg.Klaviyo.BaseURL = defaults.Klaviyo.BaseURL
	}
	if cfg.Klaviyo.Revision == "" {
		cfg.Klaviyo.Revision = defaults.Klaviyo.Revision
	}
	if cfg.Klaviyo.Timeout == 0 {
		cfg.Klaviyo.Timeout = defaults.Klaviyo.Timeout
	}

	if cfg.Policy.SuppressUpstreamRetries == nil {
		cfg.Policy.SuppressUpstreamRetries = defaults.Policy.SuppressUpstreamRetries
	}

	if !cfg.Ops.Enabled && cfg.Ops.Listen == "" {
		cfg.Ops = defaults.Ops
	}
	if cfg.Ops.Listen == "" {
		cfg.Ops.Listen = defaults.Ops.Listen
	}

	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		// Extract variable name from ${VAR}
		varName := envVarPattern.FindStringSubmatch(match)[1]

		// Look up environment variable
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// If not found, leave the placeholder (will fail validation if required)
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Webhook.Listen == "" {
		return fmt.Errorf("webhook.listen is required")
	}
	if !strings.HasPrefix(cfg.Webhook.Path, "/") {
		return fmt.Errorf("webhook.path must start with / (got %q)", cfg.Webhook.Path)
	}
	if err := checkResolved("webhook.secret", cfg.Webhook.Secret); err != nil {
		return err
	}

	// Klaviyo validation. The API key is the one hard requirement.
	if cfg.Klaviyo.APIKey == "" {
		return fmt.Errorf("klaviyo.api_key is required")
	}
	if err := checkResolved("klaviyo.api_key", cfg.Klaviyo.APIKey); err != nil {
		return err
	}
	if !strings.HasPrefix(cfg.Klaviyo.BaseURL, "http://") && !strings.HasPrefix(cfg.Klaviyo.BaseURL, "https://") {
		return fmt.Errorf("klaviyo.base_url must be an http(s) URL (got %q)", cfg.Klaviyo.BaseURL)
	}
	if cfg.Klaviyo.Timeout <= 0 {
		return fmt.Errorf("klaviyo.timeout must be positive")
	}

	// Ops auth validation
	if cfg.Ops.Enabled {
		if err := checkResolved("ops.token", cfg.Ops.Token); err != nil {
			return err
		}
	}

	return nil
}

// checkResolved rejects values still carrying a ${VAR} placeholder
// (security: unset secrets must fail loudly, not flow through).
func checkResolved(field, value string) error {
	if !envVarPattern.MatchString(value) {
		return nil
	}
	matches := envVarPattern.FindStringSubmatch(value)
	if len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return fmt.Errorf("%s: unresolved environment variable", field)
}
