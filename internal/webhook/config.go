package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relayworks/talkrelay/internal/config"
)

// FromGlobalConfig converts the loaded configuration to webhook.Config.
// Parses the max body size and resolves the retry suppression policy.
func FromGlobalConfig(global *config.Config) (Config, error) {
	if global == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	maxBodySize, err := parseMaxBodySize(global.Webhook.MaxBodySize)
	if err != nil {
		return Config{}, fmt.Errorf("webhook: invalid max_body_size %q: %w", global.Webhook.MaxBodySize, err)
	}

	return Config{
		Listen:                  global.Webhook.Listen,
		Path:                    global.Webhook.Path,
		Secret:                  global.Webhook.Secret,
		SignatureHeader:         global.Webhook.SignatureHeader,
		MaxBodySize:             maxBodySize,
		SuppressUpstreamRetries: global.Policy.SuppressRetries(),
	}, nil
}

// parseMaxBodySize parses size strings like "1MB", "2048576", "1048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func parseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	// Handle unit suffixes (KB, MB, GB)
	upper := strings.ToUpper(size)
	multiplier := int64(1)

	if strings.HasSuffix(upper, "KB") {
		multiplier = 1024
		size = strings.TrimSuffix(upper, "KB")
	} else if strings.HasSuffix(upper, "MB") {
		multiplier = 1024 * 1024
		size = strings.TrimSuffix(upper, "MB")
	} else if strings.HasSuffix(upper, "GB") {
		multiplier = 1024 * 1024 * 1024
		size = strings.TrimSuffix(upper, "GB")
	}

	// Parse numeric value
	value, err := strconv.ParseInt(strings.TrimSpace(size), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result < 0 { // Check for overflow
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}
