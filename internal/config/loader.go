package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load loads configuration from an optional YAML file, then overrides
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SERVER_PORT, MIRROR_BASE_URL, ...)
//  2. YAML config file (path via configPath, skipped when empty or absent)
//  3. Hardcoded defaults
//
// Environment variables use underscore separators and are uppercased.
// The first underscore splits section from field:
//
//	SERVER_PORT             -> server.port
//	MIRROR_BASE_URL         -> mirror.base_url
//	COMPLETION_API_KEY      -> completion.api_key
//	LEDGER_FALLBACK_TOPICS  -> ledger.fallback_topics
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
		} else if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envTransform maps environment variable names to config keys.
// The section is everything before the first underscore; underscores in
// the field name are preserved (SERVER_SHUTDOWN_TIMEOUT ->
// server.shutdown_timeout).
func envTransform(s string) string {
	lower := strings.ToLower(s)
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3200
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Mirror.BaseURL == "" {
		cfg.Mirror.BaseURL = "https://testnet.mirrornode.hedera.com"
	}
	if cfg.Mirror.Timeout == 0 {
		cfg.Mirror.Timeout = 30 * time.Second
	}
	if cfg.Mirror.VerifyTimeout == 0 {
		cfg.Mirror.VerifyTimeout = 15 * time.Second
	}

	if cfg.Relay.Timeout == 0 {
		cfg.Relay.Timeout = 30 * time.Second
	}

	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "gryphe/mythomax-l2-13b"
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 1000
	}
	if cfg.Completion.Temperature == 0 {
		cfg.Completion.Temperature = 0.7
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = 60 * time.Second
	}
}
