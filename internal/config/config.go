// Package config provides configuration loading for agrod.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. Defaults target the Hedera testnet mirror node
// and OpenRouter's OpenAI-compatible completion API.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the complete agrod configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Mirror     MirrorConfig     `koanf:"mirror"`
	Relay      RelayConfig      `koanf:"relay"`
	Completion CompletionConfig `koanf:"completion"`
	Ledger     LedgerConfig     `koanf:"ledger"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger construction settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MirrorConfig holds ledger index (mirror node) client configuration.
// VerifyTimeout bounds single verification probes during credential
// checks and reconciliation.
type MirrorConfig struct {
	BaseURL       string        `koanf:"base_url"`
	Timeout       time.Duration `koanf:"timeout"`
	VerifyTimeout time.Duration `koanf:"verify_timeout"`
}

// RelayConfig holds transaction relay (ledger write side) configuration.
type RelayConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// CompletionConfig holds completion endpoint configuration.
type CompletionConfig struct {
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
}

// LedgerConfig holds default operator credentials and the legacy
// fallback topic mapping used as a last-resort reconciliation stage.
//
// FallbackTopics is a comma-separated list of account=topic pairs,
// e.g. "0.0.5171369=0.0.5637147". Accounts listed here resolve to the
// mapped topic when transaction scanning finds nothing.
type LedgerConfig struct {
	AccountID      string `koanf:"account_id"`
	PrivateKey     string `koanf:"private_key"`
	FallbackTopics string `koanf:"fallback_topics"`
}

// FallbackTopic returns the configured fallback topic for an account,
// if any.
func (l LedgerConfig) FallbackTopic(accountID string) (string, bool) {
	for _, pair := range strings.Split(l.FallbackTopics, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(k) == accountID {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Mirror.BaseURL == "" {
		return errors.New("mirror base URL is required")
	}
	if c.Mirror.VerifyTimeout <= 0 {
		return errors.New("mirror verify timeout must be positive")
	}
	if c.Completion.Model == "" {
		return errors.New("completion model is required")
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("invalid completion temperature: %g", c.Completion.Temperature)
	}
	for _, pair := range strings.Split(c.Ledger.FallbackTopics, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		if _, _, ok := strings.Cut(pair, "="); !ok {
			return fmt.Errorf("malformed fallback topic entry %q (want account=topic)", pair)
		}
	}
	return nil
}
