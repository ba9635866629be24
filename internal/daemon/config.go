// Package daemon holds the server configuration, loaded from TOML.
// Missing file or missing keys fall back to DefaultConfig values.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// StorageConfig controls where data lives.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// LedgerConfig controls credit amounts and expiry.
type LedgerConfig struct {
	WelcomeGrant int64  `toml:"welcome_grant"`
	SelfieReward int64  `toml:"selfie_reward"`
	PendingTTL   string `toml:"pending_ttl"` // Go duration, e.g. "24h"
}

// AuthConfig controls bearer tokens.
type AuthConfig struct {
	TokenTTL string `toml:"token_ttl"` // Go duration, e.g. "720h"
}

// RateLimitConfig controls the per-token API rate limiter.
type RateLimitConfig struct {
	Enabled bool    `toml:"enabled"`
	RPS     float64 `toml:"rps"`
	Burst   int     `toml:"burst"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8470,
			Metrics: true,
		},
		Storage: StorageConfig{
			Dir: defaultDataDir(),
		},
		Ledger: LedgerConfig{
			WelcomeGrant: 100,
			SelfieReward: 50,
			PendingTTL:   "24h",
		},
		Auth: AuthConfig{
			TokenTTL: "720h", // 30 days
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     10,
			Burst:   30,
		},
	}
}

// Load reads the config file at path, falling back to defaults for a
// missing file. Unknown keys are an error so typos surface early.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown config key %q in %s", undecoded[0], path)
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	if env := os.Getenv("GREENLOOP_HOME"); env != "" {
		return filepath.Join(env, "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".greenloop", "config.toml")
}

func defaultDataDir() string {
	if env := os.Getenv("GREENLOOP_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".greenloop")
}

// ParsedPendingTTL parses the ledger expiry duration.
func (c LedgerConfig) ParsedPendingTTL() time.Duration {
	return parseDuration(c.PendingTTL, 24*time.Hour)
}

// ParsedTokenTTL parses the bearer token lifetime.
func (c AuthConfig) ParsedTokenTTL() time.Duration {
	return parseDuration(c.TokenTTL, 30*24*time.Hour)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
