package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" || cfg.API.Port != 8470 {
		t.Errorf("api = %s:%d, want 127.0.0.1:8470", cfg.API.Host, cfg.API.Port)
	}
	if cfg.Ledger.WelcomeGrant != 100 {
		t.Errorf("welcome grant = %d, want 100", cfg.Ledger.WelcomeGrant)
	}
	if cfg.Ledger.SelfieReward != 50 {
		t.Errorf("selfie reward = %d, want 50", cfg.Ledger.SelfieReward)
	}
	if got := cfg.Ledger.ParsedPendingTTL(); got != 24*time.Hour {
		t.Errorf("pending ttl = %v, want 24h", got)
	}
	if got := cfg.Auth.ParsedTokenTTL(); got != 30*24*time.Hour {
		t.Errorf("token ttl = %v, want 720h", got)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RPS != 10 || cfg.RateLimit.Burst != 30 {
		t.Errorf("rate limit = %+v, want enabled 10 rps burst 30", cfg.RateLimit)
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error for missing file: %v", err)
	}
	if cfg.API.Port != 8470 {
		t.Errorf("port = %d, want default 8470", cfg.API.Port)
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
port = 9000

[ledger]
welcome_grant = 250
pending_ttl = "1h"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.API.Port)
	}
	// Unset keys keep their defaults.
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("host = %s, want default", cfg.API.Host)
	}
	if cfg.Ledger.WelcomeGrant != 250 {
		t.Errorf("welcome grant = %d, want 250", cfg.Ledger.WelcomeGrant)
	}
	if got := cfg.Ledger.ParsedPendingTTL(); got != time.Hour {
		t.Errorf("pending ttl = %v, want 1h", got)
	}
	if cfg.Ledger.SelfieReward != 50 {
		t.Errorf("selfie reward = %d, want default 50", cfg.Ledger.SelfieReward)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
prot = 9000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("typoed key should be an error")
	}
}

func TestParseDuration_BadValuesFallBack(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 24 * time.Hour},
		{"nonsense", 24 * time.Hour},
		{"-5h", 24 * time.Hour},
		{"36h", 36 * time.Hour},
	}
	for _, tt := range tests {
		lc := LedgerConfig{PendingTTL: tt.in}
		if got := lc.ParsedPendingTTL(); got != tt.want {
			t.Errorf("ParsedPendingTTL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultPath_HonorsHomeOverride(t *testing.T) {
	t.Setenv("GREENLOOP_HOME", "/srv/greenloop")
	if got := DefaultPath(); got != filepath.Join("/srv/greenloop", "config.toml") {
		t.Errorf("DefaultPath() = %s", got)
	}
}
