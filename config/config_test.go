package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("SENTINEL_API_URL", "")
	t.Setenv("SENTINEL_AUTH_URL", "")
	t.Setenv("SENTINEL_DATA_DIR", "")
	t.Setenv("SENTINEL_HTTP_TIMEOUT", "")
	t.Setenv("SENTINEL_LOG_FILE", "")

	cfg := FromEnv()

	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("expected default API URL, got %s", cfg.APIBaseURL)
	}
	if cfg.AuthBaseURL != DefaultAuthBaseURL {
		t.Errorf("expected default auth URL, got %s", cfg.AuthBaseURL)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("expected default data dir, got %s", cfg.DataDir)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.LogFile != "" {
		t.Errorf("expected no log file, got %s", cfg.LogFile)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SENTINEL_API_URL", "https://fraud.internal.example.com/")
	t.Setenv("SENTINEL_AUTH_URL", "https://banking.internal.example.com")
	t.Setenv("SENTINEL_DATA_DIR", "/var/lib/sentinel")
	t.Setenv("SENTINEL_HTTP_TIMEOUT", "5s")
	t.Setenv("SENTINEL_LOG_FILE", "/var/log/sentinel/console.log")

	cfg := FromEnv()

	// Trailing slashes are stripped so path joins stay predictable.
	if cfg.APIBaseURL != "https://fraud.internal.example.com" {
		t.Errorf("expected trimmed API URL, got %s", cfg.APIBaseURL)
	}
	if cfg.AuthBaseURL != "https://banking.internal.example.com" {
		t.Errorf("unexpected auth URL %s", cfg.AuthBaseURL)
	}
	if cfg.DataDir != "/var/lib/sentinel" {
		t.Errorf("unexpected data dir %s", cfg.DataDir)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.LogFile != "/var/log/sentinel/console.log" {
		t.Errorf("unexpected log file %s", cfg.LogFile)
	}
}

func TestFromEnv_BadTimeoutFallsBack(t *testing.T) {
	t.Setenv("SENTINEL_HTTP_TIMEOUT", "not-a-duration")
	if got := FromEnv().HTTPTimeout; got != 30*time.Second {
		t.Errorf("expected fallback timeout, got %s", got)
	}

	t.Setenv("SENTINEL_HTTP_TIMEOUT", "-2s")
	if got := FromEnv().HTTPTimeout; got != 30*time.Second {
		t.Errorf("expected fallback for negative timeout, got %s", got)
	}
}
