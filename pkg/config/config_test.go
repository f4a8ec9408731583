package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formwizard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Debounce != 500*time.Millisecond {
		t.Fatalf("expected 500ms debounce, got %s", cfg.Debounce)
	}
	if cfg.Expiry != 3*time.Second {
		t.Fatalf("expected 3s expiry, got %s", cfg.Expiry)
	}
	if cfg.Locale != "ru" {
		t.Fatalf("expected ru locale, got %q", cfg.Locale)
	}
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeFile(t, `
locale: en
debounce: 250ms
submit:
  endpoint: https://example.test/signup
  timeout: 2s
  headers:
    X-CSRF-Token: abc
uniqueness:
  redis_addr: localhost:6379
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Locale = "en"
	want.Debounce = 250 * time.Millisecond
	want.Submit.Endpoint = "https://example.test/signup"
	want.Submit.Timeout = 2 * time.Second
	want.Submit.Headers = map[string]string{"X-CSRF-Token": "abc"}
	want.Uniqueness.RedisAddr = "localhost:6379"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "locale: en\n")
	t.Setenv("FORMWIZARD_LOCALE", "ru")
	t.Setenv("FORMWIZARD_ANNOUNCEMENT_EXPIRY", "1s")
	t.Setenv("FORMWIZARD_SUBMIT_ENDPOINT", "https://example.test/submit")
	t.Setenv("FORMWIZARD_REDIS_DB", "2")
	t.Setenv("FORMWIZARD_UNKNOWN", "ignored")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Locale != "ru" || cfg.Expiry != time.Second {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Submit.Endpoint != "https://example.test/submit" || cfg.Submit.Method != "POST" {
		t.Fatalf("nested override should keep siblings: %+v", cfg.Submit)
	}
	if cfg.Uniqueness.RedisDB != 2 || cfg.Uniqueness.RedisPrefix != "formwizard:taken:" {
		t.Fatalf("unexpected uniqueness config: %+v", cfg.Uniqueness)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "debounce: 0s\nannouncement_expiry: -1s\n")
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	if _, err := Load(writeFile(t, "debounce: soon\n")); err == nil {
		t.Fatal("expected parse error for malformed duration")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
