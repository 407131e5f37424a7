package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
anthropic:
  api_key: sk-ant-test-key-1234567890
defaults:
  goal: accuracy
  workers: 4
queue:
  driver: nats
  nats_url: nats://queue.internal:4222
retry:
  max_retries: 5
  backoff_base: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Defaults.Goal != "accuracy" {
		t.Errorf("goal = %q, want accuracy", cfg.Defaults.Goal)
	}
	if cfg.Defaults.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Defaults.Workers)
	}
	if cfg.Queue.Driver != "nats" {
		t.Errorf("driver = %q, want nats", cfg.Queue.Driver)
	}
	if cfg.Retry.MaxRetries != 5 {
		t.Errorf("max_retries = %d, want 5", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BackoffBase != 250*time.Millisecond {
		t.Errorf("backoff_base = %v, want 250ms", cfg.Retry.BackoffBase)
	}
	// Unset keys keep their defaults.
	if cfg.Defaults.TokenBudget != 2048 {
		t.Errorf("token_budget = %d, want default 2048", cfg.Defaults.TokenBudget)
	}
	if cfg.Retry.RoleTimeout != 2*time.Minute {
		t.Errorf("role_timeout = %v, want default 2m", cfg.Retry.RoleTimeout)
	}
}

func TestLoadFromPath_ExpandsEnvInAPIKey(t *testing.T) {
	t.Setenv("TEST_KESTREL_KEY", "sk-ant-from-env-0123456789")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("anthropic:\n  api_key: ${TEST_KESTREL_KEY}\n"), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-from-env-0123456789" {
		t.Errorf("api_key = %q, want expanded env value", cfg.Anthropic.APIKey)
	}
}

func TestStoragePath(t *testing.T) {
	cfg := Default()

	cfg.Storage.Path = "/custom/decisions.db"
	if got := cfg.StoragePath(); got != "/custom/decisions.db" {
		t.Errorf("StoragePath = %q, want explicit path", got)
	}

	cfg.Storage.Path = ""
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	want := filepath.Join("/xdg/data", "kestrel", "decisions.db")
	if got := cfg.StoragePath(); got != want {
		t.Errorf("StoragePath = %q, want %q", got, want)
	}
}

func TestGetAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := GetAPIKey(nil); err != ErrNoAPIKey {
		t.Errorf("GetAPIKey(nil) err = %v, want ErrNoAPIKey", err)
	}

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-REDACTED"
	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key != cfg.Anthropic.APIKey {
		t.Errorf("key = %q, want config value", key)
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key-1234567890")
	key, err = GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key != "sk-ant-env-key-1234567890" {
		t.Errorf("key = %q, env must win over config", key)
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"sk-ant-REDACTED", "sk-ant-...1234"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
