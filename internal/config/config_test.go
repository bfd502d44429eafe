package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load() error for missing file: %v", err)
	}
	if len(cfg.Accounts) != 0 || cfg.DatabaseURL != "" {
		t.Errorf("missing file should yield empty config, got %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"database_url": "postgres://localhost/archive",
		"status_addr": ":8090",
		"accounts": [
			{"name": "main", "token": "tok-1", "guilds": ["123", "456"]},
			{"name": "alt", "token": "tok-2", "user_agent": "custom/2.0"}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/archive" {
		t.Errorf("database url = %q", cfg.DatabaseURL)
	}
	if len(cfg.Accounts) != 2 {
		t.Fatalf("accounts = %d, want 2", len(cfg.Accounts))
	}
	if cfg.Accounts[0].UserAgent != DefaultUserAgent {
		t.Errorf("default user agent not applied, got %q", cfg.Accounts[0].UserAgent)
	}
	if cfg.Accounts[1].UserAgent != "custom/2.0" {
		t.Errorf("configured user agent overridden: %q", cfg.Accounts[1].UserAgent)
	}
	if len(cfg.Accounts[0].Guilds) != 2 || cfg.Accounts[0].Guilds[0] != "123" {
		t.Errorf("guilds = %v", cfg.Accounts[0].Guilds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "postgres://env/db" {
		t.Errorf("env override not applied: %q", cfg.DatabaseURL)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty config")
	}
	cfg.DatabaseURL = "postgres://x"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error with no accounts")
	}
	cfg.Accounts = []Account{{Name: "a"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for account without token")
	}
	cfg.Accounts[0].Token = "tok"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}
