package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/nextcrm-core/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_TTL", "")
	t.Setenv("BOOTSTRAP_TENANT_SLUG", "")
	t.Setenv("AUTH_TOKEN_FORMAT", "")

	cfg := config.Load()

	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("expected 12h session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.BootstrapTenantSlug != "demo" {
		t.Errorf("expected demo tenant, got %q", cfg.BootstrapTenantSlug)
	}
	if cfg.TokenFormat != config.TokenFormatOpaque {
		t.Errorf("expected opaque tokens, got %q", cfg.TokenFormat)
	}
	if cfg.JWTIssuer != "nextcrm" || cfg.JWTAudience != "nextcrm" {
		t.Errorf("unexpected jwt defaults: %q %q", cfg.JWTIssuer, cfg.JWTAudience)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("BOOTSTRAP_ENABLED", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("PORT", "not-a-number")

	cfg := config.Load()

	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("expected 30m, got %s", cfg.SessionTTL)
	}
	if cfg.BootstrapEnabled {
		t.Error("expected bootstrap disabled")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected fallback port, got %d", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{"memory store ok", func(c *config.Config) { c.StoreDriver = config.DriverMemory }, false},
		{"postgres without url", func(c *config.Config) { c.StoreDriver = config.DriverPostgres; c.DatabaseURL = "" }, true},
		{"jwt without secret", func(c *config.Config) {
			c.StoreDriver = config.DriverMemory
			c.TokenFormat = config.TokenFormatJWT
			c.JWTSecret = ""
		}, true},
		{"unknown driver", func(c *config.Config) { c.StoreDriver = "sqlite" }, true},
		{"zero ttl", func(c *config.Config) { c.StoreDriver = config.DriverMemory; c.SessionTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nCRM_TEST_A=from-file\nexport CRM_TEST_B=\"quoted value\"\nCRM_TEST_C=plain # trailing\nbroken-line\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CRM_TEST_A", "from-env")
	t.Setenv("CRM_TEST_B", "")
	os.Unsetenv("CRM_TEST_B")
	t.Setenv("CRM_TEST_C", "")
	os.Unsetenv("CRM_TEST_C")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := os.Getenv("CRM_TEST_A"); got != "from-env" {
		t.Errorf("expected env to win, got %q", got)
	}
	if got := os.Getenv("CRM_TEST_B"); got != "quoted value" {
		t.Errorf("expected quoted value, got %q", got)
	}
	if got := os.Getenv("CRM_TEST_C"); got != "plain" {
		t.Errorf("expected plain, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
