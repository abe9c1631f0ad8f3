package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var marinaKeys = []string{
	"MARINA_HTTP_PORT",
	"MARINA_LOG_LEVEL",
	"MARINA_BACKEND",
	"MARINA_SQLITE_DSN",
	"MARINA_REST_URL",
	"MARINA_REST_API_KEY",
	"MARINA_REST_TIMEOUT",
	"MARINA_TOKEN_SECRET",
	"MARINA_TOKEN_TTL",
	"MARINA_TIMEZONE",
	"MARINA_SITES_FILE",
	"MARINA_REDIS_URL",
	"MARINA_AUTO_CHECKOUT_HOURS",
	"MARINA_AUTO_CHECKOUT_INTERVAL",
	"MARINA_AUTO_CHECKOUT_WARN_HOURS",
	"MARINA_AUTO_CHECKOUT_OBSERVATION",
	"MARINA_HIDE_DELETED_MOVEMENTS",
	"MARINA_BOOTSTRAP_OWNER_EMAIL",
	"MARINA_BOOTSTRAP_OWNER_PASSWORD",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range marinaKeys {
		t.Setenv(key, "")
	}
}

func writeSites(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write sites file: %v", err)
	}
	return path
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)
		const secret = "super-secret"
		t.Setenv("MARINA_TOKEN_SECRET", secret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.Backend != BackendSQLite {
			t.Fatalf("expected sqlite backend, got %q", cfg.Backend)
		}
		if cfg.SQLiteDSN != "marinagate.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.TokenSecret != secret {
			t.Fatalf("expected token secret to be %q, got %q", secret, cfg.TokenSecret)
		}
		if cfg.TokenTTL != 12*time.Hour {
			t.Fatalf("expected token TTL 12h, got %s", cfg.TokenTTL)
		}
		if cfg.Location == nil || cfg.Location.String() != "America/Sao_Paulo" {
			t.Fatalf("unexpected default location: %v", cfg.Location)
		}
		if cfg.AutoCheckoutHours != 12 || cfg.AutoCheckoutInterval != 0 || cfg.AutoCheckoutWarnHours != 1 {
			t.Fatalf("unexpected auto-checkout defaults: %+v", cfg)
		}
		if cfg.AutoCheckoutObservation != "overwrite" {
			t.Fatalf("unexpected observation policy %q", cfg.AutoCheckoutObservation)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Fatalf("unexpected log level %v", cfg.LogLevel)
		}
		if len(cfg.Sites) != 0 || cfg.HideDeletedMovements {
			t.Fatalf("unexpected optional values: %+v", cfg)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "variáveis de ambiente obrigatórias ausentes: MARINA_TOKEN_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("rest backend requires url and key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARINA_TOKEN_SECRET", "secret")
		t.Setenv("MARINA_BACKEND", "rest")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error for rest backend without url")
		}
		if !strings.Contains(err.Error(), "MARINA_REST_URL, MARINA_REST_API_KEY") {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports missing and invalid values together", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARINA_HTTP_PORT", "abc")
		t.Setenv("MARINA_TOKEN_TTL", "-1h")
		t.Setenv("MARINA_BACKEND", "mongo")
		t.Setenv("MARINA_AUTO_CHECKOUT_OBSERVATION", "replace")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error")
		}
		msg := err.Error()
		if !strings.Contains(msg, "MARINA_TOKEN_SECRET") {
			t.Fatalf("missing secret not reported: %q", msg)
		}
		for _, key := range []string{"MARINA_HTTP_PORT", "MARINA_BACKEND", "MARINA_TOKEN_TTL", "MARINA_AUTO_CHECKOUT_OBSERVATION"} {
			if !strings.Contains(msg, key) {
				t.Fatalf("expected %s in %q", key, msg)
			}
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARINA_TOKEN_SECRET", "secret-value")
		t.Setenv("MARINA_HTTP_PORT", "9090")
		t.Setenv("MARINA_LOG_LEVEL", "debug")
		t.Setenv("MARINA_SQLITE_DSN", "/tmp/marina.db")
		t.Setenv("MARINA_TOKEN_TTL", "24h")
		t.Setenv("MARINA_TIMEZONE", "UTC")
		t.Setenv("MARINA_AUTO_CHECKOUT_HOURS", "8.5")
		t.Setenv("MARINA_AUTO_CHECKOUT_INTERVAL", "15m")
		t.Setenv("MARINA_AUTO_CHECKOUT_WARN_HOURS", "0.5")
		t.Setenv("MARINA_AUTO_CHECKOUT_OBSERVATION", "APPEND")
		t.Setenv("MARINA_HIDE_DELETED_MOVEMENTS", "true")
		t.Setenv("MARINA_REDIS_URL", "redis://localhost:6379/0")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("expected debug level, got %v", cfg.LogLevel)
		}
		if cfg.SQLiteDSN != "/tmp/marina.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.TokenTTL != 24*time.Hour {
			t.Fatalf("expected token TTL 24h, got %s", cfg.TokenTTL)
		}
		if cfg.Location != time.UTC {
			t.Fatalf("expected UTC, got %v", cfg.Location)
		}
		if cfg.AutoCheckoutHours != 8.5 || cfg.AutoCheckoutInterval != 15*time.Minute || cfg.AutoCheckoutWarnHours != 0.5 {
			t.Fatalf("unexpected auto-checkout values: %+v", cfg)
		}
		if cfg.AutoCheckoutObservation != "append" {
			t.Fatalf("unexpected observation policy %q", cfg.AutoCheckoutObservation)
		}
		if !cfg.HideDeletedMovements {
			t.Fatalf("expected deleted movements to be hidden")
		}
		if cfg.RedisURL != "redis://localhost:6379/0" {
			t.Fatalf("unexpected redis url %q", cfg.RedisURL)
		}
	})

	t.Run("bootstrap email requires password", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARINA_TOKEN_SECRET", "secret")
		t.Setenv("MARINA_BOOTSTRAP_OWNER_EMAIL", "dono@marina.test")

		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "MARINA_BOOTSTRAP_OWNER_PASSWORD") {
			t.Fatalf("expected missing bootstrap password, got %v", err)
		}
	})
}

func TestLoader_SitesFile(t *testing.T) {
	t.Run("loads sites from yaml", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARINA_TOKEN_SECRET", "secret")
		t.Setenv("MARINA_SITES_FILE", writeSites(t, `
sites:
  - id: " Marina-Norte "
    name: Marina Norte
  - id: marina-sul
    name: Marina Sul
`))

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if len(cfg.Sites) != 2 {
			t.Fatalf("expected 2 sites, got %d", len(cfg.Sites))
		}
		if cfg.Sites[0] != (Site{ID: "marina-norte", Name: "Marina Norte"}) {
			t.Fatalf("unexpected first site: %+v", cfg.Sites[0])
		}
	})

	t.Run("rejects malformed files", func(t *testing.T) {
		cases := map[string]string{
			"missing name": "sites:\n  - id: a\n",
			"duplicate id": "sites:\n  - {id: a, name: A}\n  - {id: A, name: B}\n",
			"not yaml":     "sites: [",
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				if _, err := LoadSites(writeSites(t, body)); err == nil {
					t.Fatalf("expected error")
				}
			})
		}
	})

	t.Run("reports unreadable file as invalid", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARINA_TOKEN_SECRET", "secret")
		t.Setenv("MARINA_SITES_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "MARINA_SITES_FILE") {
			t.Fatalf("expected invalid sites file, got %v", err)
		}
	})
}
