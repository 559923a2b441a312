package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"BACKEND_URL", "POLL_INTERVAL", "STALE_AFTER", "DECISIONS_LIMIT",
		"REQUIRED_EPIS", "NATS_URL", "JOURNAL_DSN", "CONSOLE_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.BackendURL != "http://localhost:8001" {
		t.Fatalf("expected default backend url, got %q", cfg.BackendURL)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("expected default poll interval 5s, got %s", cfg.PollInterval)
	}
	if cfg.StaleAfter != 15*time.Second {
		t.Fatalf("expected stale after 3x poll interval, got %s", cfg.StaleAfter)
	}
	if cfg.DecisionsLimit != 10 {
		t.Fatalf("expected decisions limit 10, got %d", cfg.DecisionsLimit)
	}
	if len(cfg.RequiredEpis) != 1 || cfg.RequiredEpis[0] != "helmet" {
		t.Fatalf("expected helmet as required epi, got %v", cfg.RequiredEpis)
	}
	if cfg.NATSURL != "" || cfg.JournalDSN != "" {
		t.Fatalf("expected optional integrations disabled by default")
	}
	if cfg.ConsolePort != "8090" {
		t.Fatalf("expected console port 8090, got %q", cfg.ConsolePort)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://orchestrator:8001/")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("STALE_AFTER", "")
	t.Setenv("POLL_JITTER", "250ms")
	t.Setenv("REQUIRED_EPIS", "helmet, vest,,gloves")
	t.Setenv("CONSOLE_RATE_LIMIT_RPS", "2.5")
	t.Setenv("BACKEND_BREAKER_MIN_REQUESTS", "9")

	cfg := Load()
	if cfg.BackendURL != "http://orchestrator:8001" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BackendURL)
	}
	if cfg.StaleAfter != 6*time.Second {
		t.Fatalf("expected stale after derived from poll interval, got %s", cfg.StaleAfter)
	}
	if cfg.PollJitter != 250*time.Millisecond {
		t.Fatalf("expected jitter 250ms, got %s", cfg.PollJitter)
	}
	if len(cfg.RequiredEpis) != 3 || cfg.RequiredEpis[1] != "vest" {
		t.Fatalf("unexpected required epis: %v", cfg.RequiredEpis)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps 2.5, got %v", cfg.RateLimitRPS)
	}
	if cfg.BreakerMinRequests != 9 {
		t.Fatalf("expected breaker min requests 9, got %d", cfg.BreakerMinRequests)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("DECISIONS_LIMIT", "ten")
	t.Setenv("BACKEND_BREAKER_ENABLED", "maybe")

	cfg := Load()
	if cfg.PollInterval != 5*time.Second || cfg.DecisionsLimit != 10 || !cfg.BreakerEnabled {
		t.Fatalf("expected fallbacks for malformed values, got %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing .env must not fail: %v", err)
	}

	path := filepath.Join(t.TempDir(), "console.env")
	if err := os.WriteFile(path, []byte("DEFAULT_LOCATION=Doca 3\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("DEFAULT_LOCATION", "")
	os.Unsetenv("DEFAULT_LOCATION")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := Load().DefaultLocation; got != "Doca 3" {
		t.Fatalf("expected location from env file, got %q", got)
	}
}

func TestLocationFallsBackToLocal(t *testing.T) {
	if (Config{DisplayTimezone: "Nowhere/Special"}).Location() != time.Local {
		t.Fatalf("expected local zone for unknown timezone")
	}
	loc := (Config{DisplayTimezone: "UTC"}).Location()
	if loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %s", loc)
	}
}
