package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_PORT", "DATABASE_URL", "SMTP_HOST", "SMTP_PORT", "MONITOR_DEFAULTS_FILE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.HTTPPort)
	}
	if cfg.EmailEnabled {
		t.Error("email must be disabled without an SMTP host")
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("expected default SMTP port 587, got %d", cfg.SMTPPort)
	}
	if !cfg.Monitor.Enabled {
		t.Error("expected monitoring enabled by default")
	}
	if cfg.Monitor.TickIntervalSeconds != 10 {
		t.Errorf("expected default tick interval 10, got %d", cfg.Monitor.TickIntervalSeconds)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://other:5432/db")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.DatabaseURL != "postgres://other:5432/db" {
		t.Errorf("unexpected database URL %q", cfg.DatabaseURL)
	}
	if !cfg.EmailEnabled {
		t.Error("expected email enabled when SMTP host is set")
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != 3000 {
		t.Errorf("expected fallback port 3000, got %d", cfg.HTTPPort)
	}
}

func TestLoad_MonitorDefaultsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	contents := "enabled: false\ntick_interval_seconds: 30\nworker_pool_size: 4\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write defaults file: %v", err)
	}
	t.Setenv("MONITOR_DEFAULTS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Monitor.Enabled {
		t.Error("expected file to disable monitoring")
	}
	if cfg.Monitor.TickIntervalSeconds != 30 {
		t.Errorf("expected tick interval 30, got %d", cfg.Monitor.TickIntervalSeconds)
	}
	if cfg.Monitor.WorkerPoolSize != 4 {
		t.Errorf("expected pool size 4, got %d", cfg.Monitor.WorkerPoolSize)
	}
	// Keys absent from the file keep the built-in defaults.
	if cfg.Monitor.DefaultFailureThreshold != 3 {
		t.Errorf("expected untouched failure threshold 3, got %d", cfg.Monitor.DefaultFailureThreshold)
	}
}

func TestLoad_MissingMonitorDefaultsFile(t *testing.T) {
	t.Setenv("MONITOR_DEFAULTS_FILE", "/nonexistent/monitor.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a missing defaults file")
	}
}
