package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/repairdesk")
	t.Setenv("SERVICE_JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GetHTTPAddr() != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.GetHTTPAddr())
	}
	if cfg.GetBusinessLocation() == nil || cfg.GetBusinessLocation().String() != "Europe/Madrid" {
		t.Errorf("BusinessLocation = %v, want Europe/Madrid", cfg.GetBusinessLocation())
	}
	if cfg.GetStaleLockMaxAge() != 5*time.Minute {
		t.Errorf("StaleLockMaxAge = %v, want 5m", cfg.GetStaleLockMaxAge())
	}
	if cfg.GetAutopilotSweepMode() != "single" {
		t.Errorf("AutopilotSweepMode = %q, want single", cfg.GetAutopilotSweepMode())
	}
	if cfg.IsEmailEnabled() {
		t.Error("email should be disabled without SMTP_HOST")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database url", env: map[string]string{"DATABASE_URL": ""}},
		{name: "missing jwt secret", env: map[string]string{"SERVICE_JWT_SECRET": ""}},
		{name: "bad timezone", env: map[string]string{"BUSINESS_TIMEZONE": "Mars/Olympus"}},
		{name: "bad sweep mode", env: map[string]string{"AUTOPILOT_SWEEP_MODE": "all"}},
		{name: "smtp without sender", env: map[string]string{"SMTP_HOST": "smtp.example.com"}},
		{name: "wildcard cors with credentials", env: map[string]string{"CORS_ORIGINS": "*", "CORS_ALLOW_CREDENTIALS": "true"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			for key, value := range tc.env {
				t.Setenv(key, value)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected Load() to fail")
			}
		})
	}
}
