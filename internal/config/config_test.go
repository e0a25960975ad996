package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("GEMINI_API_KEY", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("expected default session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.LLMProvider != "auto" {
		t.Fatalf("expected auto llm provider, got %s", cfg.LLMProvider)
	}
	if cfg.ClinicTZ != "Asia/Kolkata" {
		t.Fatalf("expected default clinic tz, got %s", cfg.ClinicTZ)
	}
	if !cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("LLM_PROVIDER", "Bedrock")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("CALCOM_API_KEY", "cal-key")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("USE_MEMORY_QUEUE", "false")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("expected session ttl override, got %s", cfg.SessionTTL)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected normalized llm provider, got %s", cfg.LLMProvider)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.CalComAPIKey != "cal-key" {
		t.Fatalf("expected calcom key override, got %s", cfg.CalComAPIKey)
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("expected worker count override, got %d", cfg.WorkerCount)
	}
	if cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue disabled")
	}
}
