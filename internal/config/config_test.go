package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("CUSTOMER_REFRESH_BASE_DELAY", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SessionBackend != "redis" {
		t.Fatalf("expected redis session backend, got %s", cfg.SessionBackend)
	}
	if cfg.SessionCookieName != "salon_sid" {
		t.Fatalf("expected default cookie name, got %s", cfg.SessionCookieName)
	}
	if cfg.CustomerRefreshBaseDelay != 5*time.Second {
		t.Fatalf("expected default refresh delay, got %s", cfg.CustomerRefreshBaseDelay)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("expected metrics enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("IDENTITY_API_BASE_URL", "https://id.example.com")
	t.Setenv("SALON_API_BASE_URL", "https://salon.example.com/api")
	t.Setenv("APP_CODE", "SALON_WEB")
	t.Setenv("SESSION_BACKEND", " Memory ")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CUSTOMER_REFRESH_MAX_ATTEMPTS", "3")
	t.Setenv("LLM_PROVIDER", "Bedrock")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.IdentityBaseURL != "https://id.example.com" {
		t.Fatalf("expected identity override, got %s", cfg.IdentityBaseURL)
	}
	if cfg.SalonBaseURL != "https://salon.example.com/api" {
		t.Fatalf("expected salon override, got %s", cfg.SalonBaseURL)
	}
	if cfg.AppCode != "SALON_WEB" {
		t.Fatalf("expected app code override, got %s", cfg.AppCode)
	}
	if cfg.SessionBackend != "memory" {
		t.Fatalf("expected memory backend, got %s", cfg.SessionBackend)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected session ttl override, got %s", cfg.SessionTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.RateLimitRPS)
	}
	if cfg.CustomerRefreshMaxAttempts != 3 {
		t.Fatalf("expected refresh attempts override, got %d", cfg.CustomerRefreshMaxAttempts)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected provider normalized, got %s", cfg.LLMProvider)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("RATE_LIMIT_BURST", "lots")
	t.Setenv("METRICS_ENABLED", "maybe")
	cfg := Load()
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("expected default ttl, got %s", cfg.SessionTTL)
	}
	if cfg.RateLimitBurst != 20 {
		t.Fatalf("expected default burst, got %d", cfg.RateLimitBurst)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("expected default metrics flag")
	}
}
