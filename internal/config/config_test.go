package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "LLM_PROVIDER", "LEAD_TIMEOUT", "CORS_ALLOWED_ORIGINS", "REDIS_ADDR", "SESSION_MODE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "3000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "openai" || cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected openai gpt-4o-mini by default, got %s/%s", cfg.LLMProvider, cfg.OpenAIModel)
	}
	if cfg.LLMMaxTokens != 250 || cfg.LLMTemperature != 0.4 {
		t.Fatalf("unexpected completion defaults %d/%v", cfg.LLMMaxTokens, cfg.LLMTemperature)
	}
	if cfg.LeadTimeout != 240*time.Second {
		t.Fatalf("expected 240s lead timeout, got %s", cfg.LeadTimeout)
	}
	if cfg.LeadMaxAttempts != 3 || cfg.OffTopicLimit != 3 {
		t.Fatalf("unexpected attempt limits %d/%d", cfg.LeadMaxAttempts, cfg.OffTopicLimit)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard CORS by default, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected in-memory history by default, got %s", cfg.RedisAddr)
	}
	if cfg.SessionMode != "keyed" {
		t.Fatalf("expected keyed sessions, got %s", cfg.SessionMode)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LLM_PROVIDER", " Bedrock ")
	t.Setenv("LLM_TEMPERATURE", "0.1")
	t.Setenv("LEAD_TIMEOUT", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://exaengenharia.com, ,https://www.exaengenharia.com")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("SESSION_MODE", "SINGLE")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected normalised provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMTemperature != 0.1 {
		t.Fatalf("expected temperature override, got %v", cfg.LLMTemperature)
	}
	if cfg.LeadTimeout != 90*time.Second {
		t.Fatalf("expected lead timeout override, got %s", cfg.LeadTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://www.exaengenharia.com" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis TLS enabled")
	}
	if cfg.SessionMode != "single" {
		t.Fatalf("expected single session mode, got %s", cfg.SessionMode)
	}
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("LEAD_MAX_ATTEMPTS", "three")
	t.Setenv("LLM_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_RPS", "fast")
	cfg := Load()
	if cfg.LeadMaxAttempts != 3 {
		t.Fatalf("expected default attempts, got %d", cfg.LeadMaxAttempts)
	}
	if cfg.LLMTimeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.LLMTimeout)
	}
	if cfg.RateLimitRPS != 2 {
		t.Fatalf("expected default rps, got %v", cfg.RateLimitRPS)
	}
}
