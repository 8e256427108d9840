package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/trendpilot/trendpilot/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("default log level = %v, want info", cfg.Logging.Level)
	}
	if cfg.Scheduler.BatchSize != 10 {
		t.Errorf("default batch size = %d, want 10", cfg.Scheduler.BatchSize)
	}
	if cfg.Scheduler.AgentDelay != 3*time.Second {
		t.Errorf("default agent delay = %v, want 3s", cfg.Scheduler.AgentDelay)
	}
	if cfg.RateLimit.Window != time.Hour {
		t.Errorf("default rate window = %v, want 1h", cfg.RateLimit.Window)
	}
	if cfg.Duplicate.SimilarityThreshold != 0.8 {
		t.Errorf("default similarity threshold = %v, want 0.8", cfg.Duplicate.SimilarityThreshold)
	}
	if cfg.Scoring.UsageWindow != 24*time.Hour {
		t.Errorf("default usage window = %v, want 24h", cfg.Scoring.UsageWindow)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SCHEDULER_BATCH_SIZE", "25")
	t.Setenv("SCHEDULER_AGENT_DELAY_SECONDS", "1")
	t.Setenv("RATE_WINDOW_MINUTES", "30")
	t.Setenv("RATE_CEILING_X", "20")
	t.Setenv("DUPLICATE_SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("FALLBACK_ROTATION_HOURS", "4")
	t.Setenv("SELECTOR_BLOCKLIST", "Crypto, scam ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != slog.LevelDebug || cfg.Logging.Format != "text" {
		t.Errorf("logging = %v/%q, want debug/text", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Scheduler.BatchSize != 25 {
		t.Errorf("batch size = %d, want 25", cfg.Scheduler.BatchSize)
	}
	if cfg.Scheduler.AgentDelay != time.Second {
		t.Errorf("agent delay = %v, want 1s", cfg.Scheduler.AgentDelay)
	}
	if cfg.RateLimit.Window != 30*time.Minute {
		t.Errorf("rate window = %v, want 30m", cfg.RateLimit.Window)
	}
	if got := cfg.RateLimit.CeilingFor(models.PlatformX); got != 20 {
		t.Errorf("x ceiling = %d, want 20", got)
	}
	if cfg.Duplicate.SimilarityThreshold != 0.9 {
		t.Errorf("similarity threshold = %v, want 0.9", cfg.Duplicate.SimilarityThreshold)
	}
	if cfg.Selector.FallbackRotation != 4*time.Hour {
		t.Errorf("fallback rotation = %v, want 4h", cfg.Selector.FallbackRotation)
	}
	want := []string{"crypto", "scam"}
	if len(cfg.Selector.Blocklist) != len(want) {
		t.Fatalf("blocklist = %v, want %v", cfg.Selector.Blocklist, want)
	}
	for i, w := range want {
		if cfg.Selector.Blocklist[i] != w {
			t.Errorf("blocklist[%d] = %q, want %q", i, cfg.Selector.Blocklist[i], w)
		}
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LOG_LEVEL", "verbose"},
		{"LOG_FORMAT", "yaml"},
		{"SCHEDULER_BATCH_SIZE", "zero"},
		{"SCHEDULER_BATCH_SIZE", "-1"},
		{"RATE_WINDOW_MINUTES", "0"},
		{"RATE_CEILING_TELEGRAM", "-5"},
		{"DUPLICATE_LOOKBACK_HOURS", "soon"},
		{"OPENAI_TEMPERATURE", "warm"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}

func TestCeilingForUnknownPlatform(t *testing.T) {
	cfg := Default()
	if got := cfg.RateLimit.CeilingFor(models.Platform("mastodon")); got != cfg.RateLimit.DefaultCeiling {
		t.Errorf("unknown platform ceiling = %d, want default %d", got, cfg.RateLimit.DefaultCeiling)
	}
}
