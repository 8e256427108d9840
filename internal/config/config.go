package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/trendpilot/trendpilot/internal/models"
)

// Config represents runtime configuration derived from environment
// variables. Every empirically-tuned constant (penalty multipliers,
// similarity threshold, category weights) lives here so operators can
// adjust them without code changes.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
	Scoring   ScoringConfig
	Duplicate DuplicateConfig
	Selector  SelectorConfig
	OpenAI    OpenAIConfig
	X         XConfig
	Telegram  TelegramConfig
}

// ServerConfig holds HTTP listener parameters for /healthz and /metrics.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	URL string
}

// SchedulerConfig drives the periodic cycle and the maintenance jobs.
type SchedulerConfig struct {
	CheckInterval time.Duration
	BatchSize     int
	AgentDelay    time.Duration
	BatchDelay    time.Duration

	DailyResetInterval  time.Duration
	WindowPruneInterval time.Duration
	UsagePruneInterval  time.Duration
	UsageRetention      time.Duration
}

// RateLimitConfig bounds posts per (user, platform) within a rolling window.
type RateLimitConfig struct {
	Window         time.Duration
	DefaultCeiling int
	Ceilings       map[models.Platform]int
}

// CeilingFor returns the post ceiling for a platform.
func (c RateLimitConfig) CeilingFor(platform models.Platform) int {
	if n, ok := c.Ceilings[platform]; ok {
		return n
	}
	return c.DefaultCeiling
}

// ScoringConfig holds every knob of the trend-ranking formula.
type ScoringConfig struct {
	SourceBonus        float64
	SourceBonusCap     float64
	VolumeBonusWeight  float64
	UnknownVolumeBonus float64

	// Freshness decays linearly from full to zero over the horizon and is
	// then damped by FreshnessWeight.
	FreshnessHorizonHours float64
	FreshnessWeight       float64

	CategoryBonus  map[string]float64
	CategoryWeight map[string]float64

	PhraseBonus    float64
	PhraseMinWords int
	PhraseMaxWords int

	HighVolumeThreshold int64
	ViralThreshold      int64

	// Usage penalty multipliers by prior-use count and volume class.
	UsageWindow       time.Duration
	PenaltyOnce       float64
	PenaltyOnceHigh   float64
	PenaltyOnceViral  float64
	PenaltyTwice      float64
	PenaltyTwiceHigh  float64
	PenaltyTwiceViral float64
	PenaltyExhausted  float64
}

// DuplicateConfig bounds the duplicate-detection corpus.
type DuplicateConfig struct {
	Lookback            time.Duration
	MaxPosts            int
	SimilarityThreshold float64
}

// SelectorConfig tunes candidate filtering and fallback rotation.
type SelectorConfig struct {
	TopPool          int
	FreshUsageWindow time.Duration
	MinConfidence    float64
	MinSources       int
	Blocklist        []string
	FetchAttempts    int
	FetchBackoff     time.Duration
	FallbackRotation time.Duration
}

// OpenAIConfig configures the content-generation collaborator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// XConfig holds X (Twitter) API credentials.
type XConfig struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string
}

// TelegramConfig holds the bot token for the Telegram publisher.
type TelegramConfig struct {
	BotToken string
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: "json",
		},
		Scheduler: SchedulerConfig{
			CheckInterval:       5 * time.Minute,
			BatchSize:           10,
			AgentDelay:          3 * time.Second,
			BatchDelay:          10 * time.Second,
			DailyResetInterval:  24 * time.Hour,
			WindowPruneInterval: 24 * time.Hour,
			UsagePruneInterval:  6 * time.Hour,
			UsageRetention:      48 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Window:         time.Hour,
			DefaultCeiling: 5,
			Ceilings: map[models.Platform]int{
				models.PlatformX:        10,
				models.PlatformTelegram: 30,
				models.PlatformLinkedIn: 3,
			},
		},
		Scoring: ScoringConfig{
			SourceBonus:           15,
			SourceBonusCap:        45,
			VolumeBonusWeight:     10,
			UnknownVolumeBonus:    5,
			FreshnessHorizonHours: 100,
			FreshnessWeight:       0.5,
			CategoryBonus: map[string]float64{
				"technology": 20,
				"news":       10,
			},
			CategoryWeight: map[string]float64{
				"technology": 1.2,
				"news":       1.1,
			},
			PhraseBonus:         10,
			PhraseMinWords:      2,
			PhraseMaxWords:      5,
			HighVolumeThreshold: 10_000,
			ViralThreshold:      50_000,
			UsageWindow:         24 * time.Hour,
			PenaltyOnce:         0.3,
			PenaltyOnceHigh:     0.5,
			PenaltyOnceViral:    0.7,
			PenaltyTwice:        0.1,
			PenaltyTwiceHigh:    0.2,
			PenaltyTwiceViral:   0.4,
			PenaltyExhausted:    0.01,
		},
		Duplicate: DuplicateConfig{
			Lookback:            8 * time.Hour,
			MaxPosts:            100,
			SimilarityThreshold: 0.8,
		},
		Selector: SelectorConfig{
			TopPool:          10,
			FreshUsageWindow: 12 * time.Hour,
			MinConfidence:    0.3,
			MinSources:       1,
			Blocklist: []string{
				"nsfw", "porn", "onlyfans", "gore",
				"suicide", "shooting", "massacre",
			},
			FetchAttempts:    3,
			FetchBackoff:     2 * time.Second,
			FallbackRotation: 5 * time.Hour,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
	}
}

// Load reads configuration from environment variables, applying defaults
// when values are not provided. Invalid values are errors.
func Load() (Config, error) {
	cfg := Default()

	// Cloud Run sets PORT, allow SERVER_PORT override for local dev.
	if port := getEnv("PORT", ""); port != "" {
		cfg.Server.Port = port
	} else {
		cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	cfg.Database.URL = os.Getenv("DATABASE_URL")

	if err := overrideSeconds(&cfg.Scheduler.CheckInterval, "SCHEDULER_CHECK_INTERVAL_SECONDS"); err != nil {
		return Config{}, err
	}
	if err := overrideInt(&cfg.Scheduler.BatchSize, "SCHEDULER_BATCH_SIZE"); err != nil {
		return Config{}, err
	}
	if err := overrideSeconds(&cfg.Scheduler.AgentDelay, "SCHEDULER_AGENT_DELAY_SECONDS"); err != nil {
		return Config{}, err
	}
	if err := overrideSeconds(&cfg.Scheduler.BatchDelay, "SCHEDULER_BATCH_DELAY_SECONDS"); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("RATE_WINDOW_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("invalid RATE_WINDOW_MINUTES: must be a positive integer")
		}
		cfg.RateLimit.Window = time.Duration(minutes) * time.Minute
	}
	for platform := range cfg.RateLimit.Ceilings {
		key := "RATE_CEILING_" + strings.ToUpper(string(platform))
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return Config{}, fmt.Errorf("invalid %s: must be a positive integer", key)
			}
			cfg.RateLimit.Ceilings[platform] = n
		}
	}

	if err := overrideFloat(&cfg.Duplicate.SimilarityThreshold, "DUPLICATE_SIMILARITY_THRESHOLD"); err != nil {
		return Config{}, err
	}
	if err := overrideHours(&cfg.Duplicate.Lookback, "DUPLICATE_LOOKBACK_HOURS"); err != nil {
		return Config{}, err
	}
	if err := overrideHours(&cfg.Scoring.UsageWindow, "USAGE_PENALTY_WINDOW_HOURS"); err != nil {
		return Config{}, err
	}
	if err := overrideHours(&cfg.Selector.FallbackRotation, "FALLBACK_ROTATION_HOURS"); err != nil {
		return Config{}, err
	}
	if err := overrideHours(&cfg.Scheduler.UsageRetention, "USAGE_RETENTION_HOURS"); err != nil {
		return Config{}, err
	}
	if err := overrideFloat(&cfg.Selector.MinConfidence, "SELECTOR_MIN_CONFIDENCE"); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("SELECTOR_BLOCKLIST"); v != "" {
		var words []string
		for _, w := range strings.Split(v, ",") {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, strings.ToLower(w))
			}
		}
		cfg.Selector.Blocklist = words
	}

	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAI.Model = v
	}
	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		temp, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OPENAI_TEMPERATURE: %w", err)
		}
		cfg.OpenAI.Temperature = float32(temp)
	}

	cfg.X = XConfig{
		APIKey:            os.Getenv("X_API_KEY"),
		APISecret:         os.Getenv("X_API_SECRET"),
		AccessToken:       os.Getenv("X_ACCESS_TOKEN"),
		AccessTokenSecret: os.Getenv("X_ACCESS_TOKEN_SECRET"),
		BearerToken:       os.Getenv("X_BEARER_TOKEN"),
	}
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	return cfg, nil
}

func overrideSeconds(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	*dst = time.Duration(seconds) * time.Second
	return nil
}

func overrideHours(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	hours, err := strconv.Atoi(v)
	if err != nil || hours <= 0 {
		return fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	*dst = time.Duration(hours) * time.Hour
	return nil
}

func overrideInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	*dst = n
	return nil
}

func overrideFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return fmt.Errorf("invalid %s: must be a non-negative number", key)
	}
	*dst = f
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
