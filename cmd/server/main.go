package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/content"
	"github.com/trendpilot/trendpilot/internal/database"
	"github.com/trendpilot/trendpilot/internal/logging"
	"github.com/trendpilot/trendpilot/internal/metrics"
	"github.com/trendpilot/trendpilot/internal/models"
	"github.com/trendpilot/trendpilot/internal/publisher"
	"github.com/trendpilot/trendpilot/internal/ratelimit"
	"github.com/trendpilot/trendpilot/internal/scheduler"
	"github.com/trendpilot/trendpilot/internal/server"
	"github.com/trendpilot/trendpilot/internal/trends"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting trendpilot")

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}

	agentRepo := database.NewAgentRepository(db)
	postRepo := database.NewPostRepository(db)
	usageRepo := database.NewTrendUsageRepository(db)
	auditRepo := database.NewAuditLogRepository(db)

	collector, err := metrics.NewCycleCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	tracker := ratelimit.NewUsageWindowTracker(cfg.RateLimit, logger)

	source := trends.NewGoogleNewsSource(&http.Client{Timeout: 15 * time.Second}, logger)
	scorer := trends.NewScorer(cfg.Scoring, logger)
	guard := trends.NewDuplicateGuard(cfg.Duplicate, postRepo, logger)
	selector := trends.NewSelector(cfg.Selector, cfg.Scoring, source, scorer, guard, usageRepo, logger)

	var generator content.Generator
	openaiGen, err := content.NewOpenAIGenerator(cfg.OpenAI, logger)
	if err != nil {
		logger.Warn("openai generator unavailable, using mock generator", "error", err)
		generator = content.NewMockGenerator()
	} else {
		generator = openaiGen
	}

	var publishers []publisher.Publisher
	if cfg.X.APIKey != "" && cfg.X.AccessToken != "" {
		publishers = append(publishers, publisher.NewXPublisher(cfg.X, 30*time.Second, logger))
		logger.Info("x publisher configured")
	}
	if cfg.Telegram.BotToken != "" {
		tg, err := publisher.NewTelegramPublisher(cfg.Telegram.BotToken, logger)
		if err != nil {
			logger.Error("failed to init telegram publisher", "error", err)
		} else {
			publishers = append(publishers, tg)
			logger.Info("telegram publisher configured")
		}
	}
	if len(publishers) == 0 {
		logger.Warn("no platform credentials configured, publishing to mock destinations")
		publishers = append(publishers,
			publisher.NewMockPublisher(models.PlatformX),
			publisher.NewMockPublisher(models.PlatformTelegram),
		)
	}
	registry := publisher.NewRegistry(publishers...)

	runner := scheduler.NewCycleRunner(
		tracker, selector, generator, registry,
		agentRepo, postRepo, usageRepo, auditRepo,
		collector, logger,
	)
	agentScheduler := scheduler.NewAgentScheduler(
		cfg.Scheduler, agentRepo, runner, tracker, usageRepo, collector, logger,
	)
	go agentScheduler.Start(ctx)

	mux := server.NewMux(
		func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
		collector.Handler(),
		auditRepo,
		postRepo,
		logger,
	)

	srv := server.New(cfg.Server, logger, mux)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("trendpilot started", "port", cfg.Server.Port)

	waitForSignal(logger)

	logger.Info("shutting down")
	agentScheduler.Stop()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
