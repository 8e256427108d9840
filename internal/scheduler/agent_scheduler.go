package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/metrics"
)

// CycleGuard guarantees at most one processing cycle in flight. A tick
// that arrives while a cycle is running is dropped, not queued.
type CycleGuard struct {
	running atomic.Bool
}

// TryAcquire claims the guard, returning false when a cycle already holds it.
func (g *CycleGuard) TryAcquire() bool { return g.running.CompareAndSwap(false, true) }

// Release frees the guard.
func (g *CycleGuard) Release() { g.running.Store(false) }

// RateWindowPruner drops expired in-memory rate-limit windows.
type RateWindowPruner interface {
	Cleanup() int
}

// AgentScheduler fires the processing cycle on a fixed interval and owns
// the three periodic maintenance jobs: daily post-counter reset, rate
// window pruning, and trend usage pruning.
type AgentScheduler struct {
	cfg       config.SchedulerConfig
	agents    AgentStore
	runner    *CycleRunner
	ratePrune RateWindowPruner
	usage     UsageStore
	collector *metrics.CycleCollector
	logger    *slog.Logger

	guard    CycleGuard
	stopChan chan struct{}

	now   func() time.Time
	sleep func(time.Duration)
}

// NewAgentScheduler creates a scheduler around the given runner.
func NewAgentScheduler(
	cfg config.SchedulerConfig,
	agents AgentStore,
	runner *CycleRunner,
	ratePrune RateWindowPruner,
	usage UsageStore,
	collector *metrics.CycleCollector,
	logger *slog.Logger,
) *AgentScheduler {
	return &AgentScheduler{
		cfg:       cfg,
		agents:    agents,
		runner:    runner,
		ratePrune: ratePrune,
		usage:     usage,
		collector: collector,
		logger:    logger,
		stopChan:  make(chan struct{}),
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// SetClock overrides the scheduler's clock. Test hook.
func (s *AgentScheduler) SetClock(now func() time.Time) { s.now = now }

// SetSleep overrides the pacing sleep. Test hook.
func (s *AgentScheduler) SetSleep(sleep func(time.Duration)) { s.sleep = sleep }

// Start begins the scheduler loop. It blocks until Stop is called or the
// context is cancelled.
func (s *AgentScheduler) Start(ctx context.Context) {
	s.logger.Info("starting agent scheduler",
		"check_interval", s.cfg.CheckInterval,
		"batch_size", s.cfg.BatchSize)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	dailyReset := time.NewTicker(s.cfg.DailyResetInterval)
	defer dailyReset.Stop()

	windowPrune := time.NewTicker(s.cfg.WindowPruneInterval)
	defer windowPrune.Stop()

	usagePrune := time.NewTicker(s.cfg.UsagePruneInterval)
	defer usagePrune.Stop()

	// Run once immediately on start.
	s.RunCycle(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunCycle(ctx)
		case <-dailyReset.C:
			s.resetDailyCounters(ctx)
		case <-windowPrune.C:
			s.ratePrune.Cleanup()
		case <-usagePrune.C:
			s.pruneUsage(ctx)
		case <-s.stopChan:
			s.logger.Info("agent scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("agent scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler loop.
func (s *AgentScheduler) Stop() {
	close(s.stopChan)
}

// RunCycle executes one processing cycle unless one is already in flight,
// in which case the tick is dropped and logged.
func (s *AgentScheduler) RunCycle(ctx context.Context) {
	if !s.guard.TryAcquire() {
		s.logger.Warn("cycle already in flight, skipping tick")
		s.collector.ObserveSkippedCycle()
		return
	}
	defer s.guard.Release()

	start := s.now()

	due, err := s.agents.ListDue(ctx, start)
	if err != nil {
		s.logger.Error("failed to list due agents, aborting cycle", "error", err)
		return
	}
	if len(due) == 0 {
		s.logger.Debug("no agents due this cycle")
		return
	}

	s.logger.Info("processing cycle started", "due_agents", len(due))

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(due)
	}

	var succeeded, failed int
	for batchStart := 0; batchStart < len(due); batchStart += batchSize {
		if batchStart > 0 {
			s.sleep(s.cfg.BatchDelay)
		}

		end := batchStart + batchSize
		if end > len(due) {
			end = len(due)
		}

		for i := batchStart; i < end; i++ {
			if i > batchStart {
				s.sleep(s.cfg.AgentDelay)
			}
			result := s.runner.Run(ctx, &due[i])
			if result.Success() {
				succeeded++
			} else {
				failed++
			}
		}
	}

	duration := s.now().Sub(start)
	s.collector.ObserveCycle(duration)
	s.logger.Info("processing cycle finished",
		"processed", len(due),
		"succeeded", succeeded,
		"failed", failed,
		"duration", duration)
}

func (s *AgentScheduler) resetDailyCounters(ctx context.Context) {
	reset, err := s.agents.ResetDailyCounters(ctx)
	if err != nil {
		s.logger.Error("daily counter reset failed", "error", err)
		return
	}
	s.logger.Info("daily post counters reset", "agents", reset)
}

func (s *AgentScheduler) pruneUsage(ctx context.Context) {
	pruned, err := s.usage.Prune(ctx, s.cfg.UsageRetention)
	if err != nil {
		s.logger.Error("trend usage prune failed", "error", err)
		return
	}
	if pruned > 0 {
		s.logger.Info("pruned trend usage records", "removed", pruned)
	}
}
