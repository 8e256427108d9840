// Package scheduler drives the periodic agent processing cycle: discover
// due agents, run each through the posting pipeline with pacing, and keep
// the bookkeeping tables pruned.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trendpilot/trendpilot/internal/content"
	"github.com/trendpilot/trendpilot/internal/logging"
	"github.com/trendpilot/trendpilot/internal/metrics"
	"github.com/trendpilot/trendpilot/internal/models"
	"github.com/trendpilot/trendpilot/internal/publisher"
)

// AgentStore is the slice of agent persistence the scheduler needs.
type AgentStore interface {
	ListDue(ctx context.Context, now time.Time) ([]models.Agent, error)
	RecordPost(ctx context.Context, agentID string, postedAt time.Time) error
	ResetDailyCounters(ctx context.Context) (int64, error)
}

// PostStore appends published post records.
type PostStore interface {
	Append(ctx context.Context, post models.PublishedPost) error
}

// UsageStore appends and prunes trend usage records.
type UsageStore interface {
	Append(ctx context.Context, rec models.TrendUsageRecord) error
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditStore appends per-agent cycle outcomes.
type AuditStore interface {
	Log(ctx context.Context, entry models.AuditEntry) error
}

// TrendPicker selects the trend an agent should post about. A nil
// candidate with a nil error means nothing usable this cycle.
type TrendPicker interface {
	Select(ctx context.Context, agent *models.Agent) (*models.Candidate, error)
}

// RateGate is the per-(user, platform) throughput limiter boundary.
type RateGate interface {
	CheckLimit(userID string, platform models.Platform) bool
	RecordUsage(userID string, platform models.Platform)
}

// CycleResult is the terminal outcome of one agent's cycle.
type CycleResult struct {
	Status models.AuditStatus
	Detail string
}

// Success reports whether the agent's post went out.
func (r CycleResult) Success() bool { return r.Status == models.AuditStatusSuccess }

// CycleRunner executes the per-agent posting pipeline. Each step is a hard
// gate: rate check, trend selection, content generation, publish. Side
// effects (post counter, rate usage, trend usage, post history) are
// recorded only after the publisher confirms, so a failed attempt never
// consumes quota or marks a trend used.
type CycleRunner struct {
	rate       RateGate
	selector   TrendPicker
	generator  content.Generator
	publishers *publisher.Registry
	agents     AgentStore
	posts      PostStore
	usage      UsageStore
	audit      AuditStore
	collector  *metrics.CycleCollector
	logger     *slog.Logger

	now func() time.Time
}

// NewCycleRunner wires the pipeline.
func NewCycleRunner(
	rate RateGate,
	selector TrendPicker,
	generator content.Generator,
	publishers *publisher.Registry,
	agents AgentStore,
	posts PostStore,
	usage UsageStore,
	audit AuditStore,
	collector *metrics.CycleCollector,
	logger *slog.Logger,
) *CycleRunner {
	return &CycleRunner{
		rate:       rate,
		selector:   selector,
		generator:  generator,
		publishers: publishers,
		agents:     agents,
		posts:      posts,
		usage:      usage,
		audit:      audit,
		collector:  collector,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock overrides the runner's clock. Test hook.
func (r *CycleRunner) SetClock(now func() time.Time) { r.now = now }

// Run processes one agent. It never panics: any panic in the pipeline is
// recovered and converted into an unexpected-failure result, so one
// agent's crash cannot abort the batch.
func (r *CycleRunner) Run(ctx context.Context, agent *models.Agent) (result CycleResult) {
	logger := logging.ForAgent(r.logger, agent.ID, agent.UserID, string(agent.Platform))

	defer func() {
		if rec := recover(); rec != nil {
			result = CycleResult{
				Status: models.AuditStatusUnexpectedFailure,
				Detail: fmt.Sprintf("panic: %v", rec),
			}
			logger.Error("agent cycle panicked", "panic", rec)
		}
		r.finish(ctx, agent, result)
	}()

	if !r.rate.CheckLimit(agent.UserID, agent.Platform) {
		logger.Info("rate limit reached, skipping agent")
		return CycleResult{Status: models.AuditStatusRateLimited}
	}

	candidate, err := r.selector.Select(ctx, agent)
	if err != nil {
		logger.Error("trend selection failed", "error", err)
		return CycleResult{Status: models.AuditStatusUnexpectedFailure, Detail: err.Error()}
	}
	if candidate == nil {
		logger.Info("no usable trend this cycle")
		return CycleResult{Status: models.AuditStatusNoTrend}
	}

	generated, err := r.generator.Generate(ctx, candidate, agent)
	if err != nil {
		logger.Error("content generation failed", "topic", candidate.Topic, "error", err)
		return CycleResult{Status: models.AuditStatusGenerationFailed, Detail: err.Error()}
	}
	if generated == nil || generated.Text == "" {
		logger.Error("content generation returned empty text", "topic", candidate.Topic)
		return CycleResult{Status: models.AuditStatusGenerationFailed, Detail: "empty text"}
	}

	pub, err := r.publishers.For(agent.Platform)
	if err != nil {
		logger.Error("no publisher for platform", "error", err)
		return CycleResult{Status: models.AuditStatusPublishFailed, Detail: err.Error()}
	}

	published, err := pub.Publish(ctx, generated.Text, generated.ImageURL, agent.Settings.PlatformOptions)
	if err != nil {
		logger.Error("publish failed", "topic", candidate.Topic, "error", err)
		return CycleResult{Status: models.AuditStatusPublishFailed, Detail: err.Error()}
	}

	r.recordSuccess(ctx, agent, candidate, generated.Text, published, logger)
	return CycleResult{Status: models.AuditStatusSuccess}
}

// recordSuccess writes the post-publish side effects. The post is already
// live, so store failures are logged but do not change the outcome.
func (r *CycleRunner) recordSuccess(
	ctx context.Context,
	agent *models.Agent,
	candidate *models.Candidate,
	text string,
	published *publisher.Result,
	logger *slog.Logger,
) {
	now := r.now()
	topic := candidate.NormalizedTopic()

	r.rate.RecordUsage(agent.UserID, agent.Platform)

	if err := r.agents.RecordPost(ctx, agent.ID, now); err != nil {
		logger.Error("failed to advance agent post counter", "error", err)
	}

	if err := r.usage.Append(ctx, models.TrendUsageRecord{
		Topic:    topic,
		AgentID:  agent.ID,
		UserID:   agent.UserID,
		Platform: agent.Platform,
		UsedAt:   now,
	}); err != nil {
		logger.Error("failed to record trend usage", "topic", topic, "error", err)
	}

	if err := r.posts.Append(ctx, models.PublishedPost{
		AgentID:      agent.ID,
		UserID:       agent.UserID,
		Platform:     agent.Platform,
		Topic:        topic,
		TrendTitle:   candidate.Title,
		TrendURL:     candidate.URL,
		TrendVolume:  candidate.Volume,
		TrendSources: len(candidate.Sources),
		Text:         text,
		Success:      true,
		ExternalID:   published.PostID,
		ExternalURL:  published.URL,
		PostedAt:     now,
	}); err != nil {
		logger.Error("failed to record published post", "topic", topic, "error", err)
	}

	r.collector.RecordPublish(agent.Platform)
	logger.Info("post published", "topic", topic, "external_id", published.PostID)
}

// finish records the cycle outcome in metrics and the audit log.
func (r *CycleRunner) finish(ctx context.Context, agent *models.Agent, result CycleResult) {
	r.collector.RecordOutcome(result.Status)

	if err := r.audit.Log(ctx, models.AuditEntry{
		Timestamp: r.now(),
		AgentID:   agent.ID,
		UserID:    agent.UserID,
		Platform:  agent.Platform,
		Status:    result.Status,
		Detail:    result.Detail,
	}); err != nil {
		r.logger.Error("failed to write audit entry", "agent_id", agent.ID, "error", err)
	}
}
