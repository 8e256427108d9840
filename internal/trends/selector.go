package trends

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/models"
)

// CandidateSource is the trend source aggregator boundary: best-effort,
// may return an empty list without error.
type CandidateSource interface {
	Fetch(ctx context.Context, topics []string) ([]models.Candidate, error)
}

// UsageHistory exposes windowed per-platform usage counts keyed by
// normalized topic.
type UsageHistory interface {
	CountByTopic(ctx context.Context, platform models.Platform, since time.Time) (map[string]int, error)
}

// Selector orchestrates fetching, safety filtering, duplicate blocking and
// scoring to always return a usable trend, or explicitly none.
type Selector struct {
	cfg       config.SelectorConfig
	scoring   config.ScoringConfig
	source    CandidateSource
	scorer    *Scorer
	guard     *DuplicateGuard
	usage     UsageHistory
	fallbacks map[string][]models.Candidate
	logger    *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// NewSelector wires the selection pipeline together.
func NewSelector(
	cfg config.SelectorConfig,
	scoring config.ScoringConfig,
	source CandidateSource,
	scorer *Scorer,
	guard *DuplicateGuard,
	usage UsageHistory,
	logger *slog.Logger,
) *Selector {
	return &Selector{
		cfg:       cfg,
		scoring:   scoring,
		source:    source,
		scorer:    scorer,
		guard:     guard,
		usage:     usage,
		fallbacks: DefaultFallbackPools(),
		logger:    logger,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// SetClock overrides the selector's clock and propagates it to the guard.
// Test hook.
func (s *Selector) SetClock(now func() time.Time) {
	s.now = now
	s.guard.SetClock(now)
}

// SetSleep overrides the retry backoff sleep. Test hook.
func (s *Selector) SetSleep(sleep func(time.Duration)) { s.sleep = sleep }

// Select returns the best available candidate for the agent, or nil when
// nothing — not even a fallback — is usable. A nil result with a nil error
// means the agent simply has nothing to post this cycle.
func (s *Selector) Select(ctx context.Context, agent *models.Agent) (*models.Candidate, error) {
	topics := agent.Settings.Topics
	if len(topics) == 0 {
		topics = []string{DefaultTopicFor(agent.Platform)}
	}

	raw, err := s.fetchWithRetry(ctx, topics)
	if err != nil {
		s.logger.Warn("candidate fetch failed, using fallback pool",
			"agent_id", agent.ID, "error", err)
		return s.fallback(agent.Platform, topics), nil
	}

	pool, err := s.guard.Filter(ctx, s.safetyFilter(raw, true), agent.Platform)
	if err != nil {
		return nil, fmt.Errorf("duplicate filter: %w", err)
	}

	if len(pool) == 0 {
		// Relaxed pass: block-list only, no confidence or source minimums.
		pool, err = s.guard.Filter(ctx, s.safetyFilter(raw, false), agent.Platform)
		if err != nil {
			return nil, fmt.Errorf("duplicate filter (relaxed): %w", err)
		}
	}

	if len(pool) == 0 {
		s.logger.Info("candidate pool empty after filtering, using fallback pool",
			"agent_id", agent.ID, "fetched", len(raw))
		return s.fallback(agent.Platform, topics), nil
	}

	now := s.now()
	penaltyCounts := s.usageCounts(ctx, agent.Platform, now.Add(-s.scoring.UsageWindow))
	scored := s.scorer.Score(pool, func(topic string) int { return penaltyCounts[topic] }, now)

	// Prefer a topic untouched in the fresh window; the penalty curve
	// already makes the top-scored candidate safe otherwise.
	freshCounts := s.usageCounts(ctx, agent.Platform, now.Add(-s.cfg.FreshUsageWindow))
	top := scored
	if len(top) > s.cfg.TopPool {
		top = top[:s.cfg.TopPool]
	}
	for i := range top {
		if freshCounts[top[i].NormalizedTopic()] == 0 {
			return &top[i], nil
		}
	}
	return &scored[0], nil
}

// fetchWithRetry calls the aggregator up to the configured number of
// attempts with increasing backoff between them.
func (s *Selector) fetchWithRetry(ctx context.Context, topics []string) ([]models.Candidate, error) {
	attempts := s.cfg.FetchAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		candidates, err := s.source.Fetch(ctx, topics)
		if err == nil {
			return candidates, nil
		}
		lastErr = err
		if attempt < attempts {
			backoff := time.Duration(attempt) * s.cfg.FetchBackoff
			s.logger.Debug("candidate fetch attempt failed, backing off",
				"attempt", attempt, "backoff", backoff, "error", err)
			s.sleep(backoff)
		}
	}
	return nil, fmt.Errorf("fetch candidates after %d attempts: %w", attempts, lastErr)
}

// safetyFilter drops block-listed candidates and, in strict mode, those
// below the confidence and source-count minimums.
func (s *Selector) safetyFilter(candidates []models.Candidate, strict bool) []models.Candidate {
	kept := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if s.blocked(&c) {
			continue
		}
		if strict {
			if c.Confidence < s.cfg.MinConfidence {
				continue
			}
			if len(c.Sources) < s.cfg.MinSources {
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept
}

func (s *Selector) blocked(c *models.Candidate) bool {
	text := strings.ToLower(c.Topic + " " + c.Title)
	for _, word := range s.cfg.Blocklist {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

func (s *Selector) usageCounts(ctx context.Context, platform models.Platform, since time.Time) map[string]int {
	counts, err := s.usage.CountByTopic(ctx, platform, since)
	if err != nil {
		// Usage history is advisory; selection proceeds unpenalized.
		s.logger.Warn("usage count lookup failed", "platform", platform, "error", err)
		return map[string]int{}
	}
	return counts
}

// fallback deterministically picks from the fixed pool for the first topic
// that names a known category, rotating on a fixed period. When no topic
// names a category the platform's general pool is used.
func (s *Selector) fallback(platform models.Platform, topics []string) *models.Candidate {
	pool := s.fallbacks[DefaultTopicFor(platform)]
	for _, topic := range topics {
		if p, ok := s.fallbacks[strings.ToLower(topic)]; ok {
			pool = p
			break
		}
	}
	if len(pool) == 0 {
		return nil
	}

	c := pool[rotationIndex(s.now(), s.cfg.FallbackRotation, len(pool))]
	return &c
}
