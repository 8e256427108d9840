package trends

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/models"
)

// PostHistory is the slice of the persistent store the duplicate guard
// reads: recently published posts for one platform, newest first.
type PostHistory interface {
	RecentPosts(ctx context.Context, platform models.Platform, since time.Time, limit int) ([]models.PublishedPost, error)
}

// DuplicateGuard blocks re-selection of trends that exactly or
// near-exactly match something posted recently. It is a hard filter
// applied upstream of scoring, not a penalty.
type DuplicateGuard struct {
	cfg     config.DuplicateConfig
	history PostHistory
	logger  *slog.Logger

	now func() time.Time
}

// NewDuplicateGuard creates a guard over the given post history.
func NewDuplicateGuard(cfg config.DuplicateConfig, history PostHistory, logger *slog.Logger) *DuplicateGuard {
	return &DuplicateGuard{
		cfg:     cfg,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the guard's clock. Test hook.
func (g *DuplicateGuard) SetClock(now func() time.Time) { g.now = now }

// IsDuplicate checks one candidate against the platform's recent posts
// within the given lookback window.
func (g *DuplicateGuard) IsDuplicate(ctx context.Context, c *models.Candidate, platform models.Platform, lookback time.Duration) (bool, error) {
	posts, err := g.recentPosts(ctx, platform, lookback)
	if err != nil {
		return false, err
	}
	return g.matchesAny(c, posts), nil
}

// Filter removes duplicate candidates, fetching the recent-post corpus
// once and reusing it for the whole pool.
func (g *DuplicateGuard) Filter(ctx context.Context, candidates []models.Candidate, platform models.Platform) ([]models.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	posts, err := g.recentPosts(ctx, platform, g.cfg.Lookback)
	if err != nil {
		return nil, err
	}

	kept := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if g.matchesAny(&c, posts) {
			g.logger.Debug("candidate dropped as duplicate", "topic", c.Topic, "platform", platform)
			continue
		}
		kept = append(kept, c)
	}
	return kept, nil
}

func (g *DuplicateGuard) recentPosts(ctx context.Context, platform models.Platform, lookback time.Duration) ([]models.PublishedPost, error) {
	since := g.now().Add(-lookback)
	// MaxPosts caps the corpus for cost control.
	return g.history.RecentPosts(ctx, platform, since, g.cfg.MaxPosts)
}

func (g *DuplicateGuard) matchesAny(c *models.Candidate, posts []models.PublishedPost) bool {
	topic := c.NormalizedTopic()
	title := strings.TrimSpace(strings.ToLower(c.Title))

	for i := range posts {
		p := &posts[i]
		if topic != "" && topic == p.Topic {
			return true
		}
		if title != "" && title == strings.TrimSpace(strings.ToLower(p.TrendTitle)) {
			return true
		}
		if Similarity(topic, p.Topic) > g.cfg.SimilarityThreshold {
			return true
		}
	}
	return false
}

// Similarity measures token overlap between two normalized strings:
// shared-word count x 2 / total word count across both. Exact equality is
// 1.0 and full containment of one string in the other short-circuits to
// 0.9.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}

	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	shared := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared++
		}
	}

	total := len(setA) + len(setB)
	if total == 0 {
		return 0
	}
	return float64(shared*2) / float64(total)
}
