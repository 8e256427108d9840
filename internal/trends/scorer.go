// Package trends ranks, deduplicates and selects trend candidates for
// posting agents.
package trends

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/models"
)

// Scorer ranks raw candidates. All weights and thresholds come from
// config so they can be tuned without code changes.
type Scorer struct {
	cfg    config.ScoringConfig
	logger *slog.Logger
}

// NewScorer creates a scorer with the given weights.
func NewScorer(cfg config.ScoringConfig, logger *slog.Logger) *Scorer {
	return &Scorer{cfg: cfg, logger: logger}
}

// Score annotates every candidate with a numeric score and returns the
// list sorted descending. usedCount looks up how many times a normalized
// topic was used on the target platform within the usage-penalty window.
// The input slice is not modified.
func (s *Scorer) Score(candidates []models.Candidate, usedCount func(topic string) int, now time.Time) []models.Candidate {
	scored := make([]models.Candidate, len(candidates))
	copy(scored, candidates)

	for i := range scored {
		c := &scored[i]
		uses := usedCount(c.NormalizedTopic())
		c.Score = s.scoreOne(c, uses, now)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

func (s *Scorer) scoreOne(c *models.Candidate, uses int, now time.Time) float64 {
	// Base: confidence scaled to 0-100.
	score := c.Confidence * 100

	score += math.Min(float64(len(c.Sources))*s.cfg.SourceBonus, s.cfg.SourceBonusCap)

	if c.HasVolume() {
		score += math.Log10(float64(c.Volume)+1) * s.cfg.VolumeBonusWeight
	} else {
		score += s.cfg.UnknownVolumeBonus
	}

	score += s.freshnessBonus(c.PublishedAt, now)

	category := strings.ToLower(c.Category)
	if bonus, ok := s.cfg.CategoryBonus[category]; ok {
		score += bonus
		if weight, ok := s.cfg.CategoryWeight[category]; ok {
			score *= weight
		}
	}

	if words := len(strings.Fields(c.Topic)); words >= s.cfg.PhraseMinWords && words <= s.cfg.PhraseMaxWords {
		// Rewards phrase-shaped topics over single generic words and
		// overlong headlines.
		score += s.cfg.PhraseBonus
	}

	return score * s.UsagePenalty(uses, c.Volume)
}

// freshnessBonus decays linearly from full to zero over the configured
// horizon, then is damped by the freshness weight. Unknown publish times
// earn nothing.
func (s *Scorer) freshnessBonus(publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return 0
	}
	hours := now.Sub(publishedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	if hours >= s.cfg.FreshnessHorizonHours {
		return 0
	}
	full := 100 * (1 - hours/s.cfg.FreshnessHorizonHours)
	return full * s.cfg.FreshnessWeight
}

// UsagePenalty returns the multiplicative penalty for a topic already used
// on this platform. The curve is asymmetric on purpose: viral and
// high-volume topics resurface sooner because audience demand for them
// survives repeat coverage. Three or more uses effectively exclude a topic
// while still leaving it available as a last-resort fallback.
func (s *Scorer) UsagePenalty(uses int, volume int64) float64 {
	if uses <= 0 {
		return 1.0
	}
	if uses >= 3 {
		return s.cfg.PenaltyExhausted
	}

	viral := volume > s.cfg.ViralThreshold
	high := volume > s.cfg.HighVolumeThreshold

	if uses == 1 {
		switch {
		case viral:
			return s.cfg.PenaltyOnceViral
		case high:
			return s.cfg.PenaltyOnceHigh
		default:
			return s.cfg.PenaltyOnce
		}
	}

	switch {
	case viral:
		return s.cfg.PenaltyTwiceViral
	case high:
		return s.cfg.PenaltyTwiceHigh
	default:
		return s.cfg.PenaltyTwice
	}
}
