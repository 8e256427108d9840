package trends

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noUsage(string) int { return 0 }

func TestUsagePenaltyMonotonicity(t *testing.T) {
	scorer := NewScorer(config.Default().Scoring, testLogger())

	volumes := map[string]int64{
		"unknown":     0,
		"ordinary":    500,
		"high volume": 20_000,
		"viral":       60_000,
	}

	for name, volume := range volumes {
		t.Run(name, func(t *testing.T) {
			prev := scorer.UsagePenalty(0, volume)
			if prev != 1.0 {
				t.Errorf("zero uses must have no penalty, got %v", prev)
			}
			for uses := 1; uses <= 5; uses++ {
				p := scorer.UsagePenalty(uses, volume)
				if p > prev {
					t.Errorf("penalty increased from %v to %v at %d uses", prev, p, uses)
				}
				prev = p
			}
			if got := scorer.UsagePenalty(3, volume); got != 0.01 {
				t.Errorf("3+ uses penalty = %v, want 0.01 regardless of volume", got)
			}
		})
	}
}

func TestUsagePenaltyVolumeClasses(t *testing.T) {
	scorer := NewScorer(config.Default().Scoring, testLogger())

	tests := []struct {
		name   string
		uses   int
		volume int64
		want   float64
	}{
		{"single use ordinary", 1, 500, 0.3},
		{"single use high volume", 1, 15_000, 0.5},
		{"single use viral", 1, 60_000, 0.7},
		{"double use ordinary", 2, 500, 0.1},
		{"double use high volume", 2, 15_000, 0.2},
		{"double use viral", 2, 60_000, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scorer.UsagePenalty(tt.uses, tt.volume); got != tt.want {
				t.Errorf("UsagePenalty(%d, %d) = %v, want %v", tt.uses, tt.volume, got, tt.want)
			}
		})
	}
}

func TestScoreOrdering(t *testing.T) {
	scorer := NewScorer(config.Default().Scoring, testLogger())
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	candidates := []models.Candidate{
		{Topic: "weak signal", Confidence: 0.2},
		{Topic: "strong trending story", Confidence: 0.9, Sources: []string{"a", "b", "c"}, PublishedAt: now.Add(-time.Hour)},
		{Topic: "middling story", Confidence: 0.5, Sources: []string{"a"}},
	}

	scored := scorer.Score(candidates, noUsage, now)

	if scored[0].Topic != "strong trending story" {
		t.Errorf("top candidate = %q, want the strong one", scored[0].Topic)
	}
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Errorf("scores not descending at index %d: %v > %v", i, scored[i].Score, scored[i-1].Score)
		}
	}
	// Input slice must keep its order and zero scores.
	if candidates[0].Score != 0 {
		t.Error("Score must not mutate the input slice")
	}
}

func TestScoreUsagePenaltyDemotes(t *testing.T) {
	scorer := NewScorer(config.Default().Scoring, testLogger())
	now := time.Now()

	candidates := []models.Candidate{
		{Topic: "already covered story", Confidence: 0.9},
		{Topic: "untouched fresh story", Confidence: 0.6},
	}
	used := func(topic string) int {
		if topic == "already covered story" {
			return 2
		}
		return 0
	}

	scored := scorer.Score(candidates, used, now)
	if scored[0].Topic != "untouched fresh story" {
		t.Errorf("used topic should rank below unused, got top %q", scored[0].Topic)
	}
}

func TestScoreSourceDiversityCapped(t *testing.T) {
	cfg := config.Default().Scoring
	scorer := NewScorer(cfg, testLogger())
	now := time.Now()

	many := models.Candidate{Topic: "widely covered event", Confidence: 0.5,
		Sources: []string{"a", "b", "c", "d", "e", "f", "g", "h"}}
	three := models.Candidate{Topic: "covered by three outlets", Confidence: 0.5,
		Sources: []string{"a", "b", "c"}}

	scored := scorer.Score([]models.Candidate{many, three}, noUsage, now)
	if scored[0].Score != scored[1].Score {
		t.Errorf("source bonus should cap at %v: scores %v vs %v",
			cfg.SourceBonusCap, scored[0].Score, scored[1].Score)
	}
}

func TestScorePhraseBonus(t *testing.T) {
	scorer := NewScorer(config.Default().Scoring, testLogger())
	now := time.Now()

	scored := scorer.Score([]models.Candidate{
		{Topic: "inflation", Confidence: 0.5},
		{Topic: "inflation data surprise", Confidence: 0.5},
	}, noUsage, now)

	if scored[0].Topic != "inflation data surprise" {
		t.Errorf("2-5 word phrase should outrank a single generic word, got %q", scored[0].Topic)
	}
}

func TestScoreFreshness(t *testing.T) {
	scorer := NewScorer(config.Default().Scoring, testLogger())
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	scored := scorer.Score([]models.Candidate{
		{Topic: "stale report", Confidence: 0.5, PublishedAt: now.Add(-120 * time.Hour)},
		{Topic: "fresh report", Confidence: 0.5, PublishedAt: now.Add(-30 * time.Minute)},
	}, noUsage, now)

	if scored[0].Topic != "fresh report" {
		t.Errorf("fresh publish time should outrank one past the horizon, got %q", scored[0].Topic)
	}
}

func TestScoreCategoryBonus(t *testing.T) {
	scorer := NewScorer(config.Default().Scoring, testLogger())
	now := time.Now()

	scored := scorer.Score([]models.Candidate{
		{Topic: "some new framework", Confidence: 0.5, Category: "technology"},
		{Topic: "some new framework", Confidence: 0.5},
	}, noUsage, now)

	if scored[0].Category != "technology" {
		t.Error("category match should add bonus and multiplier")
	}
}
