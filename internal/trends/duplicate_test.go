package trends

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/models"
)

type fakeHistory struct {
	posts []models.PublishedPost
	err   error
	calls int
}

func (h *fakeHistory) RecentPosts(_ context.Context, platform models.Platform, since time.Time, limit int) ([]models.PublishedPost, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	var out []models.PublishedPost
	for _, p := range h.posts {
		if p.Platform == platform && p.PostedAt.After(since) {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestGuard(history *fakeHistory, now time.Time) *DuplicateGuard {
	guard := NewDuplicateGuard(config.Default().Duplicate, history, testLogger())
	guard.SetClock(func() time.Time { return now })
	return guard
}

func TestIsDuplicateLookbackWindow(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{posts: []models.PublishedPost{{
		Platform: models.PlatformX,
		Topic:    "ai regulation vote",
		PostedAt: now.Add(-2 * time.Hour),
	}}}
	guard := newTestGuard(history, now)

	candidate := &models.Candidate{Topic: "AI Regulation Vote"}

	dup, err := guard.IsDuplicate(context.Background(), candidate, models.PlatformX, 8*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !dup {
		t.Error("topic posted 2h ago must be a duplicate within an 8h lookback")
	}

	dup, err = guard.IsDuplicate(context.Background(), candidate, models.PlatformX, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if dup {
		t.Error("topic posted 2h ago must not be a duplicate within a 1h lookback")
	}
}

func TestIsDuplicateTitleMatch(t *testing.T) {
	now := time.Now()
	history := &fakeHistory{posts: []models.PublishedPost{{
		Platform:   models.PlatformX,
		Topic:      "something else entirely",
		TrendTitle: "Markets Rally After Rate Decision",
		PostedAt:   now.Add(-time.Hour),
	}}}
	guard := newTestGuard(history, now)

	dup, err := guard.IsDuplicate(context.Background(),
		&models.Candidate{Topic: "unrelated topic words", Title: "markets rally after rate decision"},
		models.PlatformX, 8*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if !dup {
		t.Error("exact title match should be a duplicate")
	}
}

func TestFilterHardExcludesDuplicates(t *testing.T) {
	now := time.Now()
	history := &fakeHistory{posts: []models.PublishedPost{{
		Platform: models.PlatformX,
		Topic:    "openai releases new model",
		PostedAt: now.Add(-time.Hour),
	}}}
	guard := newTestGuard(history, now)

	kept, err := guard.Filter(context.Background(), []models.Candidate{
		{Topic: "OpenAI releases new model", Confidence: 0.99},
		{Topic: "quantum networking milestone", Confidence: 0.2},
	}, models.PlatformX)
	if err != nil {
		t.Fatal(err)
	}

	if len(kept) != 1 || kept[0].Topic != "quantum networking milestone" {
		t.Errorf("duplicate must be excluded from the pool regardless of confidence, kept %v", kept)
	}
	if history.calls != 1 {
		t.Errorf("Filter should fetch the corpus once, fetched %d times", history.calls)
	}
}

func TestFilterNearMatchSimilarity(t *testing.T) {
	now := time.Now()
	history := &fakeHistory{posts: []models.PublishedPost{{
		Platform: models.PlatformX,
		Topic:    "apple unveils new iphone lineup today",
		PostedAt: now.Add(-time.Hour),
	}}}
	guard := newTestGuard(history, now)

	kept, err := guard.Filter(context.Background(), []models.Candidate{
		{Topic: "apple unveils new iphone lineup"},
	}, models.PlatformX)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 0 {
		t.Error("near-identical topic should be filtered as duplicate")
	}
}

func TestFilterPropagatesStoreError(t *testing.T) {
	history := &fakeHistory{err: errors.New("db down")}
	guard := newTestGuard(history, time.Now())

	if _, err := guard.Filter(context.Background(),
		[]models.Candidate{{Topic: "anything"}}, models.PlatformX); err == nil {
		t.Error("store failure should surface as an error")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"exact equality", "ai regulation vote", "ai regulation vote", 1.0},
		{"containment", "ai regulation", "ai regulation vote passes", 0.9},
		{"no overlap", "quantum computing", "football results", 0.0},
		{"empty side", "", "anything", 0.0},
		{"half overlap", "alpha beta", "beta gamma", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); got != tt.want {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "central bank raises rates", "bank rates commentary roundup"
	if Similarity(a, b) != Similarity(b, a) {
		t.Error("similarity must be symmetric")
	}
}
