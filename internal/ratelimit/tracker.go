// Package ratelimit bounds how often each (user, platform) pair may post
// within a rolling window.
package ratelimit

import (
	"log/slog"
	"time"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/models"
)

// UsageWindowTracker keeps in-memory sliding-window counters per
// (user, platform) pair.
//
// All access is expected to come from the single scheduler goroutine, so
// the map is intentionally unsynchronized. If cycles are ever parallelized
// across workers, this state must move behind a mutex or into a shared
// store before reuse.
type UsageWindowTracker struct {
	cfg     config.RateLimitConfig
	windows map[string]*window
	logger  *slog.Logger

	now func() time.Time
}

type window struct {
	count       int
	windowStart time.Time
	lastTouched time.Time
}

// NewUsageWindowTracker creates a tracker with the given limits.
func NewUsageWindowTracker(cfg config.RateLimitConfig, logger *slog.Logger) *UsageWindowTracker {
	return &UsageWindowTracker{
		cfg:     cfg,
		windows: make(map[string]*window),
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the tracker's clock. Test hook.
func (t *UsageWindowTracker) SetClock(now func() time.Time) { t.now = now }

func key(userID string, platform models.Platform) string {
	return userID + "|" + string(platform)
}

// CheckLimit reports whether the pair may post now. An expired window is
// lazily reset before the count is compared against the platform ceiling.
func (t *UsageWindowTracker) CheckLimit(userID string, platform models.Platform) bool {
	now := t.now()
	w, ok := t.windows[key(userID, platform)]
	if !ok {
		return true
	}

	w.lastTouched = now
	if now.Sub(w.windowStart) >= t.cfg.Window {
		// Stale window: the count no longer applies.
		w.count = 0
		w.windowStart = now
		return true
	}

	return w.count < t.cfg.CeilingFor(platform)
}

// RecordUsage increments the pair's counter, opening a window if absent or
// expired.
func (t *UsageWindowTracker) RecordUsage(userID string, platform models.Platform) {
	now := t.now()
	k := key(userID, platform)

	w, ok := t.windows[k]
	if !ok || now.Sub(w.windowStart) >= t.cfg.Window {
		t.windows[k] = &window{count: 1, windowStart: now, lastTouched: now}
		return
	}

	w.count++
	w.lastTouched = now
}

// Cleanup removes windows untouched for more than twice the window length
// and returns how many were dropped.
func (t *UsageWindowTracker) Cleanup() int {
	now := t.now()
	removed := 0
	for k, w := range t.windows {
		if now.Sub(w.lastTouched) > 2*t.cfg.Window {
			delete(t.windows, k)
			removed++
		}
	}
	if removed > 0 {
		t.logger.Debug("pruned stale rate-limit windows", "removed", removed, "remaining", len(t.windows))
	}
	return removed
}

// TrackedPairs returns the number of live windows.
func (t *UsageWindowTracker) TrackedPairs() int { return len(t.windows) }
