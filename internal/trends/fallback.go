package trends

import (
	"time"

	"github.com/trendpilot/trendpilot/internal/models"
)

// DefaultFallbackPools returns the fixed per-category pools used when
// every selection stage comes up empty. Entries are evergreen topics that
// are safe to post about at any time.
func DefaultFallbackPools() map[string][]models.Candidate {
	return map[string][]models.Candidate{
		"technology": {
			{Topic: "open source software trends", Category: "technology", Confidence: 0.4},
			{Topic: "practical uses of ai assistants", Category: "technology", Confidence: 0.4},
			{Topic: "cybersecurity habits everyone needs", Category: "technology", Confidence: 0.4},
			{Topic: "the future of remote work tools", Category: "technology", Confidence: 0.4},
			{Topic: "cloud costs and how teams cut them", Category: "technology", Confidence: 0.4},
		},
		"news": {
			{Topic: "stories worth following this week", Category: "news", Confidence: 0.4},
			{Topic: "how headlines shape public opinion", Category: "news", Confidence: 0.4},
			{Topic: "underreported stories around the world", Category: "news", Confidence: 0.4},
			{Topic: "media literacy in the feed era", Category: "news", Confidence: 0.4},
		},
	}
}

// DefaultTopicFor returns the general topic category used when an agent
// has no topics configured.
func DefaultTopicFor(platform models.Platform) string {
	switch platform {
	case models.PlatformX, models.PlatformLinkedIn:
		return "technology"
	default:
		return "news"
	}
}

// rotationIndex deterministically picks a pool slot from the current time:
// floor(now / period) % size. No randomness, no persisted state, and the
// choice is stable for the whole rotation period.
func rotationIndex(now time.Time, period time.Duration, size int) int {
	if size <= 0 {
		return 0
	}
	if period <= 0 {
		period = time.Hour
	}
	return int((now.Unix() / int64(period.Seconds())) % int64(size))
}
