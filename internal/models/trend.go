package models

import (
	"strings"
	"time"
	"unicode"
)

// Candidate is a topic or article considered for content generation during
// one selection call. Candidates are ephemeral: they are never persisted,
// only the derived TrendUsageRecord and PublishedPost are.
type Candidate struct {
	Topic       string    `json:"topic"`
	Title       string    `json:"title,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Sources     []string  `json:"sources,omitempty"`

	// Confidence is the aggregator's 0-1 estimate that this is a real,
	// current trend rather than feed noise.
	Confidence float64 `json:"confidence"`

	// Volume is an engagement/search-volume estimate. Zero or negative
	// means unknown.
	Volume int64 `json:"volume"`

	Category string `json:"category,omitempty"`

	// Score is assigned by the scorer during ranking.
	Score float64 `json:"score"`
}

// HasVolume reports whether the aggregator supplied a volume estimate.
func (c *Candidate) HasVolume() bool { return c.Volume > 0 }

// NormalizedTopic returns the candidate's topic in canonical form.
func (c *Candidate) NormalizedTopic() string { return NormalizeTopic(c.Topic) }

// TrendUsageRecord marks one use of a normalized topic by an agent. Records
// are only ever counted within a trailing window; they are pruned by
// periodic maintenance, never deleted synchronously.
type TrendUsageRecord struct {
	ID       string    `json:"id"`
	Topic    string    `json:"topic"` // normalized
	AgentID  string    `json:"agent_id"`
	UserID   string    `json:"user_id"`
	Platform Platform  `json:"platform"`
	UsedAt   time.Time `json:"used_at"`
}

// NormalizeTopic canonicalizes a topic phrase for usage counting and
// duplicate detection: lowercase, punctuation stripped, whitespace
// collapsed.
func NormalizeTopic(topic string) string {
	var b strings.Builder
	b.Grow(len(topic))
	for _, r := range strings.ToLower(topic) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			b.WriteByte(' ')
		}
		// Everything else (hashes, emoji, quotes) is dropped.
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
