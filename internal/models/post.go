package models

import "time"

// PublishedPost is the append-only record of one publish attempt that
// reached the publisher. It doubles as the duplicate-detection corpus.
type PublishedPost struct {
	ID       string   `json:"id"`
	AgentID  string   `json:"agent_id"`
	UserID   string   `json:"user_id"`
	Platform Platform `json:"platform"`

	// Snapshot of the trend that produced this post.
	Topic        string `json:"topic"` // normalized
	TrendTitle   string `json:"trend_title,omitempty"`
	TrendURL     string `json:"trend_url,omitempty"`
	TrendVolume  int64  `json:"trend_volume,omitempty"`
	TrendSources int    `json:"trend_sources,omitempty"`

	Text        string    `json:"text"`
	Success     bool      `json:"success"`
	ExternalID  string    `json:"external_id,omitempty"`
	ExternalURL string    `json:"external_url,omitempty"`
	PostedAt    time.Time `json:"posted_at"`
}

// AuditStatus classifies the outcome of one agent cycle.
type AuditStatus string

const (
	AuditStatusSuccess           AuditStatus = "success"
	AuditStatusRateLimited       AuditStatus = "rate_limited"
	AuditStatusNoTrend           AuditStatus = "no_trend"
	AuditStatusGenerationFailed  AuditStatus = "content_generation_failed"
	AuditStatusPublishFailed     AuditStatus = "publish_failed"
	AuditStatusUnexpectedFailure AuditStatus = "unexpected"
)

// AuditEntry records one agent cycle outcome for later inspection, keyed by
// agent and user so one tenant's failures are visible without touching
// another's.
type AuditEntry struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	AgentID   string      `json:"agent_id"`
	UserID    string      `json:"user_id"`
	Platform  Platform    `json:"platform"`
	Status    AuditStatus `json:"status"`
	Detail    string      `json:"detail,omitempty"`
}
