package models

import "time"

// Platform identifies a destination publishing platform.
type Platform string

const (
	PlatformX        Platform = "x"
	PlatformTelegram Platform = "telegram"
	PlatformLinkedIn Platform = "linkedin"
)

// Agent is a user-configured automation unit bound to one platform and a
// posting schedule. The CRUD layer that creates and edits agents lives
// outside this service; the scheduler only reads agents and advances the
// two posting counters.
type Agent struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Platform     Platform      `json:"platform"`
	Settings     AgentSettings `json:"settings"`
	Active       bool          `json:"active"`
	PostsToday   int           `json:"posts_today"`
	LastPostedAt *time.Time    `json:"last_posted_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// AgentSettings is the user-supplied style and scheduling bundle.
type AgentSettings struct {
	Topics      []string `json:"topics"`
	Keywords    []string `json:"keywords"`
	Tone        string   `json:"tone"`
	UseHashtags bool     `json:"use_hashtags"`
	PostsPerDay int      `json:"posts_per_day"`

	// Daily posting window in the agent's configured hours (0-23).
	// StartHour == EndHour means the agent may post at any time.
	// A window may wrap midnight (e.g. 22 -> 6).
	WindowStartHour int `json:"window_start_hour"`
	WindowEndHour   int `json:"window_end_hour"`

	// Free-form per-platform options forwarded to the publisher
	// (e.g. telegram chat id, linkedin visibility).
	PlatformOptions map[string]string `json:"platform_options,omitempty"`
}

// InPostingWindow reports whether the given instant falls inside the
// agent's daily posting window.
func (s AgentSettings) InPostingWindow(now time.Time) bool {
	if s.WindowStartHour == s.WindowEndHour {
		return true
	}
	h := now.Hour()
	if s.WindowStartHour < s.WindowEndHour {
		return h >= s.WindowStartHour && h < s.WindowEndHour
	}
	// Window wraps midnight.
	return h >= s.WindowStartHour || h < s.WindowEndHour
}

// DueForPost reports whether the agent should post now: it is active, has
// daily quota left, and the current time is inside its posting window.
func (a *Agent) DueForPost(now time.Time) bool {
	if !a.Active {
		return false
	}
	if a.Settings.PostsPerDay > 0 && a.PostsToday >= a.Settings.PostsPerDay {
		return false
	}
	return a.Settings.InPostingWindow(now)
}
