// Package publisher delivers generated text to destination platforms
// behind one uniform contract.
package publisher

import (
	"context"
	"fmt"

	"github.com/trendpilot/trendpilot/internal/models"
)

// Result identifies a successfully published post.
type Result struct {
	PostID string
	URL    string
}

// Publisher is the per-platform publishing collaborator. The scheduler
// treats every platform uniformly through this contract; platform quirks
// stay behind it.
type Publisher interface {
	// Publish posts text (and optionally media) and returns the external
	// post identity, or an error. Options carry per-agent
	// platform-specific settings such as a telegram chat id.
	Publish(ctx context.Context, text, mediaURL string, options map[string]string) (*Result, error)

	// Platform names the destination this publisher serves.
	Platform() models.Platform
}

// Registry maps platforms to their configured publishers.
type Registry struct {
	publishers map[models.Platform]Publisher
}

// NewRegistry builds a registry from the given publishers.
func NewRegistry(publishers ...Publisher) *Registry {
	r := &Registry{publishers: make(map[models.Platform]Publisher, len(publishers))}
	for _, p := range publishers {
		r.publishers[p.Platform()] = p
	}
	return r
}

// For returns the publisher serving the given platform.
func (r *Registry) For(platform models.Platform) (Publisher, error) {
	p, ok := r.publishers[platform]
	if !ok {
		return nil, fmt.Errorf("no publisher configured for platform %q", platform)
	}
	return p, nil
}

// Platforms lists the registered platforms.
func (r *Registry) Platforms() []models.Platform {
	out := make([]models.Platform, 0, len(r.publishers))
	for p := range r.publishers {
		out = append(out, p)
	}
	return out
}
