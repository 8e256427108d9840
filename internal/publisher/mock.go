package publisher

import (
	"context"
	"fmt"

	"github.com/trendpilot/trendpilot/internal/models"
)

// MockPublisher records publishes in memory. Used in tests and for dry
// runs without platform credentials.
type MockPublisher struct {
	platform models.Platform
	Err      error
	Posts    []string
}

// NewMockPublisher creates a mock for the given platform.
func NewMockPublisher(platform models.Platform) *MockPublisher {
	return &MockPublisher{platform: platform}
}

// Platform implements Publisher.
func (m *MockPublisher) Platform() models.Platform { return m.platform }

// Publish implements Publisher, failing when Err is set.
func (m *MockPublisher) Publish(_ context.Context, text, _ string, _ map[string]string) (*Result, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.Posts = append(m.Posts, text)
	id := fmt.Sprintf("mock-%d", len(m.Posts))
	return &Result{PostID: id, URL: "https://example.invalid/" + id}, nil
}
