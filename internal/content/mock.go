package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/trendpilot/trendpilot/internal/models"
)

// MockGenerator provides a deterministic, rule-based Generator for tests
// and for running the service without an OpenAI key.
type MockGenerator struct{}

// NewMockGenerator creates a mock generator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate composes post text from the candidate and settings without any
// API calls.
func (m *MockGenerator) Generate(_ context.Context, candidate *models.Candidate, agent *models.Agent) (*Generated, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Worth watching: %s.", candidate.Topic)
	if candidate.URL != "" {
		fmt.Fprintf(&b, " %s", candidate.URL)
	}
	if agent.Settings.UseHashtags {
		words := strings.Fields(models.NormalizeTopic(candidate.Topic))
		if len(words) > 2 {
			words = words[:2]
		}
		for _, w := range words {
			fmt.Fprintf(&b, " #%s", w)
		}
	}

	text := ClampText(b.String(), MaxTextLen(agent.Platform))
	return &Generated{Text: text}, nil
}
