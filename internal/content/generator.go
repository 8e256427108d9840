// Package content turns a selected trend into platform-ready post text.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/models"
)

// Generated is the output of one generation call.
type Generated struct {
	Text     string
	ImageURL string
}

// Generator is the content-generation collaborator boundary. It must be
// safe to call repeatedly for the same candidate; results are never cached
// by the caller.
type Generator interface {
	Generate(ctx context.Context, candidate *models.Candidate, agent *models.Agent) (*Generated, error)
}

// MaxTextLen returns the post length ceiling for a platform.
func MaxTextLen(platform models.Platform) int {
	switch platform {
	case models.PlatformX:
		return 280
	case models.PlatformTelegram:
		return 4096
	case models.PlatformLinkedIn:
		return 3000
	default:
		return 1000
	}
}

// OpenAIGenerator produces post text with the OpenAI chat API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    config.OpenAIConfig
	logger *slog.Logger
}

// NewOpenAIGenerator creates a generator from config. The API key must be
// set.
func NewOpenAIGenerator(cfg config.OpenAIConfig, logger *slog.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	return &OpenAIGenerator{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
		logger: logger,
	}, nil
}

const systemPrompt = "You are a social media ghostwriter. You write one ready-to-publish post at a time, matching the requested tone and platform conventions exactly. Respond with the post text only: no quotes, no markdown, no commentary."

// Generate builds a persona prompt from the agent's settings and asks the
// model for one post.
func (g *OpenAIGenerator) Generate(ctx context.Context, candidate *models.Candidate, agent *models.Agent) (*Generated, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	prompt := buildPrompt(candidate, agent)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("chat completion returned empty text")
	}

	text = ClampText(text, MaxTextLen(agent.Platform))

	g.logger.Debug("content generated",
		"agent_id", agent.ID,
		"topic", candidate.Topic,
		"length", len(text))

	return &Generated{Text: text}, nil
}

func buildPrompt(candidate *models.Candidate, agent *models.Agent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write one %s post about the trend below.\n\n", agent.Platform)
	fmt.Fprintf(&b, "Trend: %s\n", candidate.Topic)
	if candidate.Title != "" && candidate.Title != candidate.Topic {
		fmt.Fprintf(&b, "Headline: %s\n", candidate.Title)
	}
	if candidate.URL != "" {
		fmt.Fprintf(&b, "Article: %s\n", candidate.URL)
	}
	if len(candidate.Sources) > 0 {
		fmt.Fprintf(&b, "Covered by: %s\n", strings.Join(candidate.Sources, ", "))
	}

	tone := agent.Settings.Tone
	if tone == "" {
		tone = "conversational"
	}
	fmt.Fprintf(&b, "\nTone: %s\n", tone)

	if len(agent.Settings.Keywords) > 0 {
		fmt.Fprintf(&b, "Work in these themes where natural: %s\n",
			strings.Join(agent.Settings.Keywords, ", "))
	}
	if agent.Settings.UseHashtags {
		b.WriteString("Finish with two or three relevant hashtags.\n")
	} else {
		b.WriteString("Do not use hashtags.\n")
	}

	fmt.Fprintf(&b, "Hard limit: %d characters.\n", MaxTextLen(agent.Platform))

	return b.String()
}

// ClampText truncates text to limit with an ellipsis, respecting rune
// boundaries.
func ClampText(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
