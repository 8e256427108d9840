package trends

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/trendpilot/trendpilot/internal/models"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultNewsBaseURL  = "https://news.google.com"
	maxFeedBody         = 5 * 1024 * 1024
	maxItemsPerTopic    = 10
	sourceUserAgent     = "TrendpilotBot/1.0"
	recentPublishWindow = 6 * time.Hour
)

// GoogleNewsSource aggregates trend candidates from Google News topic
// search feeds. Best-effort: a topic whose feed fails is skipped, and an
// empty result without error is normal.
type GoogleNewsSource struct {
	client  HTTPClient
	baseURL string
	logger  *slog.Logger

	now func() time.Time
}

// NewGoogleNewsSource creates a source using the given HTTP client.
func NewGoogleNewsSource(client HTTPClient, logger *slog.Logger) *GoogleNewsSource {
	return &GoogleNewsSource{
		client:  client,
		baseURL: defaultNewsBaseURL,
		logger:  logger,
		now:     time.Now,
	}
}

// SetBaseURL points the source at a different feed host. Test hook.
func (s *GoogleNewsSource) SetBaseURL(base string) { s.baseURL = base }

// Fetch returns candidates for the given topics, merged across feeds by
// normalized topic. An error is returned only when every topic fails.
func (s *GoogleNewsSource) Fetch(ctx context.Context, topics []string) ([]models.Candidate, error) {
	merged := make(map[string]*models.Candidate)
	var order []string
	failures := 0
	var lastErr error

	for _, topic := range topics {
		feed, err := s.fetchFeed(ctx, topic)
		if err != nil {
			failures++
			lastErr = err
			s.logger.Warn("trend feed fetch failed", "topic", topic, "error", err)
			continue
		}

		category := categorize(topic)
		count := 0
		for _, item := range feed.Items {
			if count >= maxItemsPerTopic {
				break
			}
			c := s.itemToCandidate(item, category)
			if c == nil {
				continue
			}
			count++

			key := c.NormalizedTopic()
			if existing, ok := merged[key]; ok {
				mergeCandidate(existing, c)
				continue
			}
			merged[key] = c
			order = append(order, key)
		}
	}

	if len(merged) == 0 && failures == len(topics) && lastErr != nil {
		return nil, fmt.Errorf("all %d topic feeds failed: %w", len(topics), lastErr)
	}

	candidates := make([]models.Candidate, 0, len(merged))
	for _, key := range order {
		candidates = append(candidates, *merged[key])
	}
	return candidates, nil
}

func (s *GoogleNewsSource) fetchFeed(ctx context.Context, topic string) (*gofeed.Feed, error) {
	feedURL := fmt.Sprintf("%s/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en",
		s.baseURL, url.QueryEscape(topic))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", sourceUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// itemToCandidate converts one feed item. Google News titles carry the
// publisher as a " - Publisher" suffix; it is split off into Sources.
func (s *GoogleNewsSource) itemToCandidate(item *gofeed.Item, category string) *models.Candidate {
	headline, publisher := splitPublisher(item.Title)
	if headline == "" {
		return nil
	}

	c := &models.Candidate{
		Topic:    headline,
		Title:    headline,
		URL:      item.Link,
		Category: category,
	}
	if item.PublishedParsed != nil {
		c.PublishedAt = *item.PublishedParsed
	}
	if publisher != "" {
		c.Sources = []string{publisher}
	}

	c.Confidence = s.estimateConfidence(c)
	return c
}

// estimateConfidence is a heuristic stand-in for a real trend-volume API:
// a publisher-attributed, recently-published item is more likely to be a
// live trend than an undated or anonymous one.
func (s *GoogleNewsSource) estimateConfidence(c *models.Candidate) float64 {
	confidence := 0.5
	if len(c.Sources) > 0 {
		confidence += 0.1
	}
	if !c.PublishedAt.IsZero() && s.now().Sub(c.PublishedAt) < recentPublishWindow {
		confidence += 0.2
	}
	return confidence
}

func mergeCandidate(dst, src *models.Candidate) {
	for _, source := range src.Sources {
		if !containsString(dst.Sources, source) {
			dst.Sources = append(dst.Sources, source)
			// Independent coverage raises confidence, capped well below
			// certainty.
			if dst.Confidence < 0.95 {
				dst.Confidence += 0.05
			}
		}
	}
	if dst.PublishedAt.IsZero() || (!src.PublishedAt.IsZero() && src.PublishedAt.After(dst.PublishedAt)) {
		dst.PublishedAt = src.PublishedAt
	}
}

func splitPublisher(title string) (headline, publisher string) {
	title = strings.TrimSpace(title)
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
	}
	return title, ""
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

var techTerms = []string{
	"tech", "ai", "software", "startup", "cyber", "cloud",
	"programming", "developer", "gadget", "robot", "chip",
}

// categorize maps a configured topic to a scoring category.
func categorize(topic string) string {
	lower := strings.ToLower(topic)
	for _, term := range techTerms {
		if strings.Contains(lower, term) {
			return "technology"
		}
	}
	return "news"
}
