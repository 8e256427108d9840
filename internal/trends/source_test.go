package trends

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type fakeHTTPClient struct {
	responses map[string]string // substring of URL -> body
	status    int
	err       error
	requests  []string
}

func (c *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.requests = append(c.requests, req.URL.String())
	if c.err != nil {
		return nil, c.err
	}

	body := ""
	for key, b := range c.responses {
		if strings.Contains(req.URL.RawQuery, key) {
			body = b
			break
		}
	}
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func rssFeed(items ...string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Search results</title>%s</channel></rss>`,
		strings.Join(items, ""))
}

func rssItem(title, link, pubDate string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>`,
		title, link, pubDate)
}

func TestFetchParsesAndSplitsPublisher(t *testing.T) {
	pubDate := time.Now().Add(-time.Hour).Format(time.RFC1123Z)
	client := &fakeHTTPClient{responses: map[string]string{
		"ai+tools": rssFeed(
			rssItem("New AI Tool Launches - TechDaily", "https://example.com/1", pubDate),
			rssItem("Chip Shortage Eases - WireReport", "https://example.com/2", pubDate),
		),
	}}
	source := NewGoogleNewsSource(client, testLogger())

	candidates, err := source.Fetch(context.Background(), []string{"ai tools"})
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}

	first := candidates[0]
	if first.Topic != "New AI Tool Launches" {
		t.Errorf("topic = %q, publisher suffix should be stripped", first.Topic)
	}
	if len(first.Sources) != 1 || first.Sources[0] != "TechDaily" {
		t.Errorf("sources = %v, want [TechDaily]", first.Sources)
	}
	if first.Category != "technology" {
		t.Errorf("category = %q, want technology for an ai topic", first.Category)
	}
	if first.PublishedAt.IsZero() {
		t.Error("publish time should be parsed")
	}
	if first.Confidence <= 0.5 {
		t.Errorf("recent attributed item should earn confidence above base, got %v", first.Confidence)
	}
}

func TestFetchMergesSameStoryAcrossPublishers(t *testing.T) {
	pubDate := time.Now().Add(-time.Hour).Format(time.RFC1123Z)
	client := &fakeHTTPClient{responses: map[string]string{
		"markets": rssFeed(
			rssItem("Markets Rally On Rate Cut - OutletA", "https://example.com/a", pubDate),
			rssItem("Markets Rally On Rate Cut - OutletB", "https://example.com/b", pubDate),
		),
	}}
	source := NewGoogleNewsSource(client, testLogger())

	candidates, err := source.Fetch(context.Background(), []string{"markets"})
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1 merged", len(candidates))
	}
	if len(candidates[0].Sources) != 2 {
		t.Errorf("sources = %v, want both publishers", candidates[0].Sources)
	}
}

func TestFetchPartialFailureIsNotAnError(t *testing.T) {
	pubDate := time.Now().Format(time.RFC1123Z)
	client := &fakeHTTPClient{responses: map[string]string{
		"science": rssFeed(rssItem("Fusion Milestone Reached - LabNews", "https://example.com/f", pubDate)),
		// The "broken" topic gets an empty body, which fails to parse.
	}}
	source := NewGoogleNewsSource(client, testLogger())

	candidates, err := source.Fetch(context.Background(), []string{"broken", "science"})
	if err != nil {
		t.Fatalf("partial failure must be best-effort, got error %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("got %d candidates, want 1 from the surviving topic", len(candidates))
	}
}

func TestFetchAllTopicsFailing(t *testing.T) {
	client := &fakeHTTPClient{err: errors.New("network unreachable")}
	source := NewGoogleNewsSource(client, testLogger())

	if _, err := source.Fetch(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("total outage should be reported as an error")
	}
}

func TestFetchRejectsBadStatus(t *testing.T) {
	client := &fakeHTTPClient{status: http.StatusTooManyRequests}
	source := NewGoogleNewsSource(client, testLogger())

	if _, err := source.Fetch(context.Background(), []string{"anything"}); err == nil {
		t.Error("non-200 on every topic should be an error")
	}
}
