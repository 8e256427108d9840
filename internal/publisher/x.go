package publisher

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/trendpilot/trendpilot/internal/config"
	"github.com/trendpilot/trendpilot/internal/models"
)

const xAPIBase = "https://api.twitter.com/2"

// XPublisher posts to X via API v2 with OAuth 1.0a user-context signing.
type XPublisher struct {
	cfg        config.XConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewXPublisher creates a publisher for X. Credentials are validated on
// first use, not here.
func NewXPublisher(cfg config.XConfig, timeout time.Duration, logger *slog.Logger) *XPublisher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &XPublisher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Platform implements Publisher.
func (p *XPublisher) Platform() models.Platform { return models.PlatformX }

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"errors,omitempty"`
}

// Publish posts the text as a tweet. Media upload is not wired; a mediaURL
// is appended to the text when there is room.
func (p *XPublisher) Publish(ctx context.Context, text, mediaURL string, _ map[string]string) (*Result, error) {
	if mediaURL != "" && len(text)+len(mediaURL)+1 <= 280 {
		text = text + "\n" + mediaURL
	}

	body, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal tweet: %w", err)
	}

	endpoint := xAPIBase + "/tweets"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	authHeader, err := p.oauthHeader(http.MethodPost, endpoint)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("Authorization", authHeader)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed tweetResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		if len(parsed.Errors) > 0 {
			return nil, fmt.Errorf("x api error: %s", parsed.Errors[0].Message)
		}
		return nil, fmt.Errorf("x api returned status %d: %s", resp.StatusCode, string(respBody))
	}

	p.logger.Info("tweet posted", "tweet_id", parsed.Data.ID, "length", len(text))

	return &Result{
		PostID: parsed.Data.ID,
		URL:    fmt.Sprintf("https://x.com/i/web/status/%s", parsed.Data.ID),
	}, nil
}

// ValidateCredentials checks the configured tokens against /users/me.
func (p *XPublisher) ValidateCredentials(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, xAPIBase+"/users/me", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.BearerToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("invalid credentials (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// oauthHeader builds an OAuth 1.0a authorization header for a request
// without query or form parameters.
func (p *XPublisher) oauthHeader(method, endpoint string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	nonceStr := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base64.StdEncoding.EncodeToString(nonce))

	params := map[string]string{
		"oauth_consumer_key":     p.cfg.APIKey,
		"oauth_nonce":            nonceStr,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", time.Now().Unix()),
		"oauth_token":            p.cfg.AccessToken,
		"oauth_version":          "1.0",
	}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	sort.Strings(pairs)

	signatureBase := method + "&" + url.QueryEscape(endpoint) + "&" + url.QueryEscape(strings.Join(pairs, "&"))
	signingKey := url.QueryEscape(p.cfg.APISecret) + "&" + url.QueryEscape(p.cfg.AccessTokenSecret)

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(signatureBase))
	params["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headerPairs := make([]string, 0, len(params))
	for k, v := range params {
		headerPairs = append(headerPairs, url.QueryEscape(k)+"=\""+url.QueryEscape(v)+"\"")
	}
	sort.Strings(headerPairs)

	return "OAuth " + strings.Join(headerPairs, ", "), nil
}
