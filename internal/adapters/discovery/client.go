// Package discovery locates a company's privacy page and its data
// protection contact address.
package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// DefaultEndpoint is the site-map search API
const DefaultEndpoint = "https://api.firecrawl.dev/v1/map"

const privacySearch = "privacy"

var (
	// ErrUnsuccessful is returned when the search API reports success=false
	ErrUnsuccessful = errors.New("privacy URL search was not successful")
	// ErrNoLinks is returned when a successful search found no links
	ErrNoLinks = errors.New("privacy URL search returned no links")
	// ErrNoWorkingURL is returned when none of the returned links answer 200
	ErrNoWorkingURL = errors.New("no reachable privacy URL")
)

// Prober checks that a URL answers with 200
type Prober interface {
	Reachable(ctx context.Context, rawURL string) bool
}

// MapRequest is the body of a site-map search
type MapRequest struct {
	URL               string `json:"url"`
	Search            string `json:"search"`
	IgnoreSitemap     bool   `json:"ignoreSitemap"`
	IncludeSubdomains bool   `json:"includeSubdomains"`
	Limit             int    `json:"limit"`
}

// MapResponse lists candidate links for a search
type MapResponse struct {
	Success bool     `json:"success"`
	Links   []string `json:"links"`
}

// Client queries the site-map search API
type Client struct {
	endpoint   string
	apiKey     string
	limit      int
	httpClient *http.Client
	prober     Prober
	logger     *zap.Logger
}

// NewClient creates a new Client. An empty endpoint selects DefaultEndpoint.
func NewClient(endpoint, apiKey string, limit int, httpClient *http.Client, prober Prober, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if limit <= 0 {
		limit = 3
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		limit:      limit,
		httpClient: httpClient,
		prober:     prober,
		logger:     logger,
	}
}

// Discover searches website for privacy-related pages
func (c *Client) Discover(ctx context.Context, website string) (*MapResponse, error) {
	payload, err := json.Marshal(MapRequest{
		URL:               withScheme(website),
		Search:            privacySearch,
		IgnoreSitemap:     false,
		IncludeSubdomains: true,
		Limit:             c.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode discovery request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build discovery request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read discovery response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out MapResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode discovery response: %w", err)
	}

	c.logger.Debug("Discovered privacy links",
		zap.String("website", website),
		zap.Int("count", len(out.Links)))
	return &out, nil
}

// FirstWorkingURL returns the first link that answers with 200
func (c *Client) FirstWorkingURL(ctx context.Context, resp *MapResponse) (string, error) {
	if resp == nil || !resp.Success {
		return "", ErrUnsuccessful
	}
	if len(resp.Links) == 0 {
		return "", ErrNoLinks
	}
	for _, link := range resp.Links {
		if c.prober.Reachable(ctx, link) {
			return link, nil
		}
		c.logger.Debug("Skipping unreachable privacy link", zap.String("url", link))
	}
	return "", ErrNoWorkingURL
}

// PrivacyURL discovers and returns the first reachable privacy page of website
func (c *Client) PrivacyURL(ctx context.Context, website string) (string, error) {
	resp, err := c.Discover(ctx, website)
	if err != nil {
		return "", err
	}
	return c.FirstWorkingURL(ctx, resp)
}

func withScheme(website string) string {
	w := strings.TrimSpace(website)
	lower := strings.ToLower(w)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return w
	}
	return "https://" + w
}
