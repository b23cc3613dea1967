// Package search implements the web search provider used for product
// discovery, backed by the Google Custom Search JSON API.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/productlens/backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Custom Search JSON API host
	DefaultBaseURL = "https://www.googleapis.com"
	// maxResultCount is the largest page the API serves
	maxResultCount = 10
	// maxBodyBytes caps how much of a response body is read
	maxBodyBytes = 1 << 20
)

// Config holds provider client configuration
type Config struct {
	APIKey            string
	EngineID          string
	BaseURL           string
	SafeSearch        string        // "active" or "off"
	RequestsPerSecond float64       // Shared token bucket rate
	Burst             int           // Token bucket burst
	MaxAttempts       int           // Attempts per call on 429/5xx
	HTTPTimeout       time.Duration // Backstop; callers pass per-call deadlines
}

// Client handles communication with the search API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	engineID    string
	baseURL     string
	safeSearch  string
	maxAttempts int
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	debug       bool
}

// NewClient creates a new search API client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SafeSearch == "" {
		cfg.SafeSearch = "active"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		apiKey:      cfg.APIKey,
		engineID:    cfg.EngineID,
		baseURL:     cfg.BaseURL,
		safeSearch:  cfg.SafeSearch,
		maxAttempts: cfg.MaxAttempts,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:      logger,
	}
}

// SetDebug enables verbose per-request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Ready reports ErrProviderUnavailable when credentials are missing
func (c *Client) Ready() error {
	if c.apiKey == "" || c.engineID == "" {
		return fmt.Errorf("%w: api key and engine id are required", domain.ErrProviderUnavailable)
	}
	return nil
}

// Search runs one query and returns hits in provider order. Zero hits is not an error.
func (c *Client) Search(ctx context.Context, query domain.SearchQuery) ([]domain.RawHit, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}

	count := query.ResultCount
	if count <= 0 || count > maxResultCount {
		count = maxResultCount
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query.Query)
	params.Set("num", strconv.Itoa(count))
	params.Set("safe", c.safeSearch)
	reqURL := fmt.Sprintf("%s/customsearch/v1?%s", c.baseURL, params.Encode())

	c.debugLog("Search called", zap.String("query", query.Query), zap.Int("num", count))

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, exponentialBackoff(attempt-1)); err != nil {
				return nil, errors.Join(domain.ErrProviderUnreachable, err)
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}

		hits, retry, err := c.doSearch(ctx, reqURL)
		if err == nil {
			c.debugLog("Search succeeded", zap.String("query", query.Query), zap.Int("hits", len(hits)))
			return hits, nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.logger.Warn("Search attempt failed",
			zap.String("query", query.Query), zap.Int("attempt", attempt), zap.Error(err))
	}

	return nil, lastErr
}

// doSearch executes one HTTP round trip. retry reports whether the failure is transient.
func (c *Client) doSearch(ctx context.Context, reqURL string) (hits []domain.RawHit, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to create request: %v", domain.ErrProviderFailure, err)
	}
	req.Header.Set("User-Agent", "ProductLens/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, errors.Join(domain.ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := readLimitedBody(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, true, errors.Join(domain.ErrProviderUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, transient, fmt.Errorf("%w: status %d: %s",
			domain.ErrProviderFailure, resp.StatusCode, truncate(string(body), 200))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("%w: failed to decode response: %v", domain.ErrProviderFailure, err)
	}
	if parsed.Error != nil {
		return nil, false, fmt.Errorf("%w: api error %d: %s",
			domain.ErrProviderFailure, parsed.Error.Code, parsed.Error.Message)
	}

	return MapToRawHits(parsed.Items), false, nil
}

func (c *Client) debugLog(msg string, fields ...zap.Field) {
	if c.debug {
		c.logger.Debug(msg, fields...)
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempt 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
