// Package fetch downloads retailer pages and product API documents over plain HTTP.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/infrastructure/metrics"
	"github.com/notwins/backend/internal/normalize"
)

// ErrUnexpectedStatus is wrapped for non-retryable 4xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

const (
	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	acceptJSON = "application/json, text/plain, */*"

	kindDirect = "direct"
	kindAPI    = "retailer_api"

	maxRedirects = 10
)

// Config controls outbound HTTP behavior.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	UserAgent      string
	AcceptLanguage string
	RateLimit      float64
	RateBurst      int
	MaxBodyBytes   int64
}

// Client fetches pages and JSON with rate limiting and bounded retries.
type Client struct {
	httpClient  *http.Client
	cfg         Config
	rateLimiter *rate.Limiter
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewClient creates a new fetch client
func NewClient(cfg Config, m *metrics.Metrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5 << 20
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:       cfg.Timeout,
			CheckRedirect: checkRedirect,
		},
		cfg:         cfg,
		rateLimiter: rate.NewLimiter(limit, burst),
		metrics:     m,
		logger:      logger.Named("fetch"),
	}
}

// Fetch downloads a page with browser-like headers plus the profile's own headers.
func (c *Client) Fetch(ctx context.Context, url string, opts domain.FetchOptions) (*domain.FetchedPage, error) {
	body, status, finalURL, err := c.get(ctx, kindDirect, url, acceptHTML, opts.Headers)
	if err != nil {
		return nil, err
	}
	return &domain.FetchedPage{
		URL:        finalURL,
		StatusCode: status,
		HTML:       string(body),
	}, nil
}

// FetchJSON reads a retailer product endpoint and decodes it into generic JSON values.
// Numbers are kept as json.Number.
func (c *Client) FetchJSON(ctx context.Context, url string, headers map[string]string) (any, error) {
	body, _, _, err := c.get(ctx, kindAPI, url, acceptJSON, headers)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return doc, nil
}

// checkRedirect applies the input URL blacklist to every redirect hop, so a
// retailer page cannot bounce the fetcher onto loopback, private or social hosts.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if normalize.IsBlockedHost(req.URL.Hostname()) {
		return fmt.Errorf("%w: redirect to %s", domain.ErrBlockedDomain, req.URL.Hostname())
	}
	return nil
}

// get executes a GET with up to MaxRetries retries on transport errors, 429 and 5xx.
func (c *Client) get(ctx context.Context, kind, url, accept string, headers map[string]string) ([]byte, int, string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
				return nil, 0, "", err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, 0, "", fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, url, accept, headers)
		if err != nil {
			c.metrics.IncFetch(kind, 0)
			if ctx.Err() != nil {
				return nil, 0, "", ctx.Err()
			}
			if errors.Is(err, domain.ErrBlockedDomain) {
				c.logger.Warn("redirect to blocked host", zap.String("url", url), zap.Error(err))
				return nil, 0, "", err
			}
			c.logger.Warn("request failed",
				zap.String("kind", kind),
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			lastErr = &domain.ProviderError{Provider: kind, Err: fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
		resp.Body.Close()
		c.metrics.IncFetch(kind, resp.StatusCode)

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			c.logger.Warn("retryable status",
				zap.String("kind", kind),
				zap.String("url", url),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			lastErr = &domain.ProviderError{Provider: kind, StatusCode: resp.StatusCode, Err: domain.ErrProviderUnavailable}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, resp.StatusCode, "", &domain.ProviderError{Provider: kind, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
		}
		if readErr != nil {
			lastErr = &domain.ProviderError{Provider: kind, Err: fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, readErr)}
			continue
		}

		c.logger.Debug("fetched",
			zap.String("kind", kind),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.Int("bytes", len(body)),
		)
		finalURL := url
		if resp.Request != nil && resp.Request.URL != nil {
			finalURL = resp.Request.URL.String()
		}
		return body, resp.StatusCode, finalURL, nil
	}

	return nil, 0, "", lastErr
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, url, accept string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", accept)
	if c.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", c.cfg.AcceptLanguage)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.httpClient.Do(req)
}

// backoff doubles RetryBackoff per attempt: 1x, 2x, 4x...
func (c *Client) backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return c.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
