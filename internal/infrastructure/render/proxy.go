// Package render obtains the HTML of JavaScript-heavy pages, either through a
// scraping proxy API or a local headless browser.
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/infrastructure/metrics"
)

const (
	// forwarded headers carry this prefix so the proxy passes them to the retailer
	forwardHeaderPrefix = "Spb-"
	kindProxy           = "render_proxy"
)

// ProxyConfig configures the proxy rendering API.
type ProxyConfig struct {
	BaseURL        string
	APIKey         string
	CountryCode    string
	Premium        bool
	RenderJS       bool
	MaxAttempts    int
	InitialTimeout time.Duration
	TimeoutStep    time.Duration
	RetryBackoff   time.Duration
	MaxBodyBytes   int64
}

// ProxyRenderer calls a scraping proxy that runs the page in a remote browser.
// Each retry gets a longer timeout since slow renders are the usual failure.
type ProxyRenderer struct {
	httpClient *http.Client
	cfg        ProxyConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewProxyRenderer creates a proxy renderer
func NewProxyRenderer(cfg ProxyConfig, m *metrics.Metrics, logger *zap.Logger) *ProxyRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialTimeout <= 0 {
		cfg.InitialTimeout = 20 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5 << 20
	}
	return &ProxyRenderer{
		// per-attempt deadlines come from the request context
		httpClient: &http.Client{},
		cfg:        cfg,
		metrics:    m,
		logger:     logger.Named("render.proxy"),
	}
}

// Name identifies the renderer in attempt logs.
func (r *ProxyRenderer) Name() string {
	return "proxy"
}

// Render fetches pageURL through the proxy with up to MaxAttempts attempts.
func (r *ProxyRenderer) Render(ctx context.Context, pageURL string, opts domain.RenderOptions) (*domain.FetchedPage, error) {
	reqURL, err := r.buildURL(pageURL, opts)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, r.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		timeout := r.attemptTimeout(attempt)
		html, status, err := r.renderOnce(ctx, reqURL, opts.Headers, timeout)
		if err == nil {
			r.logger.Debug("rendered",
				zap.String("url", pageURL),
				zap.Int("attempt", attempt),
				zap.Int("bytes", len(html)),
			)
			return &domain.FetchedPage{URL: pageURL, StatusCode: status, HTML: html}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		r.logger.Warn("render attempt failed",
			zap.String("url", pageURL),
			zap.Int("attempt", attempt),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)

		var perr *domain.ProviderError
		if errors.As(err, &perr) && !retryableStatus(perr.StatusCode) {
			break
		}
	}
	return nil, lastErr
}

func (r *ProxyRenderer) renderOnce(ctx context.Context, reqURL string, headers map[string]string, timeout time.Duration) (string, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(forwardHeaderPrefix+k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.metrics.IncFetch(kindProxy, 0)
		return "", 0, &domain.ProviderError{Provider: kindProxy, Err: fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)}
	}
	defer resp.Body.Close()
	r.metrics.IncFetch(kindProxy, resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.cfg.MaxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, &domain.ProviderError{Provider: kindProxy, Err: fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, &domain.ProviderError{
			Provider:   kindProxy,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, truncate(string(body), 200)),
		}
	}
	return string(body), resp.StatusCode, nil
}

func (r *ProxyRenderer) buildURL(pageURL string, opts domain.RenderOptions) (string, error) {
	base, err := url.Parse(r.cfg.BaseURL)
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("invalid render base url %q", r.cfg.BaseURL)
	}

	country := opts.CountryCode
	if country == "" {
		country = r.cfg.CountryCode
	}

	params := base.Query()
	params.Set("api_key", r.cfg.APIKey)
	params.Set("url", pageURL)
	params.Set("render_js", strconv.FormatBool(r.cfg.RenderJS))
	params.Set("premium_proxy", strconv.FormatBool(r.cfg.Premium || opts.Premium))
	if country != "" {
		params.Set("country_code", country)
	}
	if len(opts.Headers) > 0 {
		params.Set("forward_headers", "true")
	}
	base.RawQuery = params.Encode()
	return base.String(), nil
}

// attemptTimeout grows linearly: initial, initial+step, initial+2*step...
func (r *ProxyRenderer) attemptTimeout(attempt int) time.Duration {
	return r.cfg.InitialTimeout + time.Duration(attempt-1)*r.cfg.TimeoutStep
}

func (r *ProxyRenderer) backoff(retry int) time.Duration {
	return r.cfg.RetryBackoff * time.Duration(1<<(retry-1))
}

// retryableStatus treats transport errors (0), throttling and server errors as transient.
func retryableStatus(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
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
