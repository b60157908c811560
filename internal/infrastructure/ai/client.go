// Package ai talks to an OpenAI-compatible chat completions provider and adapts
// its replies to product interpretations and duplicate verdicts.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/infrastructure/metrics"
)

const providerName = "ai"

// Config configures the chat completions client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	VisionModel string
	Timeout     time.Duration
	HealthTTL   time.Duration
	RateLimit   float64
	RateBurst   int
	Retry       RetryConfig
}

// Message is one chat message. Content is a string or a slice of ContentPart.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is a multimodal message fragment.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image, usually as a data URI.
type ImageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client is a chat completions client with rate limiting, bounded retries and a
// cached health probe.
type Client struct {
	httpClient  *http.Client
	cfg         Config
	rateLimiter *rate.Limiter
	metrics     *metrics.Metrics
	logger      *zap.Logger

	healthMu      sync.Mutex
	healthy       bool
	healthChecked time.Time
}

// NewClient creates a chat completions client
func NewClient(cfg Config, m *metrics.Metrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HealthTTL <= 0 {
		cfg.HealthTTL = 5 * time.Minute
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient:  &http.Client{},
		cfg:         cfg,
		rateLimiter: rate.NewLimiter(limit, burst),
		metrics:     m,
		logger:      logger.Named("ai"),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

// Chat sends messages to the text model and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, operation string, messages []Message) (string, error) {
	return c.complete(ctx, operation, c.cfg.Model, messages)
}

// ChatVision sends multimodal messages to the vision model.
func (c *Client) ChatVision(ctx context.Context, operation string, messages []Message) (string, error) {
	return c.complete(ctx, operation, c.cfg.VisionModel, messages)
}

func (c *Client) complete(ctx context.Context, operation, model string, messages []Message) (string, error) {
	if !c.Enabled() {
		return "", domain.ErrAIDisabled
	}

	payload, err := json.Marshal(chatRequest{
		Model:          model,
		Messages:       messages,
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	requestID := uuid.NewString()
	start := time.Now()
	content, err := c.completeWithRetry(ctx, requestID, payload)
	if err != nil {
		c.metrics.IncAICall(operation, metrics.OutcomeFailure)
		c.logger.Warn("chat completion failed",
			zap.String("request_id", requestID),
			zap.String("operation", operation),
			zap.String("model", model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}

	c.metrics.IncAICall(operation, metrics.OutcomeSuccess)
	c.logger.Debug("chat completion",
		zap.String("request_id", requestID),
		zap.String("operation", operation),
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("reply_chars", len(content)),
	)
	return content, nil
}

func (c *Client) completeWithRetry(ctx context.Context, requestID string, payload []byte) (string, error) {
	var lastErr error
	delay := c.cfg.Retry.InitialDelay

	for attempt := 0; attempt <= c.cfg.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying chat completion",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay = c.cfg.Retry.next(delay)
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}

		content, status, wait, err := c.post(ctx, requestID, payload)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err

		switch {
		case status == http.StatusTooManyRequests:
			if wait > delay {
				delay = wait
				if c.cfg.Retry.MaxDelay > 0 && delay > c.cfg.Retry.MaxDelay {
					delay = c.cfg.Retry.MaxDelay
				}
			}
		case status == 0 || status >= http.StatusInternalServerError:
		default:
			// other 4xx will not improve on retry
			return "", lastErr
		}
	}
	return "", lastErr
}

// post performs one call. status is 0 for transport errors; wait is the server's Retry-After.
func (c *Client) post(ctx context.Context, requestID string, payload []byte) (string, int, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, 0, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, 0, &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, retryAfter(resp.Header), &domain.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, truncate(string(body), 300)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", resp.StatusCode, 0, fmt.Errorf("%w: decode completion: %v", domain.ErrAIResponseInvalid, err)
	}
	if parsed.Error != nil {
		return "", resp.StatusCode, 0, fmt.Errorf("%w: %s", domain.ErrAIResponseInvalid, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", resp.StatusCode, 0, fmt.Errorf("%w: empty completion", domain.ErrAIResponseInvalid)
	}
	return parsed.Choices[0].Message.Content, resp.StatusCode, 0, nil
}

// Healthy probes GET {base}/models and caches the answer for HealthTTL.
func (c *Client) Healthy(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}

	c.healthMu.Lock()
	healthy, checked := c.healthy, c.healthChecked
	c.healthMu.Unlock()
	if !checked.IsZero() && time.Since(checked) < c.cfg.HealthTTL {
		return healthy
	}

	// probed unlocked; concurrent callers may probe in parallel
	healthy = c.probe(ctx)
	now := time.Now()

	c.healthMu.Lock()
	if now.After(c.healthChecked) {
		c.healthy, c.healthChecked = healthy, now
	}
	c.healthMu.Unlock()

	if !healthy {
		c.logger.Warn("AI provider health check failed", zap.String("base_url", c.cfg.BaseURL))
	}
	return healthy
}

func (c *Client) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
