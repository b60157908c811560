package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/notwins/backend/internal/domain"
)

// BrowserConfig configures the local headless browser.
type BrowserConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// BrowserRenderer renders pages in a local headless Chrome. One browser process
// is launched lazily on first use and every render opens a tab in it.
type BrowserRenderer struct {
	cfg    BrowserConfig
	logger *zap.Logger

	mu            sync.Mutex
	closed        bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewBrowserRenderer creates a browser renderer
func NewBrowserRenderer(cfg BrowserConfig, logger *zap.Logger) *BrowserRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &BrowserRenderer{cfg: cfg, logger: logger.Named("render.browser")}
}

// Name identifies the renderer in attempt logs.
func (r *BrowserRenderer) Name() string {
	return "browser"
}

var errBrowserClosed = errors.New("browser renderer closed")

// browser returns the shared browser context, launching Chrome when none is
// running or the previous process has died.
func (r *BrowserRenderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errBrowserClosed
	}
	if r.browserCtx != nil && r.browserCtx.Err() == nil {
		return r.browserCtx, nil
	}
	r.shutdownLocked()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if r.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// an empty run starts the process so later contexts become tabs
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	r.allocCancel, r.browserCtx, r.browserCancel = allocCancel, browserCtx, browserCancel
	r.logger.Info("browser launched")
	return browserCtx, nil
}

func (r *BrowserRenderer) shutdownLocked() {
	if r.browserCancel != nil {
		r.browserCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	r.allocCancel, r.browserCtx, r.browserCancel = nil, nil, nil
}

// Render navigates to pageURL and returns the document's outer HTML once the body is ready.
func (r *BrowserRenderer) Render(ctx context.Context, pageURL string, opts domain.RenderOptions) (*domain.FetchedPage, error) {
	browserCtx, err := r.browser()
	if err != nil {
		return nil, &domain.ProviderError{Provider: "render_browser", Err: fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)}
	}
	taskCtx, cancelTask := chromedp.NewContext(browserCtx)
	defer cancelTask()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, r.cfg.Timeout)
	defer cancelTimeout()

	// abandon the browser tab when the caller goes away
	stop := context.AfterFunc(ctx, cancelTask)
	defer stop()

	actions := []chromedp.Action{}
	if len(opts.Headers) > 0 {
		headers := network.Headers{}
		for k, v := range opts.Headers {
			headers[k] = v
		}
		actions = append(actions, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}

	var html string
	actions = append(actions,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	start := time.Now()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.ProviderError{Provider: "render_browser", Err: fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)}
	}

	r.logger.Debug("rendered",
		zap.String("url", pageURL),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(html)),
	)
	return &domain.FetchedPage{URL: pageURL, StatusCode: 200, HTML: html}, nil
}

// Close shuts down the browser process if it was started. Later renders fail.
func (r *BrowserRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.shutdownLocked()
	return nil
}
