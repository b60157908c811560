// Package provider builds every outbound client once, from configuration, so that
// use cases receive their collaborators explicitly instead of reaching for globals.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notwins/backend/config"
	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/infrastructure/ai"
	"github.com/notwins/backend/internal/infrastructure/cache"
	"github.com/notwins/backend/internal/infrastructure/fetch"
	"github.com/notwins/backend/internal/infrastructure/metrics"
	"github.com/notwins/backend/internal/infrastructure/render"
	"github.com/notwins/backend/internal/retailer"
)

const memoryCleanupInterval = 10 * time.Minute

// Providers is the set of clients the pipeline runs on. Renderer and Interpreter
// are nil when the matching backend is switched off.
type Providers struct {
	Cache       domain.CacheRepository
	Fetcher     *fetch.Client
	Renderer    domain.PageRenderer
	AIClient    *ai.Client
	Interpreter domain.ProductInterpreter
	Registry    *retailer.Registry

	closers []func() error
}

// Close releases caches, browsers and connections in reverse build order.
func (p *Providers) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// Factory turns configuration into Providers.
type Factory struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewFactory creates a provider factory
func NewFactory(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{cfg: cfg, metrics: m, logger: logger}
}

// Build constructs every provider. On error, anything already opened is closed.
func (f *Factory) Build(ctx context.Context) (*Providers, error) {
	p := &Providers{}

	cacheRepo, err := f.buildCache(ctx, p)
	if err != nil {
		return nil, err
	}
	p.Cache = cacheRepo

	registry, err := f.buildRegistry()
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.Registry = registry

	p.Fetcher = fetch.NewClient(fetch.Config{
		Timeout:        f.cfg.Fetch.Timeout,
		MaxRetries:     f.cfg.Fetch.MaxRetries,
		RetryBackoff:   f.cfg.Fetch.RetryBackoff,
		UserAgent:      f.cfg.Fetch.UserAgent,
		AcceptLanguage: f.cfg.Fetch.AcceptLanguage,
		RateLimit:      f.cfg.Fetch.RateLimit,
		RateBurst:      f.cfg.Fetch.RateBurst,
		MaxBodyBytes:   f.cfg.Fetch.MaxBodyBytes,
	}, f.metrics, f.logger)

	p.Renderer = f.buildRenderer(p)

	retry := ai.DefaultRetryConfig()
	retry.MaxRetries = f.cfg.AI.MaxRetries
	p.AIClient = ai.NewClient(ai.Config{
		BaseURL:     f.cfg.AI.BaseURL,
		APIKey:      f.cfg.AI.APIKey,
		Model:       f.cfg.AI.Model,
		VisionModel: f.cfg.AI.VisionModel,
		Timeout:     f.cfg.AI.Timeout,
		HealthTTL:   f.cfg.AI.HealthTTL,
		RateLimit:   f.cfg.AI.RateLimit,
		RateBurst:   f.cfg.AI.RateBurst,
		Retry:       retry,
	}, f.metrics, f.logger)
	if p.AIClient.Enabled() {
		p.Interpreter = ai.NewInterpreter(p.AIClient, f.cfg.AI.HTMLExcerptChars, f.logger)
	} else {
		f.logger.Warn("AI provider not configured, AI strategies disabled")
	}

	f.logger.Info("providers ready",
		zap.String("cache", f.cfg.Cache.Type),
		zap.String("render", f.cfg.Render.Backend),
		zap.Bool("ai", p.Interpreter != nil),
		zap.Int("retailers", len(registry.Profiles())),
	)
	return p, nil
}

func (f *Factory) buildCache(ctx context.Context, p *Providers) (domain.CacheRepository, error) {
	switch f.cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(ctx, f.cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		p.closers = append(p.closers, redisCache.Close)
		return redisCache, nil
	default:
		memoryCache, err := cache.NewMemoryCache(f.cfg.Cache.MaxEntries, memoryCleanupInterval)
		if err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		p.closers = append(p.closers, memoryCache.Close)
		return memoryCache, nil
	}
}

func (f *Factory) buildRegistry() (*retailer.Registry, error) {
	var overrides []domain.RetailerProfile
	if path := f.cfg.Retailers.ProfilesFile; path != "" {
		loaded, err := retailer.LoadProfiles(path)
		if err != nil {
			return nil, err
		}
		overrides = loaded
	}
	return retailer.NewRegistry(f.logger, overrides...)
}

func (f *Factory) buildRenderer(p *Providers) domain.PageRenderer {
	rc := f.cfg.Render
	switch rc.Backend {
	case config.RenderProxy:
		return render.NewProxyRenderer(render.ProxyConfig{
			BaseURL:        rc.BaseURL,
			APIKey:         rc.APIKey,
			CountryCode:    rc.CountryCode,
			Premium:        rc.Premium,
			RenderJS:       rc.RenderJS,
			MaxAttempts:    rc.MaxAttempts,
			InitialTimeout: rc.InitialTimeout,
			TimeoutStep:    rc.TimeoutStep,
			RetryBackoff:   rc.RetryBackoff,
			MaxBodyBytes:   f.cfg.Fetch.MaxBodyBytes,
		}, f.metrics, f.logger)
	case config.RenderBrowser:
		browser := render.NewBrowserRenderer(render.BrowserConfig{
			Timeout:   rc.BrowserTimeout,
			UserAgent: f.cfg.Fetch.UserAgent,
		}, f.logger)
		p.closers = append(p.closers, browser.Close)
		return browser
	default:
		return nil
	}
}
