package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/infrastructure/metrics"
)

// Strategy names, in chain order.
const (
	StrategyAPI               = "api"
	StrategyStructuredData    = "structured_data"
	StrategyRetailerSelectors = "retailer_selectors"
	StrategyGenericSelectors  = "generic_selectors"
	StrategyRendered          = "rendered"
	StrategyAI                = "ai"
)

// ExtractionStrategy is one way of turning a target page into a product candidate.
// Attempt returns domain.ErrStrategySkipped when it does not apply.
type ExtractionStrategy interface {
	Name() string
	Attempt(ctx context.Context, t *target) (*candidate, error)
}

// candidate is the raw, not yet normalized output of a strategy.
type candidate struct {
	Name        string
	ImageURL    string
	Price       any // string as printed, or a number from JSON
	Currency    string
	Color       string
	Brand       string
	Description string
	Category    string
	Subcategory string
}

func (c *candidate) valid() bool {
	return c != nil && strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.ImageURL) != ""
}

// fillFrom copies fields of other into c where c has none.
func (c *candidate) fillFrom(other *candidate) {
	if other == nil {
		return
	}
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = src
		}
	}
	fill(&c.Name, other.Name)
	fill(&c.ImageURL, other.ImageURL)
	fill(&c.Currency, other.Currency)
	fill(&c.Color, other.Color)
	fill(&c.Brand, other.Brand)
	fill(&c.Description, other.Description)
	fill(&c.Category, other.Category)
	fill(&c.Subcategory, other.Subcategory)
	if isEmptyPrice(c.Price) {
		c.Price = other.Price
	}
}

func (c *candidate) basicInfo() domain.BasicInfo {
	if c == nil {
		return domain.BasicInfo{}
	}
	return domain.BasicInfo{
		Name:        c.Name,
		ImageURL:    c.ImageURL,
		Price:       priceString(c.Price),
		Color:       c.Color,
		Brand:       c.Brand,
		Description: c.Description,
	}
}

func isEmptyPrice(p any) bool {
	if p == nil {
		return true
	}
	s, ok := p.(string)
	return ok && strings.TrimSpace(s) == ""
}

func priceString(p any) string {
	if isEmptyPrice(p) {
		return ""
	}
	return fmt.Sprint(p)
}

// target is the per-request state the strategies share: the URL, its profile and
// lazily fetched page bodies. Each body is fetched at most once.
type target struct {
	sourceURL string
	fetchURL  string
	profile   domain.RetailerProfile

	fetcher  domain.PageFetcher
	renderer domain.PageRenderer

	pageOnce sync.Once
	page     *domain.FetchedPage
	pageErr  error

	renderOnce sync.Once
	rendered   *domain.FetchedPage
	renderErr  error

	// partial accumulates fields from invalid candidates for the AI strategy.
	partial *candidate
}

func newTarget(sourceURL, fetchURL string, profile domain.RetailerProfile, fetcher domain.PageFetcher, renderer domain.PageRenderer) *target {
	return &target{
		sourceURL: sourceURL,
		fetchURL:  fetchURL,
		profile:   profile,
		fetcher:   fetcher,
		renderer:  renderer,
		partial:   &candidate{},
	}
}

// directPage fetches the page without JavaScript.
func (t *target) directPage(ctx context.Context) (*domain.FetchedPage, error) {
	t.pageOnce.Do(func() {
		if t.fetcher == nil {
			t.pageErr = fmt.Errorf("%w: no fetcher configured", domain.ErrProviderUnavailable)
			return
		}
		t.page, t.pageErr = t.fetcher.Fetch(ctx, t.fetchURL, domain.FetchOptions{Headers: t.profile.Headers})
	})
	return t.page, t.pageErr
}

// renderedPage fetches the page through the rendering backend.
func (t *target) renderedPage(ctx context.Context) (*domain.FetchedPage, error) {
	t.renderOnce.Do(func() {
		if t.renderer == nil {
			t.renderErr = domain.ErrStrategySkipped
			return
		}
		t.rendered, t.renderErr = t.renderer.Render(ctx, t.fetchURL, domain.RenderOptions{Headers: t.profile.Headers})
	})
	return t.rendered, t.renderErr
}

// bestHTML returns the most complete body already downloaded, preferring the rendered one.
func (t *target) bestHTML() (string, string) {
	if t.rendered != nil && t.rendered.HTML != "" {
		return t.rendered.HTML, pageURL(t.rendered, t.fetchURL)
	}
	if t.page != nil && t.page.HTML != "" {
		return t.page.HTML, pageURL(t.page, t.fetchURL)
	}
	return "", t.fetchURL
}

func pageURL(page *domain.FetchedPage, fallback string) string {
	if page != nil && page.URL != "" {
		return page.URL
	}
	return fallback
}

// chain runs strategies in order and returns the first valid candidate.
type chain struct {
	strategies []ExtractionStrategy
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// run drives the chain. Failures are logged and recorded, never fatal, until the
// last strategy has been tried.
func (c *chain) run(ctx context.Context, t *target) (*candidate, string, []domain.ExtractionAttempt, error) {
	attempts := make([]domain.ExtractionAttempt, 0, len(c.strategies))

	for _, strategy := range c.strategies {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, domain.ExtractionAttempt{Strategy: strategy.Name(), Error: err.Error()})
			break
		}

		start := time.Now()
		cand, err := strategy.Attempt(ctx, t)
		if err == nil && !cand.valid() {
			t.partial.fillFrom(cand)
			err = domain.ErrInvalidCandidate
		}
		elapsed := time.Since(start)

		attempt := domain.ExtractionAttempt{
			Strategy:   strategy.Name(),
			Succeeded:  err == nil,
			DurationMS: elapsed.Milliseconds(),
		}
		fields := []zap.Field{
			zap.String("strategy", strategy.Name()),
			zap.String("url", t.sourceURL),
			zap.Duration("duration", elapsed),
		}

		switch {
		case err == nil:
			c.metrics.IncStrategy(strategy.Name(), metrics.OutcomeSuccess)
			c.logger.Info("extraction strategy succeeded", fields...)
			attempts = append(attempts, attempt)
			return cand, strategy.Name(), attempts, nil
		case errors.Is(err, domain.ErrStrategySkipped):
			attempt.Skipped = true
			attempt.Error = err.Error()
			c.metrics.IncStrategy(strategy.Name(), metrics.OutcomeSkipped)
			c.logger.Debug("extraction strategy skipped", append(fields, zap.Error(err))...)
		default:
			attempt.Error = err.Error()
			c.metrics.IncStrategy(strategy.Name(), metrics.OutcomeFailure)
			c.logger.Warn("extraction strategy failed", append(fields, zap.Error(err))...)
		}
		attempts = append(attempts, attempt)
	}

	return nil, "", attempts, &domain.ExtractionFailedError{URL: t.sourceURL, Attempts: attempts}
}
