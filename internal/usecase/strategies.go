package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/infrastructure/fetch"
	"github.com/notwins/backend/internal/normalize"
	"github.com/notwins/backend/internal/retailer"
)

// apiStrategy reads the retailer's product API with a SKU taken from the URL.
type apiStrategy struct {
	client domain.RetailerAPIClient
}

func (s *apiStrategy) Name() string { return StrategyAPI }

func (s *apiStrategy) Attempt(ctx context.Context, t *target) (*candidate, error) {
	profile := t.profile
	if profile.Mode != domain.ModeAPI || profile.API == nil || s.client == nil {
		return nil, domain.ErrStrategySkipped
	}
	sku, ok := retailer.ExtractSKU(profile, t.fetchURL)
	if !ok {
		return nil, fmt.Errorf("%w: no SKU in %s", domain.ErrStrategySkipped, t.fetchURL)
	}

	doc, err := s.client.FetchJSON(ctx, retailer.APIEndpoint(profile, sku), profile.Headers)
	if err != nil {
		return nil, err
	}
	fields := fetch.MapFields(doc, profile.API.Fields)

	c := &candidate{
		Name:        stringValue(fields["name"]),
		Color:       stringValue(fields["color"]),
		Brand:       stringValue(fields["brand"]),
		Description: stringValue(fields["description"]),
		Currency:    stringValue(fields["currency"]),
		ImageURL:    apiImageURL(stringValue(fields["image"]), profile.API.ImagePrefix),
	}
	if price, ok := fields["price"]; ok {
		c.Price = price
	} else if cents, ok := numberValue(fields["price_cents"]); ok {
		c.Price = cents / 100
	}
	return c, nil
}

func apiImageURL(image, prefix string) string {
	if image == "" {
		return ""
	}
	image = strings.ReplaceAll(image, "{width}", "1024")
	if prefix != "" && !strings.HasPrefix(image, "http") && !strings.HasPrefix(image, "//") {
		image = strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(image, "/")
	}
	return resolveURL(nil, image)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return normalize.CleanText(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func numberValue(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// pageStrategy runs one extractor over the directly fetched page.
type pageStrategy struct {
	name    string
	applies func(domain.RetailerProfile) bool
	extract func(*htmlDoc, domain.RetailerProfile) *candidate
}

func (s *pageStrategy) Name() string { return s.name }

func (s *pageStrategy) Attempt(ctx context.Context, t *target) (*candidate, error) {
	// render-mode pages are read from the rendered body; a direct fetch is only
	// the fallback when rendering failed or no renderer is configured
	if t.profile.Mode == domain.ModeRender {
		if _, err := t.renderedPage(ctx); err == nil {
			return nil, fmt.Errorf("%w: %s pages are read rendered", domain.ErrStrategySkipped, t.profile.Name)
		}
	}
	if s.applies != nil && !s.applies(t.profile) {
		return nil, domain.ErrStrategySkipped
	}
	page, err := t.directPage(ctx)
	if err != nil {
		return nil, err
	}
	h, err := parseHTML(page.HTML, pageURL(page, t.fetchURL))
	if err != nil {
		return nil, err
	}
	return s.extract(h, t.profile), nil
}

func newStructuredDataStrategy() *pageStrategy {
	return &pageStrategy{
		name:    StrategyStructuredData,
		extract: func(h *htmlDoc, _ domain.RetailerProfile) *candidate { return extractStructured(h) },
	}
}

func newRetailerSelectorStrategy() *pageStrategy {
	return &pageStrategy{
		name:    StrategyRetailerSelectors,
		applies: func(p domain.RetailerProfile) bool { return !p.Generic },
		extract: func(h *htmlDoc, p domain.RetailerProfile) *candidate { return extractSelectors(h, p.Selectors) },
	}
}

func newGenericSelectorStrategy() *pageStrategy {
	return &pageStrategy{
		name:    StrategyGenericSelectors,
		extract: func(h *htmlDoc, _ domain.RetailerProfile) *candidate { return extractGeneric(h) },
	}
}

// renderedStrategy fetches the page through the rendering backend and reruns the
// structured, retailer and generic extractors on the result.
type renderedStrategy struct{}

func (s *renderedStrategy) Name() string { return StrategyRendered }

func (s *renderedStrategy) Attempt(ctx context.Context, t *target) (*candidate, error) {
	page, err := t.renderedPage(ctx)
	if err != nil {
		return nil, err
	}
	h, err := parseHTML(page.HTML, pageURL(page, t.fetchURL))
	if err != nil {
		return nil, err
	}

	merged := extractStructured(h)
	if merged.valid() {
		return merged, nil
	}
	if !t.profile.Generic {
		c := extractSelectors(h, t.profile.Selectors)
		if c.valid() {
			return c, nil
		}
		merged.fillFrom(c)
	}
	c := extractGeneric(h)
	if c.valid() {
		return c, nil
	}
	merged.fillFrom(c)
	return merged, nil
}

// aiStrategy asks the interpreter to read the page when nothing else could.
type aiStrategy struct {
	interpreter  domain.ProductInterpreter
	excerptChars int
}

func (s *aiStrategy) Name() string { return StrategyAI }

func (s *aiStrategy) Attempt(ctx context.Context, t *target) (*candidate, error) {
	if s.interpreter == nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStrategySkipped, domain.ErrAIDisabled)
	}

	html, base := t.bestHTML()
	if html == "" {
		if page, err := t.directPage(ctx); err == nil {
			html, base = page.HTML, pageURL(page, t.fetchURL)
		}
	}
	basic := t.partial.basicInfo()
	if html == "" && basic == (domain.BasicInfo{}) {
		return nil, fmt.Errorf("%w: no page content to interpret", domain.ErrStrategySkipped)
	}

	excerpt := ""
	if html != "" {
		excerpt = htmlExcerpt(html, base, s.excerptChars)
	}
	interp, err := s.interpreter.InterpretProduct(ctx, t.sourceURL, excerpt, basic)
	if err != nil {
		return nil, err
	}
	return candidateFromInterpretation(interp, base, t.partial), nil
}

func candidateFromInterpretation(interp *domain.ProductInterpretation, base string, partial *candidate) *candidate {
	c := &candidate{
		Name:        interp.Name,
		Currency:    interp.Currency,
		Color:       interp.Color,
		Brand:       interp.Brand,
		Description: interp.Description,
		Category:    interp.Category,
		Subcategory: interp.Subcategory,
	}
	if interp.PriceText != "" {
		c.Price = interp.PriceText
	}
	baseURL, _ := url.Parse(base)
	c.ImageURL = resolveURL(baseURL, interp.ImageURL)
	c.fillFrom(partial)
	return c
}
