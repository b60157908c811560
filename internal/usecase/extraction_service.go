package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/infrastructure/metrics"
	"github.com/notwins/backend/internal/normalize"
	"github.com/notwins/backend/internal/retailer"
)

const (
	productCachePrefix = "product"
	imageCachePrefix   = "image"
	maxDescriptionLen  = 2000
)

// ProfileResolver maps a normalized URL to its retailer profile.
type ProfileResolver interface {
	Lookup(rawURL string) domain.RetailerProfile
}

// ExtractionServiceConfig holds configuration for the extraction service
type ExtractionServiceConfig struct {
	CacheTTL         time.Duration
	BatchConcurrency int
	EnrichWithAI     bool
	HTMLExcerptChars int
}

// ExtractionDeps are the collaborators of the extraction service. Renderer and
// Interpreter may be nil; the strategies that need them are then skipped.
type ExtractionDeps struct {
	Cache       domain.CacheRepository
	Profiles    ProfileResolver
	Fetcher     domain.PageFetcher
	APIClient   domain.RetailerAPIClient
	Renderer    domain.PageRenderer
	Interpreter domain.ProductInterpreter
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// BatchResult is the outcome of one URL of a batch. Exactly one of Product and Err is set.
type BatchResult struct {
	URL     string
	Product *domain.ProductRecord
	Err     error
}

// ExtractionService turns retailer URLs and photos into normalized product records.
type ExtractionService struct {
	profiles    ProfileResolver
	fetcher     domain.PageFetcher
	renderer    domain.PageRenderer
	interpreter domain.ProductInterpreter
	chain       *chain
	cache       *resultCache
	cfg         ExtractionServiceConfig
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewExtractionService creates the extraction service and its strategy chain
func NewExtractionService(deps ExtractionDeps, cfg ExtractionServiceConfig) *ExtractionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("extraction")
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	if cfg.HTMLExcerptChars <= 0 {
		cfg.HTMLExcerptChars = 1500
	}

	strategies := []ExtractionStrategy{
		&apiStrategy{client: deps.APIClient},
		newStructuredDataStrategy(),
		newRetailerSelectorStrategy(),
		newGenericSelectorStrategy(),
		&renderedStrategy{},
		&aiStrategy{interpreter: deps.Interpreter, excerptChars: cfg.HTMLExcerptChars},
	}

	return &ExtractionService{
		profiles:    deps.Profiles,
		fetcher:     deps.Fetcher,
		renderer:    deps.Renderer,
		interpreter: deps.Interpreter,
		chain:       &chain{strategies: strategies, metrics: deps.Metrics, logger: logger},
		cache:       newResultCache(deps.Cache, cfg.CacheTTL, deps.Metrics, logger),
		cfg:         cfg,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// ExtractProduct returns the normalized product behind rawURL.
// Flow: normalize URL -> cache -> profile -> strategy chain -> normalizers -> AI enrichment -> cache
func (s *ExtractionService) ExtractProduct(ctx context.Context, rawURL string) (*domain.ProductRecord, error) {
	sourceURL, err := normalize.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	cacheKey := hashKey(productCachePrefix, []byte(sourceURL))
	var cached domain.ProductRecord
	if s.cache.get(ctx, productCachePrefix, cacheKey, &cached) && cached.Valid() {
		return &cached, nil
	}

	start := time.Now()
	profile := s.lookupProfile(sourceURL)
	fetchURL, err := retailer.ApplyTransform(profile.URLTransform, sourceURL)
	if err != nil {
		s.logger.Warn("url transform failed", zap.String("profile", profile.Name), zap.Error(err))
		fetchURL = sourceURL
	}

	t := newTarget(sourceURL, fetchURL, profile, s.fetcher, s.renderer)
	cand, strategy, _, err := s.chain.run(ctx, t)
	if err != nil {
		s.metrics.ObserveExtraction(time.Since(start), metrics.OutcomeFailure)
		return nil, err
	}

	record := finalize(cand, profile, sourceURL)
	if s.cfg.EnrichWithAI && strategy != StrategyAI && s.interpreter != nil && needsEnrichment(record) {
		s.enrich(ctx, t, record)
	}

	s.metrics.ObserveExtraction(time.Since(start), metrics.OutcomeSuccess)
	s.logger.Info("product extracted",
		zap.String("url", sourceURL),
		zap.String("retailer", profile.Name),
		zap.String("strategy", strategy),
		zap.Duration("elapsed", time.Since(start)),
	)

	s.cache.set(ctx, cacheKey, record)
	return record, nil
}

// ExtractBatch extracts every URL concurrently, bounded by BatchConcurrency. A
// failing URL never cancels its siblings; results keep the input order.
func (s *ExtractionService) ExtractBatch(ctx context.Context, urls []string) []BatchResult {
	results := make([]BatchResult, len(urls))

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, u := range urls {
		g.Go(func() error {
			product, err := s.ExtractProduct(ctx, u)
			results[i] = BatchResult{URL: u, Product: product, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// AnalyzeImage recognizes the garment in an uploaded photo. Results are cached by
// the hash of the image bytes.
func (s *ExtractionService) AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*domain.ImageAnalysis, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrInvalidRequest)
	}
	mimeType, err := imageMIMEType(image, mimeType)
	if err != nil {
		return nil, err
	}
	if s.interpreter == nil {
		return nil, domain.ErrAIDisabled
	}

	cacheKey := hashKey(imageCachePrefix, image)
	var cached domain.ImageAnalysis
	if s.cache.get(ctx, imageCachePrefix, cacheKey, &cached) {
		return &cached, nil
	}

	interp, err := s.interpreter.AnalyzeImage(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}

	name := normalize.CleanText(interp.Name)
	description := truncateRunes(normalize.CleanText(interp.Description), maxDescriptionLen)
	analysis := &domain.ImageAnalysis{
		Name:        name,
		Color:       normalize.CanonicalColor(interp.Color),
		Brand:       normalize.CleanText(interp.Brand),
		Type:        resolveType(interp.Category, interp.Subcategory, name+" "+description),
		Description: description,
	}

	s.cache.set(ctx, cacheKey, analysis)
	return analysis, nil
}

func (s *ExtractionService) lookupProfile(sourceURL string) domain.RetailerProfile {
	if s.profiles == nil {
		return domain.RetailerProfile{Name: retailer.GenericProfileName, Selectors: retailer.GenericSelectors(), Mode: domain.ModeHTML, Generic: true}
	}
	return s.profiles.Lookup(sourceURL)
}

// enrich fills brand, color and category from the interpreter. Present values are
// never replaced and a failed call leaves the record as it was.
func (s *ExtractionService) enrich(ctx context.Context, t *target, record *domain.ProductRecord) {
	html, base := t.bestHTML()
	excerpt := ""
	if html != "" {
		excerpt = htmlExcerpt(html, base, s.cfg.HTMLExcerptChars)
	}

	interp, err := s.interpreter.InterpretProduct(ctx, t.sourceURL, excerpt, basicInfoOf(record))
	if err != nil {
		s.logger.Debug("AI enrichment failed", zap.String("url", t.sourceURL), zap.Error(err))
		return
	}

	if record.Brand == "" {
		record.Brand = normalize.CleanText(interp.Brand)
	}
	if record.Color == "" && interp.Color != "" {
		record.Color = normalize.CanonicalColor(interp.Color)
	}
	if record.Type == nil || record.Type.Subcategory == normalize.SubcategoryOther {
		if pt, ok := normalize.LookupType(interp.Category, interp.Subcategory); ok && pt.Subcategory != normalize.SubcategoryOther {
			record.Type = &pt
		}
	}
}

func needsEnrichment(record *domain.ProductRecord) bool {
	return record.Brand == "" || record.Color == "" ||
		record.Type == nil || record.Type.Subcategory == normalize.SubcategoryOther
}

func basicInfoOf(record *domain.ProductRecord) domain.BasicInfo {
	info := domain.BasicInfo{
		Name:        record.Name,
		ImageURL:    record.ImageURL,
		Color:       record.Color,
		Brand:       record.Brand,
		Description: truncateRunes(record.Description, 300),
	}
	if record.Price != nil {
		info.Price = strings.TrimSpace(fmt.Sprintf("%.2f %s", record.Price.Amount, record.Price.Currency))
	}
	return info
}

// finalize runs the field normalizers over a valid candidate.
func finalize(c *candidate, profile domain.RetailerProfile, sourceURL string) *domain.ProductRecord {
	name := normalize.CleanText(c.Name)
	description := truncateRunes(normalize.CleanText(c.Description), maxDescriptionLen)

	record := &domain.ProductRecord{
		Name:        name,
		ImageURL:    resolveURL(nil, c.ImageURL),
		Price:       buildPrice(c.Price, c.Currency, profile.DefaultCurrency),
		Brand:       normalize.CleanText(c.Brand),
		Type:        resolveType(c.Category, c.Subcategory, name+" "+description),
		Description: description,
		SourceURL:   sourceURL,
	}
	if record.ImageURL == "" {
		record.ImageURL = strings.TrimSpace(c.ImageURL)
	}

	if c.Color != "" {
		record.Color = normalize.CanonicalColor(c.Color)
	} else if color := normalize.DetectColor(name); color != "" {
		record.Color = color
	} else {
		record.Color = normalize.DetectColor(description)
	}

	if record.Brand == "" {
		record.Brand = profile.DefaultBrand
	}
	return record
}

func buildPrice(v any, currency, defaultCurrency string) *domain.Price {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if len(cur) != 3 {
		cur = normalize.DetectCurrency(currency)
	}
	if cur == "" {
		cur = defaultCurrency
	}

	if text, ok := v.(string); ok {
		return normalize.PriceFromText(text, cur)
	}
	amount, ok := normalize.ParsePriceValue(v)
	if !ok {
		return nil
	}
	return &domain.Price{Amount: amount, Currency: cur}
}

// resolveType prefers a model-supplied subcategory, then keyword detection over
// text, then a model-supplied category with no subcategory.
func resolveType(category, subcategory, text string) *domain.ProductType {
	detected := normalize.DetectCategory(text)
	if category != "" {
		if pt, ok := normalize.LookupType(category, subcategory); ok {
			if pt.Subcategory != normalize.SubcategoryOther || detected.Subcategory == normalize.SubcategoryOther {
				return &pt
			}
		}
	}
	return &detected
}

// imageMIMEType sniffs the payload; the declared type is only trusted for image
// formats the sniffer does not know.
func imageMIMEType(image []byte, declared string) (string, error) {
	detected := http.DetectContentType(image)
	if strings.HasPrefix(detected, "image/") {
		return detected, nil
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if detected == "application/octet-stream" && strings.HasPrefix(declared, "image/") {
		return declared, nil
	}
	return "", fmt.Errorf("%w: payload is %s, not an image", domain.ErrInvalidRequest, detected)
}
