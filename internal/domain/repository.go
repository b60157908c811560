package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque serialized bytes so that memory and Redis stores behave alike.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// FetchedPage is raw HTML plus the final URL and status of a fetch.
type FetchedPage struct {
	URL        string
	StatusCode int
	HTML       string
}

// FetchOptions carries per-retailer request headers.
type FetchOptions struct {
	Headers map[string]string
}

// PageFetcher downloads a page directly.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchedPage, error)
}

// RenderOptions are passed to a rendering backend.
type RenderOptions struct {
	Headers     map[string]string
	CountryCode string
	Premium     bool
}

// PageRenderer returns the HTML of a page after JavaScript has run.
type PageRenderer interface {
	Render(ctx context.Context, url string, opts RenderOptions) (*FetchedPage, error)
	Name() string
}

// RetailerAPIClient reads a retailer product endpoint and returns its decoded JSON.
type RetailerAPIClient interface {
	FetchJSON(ctx context.Context, url string, headers map[string]string) (any, error)
}

// ProductInterpreter is the AI Interpretation Adapter as seen by the use cases.
type ProductInterpreter interface {
	InterpretProduct(ctx context.Context, pageURL, htmlExcerpt string, basic BasicInfo) (*ProductInterpretation, error)
	AdjudicateDuplicates(ctx context.Context, item WardrobeItem, candidates []WardrobeItem) ([]Verdict, error)
	ScoreSimilarity(ctx context.Context, item WardrobeItem, candidates []WardrobeItem) ([]Verdict, error)
	AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*ProductInterpretation, error)
	Healthy(ctx context.Context) bool
}
