package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/notwins/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string][]byte
	getError error
	setError error
	gets     int
	sets     int
	lastTTL  time.Duration
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.lastTTL = ttl
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// MockFetcher serves canned pages by URL; unknown URLs fail with err or ErrProviderUnavailable.
type MockFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	err    error
	calls  int
	lastOp domain.FetchOptions
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{pages: make(map[string]string)}
}

func (m *MockFetcher) Fetch(ctx context.Context, url string, opts domain.FetchOptions) (*domain.FetchedPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastOp = opts
	if m.err != nil {
		return nil, m.err
	}
	html, ok := m.pages[url]
	if !ok {
		return nil, &domain.ProviderError{Provider: "fetch", Err: domain.ErrProviderUnavailable}
	}
	return &domain.FetchedPage{URL: url, StatusCode: 200, HTML: html}, nil
}

func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockRenderer returns the same HTML for every URL.
type MockRenderer struct {
	mu      sync.Mutex
	html    string
	err     error
	calls   int
	lastURL string
}

func (m *MockRenderer) Name() string { return "mock" }

func (m *MockRenderer) Render(ctx context.Context, url string, opts domain.RenderOptions) (*domain.FetchedPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastURL = url
	if m.err != nil {
		return nil, m.err
	}
	return &domain.FetchedPage{URL: url, StatusCode: 200, HTML: m.html}, nil
}

// MockAPIClient returns a decoded JSON document.
type MockAPIClient struct {
	doc     any
	err     error
	lastURL string
}

func (m *MockAPIClient) FetchJSON(ctx context.Context, url string, headers map[string]string) (any, error) {
	m.lastURL = url
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

// MockInterpreter is a mock implementation of domain.ProductInterpreter
type MockInterpreter struct {
	mu             sync.Mutex
	interpretation *domain.ProductInterpretation
	interpretErr   error
	imageResult    *domain.ProductInterpretation
	imageErr       error
	verdicts       []domain.Verdict
	verdictErr     error

	interpretCalls  int
	imageCalls      int
	duplicateCalls  int
	similarityCalls int
	lastBasic       domain.BasicInfo
	lastExcerpt     string
	lastCandidates  []domain.WardrobeItem
}

func (m *MockInterpreter) InterpretProduct(ctx context.Context, pageURL, htmlExcerpt string, basic domain.BasicInfo) (*domain.ProductInterpretation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interpretCalls++
	m.lastBasic = basic
	m.lastExcerpt = htmlExcerpt
	if m.interpretErr != nil {
		return nil, m.interpretErr
	}
	if m.interpretation == nil {
		return nil, domain.ErrAIResponseInvalid
	}
	out := *m.interpretation
	return &out, nil
}

func (m *MockInterpreter) AdjudicateDuplicates(ctx context.Context, item domain.WardrobeItem, candidates []domain.WardrobeItem) ([]domain.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicateCalls++
	m.lastCandidates = candidates
	return m.verdicts, m.verdictErr
}

func (m *MockInterpreter) ScoreSimilarity(ctx context.Context, item domain.WardrobeItem, candidates []domain.WardrobeItem) ([]domain.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.similarityCalls++
	m.lastCandidates = candidates
	return m.verdicts, m.verdictErr
}

func (m *MockInterpreter) AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*domain.ProductInterpretation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageCalls++
	if m.imageErr != nil {
		return nil, m.imageErr
	}
	out := *m.imageResult
	return &out, nil
}

func (m *MockInterpreter) Healthy(ctx context.Context) bool {
	return true
}
