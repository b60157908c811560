package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notwins/backend/config"
	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/infrastructure/cache"
	"github.com/notwins/backend/internal/infrastructure/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Render: config.RenderConfig{Backend: config.RenderNone},
		Cache:  config.CacheConfig{Type: "memory", MaxEntries: 100},
		AI:     config.AIConfig{BaseURL: "http://127.0.0.1:1", Model: "test-model"},
	}
}

func build(t *testing.T, cfg *config.Config) *Providers {
	t.Helper()
	p, err := NewFactory(cfg, metrics.New(), zap.NewNop()).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestFactory_MemoryCacheWithoutOptionalBackends(t *testing.T) {
	p := build(t, testConfig())

	assert.IsType(t, &cache.MemoryCache{}, p.Cache)
	assert.NotNil(t, p.Fetcher)
	assert.NotNil(t, p.Registry)
	assert.Nil(t, p.Renderer)
	assert.Nil(t, p.Interpreter)
	assert.False(t, p.AIClient.Enabled())
}

func TestFactory_AIEnabledBuildsInterpreter(t *testing.T) {
	cfg := testConfig()
	cfg.AI.APIKey = "sk-test"

	p := build(t, cfg)
	assert.NotNil(t, p.Interpreter)
	assert.True(t, p.AIClient.Enabled())
}

func TestFactory_RenderBackends(t *testing.T) {
	cfg := testConfig()
	cfg.Render = config.RenderConfig{Backend: config.RenderProxy, BaseURL: "https://proxy.example/api", APIKey: "k"}
	p := build(t, cfg)
	require.NotNil(t, p.Renderer)
	assert.Equal(t, "proxy", p.Renderer.Name())

	cfg = testConfig()
	cfg.Render = config.RenderConfig{Backend: config.RenderBrowser}
	p = build(t, cfg)
	require.NotNil(t, p.Renderer)
	assert.Equal(t, "browser", p.Renderer.Name())
}

func TestFactory_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Cache = config.CacheConfig{Type: "redis", RedisURL: "redis://" + mr.Addr()}

	p := build(t, cfg)
	assert.IsType(t, &cache.RedisCache{}, p.Cache)
}

func TestFactory_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Cache = config.CacheConfig{Type: "redis", RedisURL: "redis://127.0.0.1:1"}

	_, err := NewFactory(cfg, nil, nil).Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

func TestFactory_ProfilesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retailers.yaml")
	content := `
retailers:
  - name: boutique
    hosts: ["boutique.example"]
    default_brand: Boutique
    selectors:
      name: ["h1.title"]
      image: ["img.main"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := testConfig()
	cfg.Retailers.ProfilesFile = path
	p := build(t, cfg)

	profile := p.Registry.Lookup("https://boutique.example/p/1")
	assert.Equal(t, "boutique", profile.Name)
	assert.Equal(t, "Boutique", profile.DefaultBrand)
}

func TestFactory_MissingProfilesFile(t *testing.T) {
	cfg := testConfig()
	cfg.Retailers.ProfilesFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewFactory(cfg, nil, nil).Build(context.Background())
	assert.Error(t, err)
}

func TestProviders_CloseIsIdempotent(t *testing.T) {
	p, err := NewFactory(testConfig(), nil, nil).Build(context.Background())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}
