package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no config.yaml or .env is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(originalDir) })
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("NOTWINS_RENDER_API_KEY", "test-key")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "development", cfg.Server.Environment)
		assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)

		assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
		assert.Equal(t, 2, cfg.Fetch.MaxRetries)
		assert.Equal(t, 500*time.Millisecond, cfg.Fetch.RetryBackoff)
		assert.Equal(t, "es-ES,es;q=0.9,en;q=0.8", cfg.Fetch.AcceptLanguage)
		assert.Equal(t, int64(5<<20), cfg.Fetch.MaxBodyBytes)

		assert.Equal(t, RenderProxy, cfg.Render.Backend)
		assert.Equal(t, "test-key", cfg.Render.APIKey)
		assert.Equal(t, "es", cfg.Render.CountryCode)
		assert.True(t, cfg.Render.RenderJS)
		assert.Equal(t, 3, cfg.Render.MaxAttempts)
		assert.Equal(t, 20*time.Second, cfg.Render.InitialTimeout)
		assert.Equal(t, 10*time.Second, cfg.Render.TimeoutStep)
		assert.Equal(t, 45*time.Second, cfg.Render.BrowserTimeout)

		assert.Empty(t, cfg.AI.APIKey)
		assert.False(t, cfg.AIEnabled())
		assert.Equal(t, 1500, cfg.AI.HTMLExcerptChars)
		assert.Equal(t, 5*time.Minute, cfg.AI.HealthTTL)

		assert.Equal(t, "memory", cfg.Cache.Type)
		assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
		assert.Equal(t, 10000, cfg.Cache.MaxEntries)

		assert.InDelta(t, 0.6, cfg.Matching.SimilarThreshold, 1e-9)
		assert.InDelta(t, 0.7, cfg.Matching.DuplicateThreshold, 1e-9)
		assert.InDelta(t, 0.9, cfg.Matching.ExactThreshold, 1e-9)
		assert.Equal(t, 25, cfg.Matching.MaxCandidates)

		assert.Equal(t, 4, cfg.Extraction.BatchConcurrency)
		assert.True(t, cfg.Extraction.EnrichWithAI)
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("NOTWINS_SERVER_PORT", "9090")
		t.Setenv("NOTWINS_SERVER_ENVIRONMENT", "production")
		t.Setenv("NOTWINS_RENDER_BACKEND", "browser")
		t.Setenv("NOTWINS_AI_API_KEY", "sk-test")
		t.Setenv("NOTWINS_AI_MODEL", "gpt-4.1-mini")
		t.Setenv("NOTWINS_CACHE_TYPE", "redis")
		t.Setenv("NOTWINS_CACHE_REDIS_URL", "redis://localhost:6379")
		t.Setenv("NOTWINS_CACHE_TTL", "1h")
		t.Setenv("NOTWINS_MATCHING_DUPLICATE_THRESHOLD", "0.8")
		t.Setenv("NOTWINS_EXTRACTION_BATCH_CONCURRENCY", "8")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "production", cfg.Server.Environment)
		assert.Equal(t, RenderBrowser, cfg.Render.Backend)
		assert.Equal(t, "sk-test", cfg.AI.APIKey)
		assert.True(t, cfg.AIEnabled())
		assert.Equal(t, "gpt-4.1-mini", cfg.AI.Model)
		assert.Equal(t, "redis", cfg.Cache.Type)
		assert.Equal(t, "redis://localhost:6379", cfg.Cache.RedisURL)
		assert.Equal(t, time.Hour, cfg.Cache.TTL)
		assert.InDelta(t, 0.8, cfg.Matching.DuplicateThreshold, 1e-9)
		assert.Equal(t, 8, cfg.Extraction.BatchConcurrency)
	})

	t.Run("reads yaml config file", func(t *testing.T) {
		chdirTemp(t)
		content := `
server:
  port: "7070"
render:
  backend: none
retailers:
  profiles_file: ./retailers.yaml
`
		require.NoError(t, os.WriteFile("config.yaml", []byte(content), 0o644))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "7070", cfg.Server.Port)
		assert.Equal(t, RenderNone, cfg.Render.Backend)
		assert.Equal(t, "./retailers.yaml", cfg.Retailers.ProfilesFile)
	})

	t.Run("fails validation when render API key is missing", func(t *testing.T) {
		chdirTemp(t)

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "render API key is required")
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("NOTWINS_RENDER_BACKEND", "none")
		t.Setenv("NOTWINS_CACHE_TYPE", "invalid")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails validation when redis URL missing for redis cache", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("NOTWINS_RENDER_BACKEND", "none")
		t.Setenv("NOTWINS_CACHE_TYPE", "redis")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		chdirTemp(t)
		assert.NoError(t, loadEnvFile())
	})

	t.Run("loads variables from .env file", func(t *testing.T) {
		chdirTemp(t)
		envContent := `
# Comment line
NOTWINS_TEST_VAR_1=value1
NOTWINS_TEST_VAR_2=value2
`
		require.NoError(t, os.WriteFile(".env", []byte(envContent), 0o644))
		t.Cleanup(func() {
			os.Unsetenv("NOTWINS_TEST_VAR_1")
			os.Unsetenv("NOTWINS_TEST_VAR_2")
		})

		require.NoError(t, loadEnvFile())
		assert.Equal(t, "value1", os.Getenv("NOTWINS_TEST_VAR_1"))
		assert.Equal(t, "value2", os.Getenv("NOTWINS_TEST_VAR_2"))
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("NOTWINS_TEST_OVERRIDE", "existing-value")
		require.NoError(t, os.WriteFile(".env", []byte("NOTWINS_TEST_OVERRIDE=new-value"), 0o644))

		require.NoError(t, loadEnvFile())
		assert.Equal(t, "existing-value", os.Getenv("NOTWINS_TEST_OVERRIDE"))
	})

	t.Run("Load picks up the render key from .env", func(t *testing.T) {
		chdirTemp(t)
		require.NoError(t, os.WriteFile(".env", []byte("NOTWINS_RENDER_API_KEY=from-dotenv"), 0o644))
		t.Cleanup(func() { os.Unsetenv("NOTWINS_RENDER_API_KEY") })

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", cfg.Render.APIKey)
	})
}

func validConfig() *Config {
	return &Config{
		Render:     RenderConfig{Backend: RenderNone},
		Cache:      CacheConfig{Type: "memory"},
		Matching:   MatchingConfig{SimilarThreshold: 0.6, DuplicateThreshold: 0.7, ExactThreshold: 0.9},
		Extraction: ExtractionConfig{BatchConcurrency: 4},
	}
}

func TestValidate(t *testing.T) {
	t.Run("validates successfully with all required fields", func(t *testing.T) {
		assert.NoError(t, validate(validConfig()))
	})

	t.Run("validates redis cache type with URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache = CacheConfig{Type: "redis", RedisURL: "redis://localhost:6379"}
		assert.NoError(t, validate(cfg))
	})

	t.Run("validates proxy backend with key and base URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.Render = RenderConfig{Backend: RenderProxy, APIKey: "k", BaseURL: "https://proxy.example"}
		assert.NoError(t, validate(cfg))
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid cache type", func(c *Config) { c.Cache.Type = "invalid-type" }},
		{"redis cache without URL", func(c *Config) { c.Cache.Type = "redis" }},
		{"unknown render backend", func(c *Config) { c.Render.Backend = "selenium" }},
		{"proxy without API key", func(c *Config) { c.Render = RenderConfig{Backend: RenderProxy, BaseURL: "https://proxy.example"} }},
		{"proxy without base URL", func(c *Config) { c.Render = RenderConfig{Backend: RenderProxy, APIKey: "k"} }},
		{"threshold above one", func(c *Config) { c.Matching.ExactThreshold = 1.5 }},
		{"negative threshold", func(c *Config) { c.Matching.SimilarThreshold = -0.1 }},
		{"unordered thresholds", func(c *Config) { c.Matching.DuplicateThreshold = 0.95 }},
		{"zero batch concurrency", func(c *Config) { c.Extraction.BatchConcurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run("fails for "+tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, validate(cfg))
		})
	}
}
