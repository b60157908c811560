package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Render backends.
const (
	RenderProxy   = "proxy"
	RenderBrowser = "browser"
	RenderNone    = "none"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Render     RenderConfig     `mapstructure:"render"`
	AI         AIConfig         `mapstructure:"ai"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Retailers  RetailersConfig  `mapstructure:"retailers"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// FetchConfig controls direct page fetching
type FetchConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	UserAgent      string        `mapstructure:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// RenderConfig selects and configures the JavaScript rendering backend
type RenderConfig struct {
	Backend        string        `mapstructure:"backend"` // "proxy", "browser" or "none"
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	CountryCode    string        `mapstructure:"country_code"`
	Premium        bool          `mapstructure:"premium"`
	RenderJS       bool          `mapstructure:"render_js"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialTimeout time.Duration `mapstructure:"initial_timeout"`
	TimeoutStep    time.Duration `mapstructure:"timeout_step"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
}

// AIConfig holds the OpenAI-compatible provider configuration. An empty APIKey disables AI.
type AIConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	VisionModel      string        `mapstructure:"vision_model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	HealthTTL        time.Duration `mapstructure:"health_ttl"`
	HTMLExcerptChars int           `mapstructure:"html_excerpt_chars"`
	RateLimit        float64       `mapstructure:"rate_limit"`
	RateBurst        int           `mapstructure:"rate_burst"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type       string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL   string        `mapstructure:"redis_url"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// MatchingConfig holds duplicate and similarity thresholds
type MatchingConfig struct {
	SimilarThreshold   float64 `mapstructure:"similar_threshold"`
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold"`
	ExactThreshold     float64 `mapstructure:"exact_threshold"`
	MaxCandidates      int     `mapstructure:"max_candidates"`
}

// RetailersConfig points at optional retailer profile overrides
type RetailersConfig struct {
	ProfilesFile string `mapstructure:"profiles_file"`
}

// ExtractionConfig tunes the extraction pipeline
type ExtractionConfig struct {
	BatchConcurrency int  `mapstructure:"batch_concurrency"`
	EnrichWithAI     bool `mapstructure:"enrich_with_ai"`
}

// AIEnabled reports whether an AI provider is configured.
func (c *Config) AIEnabled() bool {
	return c.AI.APIKey != ""
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/notwins/")

	// NOTWINS_RENDER_API_KEY -> render.api_key
	v.SetEnvPrefix("NOTWINS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a local .env file into the process environment.
// Variables that are already set are left untouched.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return gotenv.Load(".env")
}

// setDefaults sets default configuration values. Every key needs a default,
// even an empty one, for AutomaticEnv to be consulted during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("log.level", "info")

	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.retry_backoff", "500ms")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	v.SetDefault("fetch.accept_language", "es-ES,es;q=0.9,en;q=0.8")
	v.SetDefault("fetch.rate_limit", 5.0)
	v.SetDefault("fetch.rate_burst", 10)
	v.SetDefault("fetch.max_body_bytes", 5<<20)

	v.SetDefault("render.backend", RenderProxy)
	v.SetDefault("render.base_url", "https://app.scrapingbee.com/api/v1/")
	v.SetDefault("render.api_key", "")
	v.SetDefault("render.country_code", "es")
	v.SetDefault("render.premium", false)
	v.SetDefault("render.render_js", true)
	v.SetDefault("render.max_attempts", 3)
	v.SetDefault("render.initial_timeout", "20s")
	v.SetDefault("render.timeout_step", "10s")
	v.SetDefault("render.retry_backoff", "1s")
	v.SetDefault("render.browser_timeout", "45s")

	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.vision_model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.max_retries", 2)
	v.SetDefault("ai.health_ttl", "5m")
	v.SetDefault("ai.html_excerpt_chars", 1500)
	v.SetDefault("ai.rate_limit", 2.0)
	v.SetDefault("ai.rate_burst", 4)

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 10000)

	v.SetDefault("matching.similar_threshold", 0.6)
	v.SetDefault("matching.duplicate_threshold", 0.7)
	v.SetDefault("matching.exact_threshold", 0.9)
	v.SetDefault("matching.max_candidates", 25)

	v.SetDefault("retailers.profiles_file", "")

	v.SetDefault("extraction.batch_concurrency", 4)
	v.SetDefault("extraction.enrich_with_ai", true)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	switch config.Render.Backend {
	case RenderProxy:
		if config.Render.APIKey == "" {
			return fmt.Errorf("render API key is required when render backend is 'proxy' (set NOTWINS_RENDER_API_KEY or NOTWINS_RENDER_BACKEND=none)")
		}
		if config.Render.BaseURL == "" {
			return fmt.Errorf("render base URL is required when render backend is 'proxy'")
		}
	case RenderBrowser, RenderNone:
	default:
		return fmt.Errorf("render backend must be 'proxy', 'browser' or 'none', got: %s", config.Render.Backend)
	}

	m := config.Matching
	for name, value := range map[string]float64{
		"similar_threshold":   m.SimilarThreshold,
		"duplicate_threshold": m.DuplicateThreshold,
		"exact_threshold":     m.ExactThreshold,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("matching.%s must be within 0..1, got: %v", name, value)
		}
	}
	if m.SimilarThreshold > m.DuplicateThreshold || m.DuplicateThreshold > m.ExactThreshold {
		return fmt.Errorf("matching thresholds must satisfy similar <= duplicate <= exact")
	}

	if config.Extraction.BatchConcurrency < 1 {
		return fmt.Errorf("extraction.batch_concurrency must be at least 1")
	}

	return nil
}
