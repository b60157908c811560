package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/infrastructure/metrics"
)

// DefaultCacheTTL applies to extraction, image and comparison results.
const DefaultCacheTTL = 24 * time.Hour

// resultCache stores JSON-encoded results under content-hash keys. A nil
// repository turns every lookup into a miss.
type resultCache struct {
	repo    domain.CacheRepository
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func newResultCache(repo domain.CacheRepository, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *resultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &resultCache{repo: repo, ttl: ttl, metrics: m, logger: logger}
}

// get decodes the entry at key into dst. namespace labels the metric.
func (c *resultCache) get(ctx context.Context, namespace, key string, dst any) bool {
	if c.repo == nil {
		return false
	}
	data, err := c.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.metrics.IncCache(namespace, false)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.repo.Delete(ctx, key)
		c.metrics.IncCache(namespace, false)
		return false
	}
	c.metrics.IncCache(namespace, true)
	return true
}

// set stores value; failures are only logged.
func (c *resultCache) set(ctx context.Context, key string, value any) {
	if c.repo == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.repo.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// hashKey builds "<prefix>:<sha256 hex>" over the given parts.
func hashKey(prefix string, parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}
