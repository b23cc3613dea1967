package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/productlens/backend/internal/domain"
	"github.com/productlens/backend/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// Token accounting heuristics for TokensSavedEstimate
const (
	charsPerToken        = 4
	upstreamPromptTokens = 800 // Typical assistant turn avoided by a hit
)

// ResponseCache memoizes discovery results as JSON-encoded CacheEntry values
// on top of any byte store. It implements domain.ResponseCache.
type ResponseCache struct {
	store  domain.CacheRepository
	logger *zap.Logger
	now    func() time.Time

	hits        atomic.Int64
	misses      atomic.Int64
	tokensSaved atomic.Int64
}

// NewResponseCache creates a response cache over store
func NewResponseCache(store domain.CacheRepository, logger *zap.Logger) *ResponseCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseCache{store: store, logger: logger, now: time.Now}
}

// Get returns the cached products for key. Expired and undecodable entries are misses.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]domain.Product, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.Warn("Response cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.recordMiss("miss")
		return nil, false
	}

	entry, err := decodeEntry(data, key)
	if err != nil {
		c.logger.Warn("Dropping corrupted cache entry", zap.String("key", key), zap.Error(err))
		_ = c.store.Delete(ctx, key)
		c.recordMiss("corrupted")
		return nil, false
	}

	if entry.Expired(c.now()) {
		_ = c.store.Delete(ctx, key)
		c.recordMiss("expired")
		return nil, false
	}

	c.hits.Add(1)
	c.tokensSaved.Add(int64(entry.TokensSavedEstimate))
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	metrics.CacheTokensSaved.Add(float64(entry.TokensSavedEstimate))

	return entry.Payload, true
}

// Set stores products under key for ttl. Failures are logged, never returned.
func (c *ResponseCache) Set(ctx context.Context, key string, products []domain.Product, ttl time.Duration) {
	payload := make([]domain.Product, len(products))
	copy(payload, products)

	entry := domain.CacheEntry{
		Key:       key,
		Payload:   payload,
		CreatedAt: c.now(),
		TTL:       ttl,
	}
	if body, err := json.Marshal(payload); err == nil {
		entry.TokensSavedEstimate = len(body)/charsPerToken + upstreamPromptTokens
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("Response cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear removes every cached response
func (c *ResponseCache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Stats reports size, hit rate and tokens saved
func (c *ResponseCache) Stats(ctx context.Context) domain.CacheStats {
	size, err := c.store.Size(ctx)
	if err != nil {
		c.logger.Warn("Response cache size unavailable", zap.Error(err))
	}

	hits := c.hits.Load()
	misses := c.misses.Load()
	stats := domain.CacheStats{
		Size:        size,
		Hits:        hits,
		Misses:      misses,
		TokensSaved: c.tokensSaved.Load(),
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

func (c *ResponseCache) recordMiss(result string) {
	c.misses.Add(1)
	metrics.CacheLookups.WithLabelValues(result).Inc()
}

func decodeEntry(data []byte, key string) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, errors.Join(domain.ErrCacheCorrupted, err)
	}
	if entry.Key != key || entry.Payload == nil {
		return nil, domain.ErrCacheCorrupted
	}
	return &entry, nil
}
