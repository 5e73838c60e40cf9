package geocoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/demand-predictor/internal/logger"
	"github.com/OldStager01/demand-predictor/internal/metrics"
)

const (
	DefaultCacheTTL    = 24 * time.Hour
	DefaultCachePrefix = "geocode:reverse:"
)

// Cache stores resolved addresses. A cached empty string records that the
// provider had no address for the point.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedResolver consults the cache before the wrapped resolver. Cache
// errors are logged and otherwise ignored.
type CachedResolver struct {
	resolver Resolver
	cache    Cache
	ttl      time.Duration
	prefix   string
	metrics  *metrics.Metrics
}

type CachedResolverConfig struct {
	Resolver Resolver
	Cache    Cache
	TTL      time.Duration
	Prefix   string
	Metrics  *metrics.Metrics
}

func NewCachedResolver(cfg CachedResolverConfig) *CachedResolver {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultCachePrefix
	}
	return &CachedResolver{
		resolver: cfg.Resolver,
		cache:    cfg.Cache,
		ttl:      cfg.TTL,
		prefix:   cfg.Prefix,
		metrics:  cfg.Metrics,
	}
}

// CacheKey rounds to 5 decimals, roughly one metre.
func CacheKey(prefix string, lat, lng float64) string {
	return fmt.Sprintf("%s%.5f,%.5f", prefix, lat, lng)
}

func (r *CachedResolver) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	key := CacheKey(r.prefix, lat, lng)

	cached, found, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		logger.FromContext(ctx).WithField("key", key).Warnf("Geocode cache read failed: %v", err)
	case found:
		if r.metrics != nil {
			r.metrics.IncCacheHit()
		}
		if cached == "" {
			return "", ErrNoResult
		}
		return cached, nil
	}

	address, err := r.resolver.ReverseGeocode(ctx, lat, lng)
	if err != nil && !errors.Is(err, ErrNoResult) {
		return "", err
	}

	if setErr := r.cache.Set(ctx, key, address, r.ttl); setErr != nil {
		logger.FromContext(ctx).WithField("key", key).Warnf("Geocode cache write failed: %v", setErr)
	}

	return address, err
}
