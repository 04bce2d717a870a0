package rtd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	"github.com/oxxion/rtd-server/logger"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "oxxion:rtd:context:"

// ContextRegistry remembers the latest video context seen for an ad-unit code.
// Entries expire after the configured TTL.
type ContextRegistry interface {
	Register(ctx context.Context, adUnitCode, videoContext string) error
	Lookup(ctx context.Context, adUnitCode string) (string, bool)
	Close() error
}

func newContextRegistry(cfg RegistryConfig) (ContextRegistry, error) {
	switch cfg.Backend {
	case "", backendMemory:
		return newMemoryRegistry(cfg.SizeBytes, cfg.TTLSeconds), nil
	case backendRedis:
		return newRedisRegistry(cfg.Redis, cfg.TTLSeconds), nil
	}
	return nil, fmt.Errorf("unknown registry backend %q", cfg.Backend)
}

// memoryRegistry is bounded by its size in bytes. Old entries are evicted once it is full.
type memoryRegistry struct {
	cache      *freecache.Cache
	ttlSeconds int
}

func newMemoryRegistry(sizeBytes, ttlSeconds int) *memoryRegistry {
	if sizeBytes <= 0 {
		sizeBytes = defaultRegistrySizeBytes
	}
	return &memoryRegistry{
		cache:      freecache.NewCache(sizeBytes),
		ttlSeconds: ttlSeconds,
	}
}

func (r *memoryRegistry) Register(_ context.Context, adUnitCode, videoContext string) error {
	return r.cache.Set([]byte(adUnitCode), []byte(videoContext), r.ttlSeconds)
}

func (r *memoryRegistry) Lookup(_ context.Context, adUnitCode string) (string, bool) {
	value, err := r.cache.Get([]byte(adUnitCode))
	if err != nil {
		return "", false
	}
	return string(value), true
}

func (r *memoryRegistry) Close() error {
	r.cache.Clear()
	return nil
}

// redisRegistry shares the registry between server instances.
type redisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisRegistry(cfg RedisConfig, ttlSeconds int) *redisRegistry {
	options := &redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Username: cfg.Username,
		Password: cfg.Password,
	}
	if cfg.TimeoutMs > 0 {
		timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
		options.DialTimeout = timeout
		options.ReadTimeout = timeout
		options.WriteTimeout = timeout
	}
	if cfg.TLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return &redisRegistry{
		client: redis.NewClient(options),
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}
}

func (r *redisRegistry) Register(ctx context.Context, adUnitCode, videoContext string) error {
	return r.client.Set(ctx, redisKeyPrefix+adUnitCode, videoContext, r.ttl).Err()
}

func (r *redisRegistry) Lookup(ctx context.Context, adUnitCode string) (string, bool) {
	value, err := r.client.Get(ctx, redisKeyPrefix+adUnitCode).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("oxxion.rtd: registry lookup for %s failed: %v", adUnitCode, err)
		}
		return "", false
	}
	return value, true
}

func (r *redisRegistry) Close() error {
	return r.client.Close()
}
