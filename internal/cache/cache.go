package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// Cache stores serialized fact-check verdicts
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

const keyPrefix = "truthseeker:v1:"

// CacheKey builds the key for a statement and its optional context.
// Case and runs of whitespace do not change the key.
func CacheKey(statement, context string) string {
	norm := normalize(statement) + "\x00" + normalize(context)
	hash := sha256.Sum256([]byte(norm))
	return keyPrefix + hex.EncodeToString(hash[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// New picks a backend from configuration: memory plus redis when a redis URL
// is set, memory plus disk when a directory is set, memory alone otherwise.
// A nil Cache is returned when caching is disabled.
func New(ctx context.Context, cfg model.CacheConfig, logger *zap.Logger) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	memory := NewMemoryCache(cfg.TTL, cfg.CleanupInterval)

	switch {
	case cfg.RedisURL != "":
		redisCache, err := NewRedisCache(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			logger.Warn("redis unavailable, using memory cache only", zap.Error(err))
			return memory, nil
		}
		logger.Info("cache: memory + redis", zap.Duration("ttl", cfg.TTL))
		return NewLayeredCache(memory, redisCache), nil
	case cfg.Dir != "":
		logger.Info("cache: memory + disk", zap.String("dir", cfg.Dir), zap.Duration("ttl", cfg.TTL))
		return NewLayeredCache(memory, NewDiskCache(cfg.Dir, cfg.TTL)), nil
	default:
		logger.Info("cache: memory", zap.Duration("ttl", cfg.TTL))
		return memory, nil
	}
}
