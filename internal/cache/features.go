// Package cache keeps entitlement lookups out of the database on hot paths.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"paycanvas.org/internal/auth"
)

const (
	// DefaultTTL bounds how stale a cached entitlement list can be.
	DefaultTTL = 5 * time.Minute

	keyPrefix = "paycanvas:features:"
	allKey    = keyPrefix + "all"
)

// Features is a read-through Redis cache in front of an auth.FeatureStore.
// Redis failures fall back to the backing store.
type Features struct {
	client *redis.Client
	next   auth.FeatureStore
	ttl    time.Duration
	logger *zap.Logger
}

var _ auth.FeatureStore = (*Features)(nil)

func NewFeatures(client *redis.Client, next auth.FeatureStore, ttl time.Duration, logger *zap.Logger) *Features {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Features{client: client, next: next, ttl: ttl, logger: logger}
}

func (f *Features) AllKeys(ctx context.Context) ([]string, error) {
	return f.cached(ctx, allKey, func() ([]string, error) {
		return f.next.AllKeys(ctx)
	})
}

func (f *Features) EnabledKeys(ctx context.Context, tenantID string) ([]string, error) {
	return f.cached(ctx, tenantKey(tenantID), func() ([]string, error) {
		return f.next.EnabledKeys(ctx, tenantID)
	})
}

// Invalidate drops the cached list of tenantID.
func (f *Features) Invalidate(ctx context.Context, tenantID string) error {
	return f.client.Del(ctx, tenantKey(tenantID)).Err()
}

func (f *Features) cached(ctx context.Context, key string, load func() ([]string, error)) ([]string, error) {
	raw, err := f.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var keys []string
		if jerr := json.Unmarshal(raw, &keys); jerr == nil {
			return keys, nil
		}
		f.logger.Warn("discarding malformed cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		f.logger.Warn("feature cache read failed", zap.String("key", key), zap.Error(err))
	}

	keys, err := load()
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return keys, nil
	}
	if err := f.client.Set(ctx, key, data, f.ttl).Err(); err != nil {
		f.logger.Warn("feature cache write failed", zap.String("key", key), zap.Error(err))
	}
	return keys, nil
}

func tenantKey(tenantID string) string {
	return keyPrefix + "tenant:" + tenantID
}

// Ping reports whether Redis is reachable.
func (f *Features) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}
