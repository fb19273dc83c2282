// Package cache provides the response cache stores used by gin-cache
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gincache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore is a persist.CacheStore backed by go-redis v9
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Set(key string, value any, expire time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value, %w", err)
	}

	return s.rdb.Set(context.Background(), key, payload, expire).Err()
}

func (s *RedisStore) Get(key string, value any) error {
	payload, err := s.rdb.Get(context.Background(), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return persist.ErrCacheMiss
		}
		return err
	}

	return json.Unmarshal(payload, value)
}

func (s *RedisStore) Delete(key string) error {
	return s.rdb.Del(context.Background(), key).Err()
}

// NewStore picks the redis store when a client is given, otherwise an in
// memory one
func NewStore(rdb *redis.Client) persist.CacheStore {
	if rdb == nil {
		return persist.NewMemoryStore(time.Minute)
	}

	return NewRedisStore(rdb)
}

// Feed versions the cached responses of one listing. Bumping it leaves every
// response cached under an older version unreachable. The version lives in
// the store itself so every instance sharing a redis store sees it.
type Feed struct {
	store persist.CacheStore
	name  string
	ttl   time.Duration
}

// NewFeed returns a feed caching responses for ttl. A ttl of zero turns
// caching off.
func NewFeed(store persist.CacheStore, name string, ttl time.Duration) *Feed {
	return &Feed{store: store, name: name, ttl: ttl}
}

func (f *Feed) versionKey() string {
	return "feed:" + f.name + ":version"
}

func (f *Feed) version() string {
	var v string
	if err := f.store.Get(f.versionKey(), &v); err != nil {
		return "0"
	}

	return v
}

// Key returns the cache key of uri under the current version
func (f *Feed) Key(uri string) string {
	return "feed:" + f.name + ":" + f.version() + ":" + uri
}

// Bump moves the feed to a new version. The version must outlive every
// response cached under it.
func (f *Feed) Bump() error {
	return f.store.Set(f.versionKey(), uuid.NewString(), f.ttl+24*time.Hour)
}

// Cache serves repeated requests from the store until the feed is bumped or
// the response expires
func (f *Feed) Cache() gin.HandlerFunc {
	if f.ttl <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return gincache.Cache(f.store, f.ttl, gincache.WithCacheStrategyByRequest(func(c *gin.Context) (bool, gincache.Strategy) {
		return true, gincache.Strategy{CacheKey: f.Key(c.Request.RequestURI)}
	}))
}

// Invalidate bumps the feed once the wrapped handler succeeded
func (f *Feed) Invalidate() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if s := c.Writer.Status(); s < 200 || s >= 300 {
			return
		}

		if err := f.Bump(); err != nil {
			zap.L().Error("Failed to invalidate cached listing",
				zap.String("feed", f.name),
				zap.Error(err),
				zap.String("requestID", c.GetString("requestID")),
			)
		}
	}
}
