package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/retry"
)

// PredictionsChannel carries every accepted prediction event.
const PredictionsChannel = "healthcare:predictions"

// CacheService wraps an optional redis client. Every method is a no-op on a
// service without a client, so callers never need to check.
type CacheService struct {
	client *redis.Client
}

// NewCacheService connects to url. An empty url yields a disabled service.
// When redis cannot be reached the disabled service is returned along with
// the error, leaving the caller free to continue without a cache.
func NewCacheService(ctx context.Context, url string, log *zap.Logger) (*CacheService, error) {
	if url == "" {
		return &CacheService{}, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return &CacheService{}, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	err = retry.Do(ctx, retry.Startup, log, "redis", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = client.Close()
		return &CacheService{}, fmt.Errorf("redis ping: %w", err)
	}
	return &CacheService{client: client}, nil
}

// NewCacheServiceFromClient wraps an existing client; nil disables caching.
func NewCacheServiceFromClient(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

func (s *CacheService) Available() bool {
	return s != nil && s.client != nil
}

// Get decodes the cached value into dest. A miss leaves dest untouched and
// returns redis.Nil.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !s.Available() {
		return redis.Nil
	}
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Publish(ctx context.Context, channel string, message interface{}) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

// Subscribe returns nil when caching is disabled.
func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if !s.Available() {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

func (s *CacheService) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}
