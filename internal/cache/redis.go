package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"connect4engine/internal/config"
	"connect4engine/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores analysis results under plain string keys.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache accepts either a redis:// URL or a bare host:port.
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	opts := &redis.Options{Addr: cfg.Redis.URL, Password: cfg.Redis.Password}
	if strings.Contains(cfg.Redis.URL, "://") {
		parsed, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		if parsed.Password == "" {
			parsed.Password = cfg.Redis.Password
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Log.Info("Redis connected successfully")
	return &RedisCache{client: client}, nil
}

// Get reports a missing key as ok == false with no error.
func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
