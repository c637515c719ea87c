package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/snupai/shortlink/internal/model"
)

const (
	// LinkPrefix is the prefix for link snapshot keys in Redis
	LinkPrefix = "link:slug:"
	// DefaultTTL is used when a non-positive TTL is configured
	DefaultTTL = 10 * time.Minute
)

// RedisCache wraps the Redis client
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(addr, password string, db, poolSize int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// GetLink returns the cached snapshot for slug; nil on a miss
func (r *RedisCache) GetLink(ctx context.Context, slug string) (*model.Link, error) {
	val, err := r.client.Get(ctx, LinkPrefix+slug).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from Redis: %w", err)
	}

	var link model.Link
	if err := json.Unmarshal(val, &link); err != nil {
		return nil, fmt.Errorf("failed to decode cached link: %w", err)
	}
	return &link, nil
}

// SetLink stores a snapshot of link under its slug
func (r *RedisCache) SetLink(ctx context.Context, link *model.Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to encode link: %w", err)
	}
	if err := r.client.Set(ctx, LinkPrefix+link.Slug, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in Redis: %w", err)
	}
	return nil
}

// Delete removes a slug from cache
func (r *RedisCache) Delete(ctx context.Context, slug string) error {
	if err := r.client.Del(ctx, LinkPrefix+slug).Err(); err != nil {
		return fmt.Errorf("failed to delete from Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// GetClient returns the underlying Redis client
func (r *RedisCache) GetClient() *redis.Client {
	return r.client
}
