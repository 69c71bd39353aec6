package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/storefront/internal/domain/cart"
)

// RedisCartStore implements cart.Repository on Redis. Carts are stored as
// JSON under cart:user:<owner>; merge tokens get their own short-lived keys.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient initializes and returns a Redis client.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Println("[Store] Connected to Redis")
	return client, nil
}

// NewRedisCartStore wraps a Redis client. ttl <= 0 keeps carts forever.
func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{client: client, ttl: ttl}
}

func (s *RedisCartStore) cartKey(ownerID string) string {
	return "cart:user:" + ownerID
}

func (s *RedisCartStore) tokenKey(ownerID, token string) string {
	return "cart:merge:" + ownerID + ":" + token
}

func (s *RedisCartStore) Get(ctx context.Context, ownerID string) (*cart.Cart, error) {
	data, err := s.client.Get(ctx, s.cartKey(ownerID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var c cart.Cart
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart: %w", err)
	}
	return &c, nil
}

func (s *RedisCartStore) Save(ctx context.Context, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	if err := s.client.Set(ctx, s.cartKey(c.OwnerID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *RedisCartStore) Delete(ctx context.Context, ownerID string) error {
	if err := s.client.Del(ctx, s.cartKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (s *RedisCartStore) SeenMergeToken(ctx context.Context, ownerID, token string) (bool, error) {
	_, err := s.client.Get(ctx, s.tokenKey(ownerID, token)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check merge token: %w", err)
	}
	return true, nil
}

func (s *RedisCartStore) RecordMergeToken(ctx context.Context, ownerID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.tokenKey(ownerID, token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to record merge token: %w", err)
	}
	return nil
}
