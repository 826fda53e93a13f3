package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRepository generic key/value cache on redis
type RedisRepository[T any] interface {
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Get(ctx context.Context, key string) (T, error)
	Del(ctx context.Context, key string) error
	GetTTL(ctx context.Context, key string) (int, error)
	ExtendTTL(ctx context.Context, key string, ttl time.Duration) error
}

type redisRepository[T any] struct {
	client *redis.Client
}

// NewRedisClient init Redis Sentinel connection
func NewRedisClient(masterName string, sentinelAddrs []string, db int) (*redis.Client, error) {
	rdb := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:    masterName,
		SentinelAddrs: sentinelAddrs,
		Password:      "",
		DB:            db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis sentinel: %w", err)
	}

	return rdb, nil
}

// NewRedisRepository init Redis repository over an existing client
func NewRedisRepository[T any](client *redis.Client) RedisRepository[T] {
	return &redisRepository[T]{client: client}
}

func (r *redisRepository[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisRepository[T]) Get(ctx context.Context, key string) (T, error) {
	var zeroValue T
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return zeroValue, fmt.Errorf("redis.Nil")
	} else if err != nil {
		return zeroValue, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	var result T
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return zeroValue, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return result, nil
}

func (r *redisRepository[T]) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisRepository[T]) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *redisRepository[T]) GetTTL(ctx context.Context, key string) (int, error) {
	ttl, err := r.client.TTL(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to get TTL for key %s: %w", key, err)
	}

	if ttl < 0 {
		return 0, nil
	}

	return int(ttl.Seconds()), nil
}
