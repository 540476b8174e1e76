package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	quantityKeyPrefix = "quantity:"
	idempotencyKeyTTL = 24 * time.Hour
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisCache) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCache) SetQuantity(ctx context.Context, recordID string, quantity int) error {
	return r.client.Set(ctx, quantityKeyPrefix+recordID, quantity, 0).Err()
}

func (r *RedisCache) GetQuantity(ctx context.Context, recordID string) (int, bool, error) {
	quantity, err := r.client.Get(ctx, quantityKeyPrefix+recordID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return quantity, true, nil
}
