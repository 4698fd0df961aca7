package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/Social_Graph/internal/models"
	"github.com/redis/go-redis/v9"
)

const statusKeyPrefix = "status:user:"

// "none" marks a cached absence of status, so cleared statuses are cached too.
const noStatus = "none"

// RedisStatusCache shares cached statuses between server instances.
type RedisStatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStatusCache(client *redis.Client, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{client: client, ttl: ttl}
}

func (c *RedisStatusCache) Get(ctx context.Context, userID string) (*models.UserStatus, bool, error) {
	val, err := c.client.Get(ctx, statusKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached status of %s: %w", userID, err)
	}
	if val == noStatus {
		return nil, true, nil
	}
	var status models.UserStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached status of %s: %w", userID, err)
	}
	return &status, true, nil
}

func (c *RedisStatusCache) Set(ctx context.Context, userID string, status *models.UserStatus) error {
	val := noStatus
	if status != nil {
		b, err := json.Marshal(status)
		if err != nil {
			return err
		}
		val = string(b)
	}
	if err := c.client.Set(ctx, statusKeyPrefix+userID, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache status of %s: %w", userID, err)
	}
	return nil
}

func (c *RedisStatusCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, statusKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate status of %s: %w", userID, err)
	}
	return nil
}
