package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/config"
	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client      *redis.Client
	capacityTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, capacityTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		capacityTTL: capacityTTL,
	}
}

// AcquireEventLock takes the per-event reservation lease. All reservation
// attempts for one event serialize behind it so capacity checks never race.
func (c *RedisCache) AcquireEventLock(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, eventLockKey(eventID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseEventLock(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, eventLockKey(eventID)).Err()
}

func (c *RedisCache) GetCapacity(ctx context.Context, eventID string) (*domain.CapacityStatus, error) {
	data, err := c.client.Get(ctx, capacityKey(eventID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var status domain.CapacityStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *RedisCache) SetCapacity(ctx context.Context, eventID string, status domain.CapacityStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, capacityKey(eventID), payload, c.capacityTTL).Err()
}

func (c *RedisCache) InvalidateCapacity(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, capacityKey(eventID)).Err()
}

func (c *RedisCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func eventLockKey(eventID string) string {
	return fmt.Sprintf("lock:event:%s", eventID)
}

func capacityKey(eventID string) string {
	return fmt.Sprintf("cache:capacity:%s", eventID)
}
