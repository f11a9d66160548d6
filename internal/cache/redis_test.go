package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func newMockedCache(t *testing.T) (*RedisCache, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	return &RedisCache{client: client, capacityTTL: 10 * time.Second}, mock
}

func TestRedisCache_AcquireEventLock(t *testing.T) {
	cache, mock := newMockedCache(t)
	ctx := context.Background()

	mock.ExpectSetNX("lock:event:event-1", "locked", 5*time.Second).SetVal(true)

	ok, err := cache.AcquireEventLock(ctx, "event-1", 5*time.Second)

	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_AcquireEventLock_Held(t *testing.T) {
	cache, mock := newMockedCache(t)
	ctx := context.Background()

	mock.ExpectSetNX("lock:event:event-1", "locked", 5*time.Second).SetVal(false)

	ok, err := cache.AcquireEventLock(ctx, "event-1", 5*time.Second)

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ReleaseEventLock(t *testing.T) {
	cache, mock := newMockedCache(t)
	ctx := context.Background()

	mock.ExpectDel("lock:event:event-1").SetVal(1)

	assert.NoError(t, cache.ReleaseEventLock(ctx, "event-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetCapacity_Hit(t *testing.T) {
	cache, mock := newMockedCache(t)
	ctx := context.Background()

	stored := domain.CapacityStatus{Capacity: 50, Active: 10, Available: 40, IsFull: false}
	payload, err := json.Marshal(stored)
	assert.NoError(t, err)

	mock.ExpectGet("cache:capacity:event-1").SetVal(string(payload))

	status, err := cache.GetCapacity(ctx, "event-1")

	assert.NoError(t, err)
	assert.Equal(t, &stored, status)
}

func TestRedisCache_GetCapacity_Miss(t *testing.T) {
	cache, mock := newMockedCache(t)
	ctx := context.Background()

	mock.ExpectGet("cache:capacity:event-1").RedisNil()

	status, err := cache.GetCapacity(ctx, "event-1")

	assert.NoError(t, err)
	assert.Nil(t, status)
}

func TestRedisCache_SetCapacity(t *testing.T) {
	cache, mock := newMockedCache(t)
	ctx := context.Background()

	status := domain.CapacityStatus{Capacity: 50, Active: 50, Available: 0, IsFull: true}
	payload, err := json.Marshal(status)
	assert.NoError(t, err)

	mock.ExpectSet("cache:capacity:event-1", payload, 10*time.Second).SetVal("OK")

	assert.NoError(t, cache.SetCapacity(ctx, "event-1", status))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_InvalidateCapacity(t *testing.T) {
	cache, mock := newMockedCache(t)
	ctx := context.Background()

	mock.ExpectDel("cache:capacity:event-1").SetVal(1)

	assert.NoError(t, cache.InvalidateCapacity(ctx, "event-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
