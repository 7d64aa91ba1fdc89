package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ekrukov/slotbooking/config"
	"github.com/ekrukov/slotbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client      *redis.Client
	servicesTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, servicesTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		servicesTTL: servicesTTL,
	}
}

func (c *RedisCache) GetActiveServices(ctx context.Context) ([]domain.Service, error) {
	data, err := c.client.Get(ctx, servicesKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var services []domain.Service
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, err
	}
	return services, nil
}

func (c *RedisCache) SetActiveServices(ctx context.Context, services []domain.Service) error {
	payload, err := json.Marshal(services)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, servicesKey(), payload, c.servicesTTL).Err()
}

// InvalidateActiveServices drops the cached list after a catalog mutation.
func (c *RedisCache) InvalidateActiveServices(ctx context.Context) error {
	return c.client.Del(ctx, servicesKey()).Err()
}

// AcquireSlotLock takes a short-lived exclusive hold on a service slot while
// the conflict check and insert are in flight.
func (c *RedisCache) AcquireSlotLock(ctx context.Context, serviceID int64, start time.Time, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, slotLockKey(serviceID, start), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseSlotLock(ctx context.Context, serviceID int64, start time.Time) error {
	return c.client.Del(ctx, slotLockKey(serviceID, start)).Err()
}

func servicesKey() string {
	return "cache:services:active"
}

func slotLockKey(serviceID int64, start time.Time) string {
	return fmt.Sprintf("lock:service:%d:slot:%d", serviceID, start.Unix())
}
