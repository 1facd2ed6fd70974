package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"stockpos/backend/internal/domain"
)

type RedisStockOverviewCache struct {
	client *redis.Client
}

func NewRedisStockOverviewCache(addr string, password string, db int) *RedisStockOverviewCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStockOverviewCache{client: client}
}

func (c *RedisStockOverviewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStockOverviewCache) Close() error {
	return c.client.Close()
}

func (c *RedisStockOverviewCache) Get(ctx context.Context, key string) (*domain.StockOverview, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var overview domain.StockOverview
	if err := json.Unmarshal([]byte(val), &overview); err != nil {
		return nil, false, err
	}
	return &overview, true, nil
}

func (c *RedisStockOverviewCache) Set(ctx context.Context, key string, value *domain.StockOverview, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisStockOverviewCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
