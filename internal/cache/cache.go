package cache

import (
	"context"
	"time"

	"stockpos/backend/internal/domain"
)

// StockOverviewCache holds the per-store stock overview projection. Entries
// are invalidated by any write that moves stock, so a cached overview is at
// worst TTL-stale after an external write, never after a local one.
type StockOverviewCache interface {
	Get(ctx context.Context, key string) (*domain.StockOverview, bool, error)
	Set(ctx context.Context, key string, value *domain.StockOverview, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopStockOverviewCache struct{}

func (NoopStockOverviewCache) Get(_ context.Context, _ string) (*domain.StockOverview, bool, error) {
	return nil, false, nil
}

func (NoopStockOverviewCache) Set(_ context.Context, _ string, _ *domain.StockOverview, _ time.Duration) error {
	return nil
}

func (NoopStockOverviewCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
