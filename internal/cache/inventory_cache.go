package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stockpilot/stockpilot/internal/config"
	"github.com/stockpilot/stockpilot/internal/domain"
)

const (
	inventoryStatusKeyPrefix = "inventory:status"
	inventoryScanBatchSize   = 100
)

// InventoryCache fronts the snapshot reads that back dashboard status
// endpoints. Movement writers invalidate the touched product.
type InventoryCache interface {
	GetStatus(ctx context.Context, productID uuid.UUID) (*domain.InventoryStatus, bool, error)
	SetStatus(ctx context.Context, status *domain.InventoryStatus) error
	InvalidateProduct(ctx context.Context, productID uuid.UUID) error
	InvalidateAll(ctx context.Context) error
}

type redisInventoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopInventoryCache struct{}

// NewInventoryCache returns a redis-backed cache, or a noop one when
// caching is disabled.
func NewInventoryCache(cfg config.CacheConfig) (InventoryCache, error) {
	if !cfg.Enabled {
		return &noopInventoryCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisInventoryCache{client: client, ttl: ttl}, nil
}

func NewNoopInventoryCache() InventoryCache {
	return &noopInventoryCache{}
}

func (c *redisInventoryCache) GetStatus(ctx context.Context, productID uuid.UUID) (*domain.InventoryStatus, bool, error) {
	payload, err := c.client.Get(ctx, inventoryStatusKey(productID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var status domain.InventoryStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, false, fmt.Errorf("decode inventory status cache: %w", err)
	}
	return &status, true, nil
}

func (c *redisInventoryCache) SetStatus(ctx context.Context, status *domain.InventoryStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode inventory status cache: %w", err)
	}

	if err := c.client.Set(ctx, inventoryStatusKey(status.ProductID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisInventoryCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	return c.client.Del(ctx, inventoryStatusKey(productID)).Err()
}

func (c *redisInventoryCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, inventoryStatusKeyPrefix, inventoryScanBatchSize)
}

func (n *noopInventoryCache) GetStatus(ctx context.Context, productID uuid.UUID) (*domain.InventoryStatus, bool, error) {
	return nil, false, nil
}

func (n *noopInventoryCache) SetStatus(ctx context.Context, status *domain.InventoryStatus) error {
	return nil
}

func (n *noopInventoryCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	return nil
}

func (n *noopInventoryCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func inventoryStatusKey(productID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", inventoryStatusKeyPrefix, productID)
}
