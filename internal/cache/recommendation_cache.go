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
	recommendationKeyPrefix     = "recommendations:list"
	recommendationScanBatchSize = 100
)

// RecommendationCache fronts the tenant-level recommendation listing, the
// heaviest dashboard query. Batch runs invalidate the tenant after upserts.
type RecommendationCache interface {
	GetList(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]domain.Recommendation, bool, error)
	SetList(ctx context.Context, tenantID uuid.UUID, date time.Time, recs []domain.Recommendation) error
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error
}

type redisRecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRecommendationCache struct{}

// NewRecommendationCache returns a redis-backed cache, or a noop one when
// caching is disabled.
func NewRecommendationCache(cfg config.CacheConfig) (RecommendationCache, error) {
	if !cfg.Enabled {
		return &noopRecommendationCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisRecommendationCache{client: client, ttl: ttl}, nil
}

func NewNoopRecommendationCache() RecommendationCache {
	return &noopRecommendationCache{}
}

func (c *redisRecommendationCache) GetList(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]domain.Recommendation, bool, error) {
	payload, err := c.client.Get(ctx, recommendationListKey(tenantID, date)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var recs []domain.Recommendation
	if err := json.Unmarshal(payload, &recs); err != nil {
		return nil, false, fmt.Errorf("decode recommendation cache: %w", err)
	}
	return recs, true, nil
}

func (c *redisRecommendationCache) SetList(ctx context.Context, tenantID uuid.UUID, date time.Time, recs []domain.Recommendation) error {
	payload, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode recommendation cache: %w", err)
	}

	if err := c.client.Set(ctx, recommendationListKey(tenantID, date), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRecommendationCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	prefix := fmt.Sprintf("%s:%s", recommendationKeyPrefix, tenantID)
	return deleteKeysWithPrefix(ctx, c.client, prefix, recommendationScanBatchSize)
}

func (n *noopRecommendationCache) GetList(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]domain.Recommendation, bool, error) {
	return nil, false, nil
}

func (n *noopRecommendationCache) SetList(ctx context.Context, tenantID uuid.UUID, date time.Time, recs []domain.Recommendation) error {
	return nil
}

func (n *noopRecommendationCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	return nil
}

func recommendationListKey(tenantID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s:%s:%s", recommendationKeyPrefix, tenantID, date.Format("2006-01-02"))
}
