package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stockpilot/stockpilot/internal/batch"
	"github.com/stockpilot/stockpilot/internal/cache"
	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/repository"
)

// RecommendationService serves stored recommendations and forecasts, and
// triggers daily batch runs.
type RecommendationService struct {
	recs      repository.RecommendationRepository
	forecasts repository.ForecastRepository
	orch      *batch.Orchestrator
	cache     cache.RecommendationCache
}

func NewRecommendationService(
	recs repository.RecommendationRepository,
	forecasts repository.ForecastRepository,
	orch *batch.Orchestrator,
	cacheImpl cache.RecommendationCache,
) *RecommendationService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRecommendationCache()
	}
	return &RecommendationService{recs: recs, forecasts: forecasts, orch: orch, cache: cacheImpl}
}

// Get returns one product's recommendation for a date.
func (s *RecommendationService) Get(ctx context.Context, productID uuid.UUID, date time.Time) (*domain.Recommendation, error) {
	return s.recs.Get(ctx, productID, date)
}

// GetForecast returns one product's stored forecast for a date.
func (s *RecommendationService) GetForecast(ctx context.Context, productID uuid.UUID, date time.Time) (*domain.ForecastResult, error) {
	return s.forecasts.Get(ctx, productID, date)
}

// List returns a tenant's recommendations for a date ordered by priority,
// served from cache when possible.
func (s *RecommendationService) List(ctx context.Context, tenantID uuid.UUID, date time.Time) ([]domain.Recommendation, error) {
	if recs, ok, err := s.cache.GetList(ctx, tenantID, date); err == nil && ok {
		return recs, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("recommendations: cache get failed")
	}

	recs, err := s.recs.ListByTenantAndDate(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetList(ctx, tenantID, date, recs); err != nil {
		log.Warn().Err(err).Msg("recommendations: cache set failed")
	}
	return recs, nil
}

// RunDaily executes the batch run for a tenant and invalidates its cached
// listings.
func (s *RecommendationService) RunDaily(ctx context.Context, tenantID uuid.UUID, date time.Time) (*domain.RunReport, error) {
	report, err := s.orch.RunDaily(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateTenant(ctx, tenantID); err != nil {
		log.Warn().Err(err).
			Str("tenant_id", tenantID.String()).
			Msg("recommendations: cache invalidation failed")
	}
	return report, nil
}
