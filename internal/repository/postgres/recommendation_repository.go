package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/repository"
)

type recommendationRepository struct {
	db *DB
}

// NewRecommendationRepository returns the postgres recommendation
// repository. Upsert keys on (product_id, analysis_date) so a rerun
// overwrites instead of duplicating.
func NewRecommendationRepository(db *DB) repository.RecommendationRepository {
	return &recommendationRepository{db: db}
}

const recommendationColumns = `
	product_id, analysis_date, current_stock, daily_burn_rate, runway_days,
	unbounded, stockout_date, recommended_qty, open_po_qty, action_category,
	priority_score, confidence, notes, created_at, updated_at
`

func (r *recommendationRepository) Upsert(ctx context.Context, rec *domain.Recommendation) error {
	query := `
		INSERT INTO recommendations (
			product_id, analysis_date, current_stock, daily_burn_rate, runway_days,
			unbounded, stockout_date, recommended_qty, open_po_qty, action_category,
			priority_score, confidence, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		ON CONFLICT (product_id, analysis_date) DO UPDATE SET
			current_stock = EXCLUDED.current_stock,
			daily_burn_rate = EXCLUDED.daily_burn_rate,
			runway_days = EXCLUDED.runway_days,
			unbounded = EXCLUDED.unbounded,
			stockout_date = EXCLUDED.stockout_date,
			recommended_qty = EXCLUDED.recommended_qty,
			open_po_qty = EXCLUDED.open_po_qty,
			action_category = EXCLUDED.action_category,
			priority_score = EXCLUDED.priority_score,
			confidence = EXCLUDED.confidence,
			notes = EXCLUDED.notes,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ProductID, rec.AnalysisDate, rec.CurrentStock, rec.DailyBurnRate, rec.RunwayDays,
		rec.Unbounded, rec.StockoutDate, rec.RecommendedQty, rec.OpenPOQty, rec.ActionCategory,
		rec.PriorityScore, rec.Confidence, rec.Notes,
	)
	if err != nil {
		return fmt.Errorf("error upserting recommendation: %w", err)
	}
	return nil
}

func (r *recommendationRepository) Get(ctx context.Context, productID uuid.UUID, analysisDate time.Time) (*domain.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE product_id = $1 AND analysis_date = $2`

	var rec domain.Recommendation
	err := r.db.GetContext(ctx, &rec, query, productID, analysisDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting recommendation: %w", err)
	}
	return &rec, nil
}

func (r *recommendationRepository) ListByTenantAndDate(ctx context.Context, tenantID uuid.UUID, analysisDate time.Time) ([]domain.Recommendation, error) {
	query := `
		SELECT r.product_id, r.analysis_date, r.current_stock, r.daily_burn_rate, r.runway_days,
		       r.unbounded, r.stockout_date, r.recommended_qty, r.open_po_qty, r.action_category,
		       r.priority_score, r.confidence, r.notes, r.created_at, r.updated_at
		FROM recommendations r
		JOIN products p ON p.id = r.product_id
		WHERE p.tenant_id = $1 AND r.analysis_date = $2
		ORDER BY r.priority_score DESC, r.runway_days
	`
	var recs []domain.Recommendation
	if err := r.db.SelectContext(ctx, &recs, query, tenantID, analysisDate); err != nil {
		return nil, fmt.Errorf("error listing recommendations: %w", err)
	}
	return recs, nil
}
