package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/repository"
)

type forecastRepository struct {
	db *DB
}

// NewForecastRepository returns the postgres forecast repository. One row
// per forecasted day; recomputation for the same as-of date replaces the
// whole set.
func NewForecastRepository(db *DB) repository.ForecastRepository {
	return &forecastRepository{db: db}
}

type forecastRow struct {
	ProductID      uuid.UUID         `db:"product_id"`
	AsOfDate       time.Time         `db:"as_of_date"`
	ForecastDate   time.Time         `db:"forecast_date"`
	PredictedQty   float64           `db:"predicted_qty"`
	Confidence     domain.Confidence `db:"confidence"`
	DataPointsUsed int               `db:"data_points_used"`
	Volatile       bool              `db:"volatile"`
	Inactive       bool              `db:"inactive"`
}

func (r *forecastRepository) Upsert(ctx context.Context, result domain.ForecastResult) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		del := `DELETE FROM forecasts WHERE product_id = $1 AND as_of_date = $2`
		if _, err := tx.ExecContext(ctx, del, result.ProductID, result.AsOfDate); err != nil {
			return fmt.Errorf("error clearing previous forecast: %w", err)
		}

		ins := `
			INSERT INTO forecasts (
				product_id, as_of_date, forecast_date, predicted_qty,
				confidence, data_points_used, volatile, inactive, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		`
		stmt, err := tx.PrepareContext(ctx, ins)
		if err != nil {
			return fmt.Errorf("error preparing forecast insert: %w", err)
		}
		defer stmt.Close()

		for _, point := range result.Points {
			_, err := stmt.ExecContext(ctx,
				result.ProductID, result.AsOfDate, point.Date, point.PredictedQty,
				result.Confidence, result.DataPointsUsed, result.Volatile, result.Inactive,
			)
			if err != nil {
				return fmt.Errorf("error inserting forecast point: %w", err)
			}
		}
		return nil
	})
}

func (r *forecastRepository) Get(ctx context.Context, productID uuid.UUID, asOfDate time.Time) (*domain.ForecastResult, error) {
	query := `
		SELECT product_id, as_of_date, forecast_date, predicted_qty,
		       confidence, data_points_used, volatile, inactive
		FROM forecasts
		WHERE product_id = $1 AND as_of_date = $2
		ORDER BY forecast_date
	`
	var rows []forecastRow
	if err := r.db.SelectContext(ctx, &rows, query, productID, asOfDate); err != nil {
		return nil, fmt.Errorf("error getting forecast: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}

	result := &domain.ForecastResult{
		ProductID:      productID,
		AsOfDate:       asOfDate,
		Confidence:     rows[0].Confidence,
		DataPointsUsed: rows[0].DataPointsUsed,
		Volatile:       rows[0].Volatile,
		Inactive:       rows[0].Inactive,
		Points:         make([]domain.ForecastPoint, 0, len(rows)),
	}
	for _, row := range rows {
		result.Points = append(result.Points, domain.ForecastPoint{
			Date:         row.ForecastDate,
			PredictedQty: row.PredictedQty,
			Confidence:   row.Confidence,
		})
	}
	return result, nil
}
