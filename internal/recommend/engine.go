package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/forecast"
	"github.com/stockpilot/stockpilot/internal/repository"
	"github.com/stockpilot/stockpilot/pkg/logger"
)

// ErrNoActivity marks a product with neither sales history nor stock.
// The orchestrator records these as skipped, not failed.
var ErrNoActivity = errors.New("product has no sales history and no stock")

// StockReader is the slice of the ledger the engine needs: a consistent
// stock snapshot and stockout history. *ledger.Ledger satisfies it.
type StockReader interface {
	GetAvailable(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID) (int, error)
	HadStockout(ctx context.Context, productID uuid.UUID, since time.Time) (bool, error)
}

// Config tunes one engine instance.
type Config struct {
	Defaults             Params
	HistoryDays          int
	HorizonDays          int
	StockoutLookbackDays int
}

// Engine runs the forecast and recommendation steps for single products.
// It fetches all external data up front per product; no locks are held
// across the fetches.
type Engine struct {
	cfg       Config
	stock     StockReader
	sales     repository.SalesHistoryRepository
	orders    repository.PurchaseOrderRepository
	forecasts repository.ForecastRepository
	recs      repository.RecommendationRepository
	log       zerolog.Logger
}

// NewEngine wires an Engine.
func NewEngine(
	cfg Config,
	stock StockReader,
	sales repository.SalesHistoryRepository,
	orders repository.PurchaseOrderRepository,
	forecasts repository.ForecastRepository,
	recs repository.RecommendationRepository,
) *Engine {
	return &Engine{
		cfg:       cfg,
		stock:     stock,
		sales:     sales,
		orders:    orders,
		forecasts: forecasts,
		recs:      recs,
		log:       logger.With("recommend"),
	}
}

// AnalyzeProduct forecasts demand and upserts a recommendation for one
// product as of one date. Reruns for the same date overwrite the previous
// result. Returns ErrNoActivity for products with nothing to analyze.
func (e *Engine) AnalyzeProduct(ctx context.Context, product domain.Product, asOf time.Time) (*domain.Recommendation, error) {
	from := asOf.AddDate(0, 0, -(e.cfg.HistoryDays - 1))
	sales, err := e.sales.GetSalesHistory(ctx, product.ID, from, asOf)
	if err != nil {
		return nil, &domain.ExternalDependencyError{Source: "sales_history", Err: err}
	}

	stock, err := e.stock.GetAvailable(ctx, product.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("reading stock for %s: %w", product.ID, err)
	}

	if len(sales) == 0 && stock == 0 {
		return nil, ErrNoActivity
	}

	fc := forecast.Forecast(forecast.Input{
		ProductID:   product.ID,
		Sales:       sales,
		AsOf:        asOf,
		HorizonDays: e.cfg.HorizonDays,
	})
	if err := e.forecasts.Upsert(ctx, fc); err != nil {
		return nil, fmt.Errorf("storing forecast for %s: %w", product.ID, err)
	}

	openPO, err := e.orders.GetOpenOrderQuantity(ctx, product.ID)
	if err != nil {
		return nil, &domain.ExternalDependencyError{Source: "purchase_orders", Err: err}
	}

	lookback := asOf.AddDate(0, 0, -e.cfg.StockoutLookbackDays)
	hadStockout, err := e.stock.HadStockout(ctx, product.ID, lookback)
	if err != nil {
		return nil, fmt.Errorf("checking stockouts for %s: %w", product.ID, err)
	}

	rec := Build(Inputs{
		Product:        product,
		AsOf:           asOf,
		CurrentStock:   stock,
		OpenPOQty:      openPO,
		Forecast:       fc,
		RecentStockout: hadStockout,
	}, e.cfg.Defaults)

	if err := e.recs.Upsert(ctx, &rec); err != nil {
		return nil, fmt.Errorf("storing recommendation for %s: %w", product.ID, err)
	}

	e.log.Debug().
		Str("product_id", product.ID.String()).
		Str("category", string(rec.ActionCategory)).
		Str("priority", rec.PriorityScore.String()).
		Int("recommended_qty", rec.RecommendedQty).
		Msg("recommendation computed")
	return &rec, nil
}
