package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/ledger"
	"github.com/stockpilot/stockpilot/internal/repository/memory"
)

type engineFixture struct {
	engine    *Engine
	ledger    *ledger.Ledger
	sales     *memory.SalesHistoryRepository
	orders    *memory.PurchaseOrderRepository
	forecasts *memory.ForecastRepository
	recs      *memory.RecommendationRepository
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		ledger:    ledger.New(memory.NewLedgerStore()),
		sales:     memory.NewSalesHistoryRepository(),
		orders:    memory.NewPurchaseOrderRepository(),
		forecasts: memory.NewForecastRepository(),
		recs:      memory.NewRecommendationRepository(),
	}
	cfg := Config{
		Defaults: Params{
			LeadTimeDays:       7,
			SafetyStockDays:    3,
			MinOrderQty:        1,
			HighValueThreshold: decimal.NewFromInt(10000),
		},
		HistoryDays:          60,
		HorizonDays:          14,
		StockoutLookbackDays: 30,
	}
	f.engine = NewEngine(cfg, f.ledger, f.sales, f.orders, f.forecasts, f.recs)
	return f
}

func (f *engineFixture) stock(t *testing.T, productID, warehouseID uuid.UUID, qty int) {
	t.Helper()
	_, _, err := f.ledger.RecordMovement(context.Background(), ledger.MovementInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Kind:        domain.MovementInitialLoad,
		Quantity:    qty,
	})
	require.NoError(t, err)
}

func steadySales(asOf time.Time, days, qty int) []domain.DailySale {
	sales := make([]domain.DailySale, days)
	for i := range sales {
		sales[i] = domain.DailySale{
			Date:     asOf.AddDate(0, 0, -(days - 1 - i)),
			Quantity: qty,
		}
	}
	return sales
}

func TestAnalyzeProduct_StoresForecastAndRecommendation(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	product := domain.Product{ID: uuid.New(), Cost: decimal.NewFromInt(5), IsActive: true}

	f.stock(t, product.ID, uuid.New(), 20)
	f.sales.Load(product.ID, steadySales(analysisDate, 30, 10))

	rec, err := f.engine.AnalyzeProduct(ctx, product, analysisDate)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionOrderToday, rec.ActionCategory)
	assert.Equal(t, 2, rec.RunwayDays)
	assert.Equal(t, domain.ConfidenceHigh, rec.Confidence)

	stored, err := f.recs.Get(ctx, product.ID, analysisDate)
	require.NoError(t, err)
	assert.Equal(t, rec.RecommendedQty, stored.RecommendedQty)

	fc, err := f.forecasts.Get(ctx, product.ID, analysisDate)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, fc.DailyRate(), 1e-9)
}

func TestAnalyzeProduct_RerunOverwrites(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	product := domain.Product{ID: uuid.New(), Cost: decimal.NewFromInt(5), IsActive: true}

	f.stock(t, product.ID, uuid.New(), 50)
	f.sales.Load(product.ID, steadySales(analysisDate, 30, 10))

	first, err := f.engine.AnalyzeProduct(ctx, product, analysisDate)
	require.NoError(t, err)
	second, err := f.engine.AnalyzeProduct(ctx, product, analysisDate)
	require.NoError(t, err)

	assert.Equal(t, first.RecommendedQty, second.RecommendedQty)
	assert.Equal(t, first.ActionCategory, second.ActionCategory)
	assert.True(t, first.PriorityScore.Equal(second.PriorityScore))
	assert.Equal(t, 1, f.recs.Count())
}

func TestAnalyzeProduct_NoActivitySkips(t *testing.T) {
	f := newEngineFixture()
	product := domain.Product{ID: uuid.New(), IsActive: true}

	_, err := f.engine.AnalyzeProduct(context.Background(), product, analysisDate)
	assert.ErrorIs(t, err, ErrNoActivity)
	assert.Zero(t, f.recs.Count())
}

func TestAnalyzeProduct_StockWithoutHistoryStillAnalyzed(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	product := domain.Product{ID: uuid.New(), IsActive: true}

	f.stock(t, product.ID, uuid.New(), 40)

	rec, err := f.engine.AnalyzeProduct(ctx, product, analysisDate)
	require.NoError(t, err)
	assert.True(t, rec.Unbounded)
	assert.Equal(t, domain.ActionNormal, rec.ActionCategory)
}

func TestAnalyzeProduct_WrapsProviderFailures(t *testing.T) {
	f := newEngineFixture()
	product := domain.Product{ID: uuid.New(), IsActive: true}

	f.sales.FailWith(errors.New("provider down"))

	_, err := f.engine.AnalyzeProduct(context.Background(), product, analysisDate)
	var dep *domain.ExternalDependencyError
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, "sales_history", dep.Source)
}
