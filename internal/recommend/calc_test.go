package recommend

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/domain"
)

var analysisDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func testDefaults() Params {
	return Params{
		LeadTimeDays:       7,
		SafetyStockDays:    3,
		MinOrderQty:        1,
		HighValueThreshold: decimal.NewFromInt(10000),
	}
}

// flatForecast builds a 14-day flat forecast at the given daily rate.
func flatForecast(daily float64, conf domain.Confidence) domain.ForecastResult {
	points := make([]domain.ForecastPoint, 14)
	for i := range points {
		points[i] = domain.ForecastPoint{
			Date:         analysisDate.AddDate(0, 0, i+1),
			PredictedQty: daily,
			Confidence:   conf,
		}
	}
	return domain.ForecastResult{
		AsOfDate:       analysisDate,
		Points:         points,
		Confidence:     conf,
		DataPointsUsed: 14,
	}
}

func testProduct() domain.Product {
	return domain.Product{ID: uuid.New(), Cost: decimal.NewFromInt(5), IsActive: true}
}

func TestBuild_HealthyRunwayStillOrderable(t *testing.T) {
	// stock 100 at 10/day: runway exactly matches the cover window, so the
	// order is due today and sized to refill horizon plus cover.
	rec := Build(Inputs{
		Product:      testProduct(),
		AsOf:         analysisDate,
		CurrentStock: 100,
		Forecast:     flatForecast(10, domain.ConfidenceHigh),
	}, testDefaults())

	assert.Equal(t, 10, rec.RunwayDays)
	assert.False(t, rec.Unbounded)
	assert.Equal(t, 140, rec.RecommendedQty)
	assert.Equal(t, domain.ActionOrderToday, rec.ActionCategory)
	require.NotNil(t, rec.StockoutDate)
	assert.Equal(t, analysisDate.AddDate(0, 0, 10), *rec.StockoutDate)
}

func TestBuild_ShortRunwayOrdersToday(t *testing.T) {
	rec := Build(Inputs{
		Product:      testProduct(),
		AsOf:         analysisDate,
		CurrentStock: 20,
		Forecast:     flatForecast(10, domain.ConfidenceHigh),
	}, testDefaults())

	assert.Equal(t, 2, rec.RunwayDays)
	// 140 horizon demand + 100 cover - 20 on hand
	assert.Equal(t, 220, rec.RecommendedQty)
	assert.Equal(t, domain.ActionOrderToday, rec.ActionCategory)
}

func TestBuild_ZeroDemandIsUnboundedNormal(t *testing.T) {
	fc := flatForecast(0, domain.ConfidenceLow)
	fc.Inactive = true

	rec := Build(Inputs{
		Product:      testProduct(),
		AsOf:         analysisDate,
		CurrentStock: 50,
		Forecast:     fc,
	}, testDefaults())

	assert.True(t, rec.Unbounded)
	assert.Zero(t, rec.RunwayDays)
	assert.Nil(t, rec.StockoutDate)
	assert.Zero(t, rec.RecommendedQty)
	assert.Equal(t, domain.ActionNormal, rec.ActionCategory)
	assert.True(t, rec.PriorityScore.IsZero())
}

func TestBuild_OpenOrdersCoverHorizon(t *testing.T) {
	rec := Build(Inputs{
		Product:      testProduct(),
		AsOf:         analysisDate,
		CurrentStock: 500,
		OpenPOQty:    200,
		Forecast:     flatForecast(10, domain.ConfidenceHigh),
	}, testDefaults())

	// runway 50 keeps ORDER_TODAY out; 200 on order >= 140 forecast demand
	assert.Equal(t, domain.ActionAlreadyOrdered, rec.ActionCategory)
	assert.Zero(t, rec.RecommendedQty)
}

func TestBuild_AttentionTriggers(t *testing.T) {
	t.Run("oversupplied", func(t *testing.T) {
		rec := Build(Inputs{
			Product:      testProduct(),
			AsOf:         analysisDate,
			CurrentStock: 1000,
			Forecast:     flatForecast(10, domain.ConfidenceHigh),
		}, testDefaults())

		assert.Equal(t, domain.ActionAttentionRequired, rec.ActionCategory)
		assert.Zero(t, rec.RecommendedQty)
		assert.Contains(t, rec.Notes, "exceeds forecast demand")
	})

	t.Run("low confidence", func(t *testing.T) {
		rec := Build(Inputs{
			Product:      testProduct(),
			AsOf:         analysisDate,
			CurrentStock: 300,
			Forecast:     flatForecast(10, domain.ConfidenceLow),
		}, testDefaults())

		assert.Equal(t, domain.ActionAttentionRequired, rec.ActionCategory)
	})

	t.Run("recent stockout", func(t *testing.T) {
		rec := Build(Inputs{
			Product:        testProduct(),
			AsOf:           analysisDate,
			CurrentStock:   300,
			Forecast:       flatForecast(10, domain.ConfidenceHigh),
			RecentStockout: true,
		}, testDefaults())

		assert.Equal(t, domain.ActionAttentionRequired, rec.ActionCategory)
		assert.Contains(t, rec.Notes, "recent stockout")
	})
}

func TestBuild_NormalWhenNothingTriggers(t *testing.T) {
	rec := Build(Inputs{
		Product:      testProduct(),
		AsOf:         analysisDate,
		CurrentStock: 200,
		Forecast:     flatForecast(10, domain.ConfidenceHigh),
	}, testDefaults())

	// runway 20 > cover 10, nothing on order, forecast demand 140 < stock
	// but need is still positive: 240 - 200 = 40
	assert.Equal(t, domain.ActionNormal, rec.ActionCategory)
	assert.Equal(t, 40, rec.RecommendedQty)
}

func TestBuild_RoundsUpToMinOrderQty(t *testing.T) {
	product := testProduct()
	product.MinOrderQty = 25

	rec := Build(Inputs{
		Product:      product,
		AsOf:         analysisDate,
		CurrentStock: 200,
		Forecast:     flatForecast(10, domain.ConfidenceHigh),
	}, testDefaults())

	// raw need 40 rounds up to the next multiple of 25
	assert.Equal(t, 50, rec.RecommendedQty)
}

func TestBuild_ProductOverridesBeatDefaults(t *testing.T) {
	product := testProduct()
	product.LeadTimeDays = 20
	product.SafetyStockDays = 5

	rec := Build(Inputs{
		Product:      product,
		AsOf:         analysisDate,
		CurrentStock: 200,
		Forecast:     flatForecast(10, domain.ConfidenceHigh),
	}, testDefaults())

	// cover is 25 days: runway 20 <= 25 and need is positive
	assert.Equal(t, domain.ActionOrderToday, rec.ActionCategory)
	assert.Equal(t, 190, rec.RecommendedQty)
}

func TestBuild_PriorityScore(t *testing.T) {
	defaults := testDefaults()

	t.Run("base follows runway", func(t *testing.T) {
		rec := Build(Inputs{
			Product:      testProduct(),
			AsOf:         analysisDate,
			CurrentStock: 120,
			Forecast:     flatForecast(10, domain.ConfidenceMedium),
		}, defaults)

		// 100 * (1 - 12/24) = 50
		assert.True(t, rec.PriorityScore.Equal(decimal.NewFromInt(50)),
			"got %s", rec.PriorityScore)
	})

	t.Run("stockout and high confidence raise it", func(t *testing.T) {
		rec := Build(Inputs{
			Product:        testProduct(),
			AsOf:           analysisDate,
			CurrentStock:   120,
			Forecast:       flatForecast(10, domain.ConfidenceHigh),
			RecentStockout: true,
		}, defaults)

		// 50 base + 20 stockout + 10 high confidence
		assert.True(t, rec.PriorityScore.Equal(decimal.NewFromInt(80)),
			"got %s", rec.PriorityScore)
	})

	t.Run("high value stock raises it", func(t *testing.T) {
		product := testProduct()
		product.Cost = decimal.NewFromInt(200) // 120 units * 200 > 10000

		rec := Build(Inputs{
			Product:      product,
			AsOf:         analysisDate,
			CurrentStock: 120,
			Forecast:     flatForecast(10, domain.ConfidenceMedium),
		}, defaults)

		assert.True(t, rec.PriorityScore.Equal(decimal.NewFromInt(60)),
			"got %s", rec.PriorityScore)
	})

	t.Run("oversupply lowers it and clamps at zero", func(t *testing.T) {
		rec := Build(Inputs{
			Product:      testProduct(),
			AsOf:         analysisDate,
			CurrentStock: 1000,
			Forecast:     flatForecast(10, domain.ConfidenceMedium),
		}, defaults)

		// base clamps to 0 (runway 100 >> 24), then -20 clamps back to 0
		assert.True(t, rec.PriorityScore.IsZero(), "got %s", rec.PriorityScore)
	})

	t.Run("never exceeds one hundred", func(t *testing.T) {
		rec := Build(Inputs{
			Product:        testProduct(),
			AsOf:           analysisDate,
			CurrentStock:   0,
			OpenPOQty:      0,
			Forecast:       flatForecast(10, domain.ConfidenceHigh),
			RecentStockout: true,
		}, defaults)

		assert.True(t, rec.PriorityScore.Equal(decimal.NewFromInt(100)),
			"got %s", rec.PriorityScore)
	})
}

func TestBuild_IsDeterministic(t *testing.T) {
	in := Inputs{
		Product:      testProduct(),
		AsOf:         analysisDate,
		CurrentStock: 120,
		OpenPOQty:    30,
		Forecast:     flatForecast(10, domain.ConfidenceHigh),
	}
	first := Build(in, testDefaults())
	second := Build(in, testDefaults())
	assert.Equal(t, first, second)
}
