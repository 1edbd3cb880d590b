// Package forecast computes demand forecasts from daily sales history.
// It is pure computation: no storage, no clock, no I/O.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/domain"
)

const (
	// DefaultHorizonDays is the forecast horizon when the caller does not
	// override it.
	DefaultHorizonDays = 14

	shortWindow = 7
	longWindow  = 14

	// epsilon guards the volatility ratio against division by zero when a
	// window averages to zero.
	epsilon = 1e-9

	// volatilityFactor: demand counts as volatile when the short window's
	// relative spread exceeds the long window's by this factor.
	volatilityFactor = 1.2

	highConfidenceDays   = 30
	mediumConfidenceDays = 14
)

// Input is the history for one product up to an as-of date.
type Input struct {
	ProductID uuid.UUID

	// Sales is the daily history. Entries dated after AsOf are ignored;
	// order does not matter.
	Sales []domain.DailySale

	AsOf time.Time

	// HorizonDays defaults to DefaultHorizonDays when zero.
	HorizonDays int
}

// Forecast produces a flat daily forecast over the horizon, blending 7- and
// 14-day moving averages and weighting toward the longer window when demand
// is volatile. Identical input always yields an identical result.
func Forecast(in Input) domain.ForecastResult {
	horizon := in.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}

	series := normalize(in.Sales, in.AsOf)
	n := len(series)
	window := series[n-min(n, longWindow):]

	res := domain.ForecastResult{
		ProductID:      in.ProductID,
		AsOfDate:       in.AsOf,
		DataPointsUsed: min(n, longWindow),
		Confidence:     domain.ConfidenceLow,
	}

	// Activity is judged over the same window the moving averages use, so
	// a product that sold months ago but not recently is still inactive.
	if totalQty(window) == 0 {
		res.Inactive = true
		res.Points = flatPoints(in.AsOf, horizon, 0, res.Confidence)
		return res
	}

	var daily float64
	if n < shortWindow {
		// Too little history for the window blend; fall back to a plain
		// mean over everything we have.
		daily = mean(series)
	} else {
		short := series[n-shortWindow:]

		ma7 := mean(short)
		ma14 := mean(window)
		sd7 := sampleStddev(short, ma7)
		sd14 := sampleStddev(window, ma14)

		res.Volatile = sd7/math.Max(ma7, epsilon) > sd14/math.Max(ma14, epsilon)*volatilityFactor
		if res.Volatile {
			daily = 0.4*ma7 + 0.6*ma14
		} else {
			daily = 0.6*ma7 + 0.4*ma14
		}
		res.Confidence = grade(n, res.Volatile)
	}
	if daily < 0 {
		daily = 0
	}

	res.Points = flatPoints(in.AsOf, horizon, daily, res.Confidence)
	return res
}

// grade maps history depth and stability to a confidence tier.
func grade(n int, volatile bool) domain.Confidence {
	switch {
	case n >= highConfidenceDays && !volatile:
		return domain.ConfidenceHigh
	case n >= mediumConfidenceDays || volatile:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// normalize sorts sales ascending by date and drops entries after asOf.
func normalize(sales []domain.DailySale, asOf time.Time) []float64 {
	kept := make([]domain.DailySale, 0, len(sales))
	for _, s := range sales {
		if !s.Date.After(asOf) {
			kept = append(kept, s)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Date.Before(kept[j].Date) })

	out := make([]float64, len(kept))
	for i, s := range kept {
		out[i] = float64(s.Quantity)
	}
	return out
}

func flatPoints(asOf time.Time, horizon int, qty float64, conf domain.Confidence) []domain.ForecastPoint {
	points := make([]domain.ForecastPoint, horizon)
	for i := range points {
		points[i] = domain.ForecastPoint{
			Date:         asOf.AddDate(0, 0, i+1),
			PredictedQty: qty,
			Confidence:   conf,
		}
	}
	return points
}

func totalQty(series []float64) float64 {
	var total float64
	for _, v := range series {
		total += v
	}
	return total
}

func mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return totalQty(series) / float64(len(series))
}

// sampleStddev uses the n-1 denominator; windows shorter than two samples
// have zero spread.
func sampleStddev(series []float64, mu float64) float64 {
	if len(series) < 2 {
		return 0
	}
	var sum float64
	for _, v := range series {
		d := v - mu
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(series)-1))
}
