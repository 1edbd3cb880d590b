// Package recommend turns a stock position and a demand forecast into a
// procurement recommendation.
package recommend

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpilot/stockpilot/internal/domain"
)

const (
	stockoutBonus      = 20.0
	highValueBonus     = 10.0
	highConfidenceBump = 10.0
	overstockPenalty   = 20.0

	// priorityHorizonDays stretches the runway-based urgency curve past the
	// cover window, so products just outside it still rank above the idle
	// tail.
	priorityHorizonDays = 14.0
)

// Params are the tenant-level reorder defaults. Product-level overrides win
// when set.
type Params struct {
	LeadTimeDays       int
	SafetyStockDays    int
	MinOrderQty        int
	HighValueThreshold decimal.Decimal
}

// Inputs is everything Build needs for one product. All fields are plain
// values; Build performs no I/O.
type Inputs struct {
	Product      domain.Product
	AsOf         time.Time
	CurrentStock int
	OpenPOQty    int
	Forecast     domain.ForecastResult

	// RecentStockout is true when the product hit zero available stock
	// within the lookback window.
	RecentStockout bool
}

// Build computes the recommendation for one product. It is deterministic:
// the same inputs always produce the same recommendation.
func Build(in Inputs, defaults Params) domain.Recommendation {
	lead := coalesce(in.Product.LeadTimeDays, defaults.LeadTimeDays)
	safety := coalesce(in.Product.SafetyStockDays, defaults.SafetyStockDays)
	moq := coalesce(in.Product.MinOrderQty, defaults.MinOrderQty)
	if moq < 1 {
		moq = 1
	}

	rec := domain.Recommendation{
		ProductID:    in.Product.ID,
		AnalysisDate: in.AsOf,
		CurrentStock: in.CurrentStock,
		OpenPOQty:    in.OpenPOQty,
		Confidence:   in.Forecast.Confidence,
	}

	daily := in.Forecast.DailyRate()
	rec.DailyBurnRate = decimal.NewFromFloat(daily).Round(2)

	if daily <= 0 {
		// No measurable demand: runway is unbounded and there is nothing
		// to order.
		rec.Unbounded = true
		rec.ActionCategory = domain.ActionNormal
		rec.PriorityScore = decimal.Zero
		if in.Forecast.Inactive {
			rec.Notes = "no sales in the history window"
		}
		return rec
	}

	runway := float64(in.CurrentStock) / daily
	rec.RunwayDays = int(math.Floor(runway))
	stockout := in.AsOf.AddDate(0, 0, rec.RunwayDays)
	rec.StockoutDate = &stockout

	coverDays := float64(lead + safety)
	horizonDemand := in.Forecast.HorizonTotal()

	// Raw need: demand over the horizon plus cover for lead time and
	// safety stock, less what we hold and what is already on order.
	raw := horizonDemand + coverDays*daily - float64(in.CurrentStock) - float64(in.OpenPOQty)
	overstocked := raw < 0

	qty := 0
	if raw > 0 {
		qty = roundUpToMultiple(int(math.Ceil(raw)), moq)
	}
	rec.RecommendedQty = qty

	var notes []string
	switch {
	case float64(rec.RunwayDays) <= coverDays && qty > 0:
		rec.ActionCategory = domain.ActionOrderToday
		notes = append(notes, fmt.Sprintf("%d days of stock left, resupply takes %d", rec.RunwayDays, lead+safety))
	case float64(in.OpenPOQty) >= horizonDemand:
		rec.ActionCategory = domain.ActionAlreadyOrdered
		notes = append(notes, fmt.Sprintf("open orders (%d) cover forecast demand", in.OpenPOQty))
	case overstocked || rec.Confidence == domain.ConfidenceLow || in.RecentStockout:
		rec.ActionCategory = domain.ActionAttentionRequired
		if overstocked {
			notes = append(notes, "stock exceeds forecast demand")
		}
		if rec.Confidence == domain.ConfidenceLow {
			notes = append(notes, "forecast confidence is low")
		}
		if in.RecentStockout {
			notes = append(notes, "recent stockout")
		}
	default:
		rec.ActionCategory = domain.ActionNormal
	}

	score := 100.0 * (1.0 - float64(rec.RunwayDays)/(coverDays+priorityHorizonDays))
	score = clamp(score, 0, 100)
	if in.RecentStockout {
		score += stockoutBonus
	}
	if isHighValue(in.CurrentStock, in.Product.Cost, defaults.HighValueThreshold) {
		score += highValueBonus
	}
	if rec.Confidence == domain.ConfidenceHigh {
		score += highConfidenceBump
	}
	if overstocked {
		score -= overstockPenalty
	}
	rec.PriorityScore = decimal.NewFromFloat(clamp(score, 0, 100)).Round(2)
	rec.Notes = strings.Join(notes, "; ")
	return rec
}

// isHighValue reports whether the capital tied up in current stock exceeds
// the tenant threshold.
func isHighValue(stock int, cost, threshold decimal.Decimal) bool {
	if threshold.IsZero() {
		return false
	}
	held := cost.Mul(decimal.NewFromInt(int64(stock)))
	return held.GreaterThan(threshold)
}

// roundUpToMultiple rounds qty up to the nearest multiple of moq.
func roundUpToMultiple(qty, moq int) int {
	if qty <= 0 {
		return 0
	}
	if rem := qty % moq; rem != 0 {
		qty += moq - rem
	}
	return qty
}

func coalesce(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
