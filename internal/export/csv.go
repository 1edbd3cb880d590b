package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/stockpilot/stockpilot/internal/domain"
)

var csvHeader = []string{
	"sku",
	"product_id",
	"analysis_date",
	"action_category",
	"priority_score",
	"current_stock",
	"daily_burn_rate",
	"runway_days",
	"stockout_date",
	"recommended_qty",
	"open_po_qty",
	"confidence",
	"notes",
}

// BuildRecommendationCSV renders a tenant's recommendations as CSV, one row
// per product, in the order given (the repository lists by priority).
func BuildRecommendationCSV(recs []domain.Recommendation, skus map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}

	for _, rec := range recs {
		runway := fmt.Sprintf("%d", rec.RunwayDays)
		stockout := ""
		if rec.Unbounded {
			runway = "unbounded"
		}
		if rec.StockoutDate != nil {
			stockout = rec.StockoutDate.Format("2006-01-02")
		}

		row := []string{
			skus[rec.ProductID.String()],
			rec.ProductID.String(),
			rec.AnalysisDate.Format("2006-01-02"),
			string(rec.ActionCategory),
			rec.PriorityScore.String(),
			fmt.Sprintf("%d", rec.CurrentStock),
			rec.DailyBurnRate.String(),
			runway,
			stockout,
			fmt.Sprintf("%d", rec.RecommendedQty),
			fmt.Sprintf("%d", rec.OpenPOQty),
			string(rec.Confidence),
			rec.Notes,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ReportKey names the object for a tenant's daily report.
func ReportKey(tenantID string, date time.Time) string {
	return fmt.Sprintf("reports/%s/recommendations-%s.csv", tenantID, date.Format("2006-01-02"))
}
