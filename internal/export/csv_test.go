package export

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/repository/memory"
)

var reportDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func sampleRecommendation(productID uuid.UUID, cat domain.ActionCategory, priority int64) domain.Recommendation {
	stockout := reportDate.AddDate(0, 0, 4)
	return domain.Recommendation{
		ProductID:      productID,
		AnalysisDate:   reportDate,
		CurrentStock:   40,
		DailyBurnRate:  decimal.NewFromInt(10),
		RunwayDays:     4,
		StockoutDate:   &stockout,
		RecommendedQty: 220,
		OpenPOQty:      0,
		ActionCategory: cat,
		PriorityScore:  decimal.NewFromInt(priority),
		Confidence:     domain.ConfidenceHigh,
		Notes:          "4 days of stock left, resupply takes 10",
	}
}

func TestBuildRecommendationCSV(t *testing.T) {
	productID := uuid.New()
	recs := []domain.Recommendation{sampleRecommendation(productID, domain.ActionOrderToday, 90)}
	skus := map[string]string{productID.String(): "SKU-42"}

	payload, err := BuildRecommendationCSV(recs, skus)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, csvHeader, rows[0])
	row := rows[1]
	assert.Equal(t, "SKU-42", row[0])
	assert.Equal(t, productID.String(), row[1])
	assert.Equal(t, "2026-03-15", row[2])
	assert.Equal(t, "ORDER_TODAY", row[3])
	assert.Equal(t, "90", row[4])
	assert.Equal(t, "40", row[5])
	assert.Equal(t, "4", row[7])
	assert.Equal(t, "2026-03-19", row[8])
	assert.Equal(t, "220", row[9])
	assert.Equal(t, "HIGH", row[11])
}

func TestBuildRecommendationCSV_UnboundedRunway(t *testing.T) {
	rec := sampleRecommendation(uuid.New(), domain.ActionNormal, 0)
	rec.Unbounded = true
	rec.RunwayDays = 0
	rec.StockoutDate = nil

	payload, err := BuildRecommendationCSV([]domain.Recommendation{rec}, nil)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "unbounded", rows[1][7])
	assert.Empty(t, rows[1][8])
}

type captureStorage struct {
	key         string
	contentType string
	data        []byte
}

func (c *captureStorage) UploadObject(_ context.Context, key, contentType string, data []byte) error {
	c.key = key
	c.contentType = contentType
	c.data = data
	return nil
}

func TestExporter_UploadsTenantReport(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	products := memory.NewProductRepository()
	product := domain.Product{ID: uuid.New(), TenantID: tenantID, SKU: "SKU-7", IsActive: true}
	products.Add(product)

	recs := memory.NewRecommendationRepository()
	rec := sampleRecommendation(product.ID, domain.ActionOrderToday, 80)
	require.NoError(t, recs.Upsert(ctx, &rec))

	storage := &captureStorage{}
	key, err := NewExporter(storage, recs, products).Export(ctx, tenantID, reportDate)
	require.NoError(t, err)

	assert.Equal(t, "reports/"+tenantID.String()+"/recommendations-2026-03-15.csv", key)
	assert.Equal(t, key, storage.key)
	assert.Equal(t, "text/csv", storage.contentType)
	assert.Contains(t, string(storage.data), "SKU-7")
}
