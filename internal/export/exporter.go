// Package export renders daily recommendation reports and ships them to
// S3-compatible object storage.
package export

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stockpilot/stockpilot/internal/repository"
	"github.com/stockpilot/stockpilot/pkg/logger"
)

// Exporter uploads one CSV per tenant per analysis date.
type Exporter struct {
	storage  ObjectStorage
	recs     repository.RecommendationRepository
	products repository.ProductRepository
	log      zerolog.Logger
}

// NewExporter wires an Exporter.
func NewExporter(storage ObjectStorage, recs repository.RecommendationRepository, products repository.ProductRepository) *Exporter {
	return &Exporter{
		storage:  storage,
		recs:     recs,
		products: products,
		log:      logger.With("export"),
	}
}

// Export builds the recommendation CSV for a tenant and date and uploads
// it, returning the object key.
func (e *Exporter) Export(ctx context.Context, tenantID uuid.UUID, date time.Time) (string, error) {
	recs, err := e.recs.ListByTenantAndDate(ctx, tenantID, date)
	if err != nil {
		return "", err
	}

	skus := make(map[string]string, len(recs))
	if products, err := e.products.ListActiveByTenant(ctx, tenantID); err == nil {
		for _, p := range products {
			skus[p.ID.String()] = p.SKU
		}
	} else {
		e.log.Warn().Err(err).Msg("listing products for sku column failed, exporting without skus")
	}

	payload, err := BuildRecommendationCSV(recs, skus)
	if err != nil {
		return "", err
	}

	key := ReportKey(tenantID.String(), date)
	if err := e.storage.UploadObject(ctx, key, "text/csv", payload); err != nil {
		return "", err
	}

	e.log.Info().
		Str("tenant_id", tenantID.String()).
		Str("key", key).
		Int("rows", len(recs)).
		Msg("recommendation report exported")
	return key, nil
}
