// Package batch runs the daily forecast-and-recommend pass over a tenant's
// catalog.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/recommend"
	"github.com/stockpilot/stockpilot/internal/repository"
	"github.com/stockpilot/stockpilot/pkg/logger"
)

// Analyzer runs the per-product analysis step. *recommend.Engine satisfies it.
type Analyzer interface {
	AnalyzeProduct(ctx context.Context, product domain.Product, asOf time.Time) (*domain.Recommendation, error)
}

// Config tunes one orchestrator.
type Config struct {
	// Workers bounds how many products are analyzed concurrently.
	Workers int

	// RetryAttempts is the total number of tries for a product whose
	// external data fetch failed.
	RetryAttempts int

	// RetryBackoff is the initial wait between tries; it doubles per retry.
	RetryBackoff time.Duration
}

// Orchestrator fans per-product analysis across a bounded worker pool. One
// product's failure never aborts the run; reruns for the same date are safe
// because the engine upserts.
type Orchestrator struct {
	cfg      Config
	products repository.ProductRepository
	analyzer Analyzer
	log      zerolog.Logger

	// now is swapped out in tests.
	now func() time.Time
}

// New wires an Orchestrator.
func New(cfg Config, products repository.ProductRepository, analyzer Analyzer) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	return &Orchestrator{
		cfg:      cfg,
		products: products,
		analyzer: analyzer,
		log:      logger.With("batch"),
		now:      time.Now,
	}
}

// RunDaily analyzes every active product of the tenant as of the given date.
// The context's deadline bounds the run: in-flight products finish, products
// not yet started are reported as skipped with a timeout reason.
func (o *Orchestrator) RunDaily(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*domain.RunReport, error) {
	started := o.now()

	products, err := o.products.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report := &domain.RunReport{
		TenantID:  tenantID,
		AsOfDate:  asOf,
		Total:     len(products),
		StartedAt: started,
	}

	o.log.Info().
		Str("tenant_id", tenantID.String()).
		Time("as_of", asOf).
		Int("products", len(products)).
		Int("workers", o.cfg.Workers).
		Msg("daily run started")

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)

	for _, product := range products {
		if ctx.Err() != nil {
			mu.Lock()
			report.Skipped = append(report.Skipped, domain.ItemSkip{
				ProductID: product.ID,
				SKU:       product.SKU,
				Reason:    domain.SkipTimeout,
			})
			mu.Unlock()
			continue
		}

		product := product
		g.Go(func() error {
			// the deadline may have passed while this product waited
			// for a worker slot
			if ctx.Err() != nil {
				mu.Lock()
				report.Skipped = append(report.Skipped, domain.ItemSkip{
					ProductID: product.ID,
					SKU:       product.SKU,
					Reason:    domain.SkipTimeout,
				})
				mu.Unlock()
				return nil
			}

			rec, err := o.analyzeWithRetry(ctx, product, asOf)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, recommend.ErrNoActivity):
				report.Skipped = append(report.Skipped, domain.ItemSkip{
					ProductID: product.ID,
					SKU:       product.SKU,
					Reason:    domain.SkipNoActivity,
				})
			case err != nil:
				o.log.Error().Err(err).
					Str("product_id", product.ID.String()).
					Str("sku", product.SKU).
					Msg("product analysis failed")
				report.Failed = append(report.Failed, domain.ItemFailure{
					ProductID: product.ID,
					SKU:       product.SKU,
					Error:     err.Error(),
				})
			default:
				report.Succeeded++
				report.Categories.Add(rec.ActionCategory)
			}
			return nil
		})
	}

	g.Wait()
	report.Duration = o.now().Sub(started)

	o.log.Info().
		Str("tenant_id", tenantID.String()).
		Int("succeeded", report.Succeeded).
		Int("failed", len(report.Failed)).
		Int("skipped", len(report.Skipped)).
		Dur("duration", report.Duration).
		Msg("daily run finished")
	return report, nil
}

// analyzeWithRetry retries external-dependency failures with doubling
// backoff; every other error fails the product immediately.
func (o *Orchestrator) analyzeWithRetry(ctx context.Context, product domain.Product, asOf time.Time) (*domain.Recommendation, error) {
	backoff := o.cfg.RetryBackoff
	var lastErr error

	for attempt := 1; attempt <= o.cfg.RetryAttempts; attempt++ {
		rec, err := o.analyzer.AnalyzeProduct(ctx, product, asOf)
		if err == nil {
			return rec, nil
		}

		var dep *domain.ExternalDependencyError
		if !errors.As(err, &dep) {
			return nil, err
		}
		lastErr = err

		if attempt == o.cfg.RetryAttempts {
			break
		}
		o.log.Warn().Err(err).
			Str("product_id", product.ID.String()).
			Int("attempt", attempt).
			Msg("external fetch failed, backing off")

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}
