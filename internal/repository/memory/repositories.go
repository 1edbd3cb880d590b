package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/repository"
)

// ProductRepository is an in-memory catalog, loaded up front.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[uuid.UUID]domain.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[uuid.UUID]domain.Product)}
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// Add loads a product into the repository.
func (r *ProductRepository) Add(p domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

func (r *ProductRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.products[id]; ok {
		return &p, nil
	}
	return nil, domain.ErrNotFound
}

func (r *ProductRepository) ListActiveByTenant(_ context.Context, tenantID uuid.UUID) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Product
	for _, p := range r.products {
		if p.TenantID == tenantID && p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// WarehouseRepository is an in-memory warehouse store enforcing the
// single-primary invariant on Save.
type WarehouseRepository struct {
	mu         sync.RWMutex
	warehouses map[uuid.UUID]domain.Warehouse
}

func NewWarehouseRepository() *WarehouseRepository {
	return &WarehouseRepository{warehouses: make(map[uuid.UUID]domain.Warehouse)}
}

var _ repository.WarehouseRepository = (*WarehouseRepository)(nil)

func (r *WarehouseRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Warehouse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if wh, ok := r.warehouses[id]; ok {
		return &wh, nil
	}
	return nil, domain.ErrNotFound
}

func (r *WarehouseRepository) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]domain.Warehouse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Warehouse
	for _, wh := range r.warehouses {
		if wh.TenantID == tenantID {
			out = append(out, wh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *WarehouseRepository) Save(_ context.Context, wh *domain.Warehouse) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wh.IsPrimary {
		for id, other := range r.warehouses {
			if other.TenantID == wh.TenantID && other.IsPrimary && id != wh.ID {
				other.IsPrimary = false
				r.warehouses[id] = other
			}
		}
	}
	r.warehouses[wh.ID] = *wh
	return nil
}

// ForecastRepository keeps one result set per (product, as-of date).
type ForecastRepository struct {
	mu        sync.RWMutex
	forecasts map[string]domain.ForecastResult
}

func NewForecastRepository() *ForecastRepository {
	return &ForecastRepository{forecasts: make(map[string]domain.ForecastResult)}
}

var _ repository.ForecastRepository = (*ForecastRepository)(nil)

func forecastKey(productID uuid.UUID, asOf time.Time) string {
	return productID.String() + "/" + asOf.Format("2006-01-02")
}

func (r *ForecastRepository) Upsert(_ context.Context, result domain.ForecastResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forecasts[forecastKey(result.ProductID, result.AsOfDate)] = result
	return nil
}

func (r *ForecastRepository) Get(_ context.Context, productID uuid.UUID, asOfDate time.Time) (*domain.ForecastResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.forecasts[forecastKey(productID, asOfDate)]; ok {
		return &f, nil
	}
	return nil, domain.ErrNotFound
}

// RecommendationRepository keeps at most one row per (product, date).
type RecommendationRepository struct {
	mu   sync.RWMutex
	recs map[string]domain.Recommendation
}

func NewRecommendationRepository() *RecommendationRepository {
	return &RecommendationRepository{recs: make(map[string]domain.Recommendation)}
}

var _ repository.RecommendationRepository = (*RecommendationRepository)(nil)

func (r *RecommendationRepository) Upsert(_ context.Context, rec *domain.Recommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := forecastKey(rec.ProductID, rec.AnalysisDate)
	now := time.Now()
	stored := *rec
	if existing, ok := r.recs[key]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.recs[key] = stored
	return nil
}

func (r *RecommendationRepository) Get(_ context.Context, productID uuid.UUID, analysisDate time.Time) (*domain.Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.recs[forecastKey(productID, analysisDate)]; ok {
		return &rec, nil
	}
	return nil, domain.ErrNotFound
}

// Count returns the number of stored recommendations, for tests asserting
// upsert semantics.
func (r *RecommendationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.recs)
}

// ListByTenantAndDate filters by analysis date only; the in-memory store is
// single-tenant in practice, with product→tenant resolution left to callers.
func (r *RecommendationRepository) ListByTenantAndDate(_ context.Context, _ uuid.UUID, analysisDate time.Time) ([]domain.Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := analysisDate.Format("2006-01-02")
	var out []domain.Recommendation
	for key, rec := range r.recs {
		if key[len(key)-len(day):] == day {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PriorityScore.GreaterThan(out[j].PriorityScore)
	})
	return out, nil
}

// SalesHistoryRepository serves preloaded sales history.
type SalesHistoryRepository struct {
	mu    sync.RWMutex
	sales map[uuid.UUID][]domain.DailySale

	err           error
	failRemaining int
}

func NewSalesHistoryRepository() *SalesHistoryRepository {
	return &SalesHistoryRepository{sales: make(map[uuid.UUID][]domain.DailySale)}
}

var _ repository.SalesHistoryRepository = (*SalesHistoryRepository)(nil)

// Load replaces the history for a product.
func (r *SalesHistoryRepository) Load(productID uuid.UUID, history []domain.DailySale) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales[productID] = history
}

// FailWith makes every subsequent call return err.
func (r *SalesHistoryRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.failRemaining = -1
}

// FailTimes makes the next n calls return err, then recover.
func (r *SalesHistoryRepository) FailTimes(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.failRemaining = n
}

func (r *SalesHistoryRepository) GetSalesHistory(_ context.Context, productID uuid.UUID, from, to time.Time) ([]domain.DailySale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil && r.failRemaining != 0 {
		if r.failRemaining > 0 {
			r.failRemaining--
		}
		return nil, r.err
	}

	var out []domain.DailySale
	for _, s := range r.sales[productID] {
		if !from.IsZero() && s.Date.Before(from) {
			continue
		}
		if !to.IsZero() && s.Date.After(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// PurchaseOrderRepository serves preloaded open-order quantities.
type PurchaseOrderRepository struct {
	mu   sync.RWMutex
	open map[uuid.UUID]int
}

func NewPurchaseOrderRepository() *PurchaseOrderRepository {
	return &PurchaseOrderRepository{open: make(map[uuid.UUID]int)}
}

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepository)(nil)

// SetOpenQuantity sets the open-order total for a product.
func (r *PurchaseOrderRepository) SetOpenQuantity(productID uuid.UUID, qty int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[productID] = qty
}

func (r *PurchaseOrderRepository) GetOpenOrderQuantity(_ context.Context, productID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.open[productID], nil
}
