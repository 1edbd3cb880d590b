package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a tenant-scoped catalog entry. Catalog management owns these
// rows; the inventory core only reads them.
type Product struct {
	ID       uuid.UUID       `json:"id" db:"id"`
	TenantID uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	SKU      string          `json:"sku" db:"sku"`
	Name     string          `json:"name" db:"name"`
	Cost     decimal.Decimal `json:"cost" db:"cost"`
	IsActive bool            `json:"is_active" db:"is_active"`

	// Reorder parameters. Zero means unset; the recommendation engine
	// falls back to tenant-level defaults.
	LeadTimeDays    int `json:"lead_time_days" db:"lead_time_days"`
	SafetyStockDays int `json:"safety_stock_days" db:"safety_stock_days"`
	MinOrderQty     int `json:"min_order_qty" db:"min_order_qty"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Warehouse is a tenant-scoped stock location. Exactly one warehouse per
// tenant carries IsPrimary, enforced at write time by the repository.
type Warehouse struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	TenantID  uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	Name      string        `json:"name" db:"name"`
	Type      WarehouseType `json:"type" db:"warehouse_type"`
	IsPrimary bool          `json:"is_primary" db:"is_primary"`
	IsActive  bool          `json:"is_active" db:"is_active"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// MovementRecord is an immutable ledger entry. Records are never updated or
// deleted; corrections are new offsetting records. The sum of all deltas for
// a (product, warehouse) pair equals the snapshot quantity at all times.
type MovementRecord struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	ProductID   uuid.UUID    `json:"product_id" db:"product_id"`
	WarehouseID uuid.UUID    `json:"warehouse_id" db:"warehouse_id"`
	Kind        MovementKind `json:"kind" db:"kind"`

	// Quantity is the signed delta: positive inbound, negative outbound.
	Quantity int `json:"quantity" db:"quantity"`

	// ResultingQty is the available quantity after this movement applied,
	// kept for stockout detection and audit.
	ResultingQty int `json:"resulting_qty" db:"resulting_qty"`

	// Sequence is strictly increasing per (product, warehouse).
	Sequence int64 `json:"sequence" db:"sequence"`

	OccurredAt  time.Time `json:"occurred_at" db:"occurred_at"`
	ExternalRef string    `json:"external_ref,omitempty" db:"external_ref"`
	TransferID  string    `json:"transfer_id,omitempty" db:"transfer_id"`
	CreatedBy   string    `json:"created_by" db:"created_by"`
	Notes       string    `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SnapshotEntry is the materialized current-quantity view for one
// (product, warehouse) pair. It is derived state: replaying the ledger
// rebuilds it exactly.
type SnapshotEntry struct {
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	WarehouseID  uuid.UUID `json:"warehouse_id" db:"warehouse_id"`
	Available    int       `json:"available" db:"available"`
	Reserved     int       `json:"reserved" db:"reserved"`
	LastSequence int64     `json:"last_sequence" db:"last_sequence"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// DailySale is one day of sales history for a product, supplied by the
// sales-history provider.
type DailySale struct {
	Date     time.Time `json:"date" db:"date"`
	Quantity int       `json:"quantity" db:"quantity"`
}

// ForecastPoint is a single forecasted day.
type ForecastPoint struct {
	Date         time.Time  `json:"date" db:"date"`
	PredictedQty float64    `json:"predicted_qty" db:"predicted_qty"`
	Confidence   Confidence `json:"confidence" db:"confidence"`
}

// ForecastResult is the demand forecast for one product as of one date.
// Recomputation for the same as-of date overwrites the previous result.
type ForecastResult struct {
	ProductID      uuid.UUID       `json:"product_id"`
	AsOfDate       time.Time       `json:"as_of_date"`
	Points         []ForecastPoint `json:"points"`
	Confidence     Confidence      `json:"confidence"`
	DataPointsUsed int             `json:"data_points_used"`
	Volatile       bool            `json:"volatile"`

	// Inactive is set when the moving-average window contains zero sales,
	// even if the product sold earlier. A degenerate forecast, not an error.
	Inactive bool `json:"inactive"`
}

// DailyRate returns the first-day predicted quantity, the daily burn rate
// used by the recommendation engine.
func (f ForecastResult) DailyRate() float64 {
	if len(f.Points) == 0 {
		return 0
	}
	return f.Points[0].PredictedQty
}

// HorizonTotal sums the predicted quantities across the full horizon.
func (f ForecastResult) HorizonTotal() float64 {
	var total float64
	for _, p := range f.Points {
		total += p.PredictedQty
	}
	return total
}

// Recommendation is the procurement recommendation for one product on one
// analysis date. At most one row per (product, date); reruns upsert.
type Recommendation struct {
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	AnalysisDate time.Time `json:"analysis_date" db:"analysis_date"`

	CurrentStock  int             `json:"current_stock" db:"current_stock"`
	DailyBurnRate decimal.Decimal `json:"daily_burn_rate" db:"daily_burn_rate"`

	// RunwayDays is whole days of cover at the current burn rate. When the
	// burn rate is zero the runway is unbounded: Unbounded is set,
	// RunwayDays is 0 and StockoutDate is nil.
	RunwayDays   int        `json:"runway_days" db:"runway_days"`
	Unbounded    bool       `json:"unbounded" db:"unbounded"`
	StockoutDate *time.Time `json:"stockout_date,omitempty" db:"stockout_date"`

	RecommendedQty int             `json:"recommended_qty" db:"recommended_qty"`
	OpenPOQty      int             `json:"open_po_qty" db:"open_po_qty"`
	ActionCategory ActionCategory  `json:"action_category" db:"action_category"`
	PriorityScore  decimal.Decimal `json:"priority_score" db:"priority_score"`
	Confidence     Confidence      `json:"confidence" db:"confidence"`
	Notes          string          `json:"notes" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WarehouseStock is the per-warehouse slice of an inventory status response.
type WarehouseStock struct {
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	WarehouseName string    `json:"warehouse_name"`
	Available     int       `json:"available"`
	Reserved      int       `json:"reserved"`
}

// InventoryStatus is the dashboard view of a product's stock.
type InventoryStatus struct {
	ProductID     uuid.UUID        `json:"product_id"`
	PerWarehouse  []WarehouseStock `json:"per_warehouse"`
	TotalOnHand   int              `json:"total"`
	TotalReserved int              `json:"total_reserved"`
}
