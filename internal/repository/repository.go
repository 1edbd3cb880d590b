package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/domain"
)

// LedgerStore persists movement records and their derived snapshots. Commit
// methods are atomic: the movement row(s) and snapshot update(s) land
// together or not at all, and the snapshot write is guarded by an optimistic
// sequence check that surfaces ConcurrencyConflict on a lost update.
type LedgerStore interface {
	// GetSnapshot returns the snapshot for a key, or a zero-quantity entry
	// (LastSequence 0) when no movement has touched the key yet.
	GetSnapshot(ctx context.Context, productID, warehouseID uuid.UUID) (domain.SnapshotEntry, error)

	// ListSnapshots returns all snapshots for a product.
	ListSnapshots(ctx context.Context, productID uuid.UUID) ([]domain.SnapshotEntry, error)

	// FindMovementByRef looks up a movement by its external reference for
	// idempotent sync replay. Returns ErrNotFound when absent.
	FindMovementByRef(ctx context.Context, productID, warehouseID uuid.UUID, kind domain.MovementKind, ref string) (*domain.MovementRecord, error)

	// CommitMovement appends one movement and overwrites its snapshot,
	// atomically. expectedSeq is the snapshot sequence observed by the
	// caller; a mismatch at commit time returns ConcurrencyConflict.
	CommitMovement(ctx context.Context, mov *domain.MovementRecord, snap domain.SnapshotEntry, expectedSeq int64) error

	// CommitTransfer appends the outbound and inbound legs of a transfer
	// and both snapshot updates in one transaction.
	CommitTransfer(ctx context.Context, out, in *domain.MovementRecord, outSnap, inSnap domain.SnapshotEntry, outExpected, inExpected int64) error

	// ListMovements returns movements for a key ordered by sequence,
	// optionally bounded by occurred-at dates. limit <= 0 means no limit.
	ListMovements(ctx context.Context, productID, warehouseID uuid.UUID, from, to time.Time, limit int) ([]domain.MovementRecord, error)

	// HadStockout reports whether any movement drove a warehouse's
	// available quantity to zero or below for the product since the
	// given time.
	HadStockout(ctx context.Context, productID uuid.UUID, since time.Time) (bool, error)
}

// ProductRepository reads the catalog. Products are owned by catalog
// management; this core never writes them.
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Product, error)
}

// WarehouseRepository manages tenant warehouses. Save enforces the
// single-primary invariant: marking a warehouse primary demotes the
// previous primary in the same write.
type WarehouseRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Warehouse, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Warehouse, error)
	Save(ctx context.Context, wh *domain.Warehouse) error
}

// ForecastRepository persists forecast results. Upsert replaces the whole
// point set for (product, as-of date).
type ForecastRepository interface {
	Upsert(ctx context.Context, result domain.ForecastResult) error
	Get(ctx context.Context, productID uuid.UUID, asOfDate time.Time) (*domain.ForecastResult, error)
}

// RecommendationRepository persists procurement recommendations, at most
// one per (product, analysis date).
type RecommendationRepository interface {
	Upsert(ctx context.Context, rec *domain.Recommendation) error
	Get(ctx context.Context, productID uuid.UUID, analysisDate time.Time) (*domain.Recommendation, error)
	ListByTenantAndDate(ctx context.Context, tenantID uuid.UUID, analysisDate time.Time) ([]domain.Recommendation, error)
}

// SalesHistoryRepository is the sales-history provider port.
type SalesHistoryRepository interface {
	GetSalesHistory(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]domain.DailySale, error)
}

// PurchaseOrderRepository is the purchase-order service port: total
// quantity on open or in-transit orders per product.
type PurchaseOrderRepository interface {
	GetOpenOrderQuantity(ctx context.Context, productID uuid.UUID) (int, error)
}
