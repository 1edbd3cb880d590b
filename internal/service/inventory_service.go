package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stockpilot/stockpilot/internal/cache"
	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/ledger"
	"github.com/stockpilot/stockpilot/internal/repository"
)

// InventoryService is the application surface over the movement ledger:
// status reads served through the cache, movement and transfer writes with
// cache invalidation, and movement history.
type InventoryService struct {
	ledger     *ledger.Ledger
	warehouses repository.WarehouseRepository
	cache      cache.InventoryCache
}

func NewInventoryService(led *ledger.Ledger, warehouses repository.WarehouseRepository, cacheImpl cache.InventoryCache) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopInventoryCache()
	}
	return &InventoryService{ledger: led, warehouses: warehouses, cache: cacheImpl}
}

// GetStatus returns the per-warehouse stock breakdown for a product.
func (s *InventoryService) GetStatus(ctx context.Context, productID uuid.UUID) (*domain.InventoryStatus, error) {
	if status, ok, err := s.cache.GetStatus(ctx, productID); err == nil && ok {
		return status, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("inventory: cache get status failed")
	}

	snaps, err := s.ledger.Snapshots(ctx, productID)
	if err != nil {
		return nil, err
	}

	status := &domain.InventoryStatus{
		ProductID:    productID,
		PerWarehouse: make([]domain.WarehouseStock, 0, len(snaps)),
	}
	for _, snap := range snaps {
		name := ""
		if wh, err := s.warehouses.GetByID(ctx, snap.WarehouseID); err == nil {
			name = wh.Name
		}
		status.PerWarehouse = append(status.PerWarehouse, domain.WarehouseStock{
			WarehouseID:   snap.WarehouseID,
			WarehouseName: name,
			Available:     snap.Available,
			Reserved:      snap.Reserved,
		})
		status.TotalOnHand += snap.Available
		status.TotalReserved += snap.Reserved
	}

	if err := s.cache.SetStatus(ctx, status); err != nil {
		log.Warn().Err(err).Msg("inventory: cache set status failed")
	}
	return status, nil
}

// RecordMovement appends a movement and invalidates the product's cached
// status. The bool reports whether a new record was created; false means
// the external reference had already been applied.
func (s *InventoryService) RecordMovement(ctx context.Context, in ledger.MovementInput) (*domain.MovementRecord, bool, error) {
	rec, created, err := s.ledger.RecordMovement(ctx, in)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.invalidate(ctx, in.ProductID)
	}
	return rec, created, nil
}

// Transfer moves stock between warehouses atomically.
func (s *InventoryService) Transfer(ctx context.Context, productID, sourceWH, destWH uuid.UUID, quantity int, createdBy string) (*ledger.TransferResult, error) {
	res, err := s.ledger.Transfer(ctx, productID, sourceWH, destWH, quantity, createdBy)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, productID)
	return res, nil
}

// History lists movements for a product and warehouse.
func (s *InventoryService) History(ctx context.Context, productID, warehouseID uuid.UUID, from, to time.Time, limit int) ([]domain.MovementRecord, error) {
	return s.ledger.History(ctx, productID, warehouseID, from, to, limit)
}

// Warehouses lists a tenant's warehouses.
func (s *InventoryService) Warehouses(ctx context.Context, tenantID uuid.UUID) ([]domain.Warehouse, error) {
	return s.warehouses.ListByTenant(ctx, tenantID)
}

// SaveWarehouse creates or updates a warehouse; marking one primary demotes
// the previous primary.
func (s *InventoryService) SaveWarehouse(ctx context.Context, wh *domain.Warehouse) error {
	return s.warehouses.Save(ctx, wh)
}

func (s *InventoryService) invalidate(ctx context.Context, productID uuid.UUID) {
	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		log.Warn().Err(err).
			Str("product_id", productID.String()).
			Msg("inventory: cache invalidation failed")
	}
}
