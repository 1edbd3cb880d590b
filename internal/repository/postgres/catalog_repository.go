package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/repository"
)

type productRepository struct {
	db *DB
}

// NewProductRepository returns the read-only catalog repository.
func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `
	id, tenant_id, sku, name, cost, is_active,
	lead_time_days, safety_stock_days, min_order_qty, created_at, updated_at
`

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p domain.Product
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND is_active ORDER BY sku`

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query, tenantID); err != nil {
		return nil, fmt.Errorf("error listing active products: %w", err)
	}
	return products, nil
}

type warehouseRepository struct {
	db *DB
}

// NewWarehouseRepository returns the warehouse repository. Save keeps the
// single-primary invariant by demoting the previous primary in the same
// transaction.
func NewWarehouseRepository(db *DB) repository.WarehouseRepository {
	return &warehouseRepository{db: db}
}

const warehouseColumns = `
	id, tenant_id, name, warehouse_type, is_primary, is_active, created_at, updated_at
`

func (r *warehouseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE id = $1`

	var wh domain.Warehouse
	err := r.db.GetContext(ctx, &wh, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting warehouse: %w", err)
	}
	return &wh, nil
}

func (r *warehouseRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE tenant_id = $1 ORDER BY is_primary DESC, name`

	var warehouses []domain.Warehouse
	if err := r.db.SelectContext(ctx, &warehouses, query, tenantID); err != nil {
		return nil, fmt.Errorf("error listing warehouses: %w", err)
	}
	return warehouses, nil
}

func (r *warehouseRepository) Save(ctx context.Context, wh *domain.Warehouse) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if wh.IsPrimary {
			demote := `UPDATE warehouses SET is_primary = FALSE, updated_at = NOW() WHERE tenant_id = $1 AND is_primary AND id <> $2`
			if _, err := tx.ExecContext(ctx, demote, wh.TenantID, wh.ID); err != nil {
				return fmt.Errorf("error demoting primary warehouse: %w", err)
			}
		}

		upsert := `
			INSERT INTO warehouses (id, tenant_id, name, warehouse_type, is_primary, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				warehouse_type = EXCLUDED.warehouse_type,
				is_primary = EXCLUDED.is_primary,
				is_active = EXCLUDED.is_active,
				updated_at = NOW()
		`
		if _, err := tx.ExecContext(ctx, upsert, wh.ID, wh.TenantID, wh.Name, wh.Type, wh.IsPrimary, wh.IsActive); err != nil {
			return fmt.Errorf("error saving warehouse: %w", err)
		}
		return nil
	})
}
