package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/repository"
)

// salesHistoryRepository reads pre-aggregated daily sales. The aggregates
// are written by the marketplace sync pipeline, outside this core.
type salesHistoryRepository struct {
	db *DB
}

func NewSalesHistoryRepository(db *DB) repository.SalesHistoryRepository {
	return &salesHistoryRepository{db: db}
}

func (r *salesHistoryRepository) GetSalesHistory(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]domain.DailySale, error) {
	query := `
		SELECT date, quantity
		FROM daily_sales
		WHERE product_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`
	var sales []domain.DailySale
	if err := r.db.SelectContext(ctx, &sales, query, productID, from, to); err != nil {
		return nil, fmt.Errorf("error getting sales history: %w", err)
	}
	return sales, nil
}

// purchaseOrderRepository sums open purchase-order quantities. Order rows
// are owned by the procurement workflow, outside this core.
type purchaseOrderRepository struct {
	db *DB
}

func NewPurchaseOrderRepository(db *DB) repository.PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

func (r *purchaseOrderRepository) GetOpenOrderQuantity(ctx context.Context, productID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(SUM(i.quantity_ordered - i.quantity_received), 0)
		FROM purchase_order_items i
		JOIN purchase_orders o ON o.id = i.purchase_order_id
		WHERE i.product_id = $1
		  AND o.status IN ('SUBMITTED', 'CONFIRMED', 'IN_TRANSIT')
		  AND i.quantity_ordered > i.quantity_received
	`
	var qty int
	if err := r.db.GetContext(ctx, &qty, query, productID); err != nil {
		return 0, fmt.Errorf("error getting open order quantity: %w", err)
	}
	return qty, nil
}
