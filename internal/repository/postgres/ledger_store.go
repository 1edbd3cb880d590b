package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/repository"
)

type ledgerStore struct {
	db *DB
}

// NewLedgerStore returns the postgres-backed ledger store. Movements are
// append-only; snapshots are the derived per-key view guarded by an
// optimistic last_sequence check.
func NewLedgerStore(db *DB) repository.LedgerStore {
	return &ledgerStore{db: db}
}

const insertMovementSQL = `
	INSERT INTO movements (
		id, product_id, warehouse_id, kind, quantity, resulting_qty,
		sequence, occurred_at, external_ref, transfer_id, created_by, notes, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

const upsertSnapshotSQL = `
	INSERT INTO snapshots (product_id, warehouse_id, available, reserved, last_sequence, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (product_id, warehouse_id) DO UPDATE SET
		available = EXCLUDED.available,
		reserved = EXCLUDED.reserved,
		last_sequence = EXCLUDED.last_sequence,
		updated_at = EXCLUDED.updated_at
	WHERE snapshots.last_sequence = $7
`

func (s *ledgerStore) GetSnapshot(ctx context.Context, productID, warehouseID uuid.UUID) (domain.SnapshotEntry, error) {
	var snap domain.SnapshotEntry
	query := `
		SELECT product_id, warehouse_id, available, reserved, last_sequence, updated_at
		FROM snapshots
		WHERE product_id = $1 AND warehouse_id = $2
	`
	err := s.db.GetContext(ctx, &snap, query, productID, warehouseID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SnapshotEntry{ProductID: productID, WarehouseID: warehouseID}, nil
	}
	if err != nil {
		return domain.SnapshotEntry{}, fmt.Errorf("error getting snapshot: %w", err)
	}
	return snap, nil
}

func (s *ledgerStore) ListSnapshots(ctx context.Context, productID uuid.UUID) ([]domain.SnapshotEntry, error) {
	query := `
		SELECT product_id, warehouse_id, available, reserved, last_sequence, updated_at
		FROM snapshots
		WHERE product_id = $1
		ORDER BY warehouse_id
	`
	var snaps []domain.SnapshotEntry
	if err := s.db.SelectContext(ctx, &snaps, query, productID); err != nil {
		return nil, fmt.Errorf("error listing snapshots: %w", err)
	}
	return snaps, nil
}

func (s *ledgerStore) FindMovementByRef(ctx context.Context, productID, warehouseID uuid.UUID, kind domain.MovementKind, ref string) (*domain.MovementRecord, error) {
	query := `
		SELECT id, product_id, warehouse_id, kind, quantity, resulting_qty,
		       sequence, occurred_at, external_ref, transfer_id, created_by, notes, created_at
		FROM movements
		WHERE product_id = $1 AND warehouse_id = $2 AND kind = $3 AND external_ref = $4
		LIMIT 1
	`
	var mov domain.MovementRecord
	err := s.db.GetContext(ctx, &mov, query, productID, warehouseID, kind, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error finding movement by ref: %w", err)
	}
	return &mov, nil
}

func (s *ledgerStore) CommitMovement(ctx context.Context, mov *domain.MovementRecord, snap domain.SnapshotEntry, expectedSeq int64) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertMovement(ctx, tx, mov); err != nil {
			return err
		}
		return applySnapshot(ctx, tx, snap, expectedSeq)
	})
}

func (s *ledgerStore) CommitTransfer(ctx context.Context, out, in *domain.MovementRecord, outSnap, inSnap domain.SnapshotEntry, outExpected, inExpected int64) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertMovement(ctx, tx, out); err != nil {
			return err
		}
		if err := insertMovement(ctx, tx, in); err != nil {
			return err
		}
		if err := applySnapshot(ctx, tx, outSnap, outExpected); err != nil {
			return err
		}
		return applySnapshot(ctx, tx, inSnap, inExpected)
	})
}

func insertMovement(ctx context.Context, tx *sqlx.Tx, mov *domain.MovementRecord) error {
	_, err := tx.ExecContext(ctx, insertMovementSQL,
		mov.ID, mov.ProductID, mov.WarehouseID, mov.Kind, mov.Quantity, mov.ResultingQty,
		mov.Sequence, mov.OccurredAt, mov.ExternalRef, mov.TransferID, mov.CreatedBy, mov.Notes, mov.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting movement: %w", err)
	}
	return nil
}

func applySnapshot(ctx context.Context, tx *sqlx.Tx, snap domain.SnapshotEntry, expectedSeq int64) error {
	res, err := tx.ExecContext(ctx, upsertSnapshotSQL,
		snap.ProductID, snap.WarehouseID, snap.Available, snap.Reserved, snap.LastSequence, snap.UpdatedAt,
		expectedSeq,
	)
	if err != nil {
		return fmt.Errorf("error upserting snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading snapshot upsert result: %w", err)
	}
	if affected == 0 {
		return &domain.ConcurrencyConflict{
			ProductID:   snap.ProductID,
			WarehouseID: snap.WarehouseID,
			Expected:    expectedSeq,
		}
	}
	return nil
}

func (s *ledgerStore) ListMovements(ctx context.Context, productID, warehouseID uuid.UUID, from, to time.Time, limit int) ([]domain.MovementRecord, error) {
	query := `
		SELECT id, product_id, warehouse_id, kind, quantity, resulting_qty,
		       sequence, occurred_at, external_ref, transfer_id, created_by, notes, created_at
		FROM movements
		WHERE product_id = $1 AND warehouse_id = $2
	`
	args := []interface{}{productID, warehouseID}
	argCounter := 3

	if !from.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d", argCounter)
		args = append(args, from)
		argCounter++
	}
	if !to.IsZero() {
		query += fmt.Sprintf(" AND occurred_at <= $%d", argCounter)
		args = append(args, to)
		argCounter++
	}

	query += " ORDER BY sequence"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCounter)
		args = append(args, limit)
	}

	var movs []domain.MovementRecord
	if err := s.db.SelectContext(ctx, &movs, query, args...); err != nil {
		return nil, fmt.Errorf("error listing movements: %w", err)
	}
	return movs, nil
}

func (s *ledgerStore) HadStockout(ctx context.Context, productID uuid.UUID, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM movements
			WHERE product_id = $1 AND occurred_at >= $2 AND resulting_qty <= 0
		)
	`
	var stockedOut bool
	if err := s.db.GetContext(ctx, &stockedOut, query, productID, since); err != nil {
		return false, fmt.Errorf("error checking stockout history: %w", err)
	}
	return stockedOut, nil
}
