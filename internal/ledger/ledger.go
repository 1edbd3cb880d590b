package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/repository"
	"github.com/stockpilot/stockpilot/pkg/logger"
)

const (
	// maxCommitRetries bounds automatic retries after a lost update from
	// an out-of-band writer.
	maxCommitRetries = 3

	// largeAdjustmentPct is the guard threshold: adjustments above this
	// share of current stock need explicit confirmation.
	largeAdjustmentPct = 50.0
)

// Ledger is the single write path for stock quantities. All mutations for a
// (product, warehouse) key are serialized here; the snapshot view is updated
// in the same store transaction as the movement row.
type Ledger struct {
	store repository.LedgerStore
	locks *keyLock
	log   zerolog.Logger
}

// New creates a Ledger over a store.
func New(store repository.LedgerStore) *Ledger {
	return &Ledger{
		store: store,
		locks: newKeyLock(),
		log:   logger.With("ledger"),
	}
}

// MovementInput describes one requested stock change.
type MovementInput struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Kind        domain.MovementKind

	// Quantity is the signed delta. Ignored when SetTo is present.
	Quantity int

	// SetTo expresses a correction as an absolute target quantity; the
	// ledger converts it to a delta against the current snapshot.
	SetTo *int

	// AllowNegative overrides the no-negative-stock guard.
	AllowNegative bool

	// ConfirmLarge acknowledges an adjustment above the large-adjustment
	// threshold.
	ConfirmLarge bool

	// ExternalRef deduplicates sync replays per (product, warehouse, kind).
	ExternalRef string

	OccurredAt time.Time
	CreatedBy  string
	Notes      string
}

// TransferResult carries the two legs of a committed transfer.
type TransferResult struct {
	Outbound *domain.MovementRecord
	Inbound  *domain.MovementRecord
}

// RecordMovement validates and appends one movement, updating the snapshot
// synchronously. The returned bool is false when the movement was a replay
// of an already-applied external reference; in that case the existing record
// is returned unchanged.
func (l *Ledger) RecordMovement(ctx context.Context, in MovementInput) (*domain.MovementRecord, bool, error) {
	if !in.Kind.Valid() {
		return nil, false, domain.NewValidationError("kind", "unknown movement kind %q", in.Kind)
	}
	if in.SetTo == nil && in.Quantity == 0 {
		return nil, false, domain.NewValidationError("quantity", "movement delta must be non-zero")
	}
	if in.SetTo != nil && *in.SetTo < 0 {
		return nil, false, domain.NewValidationError("set_to", "corrected quantity must be non-negative")
	}

	unlock := l.locks.Lock(movementKey(in.ProductID, in.WarehouseID))
	defer unlock()

	if in.ExternalRef != "" {
		existing, err := l.store.FindMovementByRef(ctx, in.ProductID, in.WarehouseID, in.Kind, in.ExternalRef)
		if err == nil {
			l.log.Debug().
				Str("product_id", in.ProductID.String()).
				Str("external_ref", in.ExternalRef).
				Msg("movement already applied, returning existing record")
			return existing, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, fmt.Errorf("dedupe lookup failed: %w", err)
		}
	}

	var rec *domain.MovementRecord
	for attempt := 0; ; attempt++ {
		snap, err := l.store.GetSnapshot(ctx, in.ProductID, in.WarehouseID)
		if err != nil {
			return nil, false, err
		}

		delta := in.Quantity
		if in.SetTo != nil {
			delta = *in.SetTo - snap.Available
			if delta == 0 {
				return nil, false, domain.NewValidationError("set_to", "correction resolves to a zero delta")
			}
		}

		newAvailable := snap.Available + delta
		if newAvailable < 0 && !in.AllowNegative {
			return nil, false, domain.NewValidationError("quantity",
				"insufficient stock: available %d, requested %d", snap.Available, -delta)
		}

		if in.Kind == domain.MovementAdjustment && !in.ConfirmLarge {
			if pct := adjustmentShare(delta, snap.Available); pct > largeAdjustmentPct {
				return nil, false, &domain.LargeAdjustmentError{Percent: pct}
			}
		}

		now := time.Now()
		occurred := in.OccurredAt
		if occurred.IsZero() {
			occurred = now
		}

		rec = &domain.MovementRecord{
			ID:           uuid.New(),
			ProductID:    in.ProductID,
			WarehouseID:  in.WarehouseID,
			Kind:         in.Kind,
			Quantity:     delta,
			ResultingQty: newAvailable,
			Sequence:     snap.LastSequence + 1,
			OccurredAt:   occurred,
			ExternalRef:  in.ExternalRef,
			CreatedBy:    in.CreatedBy,
			Notes:        in.Notes,
			CreatedAt:    now,
		}
		newSnap := snap
		newSnap.Available = newAvailable
		newSnap.LastSequence = rec.Sequence
		newSnap.UpdatedAt = now

		err = l.store.CommitMovement(ctx, rec, newSnap, snap.LastSequence)
		if err == nil {
			break
		}
		if domain.IsConcurrencyConflict(err) && attempt < maxCommitRetries {
			l.log.Warn().
				Str("product_id", in.ProductID.String()).
				Int("attempt", attempt+1).
				Msg("ledger commit conflict, retrying")
			continue
		}
		return nil, false, err
	}

	l.log.Info().
		Str("product_id", rec.ProductID.String()).
		Str("warehouse_id", rec.WarehouseID.String()).
		Str("kind", string(rec.Kind)).
		Int("quantity", rec.Quantity).
		Int("resulting_qty", rec.ResultingQty).
		Int64("sequence", rec.Sequence).
		Msg("movement recorded")
	return rec, true, nil
}

// Transfer moves quantity between two warehouses as two movement records
// committed atomically. The source must have sufficient available stock;
// on any validation or commit failure neither leg is written.
func (l *Ledger) Transfer(ctx context.Context, productID, sourceWH, destWH uuid.UUID, quantity int, createdBy string) (*TransferResult, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "transfer quantity must be positive")
	}
	if sourceWH == destWH {
		return nil, domain.NewValidationError("warehouse", "source and destination must differ")
	}

	srcKey := movementKey(productID, sourceWH)
	dstKey := movementKey(productID, destWH)
	unlock := l.locks.LockPair(srcKey, dstKey)
	defer unlock()

	for attempt := 0; ; attempt++ {
		srcSnap, err := l.store.GetSnapshot(ctx, productID, sourceWH)
		if err != nil {
			return nil, err
		}
		dstSnap, err := l.store.GetSnapshot(ctx, productID, destWH)
		if err != nil {
			return nil, err
		}

		if srcSnap.Available < quantity {
			return nil, domain.NewValidationError("quantity",
				"insufficient stock in source warehouse: available %d, requested %d", srcSnap.Available, quantity)
		}

		now := time.Now()
		transferID := uuid.New().String()

		out := &domain.MovementRecord{
			ID:           uuid.New(),
			ProductID:    productID,
			WarehouseID:  sourceWH,
			Kind:         domain.MovementTransferOut,
			Quantity:     -quantity,
			ResultingQty: srcSnap.Available - quantity,
			Sequence:     srcSnap.LastSequence + 1,
			OccurredAt:   now,
			TransferID:   transferID,
			CreatedBy:    createdBy,
			CreatedAt:    now,
		}
		in := &domain.MovementRecord{
			ID:           uuid.New(),
			ProductID:    productID,
			WarehouseID:  destWH,
			Kind:         domain.MovementTransferIn,
			Quantity:     quantity,
			ResultingQty: dstSnap.Available + quantity,
			Sequence:     dstSnap.LastSequence + 1,
			OccurredAt:   now,
			TransferID:   transferID,
			CreatedBy:    createdBy,
			CreatedAt:    now,
		}

		newSrc := srcSnap
		newSrc.Available = out.ResultingQty
		newSrc.LastSequence = out.Sequence
		newSrc.UpdatedAt = now

		newDst := dstSnap
		newDst.Available = in.ResultingQty
		newDst.LastSequence = in.Sequence
		newDst.UpdatedAt = now

		err = l.store.CommitTransfer(ctx, out, in, newSrc, newDst, srcSnap.LastSequence, dstSnap.LastSequence)
		if err == nil {
			l.log.Info().
				Str("product_id", productID.String()).
				Str("source", sourceWH.String()).
				Str("dest", destWH.String()).
				Int("quantity", quantity).
				Msg("transfer committed")
			return &TransferResult{Outbound: out, Inbound: in}, nil
		}
		if domain.IsConcurrencyConflict(err) && attempt < maxCommitRetries {
			continue
		}
		return nil, err
	}
}

// GetAvailable sums available quantity for a product, across all
// warehouses when warehouseID is nil.
func (l *Ledger) GetAvailable(ctx context.Context, productID uuid.UUID, warehouseID *uuid.UUID) (int, error) {
	if warehouseID != nil {
		snap, err := l.store.GetSnapshot(ctx, productID, *warehouseID)
		if err != nil {
			return 0, err
		}
		return snap.Available, nil
	}

	snaps, err := l.store.ListSnapshots(ctx, productID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, snap := range snaps {
		total += snap.Available
	}
	return total, nil
}

// Snapshots returns the per-warehouse snapshot rows for a product.
func (l *Ledger) Snapshots(ctx context.Context, productID uuid.UUID) ([]domain.SnapshotEntry, error) {
	return l.store.ListSnapshots(ctx, productID)
}

// History lists movements for a key ordered by sequence.
func (l *Ledger) History(ctx context.Context, productID, warehouseID uuid.UUID, from, to time.Time, limit int) ([]domain.MovementRecord, error) {
	return l.store.ListMovements(ctx, productID, warehouseID, from, to, limit)
}

// HadStockout reports whether the product hit zero or negative available
// stock in any warehouse since the given time.
func (l *Ledger) HadStockout(ctx context.Context, productID uuid.UUID, since time.Time) (bool, error) {
	return l.store.HadStockout(ctx, productID, since)
}

// ReplaySnapshot rebuilds the snapshot for a key from the movement log
// alone. It does not persist anything; it exists for verification and for
// conservation checks in tests.
func (l *Ledger) ReplaySnapshot(ctx context.Context, productID, warehouseID uuid.UUID) (domain.SnapshotEntry, error) {
	movs, err := l.store.ListMovements(ctx, productID, warehouseID, time.Time{}, time.Time{}, 0)
	if err != nil {
		return domain.SnapshotEntry{}, err
	}

	snap := domain.SnapshotEntry{ProductID: productID, WarehouseID: warehouseID}
	for _, mov := range movs {
		snap.Available += mov.Quantity
		snap.LastSequence = mov.Sequence
		if mov.OccurredAt.After(snap.UpdatedAt) {
			snap.UpdatedAt = mov.OccurredAt
		}
	}
	return snap, nil
}

// adjustmentShare computes the adjustment magnitude as a percentage of
// current stock. An adjustment against zero stock always trips the guard.
func adjustmentShare(delta, available int) float64 {
	mag := delta
	if mag < 0 {
		mag = -mag
	}
	if available <= 0 {
		return 100.0
	}
	return float64(mag) / float64(available) * 100.0
}
