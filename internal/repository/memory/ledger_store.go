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

type snapshotKey struct {
	productID   uuid.UUID
	warehouseID uuid.UUID
}

type refKey struct {
	productID   uuid.UUID
	warehouseID uuid.UUID
	kind        domain.MovementKind
	ref         string
}

// LedgerStore is an in-memory LedgerStore used by tests and local runs.
type LedgerStore struct {
	mu        sync.RWMutex
	movements []domain.MovementRecord
	snapshots map[snapshotKey]domain.SnapshotEntry
	byRef     map[refKey]int // index into movements
}

// NewLedgerStore creates an empty in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		snapshots: make(map[snapshotKey]domain.SnapshotEntry),
		byRef:     make(map[refKey]int),
	}
}

var _ repository.LedgerStore = (*LedgerStore)(nil)

func (s *LedgerStore) GetSnapshot(_ context.Context, productID, warehouseID uuid.UUID) (domain.SnapshotEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if snap, ok := s.snapshots[snapshotKey{productID, warehouseID}]; ok {
		return snap, nil
	}
	return domain.SnapshotEntry{ProductID: productID, WarehouseID: warehouseID}, nil
}

func (s *LedgerStore) ListSnapshots(_ context.Context, productID uuid.UUID) ([]domain.SnapshotEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SnapshotEntry
	for key, snap := range s.snapshots {
		if key.productID == productID {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WarehouseID.String() < out[j].WarehouseID.String()
	})
	return out, nil
}

func (s *LedgerStore) FindMovementByRef(_ context.Context, productID, warehouseID uuid.UUID, kind domain.MovementKind, ref string) (*domain.MovementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, ok := s.byRef[refKey{productID, warehouseID, kind, ref}]; ok {
		mov := s.movements[idx]
		return &mov, nil
	}
	return nil, domain.ErrNotFound
}

func (s *LedgerStore) CommitMovement(_ context.Context, mov *domain.MovementRecord, snap domain.SnapshotEntry, expectedSeq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey{mov.ProductID, mov.WarehouseID}
	current := s.snapshots[key]
	if current.LastSequence != expectedSeq {
		return &domain.ConcurrencyConflict{
			ProductID:   mov.ProductID,
			WarehouseID: mov.WarehouseID,
			Expected:    expectedSeq,
		}
	}

	s.append(*mov)
	s.snapshots[key] = snap
	return nil
}

func (s *LedgerStore) CommitTransfer(_ context.Context, out, in *domain.MovementRecord, outSnap, inSnap domain.SnapshotEntry, outExpected, inExpected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	outKey := snapshotKey{out.ProductID, out.WarehouseID}
	inKey := snapshotKey{in.ProductID, in.WarehouseID}

	if s.snapshots[outKey].LastSequence != outExpected {
		return &domain.ConcurrencyConflict{ProductID: out.ProductID, WarehouseID: out.WarehouseID, Expected: outExpected}
	}
	if s.snapshots[inKey].LastSequence != inExpected {
		return &domain.ConcurrencyConflict{ProductID: in.ProductID, WarehouseID: in.WarehouseID, Expected: inExpected}
	}

	s.append(*out)
	s.append(*in)
	s.snapshots[outKey] = outSnap
	s.snapshots[inKey] = inSnap
	return nil
}

// append assumes s.mu is held for writing.
func (s *LedgerStore) append(mov domain.MovementRecord) {
	s.movements = append(s.movements, mov)
	if mov.ExternalRef != "" {
		s.byRef[refKey{mov.ProductID, mov.WarehouseID, mov.Kind, mov.ExternalRef}] = len(s.movements) - 1
	}
}

func (s *LedgerStore) ListMovements(_ context.Context, productID, warehouseID uuid.UUID, from, to time.Time, limit int) ([]domain.MovementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.MovementRecord
	for _, mov := range s.movements {
		if mov.ProductID != productID || mov.WarehouseID != warehouseID {
			continue
		}
		if !from.IsZero() && mov.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && mov.OccurredAt.After(to) {
			continue
		}
		out = append(out, mov)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *LedgerStore) HadStockout(_ context.Context, productID uuid.UUID, since time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, mov := range s.movements {
		if mov.ProductID == productID && mov.ResultingQty <= 0 && !mov.OccurredAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}
