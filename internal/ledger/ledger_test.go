package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/repository/memory"
)

func newTestLedger() (*Ledger, *memory.LedgerStore) {
	store := memory.NewLedgerStore()
	return New(store), store
}

func seedStock(t *testing.T, l *Ledger, productID, warehouseID uuid.UUID, qty int) {
	t.Helper()
	_, created, err := l.RecordMovement(context.Background(), MovementInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Kind:        domain.MovementInitialLoad,
		Quantity:    qty,
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestRecordMovement_AppendsAndUpdatesSnapshot(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()

	seedStock(t, l, productID, warehouseID, 100)

	rec, created, err := l.RecordMovement(ctx, MovementInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Kind:        domain.MovementOutbound,
		Quantity:    -30,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, -30, rec.Quantity)
	assert.Equal(t, 70, rec.ResultingQty)
	assert.Equal(t, int64(2), rec.Sequence)

	avail, err := l.GetAvailable(ctx, productID, &warehouseID)
	require.NoError(t, err)
	assert.Equal(t, 70, avail)
}

func TestRecordMovement_RejectsUnknownKindAndZeroDelta(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	_, _, err := l.RecordMovement(ctx, MovementInput{
		ProductID:   uuid.New(),
		WarehouseID: uuid.New(),
		Kind:        domain.MovementKind("RESTOCK"),
		Quantity:    5,
	})
	assert.True(t, domain.IsValidation(err))

	_, _, err = l.RecordMovement(ctx, MovementInput{
		ProductID:   uuid.New(),
		WarehouseID: uuid.New(),
		Kind:        domain.MovementInbound,
		Quantity:    0,
	})
	assert.True(t, domain.IsValidation(err))
}

func TestRecordMovement_PreventsNegativeStock(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()

	seedStock(t, l, productID, warehouseID, 10)

	_, _, err := l.RecordMovement(ctx, MovementInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Kind:        domain.MovementOutbound,
		Quantity:    -11,
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	avail, err := l.GetAvailable(ctx, productID, &warehouseID)
	require.NoError(t, err)
	assert.Equal(t, 10, avail)

	// explicit override permits a negative balance
	rec, _, err := l.RecordMovement(ctx, MovementInput{
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Kind:          domain.MovementOutbound,
		Quantity:      -11,
		AllowNegative: true,
	})
	require.NoError(t, err)
	assert.Equal(t, -1, rec.ResultingQty)
}

func TestRecordMovement_DedupesExternalRef(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()

	seedStock(t, l, productID, warehouseID, 50)

	in := MovementInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Kind:        domain.MovementOutbound,
		Quantity:    -5,
		ExternalRef: "shopify-order-1001",
	}
	first, created, err := l.RecordMovement(ctx, in)
	require.NoError(t, err)
	require.True(t, created)

	// replaying the same sync event must not change stock
	replay, created, err := l.RecordMovement(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, replay.ID)

	avail, err := l.GetAvailable(ctx, productID, &warehouseID)
	require.NoError(t, err)
	assert.Equal(t, 45, avail)
}

func TestRecordMovement_SetToCorrection(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()

	seedStock(t, l, productID, warehouseID, 80)

	rec, _, err := l.RecordMovement(ctx, MovementInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Kind:        domain.MovementSyncCorrection,
		SetTo:       intPtr(65),
	})
	require.NoError(t, err)
	assert.Equal(t, -15, rec.Quantity)
	assert.Equal(t, 65, rec.ResultingQty)

	_, _, err = l.RecordMovement(ctx, MovementInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Kind:        domain.MovementSyncCorrection,
		SetTo:       intPtr(-1),
	})
	assert.True(t, domain.IsValidation(err))
}

func TestRecordMovement_LargeAdjustmentGuard(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()

	seedStock(t, l, productID, warehouseID, 100)

	_, _, err := l.RecordMovement(ctx, MovementInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Kind:        domain.MovementAdjustment,
		Quantity:    -51,
	})
	var large *domain.LargeAdjustmentError
	require.ErrorAs(t, err, &large)
	assert.InDelta(t, 51.0, large.Percent, 0.01)

	// at exactly the threshold the movement goes through
	rec, _, err := l.RecordMovement(ctx, MovementInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Kind:        domain.MovementAdjustment,
		Quantity:    -50,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, rec.ResultingQty)

	// confirmation bypasses the guard
	rec, _, err = l.RecordMovement(ctx, MovementInput{
		ProductID:    productID,
		WarehouseID:  warehouseID,
		Kind:         domain.MovementAdjustment,
		Quantity:     -40,
		ConfirmLarge: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, rec.ResultingQty)
}

func TestTransfer_MovesStockAtomically(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	src := uuid.New()
	dst := uuid.New()

	seedStock(t, l, productID, src, 100)

	res, err := l.Transfer(ctx, productID, src, dst, 40, "ops")
	require.NoError(t, err)
	assert.Equal(t, -40, res.Outbound.Quantity)
	assert.Equal(t, 40, res.Inbound.Quantity)
	assert.Equal(t, res.Outbound.TransferID, res.Inbound.TransferID)
	assert.NotEmpty(t, res.Outbound.TransferID)

	srcAvail, err := l.GetAvailable(ctx, productID, &src)
	require.NoError(t, err)
	dstAvail, err := l.GetAvailable(ctx, productID, &dst)
	require.NoError(t, err)
	assert.Equal(t, 60, srcAvail)
	assert.Equal(t, 40, dstAvail)

	total, err := l.GetAvailable(ctx, productID, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, total)
}

func TestTransfer_InsufficientStockWritesNothing(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	src := uuid.New()
	dst := uuid.New()

	seedStock(t, l, productID, src, 10)

	_, err := l.Transfer(ctx, productID, src, dst, 25, "ops")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	srcMovs, err := l.History(ctx, productID, src, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, srcMovs, 1) // only the initial load
	dstMovs, err := l.History(ctx, productID, dst, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, dstMovs)
}

func TestTransfer_RejectsSameWarehouseAndNonPositiveQty(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	wh := uuid.New()

	_, err := l.Transfer(ctx, productID, wh, wh, 5, "ops")
	assert.True(t, domain.IsValidation(err))

	_, err = l.Transfer(ctx, productID, wh, uuid.New(), 0, "ops")
	assert.True(t, domain.IsValidation(err))
}

func TestReplaySnapshot_MatchesLiveSnapshot(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()

	seedStock(t, l, productID, warehouseID, 200)
	deltas := []int{-30, 15, -5, -60, 25}
	for _, d := range deltas {
		kind := domain.MovementInbound
		if d < 0 {
			kind = domain.MovementOutbound
		}
		_, _, err := l.RecordMovement(ctx, MovementInput{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Kind:        kind,
			Quantity:    d,
		})
		require.NoError(t, err)
	}

	replayed, err := l.ReplaySnapshot(ctx, productID, warehouseID)
	require.NoError(t, err)
	avail, err := l.GetAvailable(ctx, productID, &warehouseID)
	require.NoError(t, err)
	assert.Equal(t, avail, replayed.Available)
	assert.Equal(t, int64(len(deltas)+1), replayed.LastSequence)
}

func TestRecordMovement_ConcurrentWritersKeepSequenceStrict(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()

	const writers = 32
	seedStock(t, l, productID, warehouseID, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := l.RecordMovement(ctx, MovementInput{
				ProductID:   productID,
				WarehouseID: warehouseID,
				Kind:        domain.MovementOutbound,
				Quantity:    -1,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	avail, err := l.GetAvailable(ctx, productID, &warehouseID)
	require.NoError(t, err)
	assert.Equal(t, 0, avail)

	movs, err := l.History(ctx, productID, warehouseID, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, movs, writers+1)
	for i, mov := range movs {
		assert.Equal(t, int64(i+1), mov.Sequence)
	}
}

func TestHadStockout_DetectsZeroBalance(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()

	seedStock(t, l, productID, warehouseID, 5)

	hit, err := l.HadStockout(ctx, productID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, hit)

	_, _, err = l.RecordMovement(ctx, MovementInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Kind:        domain.MovementOutbound,
		Quantity:    -5,
	})
	require.NoError(t, err)

	hit, err = l.HadStockout(ctx, productID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestHadStockout_DetectsOversellPastZero(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()

	seedStock(t, l, productID, warehouseID, 5)

	// Oversell straight from +5 to -2: there is no movement with a zero
	// resulting quantity, but the product still stocked out.
	rec, _, err := l.RecordMovement(ctx, MovementInput{
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Kind:          domain.MovementOutbound,
		Quantity:      -7,
		AllowNegative: true,
	})
	require.NoError(t, err)
	require.Equal(t, -2, rec.ResultingQty)

	hit, err := l.HadStockout(ctx, productID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, hit)
}

func intPtr(v int) *int { return &v }
