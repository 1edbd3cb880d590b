package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/cache"
	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/ledger"
	"github.com/stockpilot/stockpilot/internal/repository/memory"
	"github.com/stockpilot/stockpilot/internal/service"
)

type apiFixture struct {
	router     *gin.Engine
	productID  uuid.UUID
	warehouseA uuid.UUID
	warehouseB uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tenantID := uuid.New()
	warehouses := memory.NewWarehouseRepository()
	whA := &domain.Warehouse{ID: uuid.New(), TenantID: tenantID, Name: "Main", Type: domain.WarehouseOwned, IsPrimary: true, IsActive: true}
	whB := &domain.Warehouse{ID: uuid.New(), TenantID: tenantID, Name: "Overflow", Type: domain.WarehouseOwned, IsActive: true}
	ctx := context.Background()
	require.NoError(t, warehouses.Save(ctx, whA))
	require.NoError(t, warehouses.Save(ctx, whB))

	led := ledger.New(memory.NewLedgerStore())
	inventory := service.NewInventoryService(led, warehouses, cache.NewNoopInventoryCache())

	return &apiFixture{
		router:     NewRouter(&Services{Inventory: inventory}, nil),
		productID:  uuid.New(),
		warehouseA: whA.ID,
		warehouseB: whB.ID,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) postMovement(t *testing.T, kind string, qty int, extra map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body := map[string]any{
		"product_id":   f.productID,
		"warehouse_id": f.warehouseA,
		"kind":         kind,
		"quantity":     qty,
	}
	for k, v := range extra {
		body[k] = v
	}
	return f.do(t, http.MethodPost, "/api/v1/inventory/movements", body)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordMovementAndStatus(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.postMovement(t, "INITIAL_LOAD", 100, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["created"])

	rec = f.postMovement(t, "OUTBOUND", -30, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/inventory/products/%s/status", f.productID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status domain.InventoryStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 70, status.TotalOnHand)
	require.Len(t, status.PerWarehouse, 1)
	assert.Equal(t, "Main", status.PerWarehouse[0].WarehouseName)
}

func TestRecordMovementReplayReturns200(t *testing.T) {
	f := newAPIFixture(t)
	extra := map[string]any{"external_ref": "order-9001"}

	rec := f.postMovement(t, "INITIAL_LOAD", 50, extra)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.postMovement(t, "INITIAL_LOAD", 50, extra)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["created"])
}

func TestRecordMovementValidation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.postMovement(t, "TELEPORT", 5, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Insufficient stock surfaces as a validation failure.
	rec = f.postMovement(t, "OUTBOUND", -10, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestLargeAdjustmentNeedsConfirmation(t *testing.T) {
	f := newAPIFixture(t)
	require.Equal(t, http.StatusCreated, f.postMovement(t, "INITIAL_LOAD", 100, nil).Code)

	rec := f.postMovement(t, "ADJUSTMENT", -80, nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["confirmation_required"])
	assert.InDelta(t, 80.0, body["adjustment_percent"], 0.01)

	rec = f.postMovement(t, "ADJUSTMENT", -80, map[string]any{"confirm_large": true})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestTransferEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	require.Equal(t, http.StatusCreated, f.postMovement(t, "INITIAL_LOAD", 40, nil).Code)

	rec := f.do(t, http.MethodPost, "/api/v1/inventory/transfers", map[string]any{
		"product_id":          f.productID,
		"source_warehouse_id": f.warehouseA,
		"dest_warehouse_id":   f.warehouseB,
		"quantity":            15,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/inventory/products/%s/status", f.productID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status domain.InventoryStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 40, status.TotalOnHand)
	require.Len(t, status.PerWarehouse, 2)
}

func TestStatusUntouchedProductIsEmpty(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/inventory/products/%s/status", uuid.New()), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status domain.InventoryStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Zero(t, status.TotalOnHand)
	assert.Empty(t, status.PerWarehouse)
}

func TestStatusRejectsMalformedProductID(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/inventory/products/not-a-uuid/status", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMovementHistoryEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	require.Equal(t, http.StatusCreated, f.postMovement(t, "INITIAL_LOAD", 10, nil).Code)
	require.Equal(t, http.StatusCreated, f.postMovement(t, "INBOUND", 5, nil).Code)

	path := fmt.Sprintf("/api/v1/inventory/products/%s/movements?warehouse_id=%s", f.productID, f.warehouseA)
	rec := f.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["count"])

	// warehouse_id is mandatory for history lookups.
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/inventory/products/%s/movements", f.productID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, allowAll)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, allowAll = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, allowAll)
}
