package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/domain"
	"github.com/stockpilot/stockpilot/internal/ledger"
	"github.com/stockpilot/stockpilot/internal/service"
)

type InventoryHandler struct {
	service *service.InventoryService
}

func NewInventoryHandler(service *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

type movementRequest struct {
	ProductID     uuid.UUID  `json:"product_id" binding:"required"`
	WarehouseID   uuid.UUID  `json:"warehouse_id" binding:"required"`
	Kind          string     `json:"kind" binding:"required"`
	Quantity      int        `json:"quantity"`
	SetTo         *int       `json:"set_to"`
	AllowNegative bool       `json:"allow_negative"`
	ConfirmLarge  bool       `json:"confirm_large"`
	ExternalRef   string     `json:"external_ref"`
	OccurredAt    *time.Time `json:"occurred_at"`
	CreatedBy     string     `json:"created_by"`
	Notes         string     `json:"notes"`
}

type transferRequest struct {
	ProductID         uuid.UUID `json:"product_id" binding:"required"`
	SourceWarehouseID uuid.UUID `json:"source_warehouse_id" binding:"required"`
	DestWarehouseID   uuid.UUID `json:"dest_warehouse_id" binding:"required"`
	Quantity          int       `json:"quantity" binding:"required"`
	CreatedBy         string    `json:"created_by"`
}

// GetStatus returns the per-warehouse stock breakdown for a product.
func (h *InventoryHandler) GetStatus(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "product_id")
	if !ok {
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), productID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetHistory lists a product's movements in one warehouse.
func (h *InventoryHandler) GetHistory(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "product_id")
	if !ok {
		return
	}
	warehouseID, ok := parseUUIDQuery(c, "warehouse_id")
	if !ok {
		return
	}

	var from, to time.Time
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from, expected YYYY-MM-DD"})
			return
		}
		from = parsed
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to, expected YYYY-MM-DD"})
			return
		}
		to = parsed
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	movements, err := h.service.History(c.Request.Context(), productID, warehouseID, from, to, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements, "count": len(movements)})
}

// RecordMovement appends one stock movement. Replays of an already-applied
// external reference return the original record with a 200 instead of 201.
func (h *InventoryHandler) RecordMovement(c *gin.Context) {
	var req movementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind, ok := domain.ParseMovementKind(req.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown movement kind: " + req.Kind})
		return
	}

	in := ledger.MovementInput{
		ProductID:     req.ProductID,
		WarehouseID:   req.WarehouseID,
		Kind:          kind,
		Quantity:      req.Quantity,
		SetTo:         req.SetTo,
		AllowNegative: req.AllowNegative,
		ConfirmLarge:  req.ConfirmLarge,
		ExternalRef:   req.ExternalRef,
		CreatedBy:     req.CreatedBy,
		Notes:         req.Notes,
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	rec, created, err := h.service.RecordMovement(c.Request.Context(), in)
	if err != nil {
		handleError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"movement": rec, "created": created})
}

// Transfer moves stock between two warehouses atomically.
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Transfer(c.Request.Context(), req.ProductID,
		req.SourceWarehouseID, req.DestWarehouseID, req.Quantity, req.CreatedBy)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"outbound": res.Outbound, "inbound": res.Inbound})
}

// ListWarehouses returns a tenant's warehouses.
func (h *InventoryHandler) ListWarehouses(c *gin.Context) {
	tenantID, ok := parseUUIDQuery(c, "tenant_id")
	if !ok {
		return
	}

	warehouses, err := h.service.Warehouses(c.Request.Context(), tenantID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouses": warehouses})
}

// SaveWarehouse creates or updates a warehouse.
func (h *InventoryHandler) SaveWarehouse(c *gin.Context) {
	var wh domain.Warehouse
	if err := c.ShouldBindJSON(&wh); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if wh.ID == uuid.Nil {
		wh.ID = uuid.New()
	}

	if err := h.service.SaveWarehouse(c.Request.Context(), &wh); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, wh)
}
