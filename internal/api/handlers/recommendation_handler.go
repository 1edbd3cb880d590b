package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stockpilot/stockpilot/internal/export"
	"github.com/stockpilot/stockpilot/internal/service"
)

type RecommendationHandler struct {
	service  *service.RecommendationService
	exporter *export.Exporter
}

func NewRecommendationHandler(service *service.RecommendationService, exporter *export.Exporter) *RecommendationHandler {
	return &RecommendationHandler{service: service, exporter: exporter}
}

type runRequest struct {
	TenantID       uuid.UUID `json:"tenant_id" binding:"required"`
	Date           string    `json:"date"`
	TimeoutSeconds int       `json:"timeout_seconds"`
}

type exportRequest struct {
	TenantID uuid.UUID `json:"tenant_id" binding:"required"`
	Date     string    `json:"date"`
}

// List returns a tenant's recommendations for a date ordered by priority.
func (h *RecommendationHandler) List(c *gin.Context) {
	tenantID, ok := parseUUIDQuery(c, "tenant_id")
	if !ok {
		return
	}
	date, ok := parseDateQuery(c, "date")
	if !ok {
		return
	}

	recs, err := h.service.List(c.Request.Context(), tenantID, date)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
}

// Get returns one product's recommendation for a date.
func (h *RecommendationHandler) Get(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "product_id")
	if !ok {
		return
	}
	date, ok := parseDateQuery(c, "date")
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), productID, date)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetForecast returns one product's stored forecast for a date.
func (h *RecommendationHandler) GetForecast(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "product_id")
	if !ok {
		return
	}
	date, ok := parseDateQuery(c, "date")
	if !ok {
		return
	}

	fc, err := h.service.GetForecast(c.Request.Context(), productID, date)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc)
}

// RunDaily triggers the batch run for a tenant, optionally bounded by a
// deadline. The report is returned synchronously.
func (h *RecommendationHandler) RunDaily(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, ok := resolveDate(c, req.Date)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if req.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	report, err := h.service.RunDaily(ctx, req.TenantID, date)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Export uploads the tenant's daily report to object storage.
func (h *RecommendationHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export is not configured"})
		return
	}

	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, ok := resolveDate(c, req.Date)
	if !ok {
		return
	}

	key, err := h.exporter.Export(c.Request.Context(), req.TenantID, date)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key})
}

// resolveDate parses a YYYY-MM-DD body value, defaulting to today (UTC).
func resolveDate(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}
