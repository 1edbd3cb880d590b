package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stockpilot/stockpilot/internal/api/handlers"
	"github.com/stockpilot/stockpilot/internal/api/middleware"
	"github.com/stockpilot/stockpilot/internal/export"
	"github.com/stockpilot/stockpilot/internal/service"
)

type Services struct {
	Inventory       *service.InventoryService
	Recommendations *service.RecommendationService
	Exporter        *export.Exporter
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Inventory != nil {
			inventoryHandler := handlers.NewInventoryHandler(services.Inventory)
			inventoryGroup := apiGroup.Group("/inventory")
			{
				inventoryGroup.GET("/products/:product_id/status", inventoryHandler.GetStatus)
				inventoryGroup.GET("/products/:product_id/movements", inventoryHandler.GetHistory)
				inventoryGroup.POST("/movements", inventoryHandler.RecordMovement)
				inventoryGroup.POST("/transfers", inventoryHandler.Transfer)
				inventoryGroup.GET("/warehouses", inventoryHandler.ListWarehouses)
				inventoryGroup.POST("/warehouses", inventoryHandler.SaveWarehouse)
			}
		}

		if services.Recommendations != nil {
			recHandler := handlers.NewRecommendationHandler(services.Recommendations, services.Exporter)
			recGroup := apiGroup.Group("/recommendations")
			{
				recGroup.GET("", recHandler.List)
				recGroup.GET("/products/:product_id", recHandler.Get)
				recGroup.GET("/products/:product_id/forecast", recHandler.GetForecast)
				recGroup.POST("/runs", recHandler.RunDaily)
				recGroup.POST("/exports", recHandler.Export)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
