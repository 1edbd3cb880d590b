package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/stockpilot/stockpilot/internal/api"
	"github.com/stockpilot/stockpilot/internal/batch"
	"github.com/stockpilot/stockpilot/internal/cache"
	"github.com/stockpilot/stockpilot/internal/config"
	"github.com/stockpilot/stockpilot/internal/export"
	"github.com/stockpilot/stockpilot/internal/ledger"
	"github.com/stockpilot/stockpilot/internal/recommend"
	"github.com/stockpilot/stockpilot/internal/repository/postgres"
	"github.com/stockpilot/stockpilot/internal/service"
	"github.com/stockpilot/stockpilot/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ledgerStore := postgres.NewLedgerStore(db)
	products := postgres.NewProductRepository(db)
	warehouses := postgres.NewWarehouseRepository(db)
	forecasts := postgres.NewForecastRepository(db)
	recommendations := postgres.NewRecommendationRepository(db)
	sales := postgres.NewSalesHistoryRepository(db)
	orders := postgres.NewPurchaseOrderRepository(db)

	inventoryCache, err := cache.NewInventoryCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to cache")
	}
	recommendationCache, err := cache.NewRecommendationCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to cache")
	}

	led := ledger.New(ledgerStore)

	engine := recommend.NewEngine(recommend.Config{
		Defaults: recommend.Params{
			LeadTimeDays:       cfg.Procurement.DefaultLeadTimeDays,
			SafetyStockDays:    cfg.Procurement.DefaultSafetyStockDays,
			MinOrderQty:        cfg.Procurement.DefaultMinOrderQty,
			HighValueThreshold: decimal.NewFromFloat(cfg.Procurement.HighValueThreshold),
		},
		HistoryDays:          cfg.Batch.HistoryDays,
		HorizonDays:          cfg.Batch.HorizonDays,
		StockoutLookbackDays: cfg.Procurement.StockoutLookbackDays,
	}, led, sales, orders, forecasts, recommendations)

	orchestrator := batch.New(batch.Config{
		Workers:       cfg.Batch.Workers,
		RetryAttempts: cfg.Batch.RetryAttempts,
		RetryBackoff:  time.Duration(cfg.Batch.RetryBackoffMS) * time.Millisecond,
	}, products, engine)

	services := &api.Services{
		Inventory:       service.NewInventoryService(led, warehouses, inventoryCache),
		Recommendations: service.NewRecommendationService(recommendations, forecasts, orchestrator, recommendationCache),
	}

	if cfg.Export.Enabled {
		storage, err := export.NewMinioClient(cfg.Export)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to configure export storage")
		}
		services.Exporter = export.NewExporter(storage, recommendations, products)
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
