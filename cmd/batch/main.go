package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/stockpilot/stockpilot/internal/batch"
	"github.com/stockpilot/stockpilot/internal/config"
	"github.com/stockpilot/stockpilot/internal/export"
	"github.com/stockpilot/stockpilot/internal/ledger"
	"github.com/stockpilot/stockpilot/internal/recommend"
	"github.com/stockpilot/stockpilot/internal/repository/postgres"
	"github.com/stockpilot/stockpilot/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newTenantFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "tenant-id",
		Usage:    "Tenant to process",
		Required: true,
		EnvVars:  []string{"TENANT_ID"},
	}
}

func newDateFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "date",
		Usage: "Analysis date (YYYY-MM-DD), defaults to today",
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "stockpilot-batch",
		Usage: "Run the daily forecast and procurement analysis",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the daily analysis for one tenant",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newTenantFlag(),
					newDateFlag(),
					&cli.IntFlag{
						Name:  "timeout-seconds",
						Usage: "Deadline for the whole run; products not started by then are skipped",
					},
				},
				Action: runDaily,
			},
			{
				Name:  "export",
				Usage: "Upload a tenant's daily report to object storage",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newTenantFlag(),
					newDateFlag(),
				},
				Action: exportReport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func resolveDate(c *cli.Context) (time.Time, error) {
	raw := c.String("date")
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

func runDaily(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	tenantID, err := uuid.Parse(c.String("tenant-id"))
	if err != nil {
		return fmt.Errorf("invalid tenant-id: %w", err)
	}
	date, err := resolveDate(c)
	if err != nil {
		return err
	}

	db, err := postgres.Open(c.String("db-url"))
	if err != nil {
		return err
	}
	defer db.Close()

	led := ledger.New(postgres.NewLedgerStore(db))
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
	},
		led,
		postgres.NewSalesHistoryRepository(db),
		postgres.NewPurchaseOrderRepository(db),
		postgres.NewForecastRepository(db),
		postgres.NewRecommendationRepository(db),
	)

	orchestrator := batch.New(batch.Config{
		Workers:       cfg.Batch.Workers,
		RetryAttempts: cfg.Batch.RetryAttempts,
		RetryBackoff:  time.Duration(cfg.Batch.RetryBackoffMS) * time.Millisecond,
	}, postgres.NewProductRepository(db), engine)

	ctx := c.Context
	if secs := c.Int("timeout-seconds"); secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	report, err := orchestrator.RunDaily(ctx, tenantID, date)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d products failed", len(report.Failed), report.Total)
	}
	return nil
}

func exportReport(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	tenantID, err := uuid.Parse(c.String("tenant-id"))
	if err != nil {
		return fmt.Errorf("invalid tenant-id: %w", err)
	}
	date, err := resolveDate(c)
	if err != nil {
		return err
	}

	db, err := postgres.Open(c.String("db-url"))
	if err != nil {
		return err
	}
	defer db.Close()

	storage, err := export.NewMinioClient(cfg.Export)
	if err != nil {
		return err
	}

	exporter := export.NewExporter(storage,
		postgres.NewRecommendationRepository(db),
		postgres.NewProductRepository(db),
	)

	key, err := exporter.Export(c.Context, tenantID, date)
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}
