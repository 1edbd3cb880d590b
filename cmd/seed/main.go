package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Seed the database with catalog and history data",
		Commands: []*cli.Command{
			{
				Name:  "catalog",
				Usage: "Seed products and warehouses",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing catalog CSV files",
						Value:   "./data/seeds/catalog",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
				},
				Action: seedCatalog,
			},
			{
				Name:  "sales",
				Usage: "Seed daily sales history",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing sales CSV files",
						Value:   "./data/seeds/sales",
						EnvVars: []string{"SEED_SALES_DIR"},
					},
				},
				Action: seedSales,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seedCatalog(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	dataDir := c.String("data-dir")

	log.Println("Starting catalog seeding...")

	if err := seedTable(ctx, tx, "products",
		[]string{"id", "tenant_id", "sku", "name", "cost", "is_active", "lead_time_days", "safety_stock_days", "min_order_qty"},
		"id",
		filepath.Join(dataDir, "products.csv")); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	if err := seedTable(ctx, tx, "warehouses",
		[]string{"id", "tenant_id", "name", "warehouse_type", "is_primary", "is_active"},
		"id",
		filepath.Join(dataDir, "warehouses.csv")); err != nil {
		return fmt.Errorf("failed to seed warehouses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Println("Catalog seeding completed successfully!")
	return nil
}

func seedSales(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := seedDailySales(ctx, tx, filepath.Join(c.String("data-dir"), "daily_sales.csv")); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Println("Sales seeding completed successfully!")
	return nil
}

// seedTable upserts every CSV row into a table, matching CSV header names
// to the given columns. conflictCol is the unique column driving the upsert.
func seedTable(ctx context.Context, tx *sql.Tx, tableName string, columns []string, conflictCol, filePath string) error {
	log.Printf("Seeding %s from %s\n", tableName, filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tableName,
		buildColumnList(columns),
		buildPlaceholders(placeholders),
		conflictCol,
		buildUpdateClause(columns, conflictCol),
	)

	rowCount := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		args := make([]interface{}, len(columns))
		for i, col := range columns {
			idx := getColumnIndex(header, col)
			if idx < 0 || idx >= len(record) {
				return fmt.Errorf("column %q missing from %s", col, filePath)
			}
			args[i] = record[idx]
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		rowCount++
	}

	log.Printf("Successfully seeded %s (%d records)\n", tableName, rowCount)
	return nil
}

func seedDailySales(ctx context.Context, tx *sql.Tx, filePath string) error {
	log.Printf("Seeding daily_sales from %s\n", filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	const query = `
		INSERT INTO daily_sales (product_id, date, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, date)
		DO UPDATE SET quantity = EXCLUDED.quantity
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare daily sales statement: %w", err)
	}
	defer stmt.Close()

	productIdx := getColumnIndex(header, "product_id")
	dateIdx := getColumnIndex(header, "date")
	qtyIdx := getColumnIndex(header, "quantity")
	if productIdx < 0 || dateIdx < 0 || qtyIdx < 0 {
		return fmt.Errorf("daily_sales CSV must have product_id, date and quantity columns")
	}

	rowCount := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read record: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, record[productIdx], record[dateIdx], record[qtyIdx]); err != nil {
			return fmt.Errorf("failed to upsert daily sale: %w", err)
		}

		rowCount++
		if rowCount%5000 == 0 {
			log.Printf("Seeded %d daily sales...", rowCount)
		}
	}

	log.Printf("Successfully seeded daily_sales (%d records)\n", rowCount)
	return nil
}

func buildColumnList(columns []string) string {
	return `"` + stringJoin(columns, `", "`) + `"`
}

func buildPlaceholders(placeholders []string) string {
	return stringJoin(placeholders, ", ")
}

func buildUpdateClause(columns []string, conflictCol string) string {
	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		if col != conflictCol {
			updates = append(updates, fmt.Sprintf(`"%s" = EXCLUDED."%s"`, col, col))
		}
	}
	return stringJoin(updates, ", ")
}

func getColumnIndex(header []string, column string) int {
	for i, h := range header {
		if h == column {
			return i
		}
	}
	return -1
}

func stringJoin(slice []string, sep string) string {
	if len(slice) == 0 {
		return ""
	}
	result := slice[0]
	for _, s := range slice[1:] {
		result += sep + s
	}
	return result
}
