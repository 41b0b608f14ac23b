package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/invensight/stockpulse/internal/config"
	"github.com/invensight/stockpulse/internal/domain"
	"github.com/invensight/stockpulse/internal/engine"
	"github.com/invensight/stockpulse/internal/repository/postgres"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newFileFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Usage:    usage,
		Required: true,
	}
}

func initDB(c *cli.Context) error {
	db, err := sqlx.Connect("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, postgres.Wrap(db))
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.Context.Value(dbKey).(*postgres.DB)
	return db
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Initialize and seed the stockpulse database",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the engine tables and indexes",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runInit,
			},
			{
				Name:  "products",
				Usage: "Seed product stock metrics from a CSV file",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newFileFlag("CSV file with product stock metrics"),
				},
				Before: initDB,
				After:  closeDB,
				Action: runSeedProducts,
			},
			{
				Name:  "demand",
				Usage: "Seed demand observations from a CSV file",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newFileFlag("CSV file with demand observations"),
				},
				Before: initDB,
				After:  closeDB,
				Action: runSeedDemand,
			},
			{
				Name:   "evaluate",
				Usage:  "Run one evaluation pass against the database",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runEvaluate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
    product_id          TEXT PRIMARY KEY,
    product_name        TEXT NOT NULL DEFAULT '',
    current_stock       INTEGER NOT NULL DEFAULT 0,
    low_stock_threshold INTEGER NOT NULL DEFAULT 0,
    reorder_point       INTEGER NOT NULL DEFAULT 0,
    overstock_limit     INTEGER NOT NULL DEFAULT 0,
    unit_price          NUMERIC(12,2) NOT NULL DEFAULT 0,
    expiry_date         DATE,
    lead_time_days      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS demand_observations (
    product_id   TEXT NOT NULL,
    period_start DATE NOT NULL,
    units_sold   INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (product_id, period_start)
);

CREATE TABLE IF NOT EXISTS alerts (
    id          TEXT PRIMARY KEY,
    product_id  TEXT NOT NULL,
    alert_type  TEXT NOT NULL,
    severity    TEXT NOT NULL,
    message     TEXT NOT NULL DEFAULT '',
    priority    NUMERIC(14,2) NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL,
    resolved_at TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_alerts_open
    ON alerts (product_id, alert_type)
    WHERE resolved_at IS NULL;
`

func runInit(c *cli.Context) error {
	if _, err := dbFrom(c).ExecContext(c.Context, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Println("schema created")
	return nil
}

func runSeedProducts(c *cli.Context) error {
	db := dbFrom(c)
	repo := postgres.NewInventoryRepository(db)

	rows, err := readCSV(c.String("file"))
	if err != nil {
		return err
	}

	count := 0
	for i, row := range rows {
		if len(row) < 9 {
			return fmt.Errorf("products row %d: expected 9 columns, got %d", i+1, len(row))
		}

		m := domain.StockMetrics{
			ProductID:   strings.TrimSpace(row[0]),
			ProductName: strings.TrimSpace(row[1]),
		}
		if m.CurrentStock, err = strconv.Atoi(row[2]); err != nil {
			return fmt.Errorf("products row %d: bad current_stock: %w", i+1, err)
		}
		if m.LowStockThreshold, err = strconv.Atoi(row[3]); err != nil {
			return fmt.Errorf("products row %d: bad low_stock_threshold: %w", i+1, err)
		}
		if m.ReorderPoint, err = strconv.Atoi(row[4]); err != nil {
			return fmt.Errorf("products row %d: bad reorder_point: %w", i+1, err)
		}
		if m.OverstockLimit, err = strconv.Atoi(row[5]); err != nil {
			return fmt.Errorf("products row %d: bad overstock_limit: %w", i+1, err)
		}
		if m.UnitPrice, err = decimal.NewFromString(strings.TrimSpace(row[6])); err != nil {
			return fmt.Errorf("products row %d: bad unit_price: %w", i+1, err)
		}
		if expiry := strings.TrimSpace(row[7]); expiry != "" {
			t, err := time.Parse("2006-01-02", expiry)
			if err != nil {
				return fmt.Errorf("products row %d: bad expiry_date: %w", i+1, err)
			}
			m.ExpiryDate = &t
		}
		if m.LeadTimeDays, err = strconv.Atoi(row[8]); err != nil {
			return fmt.Errorf("products row %d: bad lead_time_days: %w", i+1, err)
		}

		if err := repo.UpsertMetrics(c.Context, m); err != nil {
			return err
		}
		count++
	}

	log.Printf("seeded %d products", count)
	return nil
}

func runSeedDemand(c *cli.Context) error {
	db := dbFrom(c)
	repo := postgres.NewDemandRepository(db)

	rows, err := readCSV(c.String("file"))
	if err != nil {
		return err
	}

	count := 0
	for i, row := range rows {
		if len(row) < 3 {
			return fmt.Errorf("demand row %d: expected 3 columns, got %d", i+1, len(row))
		}

		periodStart, err := time.Parse("2006-01-02", strings.TrimSpace(row[1]))
		if err != nil {
			return fmt.Errorf("demand row %d: bad period_start: %w", i+1, err)
		}
		units, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return fmt.Errorf("demand row %d: bad units_sold: %w", i+1, err)
		}

		obs := domain.DemandObservation{
			ProductID:   strings.TrimSpace(row[0]),
			PeriodStart: periodStart,
			UnitsSold:   units,
		}
		if err := repo.Append(c.Context, obs); err != nil {
			return err
		}
		count++
	}

	log.Printf("seeded %d demand observations", count)
	return nil
}

func runEvaluate(c *cli.Context) error {
	db := dbFrom(c)
	cfg := config.Load()

	inventoryRepo := postgres.NewInventoryRepository(db)
	demandRepo := postgres.NewDemandRepository(db)
	alertRepo := postgres.NewAlertRepository(db)

	eng := engine.New(engine.Config{
		TrendWindow:         cfg.Engine.TrendWindow,
		DefaultLeadTimeDays: cfg.Engine.DefaultLeadTimeDays,
		ExpiryWarningDays:   cfg.Engine.ExpiryWarningDays,
		SpreadMin:           cfg.Engine.SpreadMin,
		SpreadMax:           cfg.Engine.SpreadMax,
		WorkerCount:         cfg.Engine.WorkerCount,
	})

	snapshots, err := inventoryRepo.ListMetrics(c.Context)
	if err != nil {
		return err
	}
	histories, err := demandRepo.Histories(c.Context, cfg.Engine.RetentionWindow)
	if err != nil {
		return err
	}
	openAlerts, err := alertRepo.OpenAlerts(c.Context)
	if err != nil {
		return err
	}

	batch, err := eng.EvaluateAll(c.Context, engine.Input{
		Snapshots:  snapshots,
		Histories:  histories,
		OpenAlerts: openAlerts,
	})
	if err != nil {
		return err
	}

	if err := alertRepo.Apply(c.Context, batch.AlertsToCreate, batch.AlertsToResolve, batch.EvaluatedAt); err != nil {
		return err
	}

	log.Printf("evaluated %d products: %d recommendations, %d alerts created, %d resolved, %d failures",
		batch.ProductCount, len(batch.Recommendations),
		len(batch.AlertsToCreate), len(batch.AlertsToResolve), len(batch.Failures))

	return nil
}

// readCSV reads all data rows, skipping a header row when the first cell is
// not numeric in any column position that expects a number.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	var rows [][]string
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		if first {
			first = false
			if looksLikeHeader(row) {
				continue
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func looksLikeHeader(row []string) bool {
	for _, cell := range row {
		if strings.EqualFold(strings.TrimSpace(cell), "product_id") {
			return true
		}
	}
	return false
}
