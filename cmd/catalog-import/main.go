// Command catalog-import loads gzipped JSON catalog exports into PostgreSQL.
// Every *.json.gz file in the data directory is expected to hold an array of
// product records; files are imported concurrently.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/softguidetech/karage/internal/repository"
)

const importConcurrency = 4

// productRecord mirrors one entry of a catalog export file.
type productRecord struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	CategoryID    *int64          `json:"categ_id"`
	CategoryName  string          `json:"categ_name"`
	ListPrice     decimal.Decimal `json:"list_price"`
	StandardPrice decimal.Decimal `json:"standard_price"`
	UoMID         *int64          `json:"uom_id"`
	UoMPoID       *int64          `json:"uom_po_id"`
	Barcode       string          `json:"barcode"`
	DefaultCode   string          `json:"default_code"`
	SaleOK        bool            `json:"sale_ok"`
	PurchaseOK    bool            `json:"purchase_ok"`
	Active        bool            `json:"active"`
	TaxIDs        []int64         `json:"taxes_id"`
	ImageURL      string          `json:"image_url"`
}

const (
	upsertProductSQL = `INSERT INTO products
		(id, name, type, category_id, category_name, list_price, standard_price,
		 uom_id, uom_po_id, barcode, default_code, sale_ok, purchase_ok, active, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = $2, type = $3, category_id = $4, category_name = $5,
			list_price = $6, standard_price = $7, uom_id = $8, uom_po_id = $9,
			barcode = $10, default_code = $11, sale_ok = $12, purchase_ok = $13,
			active = $14, image_url = $15`

	upsertProductTaxSQL = `INSERT INTO product_taxes (product_id, tax_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.json.gz catalog exports")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.json.gz"))
	if err != nil {
		return errors.Wrap(err, "list export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.json.gz files found in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("importing catalog exports", slog.Int("files", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)
	for _, f := range files {
		f := f
		g.Go(func() error {
			n, err := importFile(ctx, pool, f)
			if err != nil {
				return errors.Wrapf(err, "import %s", f)
			}
			slog.Info("imported file", slog.String("path", f), slog.Int("products", n))
			return nil
		})
	}
	return g.Wait()
}

// importFile streams one gzipped export and upserts its products. The JSON
// array is decoded element by element, so file size does not bound memory.
func importFile(ctx context.Context, pool *pgxpool.Pool, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open")
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrap(err, "open gzip stream")
	}
	defer gz.Close()

	dec := json.NewDecoder(gz)
	if _, err := dec.Token(); err != nil {
		return 0, errors.Wrap(err, "read array start")
	}

	count := 0
	for dec.More() {
		var rec productRecord
		if err := dec.Decode(&rec); err != nil {
			return count, errors.Wrap(err, "decode product")
		}
		if err := upsertProduct(ctx, pool, rec); err != nil {
			return count, errors.Wrapf(err, "upsert product %d", rec.ID)
		}
		count++
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return count, errors.Wrap(err, "read array end")
	}
	return count, nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, rec productRecord) error {
	if _, err := pool.Exec(ctx, upsertProductSQL,
		rec.ID, rec.Name, rec.Type, rec.CategoryID, rec.CategoryName,
		rec.ListPrice, rec.StandardPrice, rec.UoMID, rec.UoMPoID,
		rec.Barcode, rec.DefaultCode, rec.SaleOK, rec.PurchaseOK,
		rec.Active, rec.ImageURL,
	); err != nil {
		return err
	}
	for _, taxID := range rec.TaxIDs {
		if _, err := pool.Exec(ctx, upsertProductTaxSQL, rec.ID, taxID); err != nil {
			return err
		}
	}
	return nil
}
