// Command seed-db provisions a demo dataset: units of measure, taxes,
// products, a supplier, an opened POS session with payment methods, and an
// API key for calling the gateway.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/softguidetech/karage/internal/domain/auth"
	"github.com/softguidetech/karage/internal/repository"
)

func main() {
	var (
		databaseURL string
		apiKey      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key token to register (generated when empty)")
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

	if err := run(ctx, databaseURL, apiKey); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedPointOfSale(ctx, pool); err != nil {
		return errors.Wrap(err, "seed point of sale")
	}
	if err := seedAPIKey(ctx, pool, apiKey); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

// seedStatements inserts rows only when they do not exist yet, so repeated
// runs leave manually edited data alone.
var catalogStatements = []string{
	`INSERT INTO uom_categories (id, name) VALUES
		(1, 'Unit'), (2, 'Weight')
		ON CONFLICT (id) DO NOTHING`,

	`INSERT INTO uoms (id, name, category_id, factor, factor_inv, rounding, uom_type) VALUES
		(1, 'Units', 1, 1, 1, 0.01, 'reference'),
		(2, 'kg',    2, 1, 1, 0.01, 'reference'),
		(3, 'g',     2, 1000, 0.001, 0.01, 'smaller')
		ON CONFLICT (id) DO NOTHING`,

	`INSERT INTO taxes (id, name, amount, amount_type, type_tax_use, price_include, company_id) VALUES
		(1, 'VAT 10%', 10, 'percent', 'sale', FALSE, 1),
		(2, 'VAT 5%',   5, 'percent', 'sale', FALSE, 1),
		(3, 'Eco fee',  1, 'fixed',   'sale', FALSE, 1)
		ON CONFLICT (id) DO NOTHING`,

	`INSERT INTO fiscal_positions (id, name) VALUES
		(1, 'Reduced rate')
		ON CONFLICT (id) DO NOTHING`,

	`INSERT INTO fiscal_position_taxes (fiscal_position_id, tax_src_id, tax_dest_id) VALUES
		(1, 1, 2)
		ON CONFLICT DO NOTHING`,

	`INSERT INTO products (id, name, type, category_id, category_name, list_price, standard_price, uom_id, uom_po_id, default_code) VALUES
		(1, 'Espresso',        'consu', 1, 'Beverages', 3.50,  1.20, 1, 1, 'BEV-001'),
		(2, 'Croissant',       'consu', 2, 'Bakery',    2.80,  0.90, 1, 1, 'BAK-001'),
		(3, 'Coffee beans 1kg','consu', 1, 'Beverages', 18.00, 9.50, 2, 2, 'BEV-010')
		ON CONFLICT (id) DO NOTHING`,

	`INSERT INTO product_taxes (product_id, tax_id) VALUES
		(1, 1), (2, 2), (3, 1)
		ON CONFLICT DO NOTHING`,

	`INSERT INTO partners (id, name, display_name, email, city, is_company, supplier_rank, fiscal_position_id) VALUES
		(10, 'Roastery Supply Co', 'Roastery Supply Co', 'sales@roastery.example', 'Lisbon', TRUE, 1, 1)
		ON CONFLICT (id) DO NOTHING`,

	`INSERT INTO product_suppliers (id, product_id, partner_id, product_code, price, currency_id, currency_name, min_qty, delay) VALUES
		(1, 3, 10, 'RSC-BEANS-1K', 9.50, 1, 'EUR', 5, 3)
		ON CONFLICT (id) DO NOTHING`,
}

var posStatements = []string{
	`INSERT INTO pos_configs (id, name, company_id, pricelist_id, currency_id, currency_name) VALUES
		(1, 'Main Store', 1, 1, 1, 'EUR')
		ON CONFLICT (id) DO NOTHING`,

	`INSERT INTO pos_sessions (id, name, config_id, user_id, state) VALUES
		(1, 'POS/00001', 1, 1, 'opened')
		ON CONFLICT (id) DO NOTHING`,

	`INSERT INTO pos_payment_methods (id, name) VALUES
		(1, 'Cash'), (2, 'Card')
		ON CONFLICT (id) DO NOTHING`,
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding catalog")
	return execAll(ctx, pool, catalogStatements)
}

func seedPointOfSale(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding point of sale")
	return execAll(ctx, pool, posStatements)
}

func execAll(ctx context.Context, pool *pgxpool.Pool, statements []string) error {
	for i, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "statement %d", i+1)
		}
	}
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, token string) error {
	generated := token == ""
	if generated {
		var err error
		token, err = auth.GenerateKey()
		if err != nil {
			return errors.Wrap(err, "generate api key")
		}
	}

	repo := repository.NewAPIKeyRepository(pool)
	if err := repo.Upsert(ctx, &auth.APIKey{
		ID:      "default",
		Name:    "Default seed key",
		KeyHash: auth.HashKey(token),
		Active:  true,
	}); err != nil {
		return errors.Wrap(err, "upsert api key")
	}

	if generated {
		// Printed once; only the hash is stored.
		slog.Info("generated API key", slog.String("id", "default"), slog.String("token", token))
	} else {
		slog.Info("registered API key", slog.String("id", "default"))
	}
	return nil
}
