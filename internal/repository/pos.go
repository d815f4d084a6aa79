package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/softguidetech/karage/internal/domain/pos"
	"github.com/softguidetech/karage/internal/domain/tax"
)

const (
	getSessionSQL = `SELECT s.id, s.name, s.state, s.config_id, s.user_id,
			c.company_id, c.pricelist_id, c.currency_id, c.fiscal_position_id
		FROM pos_sessions s
		JOIN pos_configs c ON c.id = s.config_id
		WHERE s.id = $1`

	getSaleProductSQL = `SELECT id, name, list_price FROM products WHERE id = $1`

	getProductTaxesSQL = `SELECT t.id, t.name, t.amount, t.amount_type, t.type_tax_use,
			t.price_include, t.company_id, t.active
		FROM product_taxes pt
		JOIN taxes t ON t.id = pt.tax_id
		WHERE pt.product_id = $1 AND t.active
		ORDER BY t.id`

	getPaymentMethodSQL = `SELECT id, name, active FROM pos_payment_methods WHERE id = $1`

	getFiscalPositionSQL = `SELECT id, name, active FROM fiscal_positions WHERE id = $1`

	getFiscalMappingsSQL = `SELECT m.tax_src_id,
			dst.id, dst.name, dst.amount, dst.amount_type, dst.type_tax_use,
			dst.price_include, dst.company_id, dst.active
		FROM fiscal_position_taxes m
		LEFT JOIN taxes dst ON dst.id = m.tax_dest_id
		WHERE m.fiscal_position_id = $1
		ORDER BY m.tax_src_id`
)

var (
	_ pos.SessionRepository        = (*SessionRepository)(nil)
	_ pos.ProductLookup            = (*SaleProductRepository)(nil)
	_ pos.PaymentMethodRepository  = (*PaymentMethodRepository)(nil)
	_ pos.FiscalPositionRepository = (*FiscalPositionRepository)(nil)
)

// SessionRepository resolves POS sessions with their config-derived fields.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetByID returns a session joined with its configuration.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*pos.Session, error) {
	rows, err := r.pool.Query(ctx, getSessionSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting session %d: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pos.ErrNotFound
		}
		return nil, fmt.Errorf("getting session %d: %w", id, err)
	}
	return &s, nil
}

func scanSession(row pgx.CollectableRow) (pos.Session, error) {
	var s pos.Session
	err := row.Scan(
		&s.ID, &s.Name, &s.State, &s.ConfigID, &s.UserID,
		&s.CompanyID, &s.PricelistID, &s.CurrencyID, &s.FiscalPositionID,
	)
	return s, err
}

// SaleProductRepository resolves the order-side product view: list price and
// applicable tax rules.
type SaleProductRepository struct {
	pool *pgxpool.Pool
}

// NewSaleProductRepository returns a SaleProductRepository that uses the given pool.
func NewSaleProductRepository(pool *pgxpool.Pool) *SaleProductRepository {
	return &SaleProductRepository{pool: pool}
}

// GetByID returns a product with its tax rules.
func (r *SaleProductRepository) GetByID(ctx context.Context, id int64) (*pos.Product, error) {
	var p pos.Product
	err := r.pool.QueryRow(ctx, getSaleProductSQL, id).Scan(&p.ID, &p.Name, &p.ListPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pos.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, getProductTaxesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting taxes for product %d: %w", id, err)
	}
	p.Taxes, err = pgx.CollectRows(rows, scanTax)
	if err != nil {
		return nil, fmt.Errorf("getting taxes for product %d: %w", id, err)
	}
	return &p, nil
}

func scanTax(row pgx.CollectableRow) (tax.Tax, error) {
	var t tax.Tax
	err := row.Scan(
		&t.ID, &t.Name, &t.Amount, &t.AmountType, &t.TypeTaxUse,
		&t.PriceInclude, &t.CompanyID, &t.Active,
	)
	return t, err
}

// PaymentMethodRepository resolves POS payment methods.
type PaymentMethodRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentMethodRepository returns a PaymentMethodRepository that uses the given pool.
func NewPaymentMethodRepository(pool *pgxpool.Pool) *PaymentMethodRepository {
	return &PaymentMethodRepository{pool: pool}
}

// GetByID returns a payment method.
func (r *PaymentMethodRepository) GetByID(ctx context.Context, id int64) (*pos.PaymentMethod, error) {
	var m pos.PaymentMethod
	err := r.pool.QueryRow(ctx, getPaymentMethodSQL, id).Scan(&m.ID, &m.Name, &m.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pos.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment method %d: %w", id, err)
	}
	return &m, nil
}

// FiscalPositionRepository resolves fiscal positions with their full tax
// substitution tables.
type FiscalPositionRepository struct {
	pool *pgxpool.Pool
}

// NewFiscalPositionRepository returns a FiscalPositionRepository that uses the given pool.
func NewFiscalPositionRepository(pool *pgxpool.Pool) *FiscalPositionRepository {
	return &FiscalPositionRepository{pool: pool}
}

// GetByID returns a fiscal position with its tax mappings.
func (r *FiscalPositionRepository) GetByID(ctx context.Context, id int64) (*tax.FiscalPosition, error) {
	var fp tax.FiscalPosition
	err := r.pool.QueryRow(ctx, getFiscalPositionSQL, id).Scan(&fp.ID, &fp.Name, &fp.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pos.ErrNotFound
		}
		return nil, fmt.Errorf("getting fiscal position %d: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, getFiscalMappingsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting fiscal position %d mappings: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			srcID int64

			dstID           *int64
			dstName         *string
			dstAmountType   *string
			dstTaxUse       *string
			dstPriceInclude *bool
			dstCompanyID    *int64
			dstActive       *bool
		)
		var dstAmount decimal.NullDecimal
		if err := rows.Scan(&srcID,
			&dstID, &dstName, &dstAmount, &dstAmountType, &dstTaxUse,
			&dstPriceInclude, &dstCompanyID, &dstActive); err != nil {
			return nil, fmt.Errorf("scanning fiscal position mapping: %w", err)
		}

		m := tax.Mapping{SrcTaxID: srcID}
		if dstID != nil {
			m.Dest = &tax.Tax{
				ID:           *dstID,
				Name:         *dstName,
				Amount:       dstAmount.Decimal,
				AmountType:   tax.AmountType(*dstAmountType),
				TypeTaxUse:   *dstTaxUse,
				PriceInclude: *dstPriceInclude,
				CompanyID:    *dstCompanyID,
				Active:       *dstActive,
			}
		}
		fp.Mappings = append(fp.Mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting fiscal position %d mappings: %w", id, err)
	}
	return &fp, nil
}
