package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/softguidetech/karage/internal/domain/pos"
)

const (
	lockSessionStateSQL = `SELECT name, state FROM pos_sessions WHERE id = $1 FOR SHARE`

	insertOrderSQL = `INSERT INTO pos_orders (name, pos_reference, session_id, config_id, company_id,
			pricelist_id, fiscal_position_id, user_id, partner_id, date_order, note, to_invoice,
			amount_total, amount_tax, amount_paid, amount_return, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`

	nextOrderSeqSQL = `SELECT nextval('pos_orders_id_seq')`

	insertOrderLineSQL = `INSERT INTO pos_order_lines (order_id, line_no, product_id, qty,
			price_unit, discount, price_subtotal, price_subtotal_incl, tax_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertOrderPaymentSQL = `INSERT INTO pos_order_payments (order_id, payment_no, payment_method_id, amount)
		VALUES ($1, $2, $3, $4)`

	markOrderPaidSQL = `UPDATE pos_orders SET state = 'paid' WHERE id = $1 AND state = 'draft'`
)

var _ pos.OrderRepository = (*OrderRepository)(nil)

// OrderRepository implements pos.OrderRepository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header, lines, and payments in one transaction
// and fills in ID, Name, and PosReference. The session's state is re-checked
// under a share lock inside the transaction, so an order can never commit
// into a session that closed after resolution.
func (r *OrderRepository) Create(ctx context.Context, o *pos.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var sessionName, sessionState string
	if err := tx.QueryRow(ctx, lockSessionStateSQL, o.SessionID).Scan(&sessionName, &sessionState); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &pos.SessionNotFoundError{SessionID: o.SessionID}
		}
		return fmt.Errorf("locking session %d: %w", o.SessionID, err)
	}
	if sessionState != pos.SessionOpened && sessionState != pos.SessionOpeningControl {
		return &pos.SessionNotOpenError{Name: sessionName, State: sessionState}
	}

	var seq int64
	if err := tx.QueryRow(ctx, nextOrderSeqSQL).Scan(&seq); err != nil {
		return fmt.Errorf("allocating order sequence: %w", err)
	}
	o.Name = fmt.Sprintf("POS/%05d", seq)
	o.PosReference = fmt.Sprintf("Order %05d-%04d", o.SessionID, seq)

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.Name, o.PosReference, o.SessionID, o.ConfigID, o.CompanyID,
		o.PricelistID, o.FiscalPositionID, o.UserID, o.PartnerID, o.DateOrder, o.Note, o.ToInvoice,
		o.AmountTotal, o.AmountTax, o.AmountPaid, o.AmountReturn, o.State,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	for i, l := range o.Lines {
		taxIDs := make([]int64, len(l.Taxes))
		for j, t := range l.Taxes {
			taxIDs[j] = t.ID
		}
		if _, err := tx.Exec(ctx, insertOrderLineSQL,
			o.ID, i+1, l.ProductID, l.Qty,
			l.PriceUnit, l.Discount, l.PriceSubtotal, l.PriceSubtotalIncl, taxIDs,
		); err != nil {
			return fmt.Errorf("inserting order line %d: %w", i+1, err)
		}
	}

	for i, p := range o.Payments {
		if _, err := tx.Exec(ctx, insertOrderPaymentSQL,
			o.ID, i+1, p.PaymentMethodID, p.Amount,
		); err != nil {
			return fmt.Errorf("inserting order payment %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.Name, err)
	}
	return nil
}

// MarkPaid transitions a draft order to paid.
func (r *OrderRepository) MarkPaid(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, markOrderPaidSQL, id)
	if err != nil {
		return fmt.Errorf("marking order %d paid: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("order %d is not a draft", id)
	}
	return nil
}
