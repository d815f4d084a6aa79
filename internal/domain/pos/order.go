package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/softguidetech/karage/internal/domain/tax"
)

// Order states the assembler can produce.
const (
	StateDraft = "draft"
	StatePaid  = "paid"
)

// Sentinel errors for order assembly. The messages are surfaced verbatim to
// API callers.
var (
	ErrNoOrderLines   = errors.New("No valid order lines created")
	ErrNoPaymentLines = errors.New("No valid payment lines created")
)

// SessionNotFoundError indicates the referenced session does not exist.
type SessionNotFoundError struct {
	SessionID int64
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("POS session %d not found", e.SessionID)
}

// SessionNotOpenError indicates the session is not accepting orders.
type SessionNotOpenError struct {
	Name  string
	State string
}

func (e *SessionNotOpenError) Error() string {
	return fmt.Sprintf("POS session %s is not open (state: %s)", e.Name, e.State)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product %d not found", e.ProductID)
}

// PaymentMethodNotFoundError indicates a requested payment method does not exist.
type PaymentMethodNotFoundError struct {
	PaymentMethodID int64
}

func (e *PaymentMethodNotFoundError) Error() string {
	return fmt.Sprintf("Payment method %d not found", e.PaymentMethodID)
}

// LineRequest is one normalized order line from the caller. A zero ProductID
// marks an entry without a product; such entries are skipped, not rejected.
// A nil PriceUnit means "use the product's list price".
type LineRequest struct {
	ProductID int64
	Qty       float64
	PriceUnit *decimal.Decimal
	Discount  decimal.Decimal
}

// PaymentRequest is one normalized payment line from the caller. A zero
// PaymentMethodID marks an entry without a method; such entries are skipped.
type PaymentRequest struct {
	PaymentMethodID int64
	Amount          decimal.Decimal
}

// OrderRequest is a validated, normalized order submission.
type OrderRequest struct {
	SessionID int64
	PartnerID *int64
	DateOrder time.Time
	Note      string
	ToInvoice bool
	// Draft suppresses the automatic transition to paid even when the order
	// is fully covered by payments.
	Draft    bool
	Lines    []LineRequest
	Payments []PaymentRequest
}

// OrderLine is a fully resolved, tax-computed order line.
type OrderLine struct {
	ProductID         int64
	Qty               float64
	PriceUnit         decimal.Decimal
	Discount          decimal.Decimal
	Taxes             []tax.Tax
	PriceSubtotal     decimal.Decimal
	PriceSubtotalIncl decimal.Decimal
}

// TaxAmount returns the tax carried by this line.
func (l OrderLine) TaxAmount() decimal.Decimal {
	return l.PriceSubtotalIncl.Sub(l.PriceSubtotal)
}

// Payment is a resolved payment line.
type Payment struct {
	PaymentMethodID int64
	Amount          decimal.Decimal
}

// Order is the assembled, reconciled order handed to the persistence layer.
// ID, Name, and PosReference are assigned by the repository on Create.
type Order struct {
	ID           int64
	Name         string
	PosReference string

	SessionID        int64
	ConfigID         int64
	CompanyID        int64
	PricelistID      int64
	FiscalPositionID *int64
	UserID           int64
	PartnerID        *int64
	DateOrder        time.Time
	Note             string
	ToInvoice        bool

	Lines    []OrderLine
	Payments []Payment

	AmountTotal  decimal.Decimal
	AmountTax    decimal.Decimal
	AmountPaid   decimal.Decimal
	AmountReturn decimal.Decimal
	State        string
}

// OrderRepository persists assembled orders. Create must be atomic: either
// the whole order (header, lines, payments) becomes visible or nothing does.
// Implementations re-check that the session still accepts orders at commit
// time and return SessionNotOpenError otherwise.
type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	MarkPaid(ctx context.Context, id int64) error
}
