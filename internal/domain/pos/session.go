// Package pos implements the order-submission core: resolving an open
// session, building tax-computed order lines and payment lines, reconciling
// totals, and committing the finished order.
package pos

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/softguidetech/karage/internal/domain/tax"
)

// ErrNotFound is the sentinel returned by lookup repositories when an entity
// does not exist. Services wrap it into the id-bearing error types below.
var ErrNotFound = errors.New("not found")

// Session states that accept new orders.
const (
	SessionOpened         = "opened"
	SessionOpeningControl = "opening_control"
)

// Session is a bounded operating window (a cash-register shift) that an order
// must belong to. The config-derived fields are flattened in at resolution
// time so the assembler never touches the config entity itself.
type Session struct {
	ID    int64
	Name  string
	State string

	ConfigID         int64
	CompanyID        int64
	PricelistID      int64
	CurrencyID       int64
	FiscalPositionID *int64
	UserID           int64
}

// AcceptsOrders reports whether the session is in an open state.
func (s *Session) AcceptsOrders() bool {
	return s.State == SessionOpened || s.State == SessionOpeningControl
}

// Product is the order-side view of a catalog product: list price and the
// tax rules needed to price a line.
type Product struct {
	ID        int64
	Name      string
	ListPrice decimal.Decimal
	Taxes     []tax.Tax
}

// ProductLookup resolves order-side products by id.
type ProductLookup interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
}

// PaymentMethod is a configured way to settle an order.
type PaymentMethod struct {
	ID     int64
	Name   string
	Active bool
}

// SessionRepository resolves sessions by id.
type SessionRepository interface {
	GetByID(ctx context.Context, id int64) (*Session, error)
}

// PaymentMethodRepository resolves payment methods by id.
type PaymentMethodRepository interface {
	GetByID(ctx context.Context, id int64) (*PaymentMethod, error)
}

// FiscalPositionRepository resolves fiscal positions with their tax mappings.
type FiscalPositionRepository interface {
	GetByID(ctx context.Context, id int64) (*tax.FiscalPosition, error)
}
